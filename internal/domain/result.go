package domain

import "time"

// TestResult represents the result of executing one test file.
type TestResult struct {
	TestPath string        // Path to the test file that was executed
	Success  bool          // Whether every test in the file passed
	Output   string        // Raw runner output
	Error    error         // Error if execution itself failed
	Duration time.Duration // Time taken to execute
}

// SingleTestResult is the outcome of running exactly one test by its
// fully-qualified identity.
type SingleTestResult struct {
	TestID   string
	Passed   bool
	Output   string
	Duration time.Duration
	Error    string // non-empty when execution failed or timed out
}

// CapturedFailure references one persisted failure record from a run.
type CapturedFailure struct {
	RecordPath string `json:"record_path"`
	TestFile   string `json:"test_file"`
	TestName   string `json:"test_name"`
	ErrorKind  string `json:"error_kind"`
	Resolved   bool   `json:"resolved,omitempty"` // Track if failure is marked as resolved
}

// RunMeta contains metadata about a test run.
type RunMeta struct {
	TotalTestFiles   int     `json:"total_test_files"`
	FailedTestFiles  int     `json:"failed_test_files"`
	PassedTestFiles  int     `json:"passed_test_files"`
	CapturedFailures int     `json:"captured_failures"`
	Duration         string  `json:"duration"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Workers          int     `json:"workers"`
	Timestamp        string  `json:"timestamp"`
}

// RunOutput is the complete persisted output of a run.
type RunOutput struct {
	Meta     RunMeta           `json:"meta"`
	Failures []CapturedFailure `json:"failures"`
}
