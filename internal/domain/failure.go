package domain

import "fmt"

// APIResponse is the captured HTTP response from the last call a test made
// before it failed.
type APIResponse struct {
	StatusCode int               `json:"status_code"`
	Body       any               `json:"body,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	URL        string            `json:"url,omitempty"`
}

// FailureRecord is an immutable snapshot of one failing test. It is created
// once by the capture hook and consumed read-only by the healer; a fresh run
// always produces a fresh record. The record is self-contained: healing never
// re-runs the original test to recover context.
type FailureRecord struct {
	TestFile     string `json:"test_file"`
	TestName     string `json:"test_name"`
	ErrorKind    string `json:"error_kind"`
	ErrorMessage string `json:"error_message"`

	// Actual and Expected are the best-effort extracted operands of the
	// failing comparison. Extraction is heuristic; either may be absent.
	Actual   any `json:"actual,omitempty"`
	Expected any `json:"expected,omitempty"`

	LineNumber int    `json:"line_number,omitempty"`
	Traceback  string `json:"traceback,omitempty"`

	APIResponse    *APIResponse `json:"api_response,omitempty"`
	RequestMethod  string       `json:"request_method,omitempty"`
	RequestURL     string       `json:"request_url,omitempty"`
	RequestPayload any          `json:"request_payload,omitempty"`

	Timestamp string `json:"timestamp"`
}

// TestID returns the fully-qualified test identity used by the runner,
// e.g. "tests/api/test_users.py::test_get_user_by_id".
func (r *FailureRecord) TestID() string {
	return fmt.Sprintf("%s::%s", r.TestFile, r.TestName)
}
