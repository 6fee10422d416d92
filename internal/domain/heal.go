package domain

// HealState is the current phase of a healing session.
type HealState string

const (
	StateLoading     HealState = "LOADING"
	StateDiagnosing  HealState = "DIAGNOSING"
	StateAwaitingFix HealState = "AWAITING_FIX"
	StateValidating  HealState = "VALIDATING"
	StateSucceeded   HealState = "SUCCEEDED"
	StateRetrying    HealState = "RETRYING"
	StateRolledBack  HealState = "ROLLED_BACK"
	StateFailed      HealState = "FAILED"
)

// HealAttempt is one iteration of the retry loop. It is not persisted on its
// own; attempts roll up into the final HealResult.
type HealAttempt struct {
	Number       int
	EngineOutput string
	BackupPaths  []string
	Passed       bool
}

// HealResult is the terminal outcome of healing one failure record.
type HealResult struct {
	Success    bool      `json:"success"`
	State      HealState `json:"state,omitempty"`
	TestName   string    `json:"test_name"`
	TestFile   string    `json:"test_file,omitempty"`
	Attempts   int       `json:"attempts"`
	Decision   string    `json:"decision,omitempty"`
	Error      string    `json:"error,omitempty"`
	RolledBack bool      `json:"rolled_back,omitempty"`
	RecordPath string    `json:"record_path,omitempty"`
	Timestamp  string    `json:"timestamp"`
}
