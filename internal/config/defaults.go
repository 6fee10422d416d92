package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultTestsDir is the protected test-file root, relative to the project
	DefaultTestsDir = "tests/api"
	// DefaultFailuresDir is where failure records are written
	DefaultFailuresDir = "failures"
	// DefaultBackupDir is where backups are stored
	DefaultBackupDir = "failures/.backups"
	// DefaultExchangeDir is where per-run HTTP exchange logs are written
	DefaultExchangeDir = "failures/.http"
	// DefaultOutputJSONFile is the run results file name
	DefaultOutputJSONFile = "run-results.json"
	// DefaultHealLogFile is the heal results log file name
	DefaultHealLogFile = "heal-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = "storage"
	// DefaultWorkers is the default number of parallel workers for full runs
	DefaultWorkers = 4
	// DefaultMaxRetries bounds fix attempts per failure before rollback
	DefaultMaxRetries = 3
	// DefaultRunnerCommand executes the test suite
	DefaultRunnerCommand = "pytest"
	// DefaultAPIBaseURL is the target API probed by tests and the call-api tool
	DefaultAPIBaseURL = "https://jsonplaceholder.typicode.com"
	// DefaultModel is the reasoning engine model
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultTestTimeout bounds a single-test validation run
	DefaultTestTimeout = 30 * time.Second
	// DefaultSuiteTimeout bounds one test file execution during a full run
	DefaultSuiteTimeout = 120 * time.Second
	// DefaultEngineTimeout bounds one reasoning engine invocation
	DefaultEngineTimeout = 5 * time.Minute
	// DefaultAPITimeout bounds one call-api tool request
	DefaultAPITimeout = 10 * time.Second
)

// DefaultPathsToIgnore are directories skipped when scanning for tests
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	".venv",
	"venv",
	"__pycache__",
	".pytest_cache",
	"storage",
	"failures",
}
