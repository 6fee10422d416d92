package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"apiheal/internal/config"
	"apiheal/internal/domain"
)

// ExchangeLogEnv names the environment variable the test fixtures read to
// know where to append HTTP exchange entries.
const ExchangeLogEnv = "APIHEAL_HTTP_LOG"

// Runner executes pytest for test files and individual test cases.
type Runner struct {
	config *config.Config
}

// NewRunner creates a new Runner
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{config: cfg}
}

// RunFile executes the runner for a single test file. The whole file gets
// one exchange log so the capture hook can correlate failures with the
// HTTP traffic the test process recorded.
func (r *Runner) RunFile(testPath string, workerID int) domain.TestResult {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.SuiteTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.config.RunnerCommand, "-v", testPath)
	cmd.Dir = r.config.ProjectPath
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", ExchangeLogEnv, r.ExchangeLogPath(testPath)))

	start := time.Now()
	output, err := cmd.CombinedOutput()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("test file timed out after %s: %w", r.config.SuiteTimeout, ctx.Err())
	}

	return domain.TestResult{
		TestPath: testPath,
		Success:  err == nil,
		Output:   string(output),
		Error:    err,
		Duration: duration,
	}
}

// RunSingle executes exactly one test by its identity ("file::name") and
// reports whether it passed. Used by the healing loop to validate a fix.
func (r *Runner) RunSingle(ctx context.Context, testID string) domain.SingleTestResult {
	ctx, cancel := context.WithTimeout(ctx, r.config.TestTimeout)
	defer cancel()

	testFile := testID
	if i := strings.Index(testID, "::"); i >= 0 {
		testFile = testID[:i]
	}

	cmd := exec.CommandContext(ctx, r.config.RunnerCommand, "-v", testID)
	cmd.Dir = r.config.ProjectPath
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", ExchangeLogEnv, r.ExchangeLogPath(testFile)))

	start := time.Now()
	output, err := cmd.CombinedOutput()
	duration := time.Since(start)

	result := domain.SingleTestResult{
		TestID:   testID,
		Passed:   err == nil,
		Output:   string(output),
		Duration: duration,
	}
	if ctx.Err() == context.DeadlineExceeded {
		result.Error = fmt.Sprintf("test timed out after %s", r.config.TestTimeout)
	} else if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			// Runner could not be started at all; distinct from a failing test.
			result.Error = err.Error()
		}
	}
	return result
}

// ExchangeLogPath returns the JSONL exchange log path for a test file.
func (r *Runner) ExchangeLogPath(testPath string) string {
	name := strings.TrimSuffix(filepath.Base(testPath), filepath.Ext(testPath))
	return filepath.Join(r.config.GetExchangeDir(), name+".jsonl")
}
