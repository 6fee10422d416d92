package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"apiheal/internal/capture"
	"apiheal/internal/config"
	"apiheal/internal/discovery"
	"apiheal/internal/domain"
	"apiheal/internal/parser"
	"apiheal/internal/runner"
	"apiheal/internal/storage"
	"apiheal/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RunCommand handles the run command
type RunCommand struct {
	config    *config.Config
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	pool      *runner.WorkerPool
	runner    *runner.Runner
	parser    *parser.PytestParser
	storage   storage.Storage
	formatter *ui.Formatter
	viewer    ui.Viewer
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	filter *discovery.Filter,
	pool *runner.WorkerPool,
	testRunner *runner.Runner,
	pytestParser *parser.PytestParser,
	st storage.Storage,
	formatter *ui.Formatter,
	viewer ui.Viewer,
) *RunCommand {
	return &RunCommand{
		config:    cfg,
		scanner:   scanner,
		filter:    filter,
		pool:      pool,
		runner:    testRunner,
		parser:    pytestParser,
		storage:   st,
		formatter: formatter,
		viewer:    viewer,
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	// Discover tests
	testPath := rc.config.GetTestPath()
	tests, err := rc.scanner.Scan(testPath)
	if err != nil {
		return err
	}

	// Filter tests
	tests = rc.filter.FilterByName(tests, rc.config.Flags.NameFilter)

	if len(tests) == 0 {
		color.Yellow("No tests to execute")
		return nil
	}

	// Create and set progress bar
	progressBar := ui.NewProgressBar(len(tests))
	rc.pool.SetProgress(progressBar)

	// Execute tests
	results, duration, err := rc.pool.ExecuteWithOptions(tests, rc.config.Flags.FailFast)
	if err != nil {
		return err
	}

	// Capture a failure record for every failed test case
	hook := capture.NewHook(rc.config.GetFailuresDir())
	var failures []domain.CapturedFailure
	for _, result := range results {
		if result.Success {
			continue
		}
		exchanges := capture.ReadExchangeLog(rc.runner.ExchangeLogPath(result.TestPath))
		for _, pf := range rc.parser.ParseFailures(result) {
			captured, captureErr := hook.Capture(rc.relPath(result.TestPath), pf, exchangeFor(exchanges, pf.TestName))
			if captureErr != nil {
				// A record that cannot be persisted must not sink the run.
				color.Yellow("Warning: failed to capture %s: %v", pf.TestName, captureErr)
				continue
			}
			failures = append(failures, captured)
		}
	}

	// Save results
	if err := rc.storage.SaveRun(results, failures, duration, rc.config.Workers); err != nil {
		return fmt.Errorf("failed to save test results: %w", err)
	}

	// Print stats
	if err := rc.formatter.PrintMetaStats(); err != nil {
		return err
	}

	if rc.config.Flags.OpenViewer && len(failures) > 0 {
		output, loadErr := rc.storage.LoadRun()
		if loadErr != nil {
			return loadErr
		}
		return rc.viewer.View(output)
	}
	return nil
}

// relPath converts an absolute discovered test path into the project-relative
// form stored in failure records and used as the test identity prefix.
func (rc *RunCommand) relPath(testPath string) string {
	rel, err := filepath.Rel(rc.config.ProjectPath, testPath)
	if err != nil {
		return testPath
	}
	return filepath.ToSlash(rel)
}

// exchangeFor picks the logged HTTP exchange belonging to a test case. Logs
// key entries by the runner's identity ("file::name"), but a bare name is
// accepted too so a simpler instrumentation hook still matches.
func exchangeFor(exchanges map[string]capture.Exchange, testName string) *capture.Exchange {
	for id, ex := range exchanges {
		if id == testName || strings.HasSuffix(id, "::"+testName) {
			matched := ex
			return &matched
		}
	}
	return nil
}
