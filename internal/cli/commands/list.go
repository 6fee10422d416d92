package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"apiheal/internal/config"
	"apiheal/internal/discovery"
	"apiheal/internal/storage"
	"apiheal/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	formatter *ui.Formatter
	storage   storage.Storage
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	filter *discovery.Filter,
	formatter *ui.Formatter,
	st storage.Storage,
) *ListCommand {
	return &ListCommand{
		config:    cfg,
		scanner:   scanner,
		filter:    filter,
		formatter: formatter,
		storage:   st,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	testPath := lc.config.GetTestPath()
	tests, err := lc.scanner.Scan(testPath)
	if err != nil {
		return err
	}

	// Filter tests
	tests = lc.filter.FilterByName(tests, lc.config.Flags.NameFilter)

	if len(tests) == 0 {
		color.Yellow("No tests found")
		return nil
	}

	// Mark files that failed in the last run; no stored run is fine.
	var failedPaths map[string]struct{}
	if output, loadErr := lc.storage.LoadRun(); loadErr == nil {
		failedPaths = lc.formatter.FailedPathSet(output)
	}

	return lc.formatter.PrintTestList(tests, lc.config.Flags.TestCases, failedPaths)
}
