package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"apiheal/internal/agent"
	"apiheal/internal/backup"
	"apiheal/internal/config"
	"apiheal/internal/domain"
	"apiheal/internal/healer"
	"apiheal/internal/runner"
	"apiheal/internal/storage"
	"apiheal/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// HealCommand handles the heal command
type HealCommand struct {
	config    *config.Config
	runner    *runner.Runner
	store     *backup.Store
	storage   storage.Storage
	formatter *ui.Formatter
}

// NewHealCommand creates a new HealCommand
func NewHealCommand(
	cfg *config.Config,
	testRunner *runner.Runner,
	store *backup.Store,
	st storage.Storage,
	formatter *ui.Formatter,
) *HealCommand {
	return &HealCommand{
		config:    cfg,
		runner:    testRunner,
		store:     store,
		storage:   st,
		formatter: formatter,
	}
}

// Execute runs the command
func (hc *HealCommand) Execute(cmd *cobra.Command, args []string) error {
	if hc.config.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set; the heal command needs the reasoning engine")
	}

	output, records, err := hc.collectRecords(args)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		color.Green("No captured failures to heal")
		return nil
	}

	client := agent.NewAnthropicClient(hc.config.AnthropicAPIKey, hc.config.Model, hc.config.EngineTimeout)
	tools := agent.NewToolset(hc.config.GetTestsRoot(), hc.store, hc.runner, hc.config.APIBaseURL, hc.config.APITimeout)
	engine := agent.NewEngine(client, tools)
	h := healer.New(engine, hc.runner, hc.store, hc.config.ProjectPath, hc.config.MaxRetries, hc.config.EngineTimeout)

	color.Cyan("Healing %d captured failure(s), max %d attempt(s) each\n", len(records), hc.config.MaxRetries)

	// Sessions are strictly sequential: two sessions must never touch the
	// same test file at the same time.
	var results []domain.HealResult
	for _, recordPath := range records {
		result := h.Heal(cmd.Context(), recordPath)
		results = append(results, result)

		if err := hc.storage.AppendHealResult(result); err != nil {
			color.Yellow("Warning: failed to persist heal result for %s: %v", recordPath, err)
		}
		if result.Success && output != nil {
			markResolved(output, recordPath)
		}
	}

	if output != nil {
		if err := hc.storage.SaveRunOutput(output); err != nil {
			color.Yellow("Warning: failed to update run output: %v", err)
		}
	}

	hc.formatter.PrintHealSummary(results)
	return nil
}

// collectRecords resolves which failure records to heal: explicit paths from
// the command line, the unresolved failures of the last run, or a scan of the
// failures directory when no run output exists.
func (hc *HealCommand) collectRecords(args []string) (*domain.RunOutput, []string, error) {
	if len(args) > 0 {
		sort.Strings(args)
		return nil, args, nil
	}

	output, err := hc.storage.LoadRun()
	if err != nil {
		records, scanErr := scanFailureRecords(hc.config.GetFailuresDir())
		if scanErr != nil {
			return nil, nil, fmt.Errorf("no run output and no failure records found: %w", scanErr)
		}
		return nil, records, nil
	}

	var records []string
	for _, failure := range output.Failures {
		if failure.Resolved {
			continue
		}
		records = append(records, failure.RecordPath)
	}
	sort.Strings(records)
	return output, records, nil
}

// scanFailureRecords lists failure record files directly, for healing runs
// that were captured by an earlier invocation or another machine.
func scanFailureRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var records []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		records = append(records, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(records)
	return records, nil
}

func markResolved(output *domain.RunOutput, recordPath string) {
	for i := range output.Failures {
		if output.Failures[i].RecordPath == recordPath {
			output.Failures[i].Resolved = true
		}
	}
}
