package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"apiheal/internal/agent"
	"apiheal/internal/config"
	"apiheal/internal/coverage"
	"apiheal/internal/ui"
)

// maxReportedGaps caps how many uncovered cases one invocation reports and
// generates for, highest priority first.
const maxReportedGaps = 10

// GapsCommand handles the gaps command
type GapsCommand struct {
	config    *config.Config
	formatter *ui.Formatter
}

// NewGapsCommand creates a new GapsCommand
func NewGapsCommand(cfg *config.Config, formatter *ui.Formatter) *GapsCommand {
	return &GapsCommand{
		config:    cfg,
		formatter: formatter,
	}
}

// Execute runs the command
func (gc *GapsCommand) Execute(cmd *cobra.Command, args []string) error {
	analyzer := coverage.NewAnalyzer(gc.config.GetTestsRoot(), coverage.DefaultCatalog())

	covered, err := analyzer.ScanCoverage()
	if err != nil {
		return fmt.Errorf("coverage scan failed: %w", err)
	}

	gaps := analyzer.IdentifyGaps(covered, maxReportedGaps)
	if len(gaps) == 0 {
		color.Green("No coverage gaps identified")
		return nil
	}

	gc.formatter.PrintGaps(gaps)

	if !gc.config.Flags.Generate {
		return nil
	}
	if gc.config.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set; --generate needs the reasoning engine")
	}

	client := agent.NewAnthropicClient(gc.config.AnthropicAPIKey, gc.config.Model, gc.config.EngineTimeout)
	generator := coverage.NewGenerator(client, analyzer, gc.config.GetTestsRoot(), gc.config.APIBaseURL)

	color.Cyan("\nGenerating tests for %d gap(s)\n", len(gaps))
	var written int
	for _, gap := range gaps {
		path, genErr := generator.Generate(cmd.Context(), gap)
		if genErr != nil {
			color.Red("  ✗ %s %s (%s): %v", gap.Method, gap.URLPattern, gap.TestType, genErr)
			continue
		}
		if path == "" {
			color.Yellow("  - %s %s (%s): already covered, skipped", gap.Method, gap.URLPattern, gap.TestType)
			continue
		}
		color.Green("  ✓ %s", path)
		written++
	}
	color.Cyan("\nGenerated %d test file(s)", written)
	return nil
}
