package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"apiheal/internal/config"
	"apiheal/internal/coverage"
	"apiheal/internal/discovery"
	"apiheal/internal/domain"
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	parser *discovery.Parser
}

// NewFormatter creates a new Formatter
func NewFormatter(cfg *config.Config, parser *discovery.Parser) *Formatter {
	return &Formatter{
		config: cfg,
		parser: parser,
	}
}

// PrintMetaStats reads and displays meta statistics from the JSON results file
func (f *Formatter) PrintMetaStats() error {
	// Clear terminal screen
	fmt.Print("\033[2J\033[H")

	outputPath := f.config.GetOutputPath()

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}

	var output domain.RunOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	meta := output.Meta

	// Print header
	fmt.Print("\n")
	color.Cyan("╔═══════════════════════════════════════════════════════════════╗")
	color.Cyan("║                    Test Execution Statistics                  ║")
	color.Cyan("╚═══════════════════════════════════════════════════════════════╝\n")

	fmt.Println("┌─────────────────────────────────┬─────────────────────────────┐")

	fmt.Printf("│ %-31s │ ", "Total Test Files")
	color.White("%-27d │\n", meta.TotalTestFiles)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Passed Test Files")
	color.Green("%-27d │\n", meta.PassedTestFiles)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Failed Test Files")
	color.Red("%-27d │\n", meta.FailedTestFiles)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Captured Failures")
	color.Red("%-27d │\n", meta.CapturedFailures)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Duration")
	durationStr := fmt.Sprintf("%.2fs", meta.DurationSeconds)
	color.White("%-27s │\n", durationStr)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Workers")
	color.White("%-27d │\n", meta.Workers)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Timestamp")
	color.White("%-27s │\n", meta.Timestamp)

	fmt.Println("└─────────────────────────────────┴─────────────────────────────┘")

	fmt.Println()
	if meta.FailedTestFiles == 0 {
		color.Green("✓ All tests passed!")
	} else {
		color.Red("✗ %d test file(s) failed with %d captured failure(s)", meta.FailedTestFiles, meta.CapturedFailures)
		fmt.Println()
		f.printFailuresTree(output.Failures)
	}

	return nil
}

// printFailuresTree prints captured failures grouped by test file
func (f *Formatter) printFailuresTree(failures []domain.CapturedFailure) {
	if len(failures) == 0 {
		return
	}

	fileMap := make(map[string][]domain.CapturedFailure)
	for _, failure := range failures {
		fileMap[failure.TestFile] = append(fileMap[failure.TestFile], failure)
	}

	var files []string
	for file := range fileMap {
		files = append(files, file)
	}
	sort.Strings(files)

	for i, file := range files {
		isLastFile := i == len(files)-1
		if isLastFile {
			color.Yellow("└── %s", file)
		} else {
			color.Yellow("├── %s", file)
		}

		fileFailures := fileMap[file]
		for j, failure := range fileFailures {
			isLastCase := j == len(fileFailures)-1
			var prefix string
			if isLastFile {
				if isLastCase {
					prefix = "    └── "
				} else {
					prefix = "    ├── "
				}
			} else {
				if isLastCase {
					prefix = "│   └── "
				} else {
					prefix = "│   ├── "
				}
			}
			marker := ""
			if failure.Resolved {
				marker = " " + color.GreenString("[healed]")
			}
			color.Red("%s%s (%s)%s", prefix, failure.TestName, failure.ErrorKind, marker)
		}
	}
}

// PrintHealSummary displays the outcome of a healing pass
func (f *Formatter) PrintHealSummary(results []domain.HealResult) {
	if len(results) == 0 {
		color.Yellow("No failures to heal.")
		return
	}

	healed := 0
	for _, r := range results {
		if r.Success {
			healed++
		}
	}

	fmt.Println()
	color.Cyan("══════════════════ Healing Summary ══════════════════")
	for _, r := range results {
		if r.Success {
			color.Green("✓ %s (attempts: %d)", r.TestName, r.Attempts)
			if r.Decision != "" {
				fmt.Printf("  %s\n", r.Decision)
			}
		} else {
			color.Red("✗ %s (attempts: %d, state: %s)", r.TestName, r.Attempts, r.State)
			if r.Error != "" {
				fmt.Printf("  %s\n", r.Error)
			}
			if r.RolledBack {
				color.Yellow("  rolled back to last backup")
			}
		}
	}
	fmt.Println()
	if healed == len(results) {
		color.Green("Healed %d/%d failing test(s)", healed, len(results))
	} else {
		color.Yellow("Healed %d/%d failing test(s)", healed, len(results))
	}
}

// PrintBackups displays available backups as a table, newest first
func (f *Formatter) PrintBackups(backups []domain.BackupInfo) {
	if len(backups) == 0 {
		color.Yellow("No backups found in %s", f.config.GetBackupDir())
		return
	}

	color.Green("Found %d backup(s):\n", len(backups))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TEST FILE\tTIMESTAMP\tBACKUP")
	seen := make(map[string]bool)
	for _, b := range backups {
		marker := ""
		if !seen[b.OriginalName] {
			marker = " ← LATEST"
			seen[b.OriginalName] = true
		}
		fmt.Fprintf(w, "%s\t%s\t%s%s\n", b.OriginalName, b.Timestamp, b.BackupName, marker)
	}
	w.Flush()
}

// PrintRestoreResults displays per-file restore outcomes
func (f *Formatter) PrintRestoreResults(results map[string]domain.RestoreResult) {
	succeeded := 0
	var names []string
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		result := results[name]
		if result.Success {
			succeeded++
			color.Green("✓ %s", name)
		} else {
			color.Red("✗ %s", name)
			fmt.Printf("  Error: %s\n", result.Error)
		}
	}
	fmt.Println()
	color.Cyan("Restored %d/%d test file(s)", succeeded, len(results))
}

// PrintGaps displays coverage gaps with their priorities
func (f *Formatter) PrintGaps(gaps []coverage.Gap) {
	if len(gaps) == 0 {
		color.Green("✓ No coverage gaps found")
		return
	}
	color.Yellow("Found %d coverage gap(s):\n", len(gaps))
	for _, gap := range gaps {
		if gap.Priority == 1 {
			color.Red("[P%d] %s", gap.Priority, gap.Description)
		} else {
			color.Yellow("[P%d] %s", gap.Priority, gap.Description)
		}
	}
}

// CountTestCases returns the total number of test cases across the given test files.
func (f *Formatter) CountTestCases(tests []string) (int, error) {
	var total int
	for _, test := range tests {
		cases, err := f.parser.FindTestCases(test)
		if err != nil {
			return 0, err
		}
		total += len(cases)
	}
	return total, nil
}

// FailedPathSet builds the lookup PrintTestList uses to mark files that
// failed in the last run.
func (f *Formatter) FailedPathSet(output *domain.RunOutput) map[string]struct{} {
	if output == nil || len(output.Failures) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(output.Failures))
	for _, failure := range output.Failures {
		set[normalizedPathForKey(f.config.ProjectPath, failure.TestFile)] = struct{}{}
	}
	return set
}

// normalizedPathForKey returns a path key for matching failed files from the last run.
func normalizedPathForKey(projectPath, path string) string {
	p := path
	if projectPath != "" {
		if rel, err := filepath.Rel(projectPath, path); err == nil && rel != ".." && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	p = filepath.ToSlash(p)
	p = strings.TrimSuffix(p, ".py")
	return strings.ToLower(p)
}

// PrintTestList prints a list of test files, optionally with test cases.
// failedPaths is optional; if set, files in this set are marked with [F] in red (from last run).
func (f *Formatter) PrintTestList(tests []string, showTestCases bool, failedPaths map[string]struct{}) error {
	if showTestCases {
		color.Green("Found %d test file(s) with test cases:\n", len(tests))

		for i, test := range tests {
			testCases, err := f.parser.FindTestCases(test)
			if err != nil {
				color.Red("Error reading test file %s: %v", test, err)
				continue
			}

			relPath, err := filepath.Rel(f.config.ProjectPath, test)
			if err != nil {
				relPath = test
			}

			failMarker := ""
			if len(failedPaths) > 0 {
				key := normalizedPathForKey(f.config.ProjectPath, test)
				if _, ok := failedPaths[key]; ok {
					failMarker = " " + color.RedString("[F]")
				}
			}

			isLastFile := i == len(tests)-1
			if isLastFile {
				color.Cyan("└── %s%s", relPath, failMarker)
			} else {
				color.Cyan("├── %s%s", relPath, failMarker)
			}

			if len(testCases) == 0 {
				var prefix string
				if isLastFile {
					prefix = "    └── "
				} else {
					prefix = "│   └── "
				}
				fmt.Printf("%s%s\n", prefix, color.RedString("(no test cases found)"))
			} else {
				for j, testCase := range testCases {
					isLastCase := j == len(testCases)-1

					var prefix string
					if isLastFile {
						if isLastCase {
							prefix = "    └── "
						} else {
							prefix = "    ├── "
						}
					} else {
						if isLastCase {
							prefix = "│   └── "
						} else {
							prefix = "│   ├── "
						}
					}

					fmt.Printf("%s%s\n", prefix, color.YellowString(testCase))
				}
			}

			if i < len(tests)-1 {
				fmt.Println()
			}
		}
	} else {
		color.Green("Found %d test file(s):\n", len(tests))

		for i, test := range tests {
			relPath, err := filepath.Rel(f.config.ProjectPath, test)
			if err != nil {
				relPath = test
			}

			failMarker := ""
			if len(failedPaths) > 0 {
				key := normalizedPathForKey(f.config.ProjectPath, test)
				if _, ok := failedPaths[key]; ok {
					failMarker = " " + color.RedString("[F]")
				}
			}

			if i == len(tests)-1 {
				color.Cyan("└── %s%s", relPath, failMarker)
			} else {
				color.Cyan("├── %s%s", relPath, failMarker)
			}
		}
	}

	return nil
}
