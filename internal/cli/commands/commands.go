package commands

import (
	"apiheal/internal/backup"
	"apiheal/internal/cli"
	"apiheal/internal/config"
	"apiheal/internal/discovery"
	"apiheal/internal/parser"
	"apiheal/internal/runner"
	"apiheal/internal/storage"
	"apiheal/internal/ui"

	"github.com/spf13/cobra"
)

// Commands holds all CLI commands
type Commands struct {
	Run      *RunCommand
	Heal     *HealCommand
	List     *ListCommand
	Failures *FailuresCommand
	Backups  *BackupsCommand
	Restore  *RestoreCommand
	Gaps     *GapsCommand
}

// NewCommands creates all commands with dependencies
func NewCommands(cfg *config.Config) *Commands {
	// Initialize dependencies
	scanner := discovery.NewScanner(cfg.PathsToIgnore)
	filter := discovery.NewFilter()
	testCaseParser := discovery.NewParser()
	testRunner := runner.NewRunner(cfg)
	pytestParser := parser.NewPytestParser()
	pool := runner.NewWorkerPool(cfg, testRunner, pytestParser)
	jsonStorage := storage.NewJSONStorage(cfg)
	formatter := ui.NewFormatter(cfg, testCaseParser)
	backupStore := backup.NewStore(cfg.GetBackupDir(), cfg.GetTestsRoot())
	failureViewer := ui.NewFailureViewer(cfg, jsonStorage)

	return &Commands{
		Run:      NewRunCommand(cfg, scanner, filter, pool, testRunner, pytestParser, jsonStorage, formatter, failureViewer),
		Heal:     NewHealCommand(cfg, testRunner, backupStore, jsonStorage, formatter),
		List:     NewListCommand(cfg, scanner, filter, formatter, jsonStorage),
		Failures: NewFailuresCommand(cfg, jsonStorage, failureViewer),
		Backups:  NewBackupsCommand(cfg, backupStore, formatter),
		Restore:  NewRestoreCommand(cfg, backupStore, formatter),
		Gaps:     NewGapsCommand(cfg, formatter),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	applyFlags := func(cmd *cobra.Command, args []string) error {
		cfg.Flags = flags.ToConfigFlags()
		if flags.Workers > 0 {
			cfg.Workers = flags.Workers
		}
		if flags.MaxRetries > 0 {
			cfg.MaxRetries = flags.MaxRetries
		}
		return nil
	}

	// Run command
	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Run API tests in parallel and capture failures",
		Long:    "Discover and execute pytest API tests using parallel workers, capturing a failure record for every failed test case",
		RunE:    c.Run.Execute,
		PreRunE: applyFlags,
	}
	runCmd.Flags().IntVarP(&flags.Workers, "workers", "w", 4, "Number of parallel workers to use")
	runCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by name pattern (supports wildcards, e.g. '*users*')")
	runCmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop on first test failure")
	runCmd.Flags().BoolVar(&flags.OpenViewer, "open-failures", false, "Open the failures viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	// Heal command
	healCmd := &cobra.Command{
		Use:     "heal [record...]",
		Short:   "Heal captured failures with the reasoning engine",
		Long:    "Run one healing session per captured failure record: diagnose, apply a fix, re-run the test, and roll back when no fix sticks",
		RunE:    c.Heal.Execute,
		PreRunE: applyFlags,
	}
	healCmd.Flags().IntVarP(&flags.MaxRetries, "max-retries", "r", 3, "Maximum fix attempts per failure before rollback")
	rootCmd.AddCommand(healCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List discovered tests",
		Long:    "Scan and list all pytest API tests without executing them",
		RunE:    c.List.Execute,
		PreRunE: applyFlags,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by name pattern (supports wildcards, e.g. '*users*')")
	listCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	listCmd.Flags().BoolVarP(&flags.TestCases, "test-cases", "c", false, "List test cases instead of test files")
	rootCmd.AddCommand(listCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:   "failures",
		Short: "View captured failures interactively",
		Long:  "Display captured failures from the last test run in an interactive viewer",
		RunE:  c.Failures.Execute,
	}
	rootCmd.AddCommand(failuresCmd)

	// Backups command
	backupsCmd := &cobra.Command{
		Use:     "backups",
		Short:   "List test file backups",
		Long:    "List every backup the healing sessions created, newest first per original file",
		RunE:    c.Backups.Execute,
		PreRunE: applyFlags,
	}
	backupsCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Only show backups whose original file name contains this substring")
	rootCmd.AddCommand(backupsCmd)

	// Restore command
	restoreCmd := &cobra.Command{
		Use:     "restore [test-file]",
		Short:   "Restore test files from backups",
		Long:    "Restore a test file to its most recent backup, or every backed-up file with --all",
		RunE:    c.Restore.Execute,
		PreRunE: applyFlags,
	}
	restoreCmd.Flags().BoolVar(&flags.All, "all", false, "Restore every file that has backups to its latest backup")
	rootCmd.AddCommand(restoreCmd)

	// Gaps command
	gapsCmd := &cobra.Command{
		Use:     "gaps",
		Short:   "Analyze API test coverage gaps",
		Long:    "Scan existing tests for covered method/endpoint pairs and report untested cases, optionally generating tests for them",
		RunE:    c.Gaps.Execute,
		PreRunE: applyFlags,
	}
	gapsCmd.Flags().BoolVarP(&flags.Generate, "generate", "g", false, "Generate tests for the identified gaps")
	rootCmd.AddCommand(gapsCmd)
}
