package main

import (
	"fmt"
	"os"

	"apiheal/internal/cli"
	"apiheal/internal/cli/commands"
	"apiheal/internal/config"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:     "apiheal",
		Short:   "Self-healing API test runner",
		Long:    `A parallel pytest runner for HTTP API tests that captures structured failure records and lets a reasoning engine diagnose, fix and re-validate broken tests, with backups and rollback on every change.`,
		Version: version,
	}

	// Create initial config with defaults and environment overrides
	cfg := config.New()
	cfg.LoadEnv()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
