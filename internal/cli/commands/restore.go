package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"apiheal/internal/backup"
	"apiheal/internal/config"
	"apiheal/internal/domain"
	"apiheal/internal/ui"
)

// RestoreCommand handles the restore command
type RestoreCommand struct {
	config    *config.Config
	store     *backup.Store
	formatter *ui.Formatter
}

// NewRestoreCommand creates a new RestoreCommand
func NewRestoreCommand(cfg *config.Config, store *backup.Store, formatter *ui.Formatter) *RestoreCommand {
	return &RestoreCommand{
		config:    cfg,
		store:     store,
		formatter: formatter,
	}
}

// Execute runs the command
func (rc *RestoreCommand) Execute(cmd *cobra.Command, args []string) error {
	if rc.config.Flags.All {
		results := rc.store.RestoreAllLatest()
		if len(results) == 0 {
			return fmt.Errorf("no backups found")
		}
		rc.formatter.PrintRestoreResults(results)
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("restore needs a test file name (e.g. test_users.py) or --all")
	}

	// Accept a bare file name or a path; backups are keyed by name.
	name := filepath.Base(args[0])
	result := rc.store.RestoreLatest(name)
	rc.formatter.PrintRestoreResults(map[string]domain.RestoreResult{name: result})
	if !result.Success {
		return fmt.Errorf("restore failed: %s", result.Error)
	}
	return nil
}
