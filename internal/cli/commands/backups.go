package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"apiheal/internal/backup"
	"apiheal/internal/config"
	"apiheal/internal/ui"
)

// BackupsCommand handles the backups command
type BackupsCommand struct {
	config    *config.Config
	store     *backup.Store
	formatter *ui.Formatter
}

// NewBackupsCommand creates a new BackupsCommand
func NewBackupsCommand(cfg *config.Config, store *backup.Store, formatter *ui.Formatter) *BackupsCommand {
	return &BackupsCommand{
		config:    cfg,
		store:     store,
		formatter: formatter,
	}
}

// Execute runs the command
func (bc *BackupsCommand) Execute(cmd *cobra.Command, args []string) error {
	backups := bc.store.List(bc.config.Flags.NameFilter)
	if len(backups) == 0 {
		color.Yellow("No backups found")
		return nil
	}

	bc.formatter.PrintBackups(backups)
	return nil
}
