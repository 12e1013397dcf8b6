package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"binswap/internal/backup"
)

// RestoreOptions holds flags for the restore command.
type RestoreOptions struct {
	*RootOptions
	BackupDir string
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RestoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore <project.yml>",
		Short: "Restore the project from its latest pre-substitution backup",
		Long: `Replace the project file with the most recent "original" snapshot taken
before a substitution run. Use this after a failed run to return the
project to a consistent state.

Example:
  binswap restore ./project.yml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BackupDir, "backup-dir", "", "backup directory (default <project dir>/.binswap/backups)")

	return cmd
}

func runRestore(opts *RestoreOptions, projectPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	backupDir := opts.BackupDir
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(projectPath), ".binswap", "backups")
	}

	coord := backup.NewCoordinator(backupDir)
	snap, err := coord.Latest(backup.KindOriginal)
	if err != nil {
		return WrapExitError(ExitCommandError, "no backup to restore", err)
	}
	if err := coord.Restore(snap, projectPath); err != nil {
		return WrapExitError(ExitFailure, "restore failed", err)
	}

	if opts.Format == "json" {
		return out.Success(map[string]any{"snapshot": snap.ID, "created_at": snap.CreatedAt})
	}
	return out.Success("restored snapshot " + snap.ID)
}
