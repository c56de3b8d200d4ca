package cli

import (
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/nsc-international/internal/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|down>",
		Short: "Apply or roll back the database schema",
		Long: `Apply (up) or roll back (down) the embedded SQL migrations.

Example:
  nsc migrate up
  DATABASE_URL=postgres://nsc@db/nsc nsc migrate down`,
		ValidArgs: []string{database.MigrateUp, database.MigrateDown},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			return database.Migrate(log, cfg.Database.DSN(), args[0])
		},
	}
}
