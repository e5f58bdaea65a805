package main

import (
	"github.com/phrazzld/cramdeck/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	migrate := &cobra.Command{Use: "migrate", Short: "Manage the database schema"}

	for _, sub := range []struct {
		use, short string
	}{
		{"up", "Apply every pending migration"},
		{"down", "Roll back the most recent migration"},
		{"status", "Show applied and pending migrations"},
		{"version", "Print the current schema version"},
	} {
		command := sub.use
		migrate.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				e, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer e.Close()
				return postgres.Migrate(cmd.Context(), e.db, command, e.logger)
			},
		})
	}
	return migrate
}
