package main

import (
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status {
				return database.MigrationStatus(cmd.Context(), opts.cfg.Database.URL())
			}
			return database.Migrate(cmd.Context(), opts.cfg.Database.URL(), newLogger(opts.cfg.Server.LogLevel))
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show migration status instead of applying")
	return cmd
}
