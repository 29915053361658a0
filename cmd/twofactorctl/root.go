package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	json bool
	cfg  *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "twofactorctl",
		Short: "Operate the two-factor verification engine",
		Long: `twofactorctl runs migrations and the background worker, and lets an
operator inspect or reset a user's two-factor state.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Output as JSON")

	root.AddCommand(
		newMigrateCmd(opts),
		newWorkerCmd(opts),
		newCleanupCmd(opts),
		newStatusCmd(opts),
		newDevicesCmd(opts),
		newDisableCmd(opts),
		newRegenerateCodesCmd(opts),
		newForgetDevicesCmd(opts),
	)
	return root
}

// print writes v as indented JSON, or calls text for the human form
func (o *rootOptions) print(w io.Writer, v any, text func(io.Writer)) error {
	if o.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
