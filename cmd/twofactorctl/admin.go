package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/spf13/cobra"
)

// userCommand builds a command that acts on one user id with a fully wired app
func userCommand(opts *rootOptions, use, short string, run func(cmd *cobra.Command, a *app, userID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, newLogger(opts.cfg.Server.LogLevel))
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a, args[0])
		},
	}
}

type statusOutput struct {
	UserID   string               `json:"user_id"`
	Status   *models.Status       `json:"status"`
	Attempts *models.AttemptStats `json:"attempts"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var since time.Duration

	cmd := userCommand(opts, "status", "Show a user's two-factor state and recent attempts",
		func(cmd *cobra.Command, a *app, userID string) error {
			status, err := a.twoFactor.GetStatus(cmd.Context(), userID)
			if err != nil {
				return err
			}
			stats, err := a.twoFactor.AttemptStatistics(cmd.Context(), userID, time.Now().Add(-since))
			if err != nil {
				return err
			}

			out := statusOutput{UserID: userID, Status: status, Attempts: stats}
			return opts.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				writeStatus(w, out, since)
			})
		})

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Attempt statistics window")
	return cmd
}

func writeStatus(w io.Writer, out statusOutput, since time.Duration) {
	s := out.Status
	fmt.Fprintf(w, "user:                 %s\n", out.UserID)
	fmt.Fprintf(w, "enabled:              %t\n", s.Enabled)
	if s.Method != "" {
		fmt.Fprintf(w, "method:               %s\n", s.Method)
		fmt.Fprintf(w, "confirmed:            %t\n", s.Confirmed)
	}
	if s.PhoneNumber != "" {
		fmt.Fprintf(w, "phone:                %s\n", s.PhoneNumber)
	}
	fmt.Fprintf(w, "recovery codes left:  %d\n", s.RecoveryCodesRemaining)
	fmt.Fprintf(w, "remembered devices:   %d\n", s.RememberedDevices)
	fmt.Fprintf(w, "attempts (last %s): %d total, %d failed\n", since, out.Attempts.Total, out.Attempts.Failed)
}

func newDevicesCmd(opts *rootOptions) *cobra.Command {
	return userCommand(opts, "devices", "List a user's remembered devices",
		func(cmd *cobra.Command, a *app, userID string) error {
			devices, err := a.twoFactor.ListDevices(cmd.Context(), userID, models.RequestMeta{}, "")
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), devices, func(w io.Writer) {
				if len(devices) == 0 {
					fmt.Fprintln(w, "no remembered devices")
					return
				}
				for _, d := range devices {
					fmt.Fprintf(w, "%s  %-15s  expires %s  %s\n", d.ID, d.IPAddress, d.ExpiresAt.Format(time.RFC3339), d.UserAgent)
				}
			})
		})
}

func newDisableCmd(opts *rootOptions) *cobra.Command {
	return userCommand(opts, "disable", "Turn two-factor off and delete every credential for a user",
		func(cmd *cobra.Command, a *app, userID string) error {
			deleted, err := a.twoFactor.Disable(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), map[string]bool{"disabled": deleted}, func(w io.Writer) {
				if deleted {
					fmt.Fprintf(w, "two-factor disabled for %s\n", userID)
				} else {
					fmt.Fprintf(w, "%s had no two-factor record\n", userID)
				}
			})
		})
}

func newRegenerateCodesCmd(opts *rootOptions) *cobra.Command {
	return userCommand(opts, "regenerate-codes", "Replace a user's recovery codes and print the new batch",
		func(cmd *cobra.Command, a *app, userID string) error {
			codes, err := a.twoFactor.RegenerateRecoveryCodes(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), map[string][]string{"recovery_codes": codes}, func(w io.Writer) {
				fmt.Fprintln(w, strings.Join(codes, "\n"))
			})
		})
}

func newForgetDevicesCmd(opts *rootOptions) *cobra.Command {
	return userCommand(opts, "forget-devices", "Revoke every remembered device for a user",
		func(cmd *cobra.Command, a *app, userID string) error {
			n, err := a.twoFactor.ForgetAllDevices(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), map[string]int64{"forgotten": n}, func(w io.Writer) {
				fmt.Fprintf(w, "%d device(s) forgotten\n", n)
			})
		})
}
