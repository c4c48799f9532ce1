// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simpleauth/simpleauth/internal/settings"
)

// storedSettingKeys are the keys accepted by `settings set`.
var storedSettingKeys = map[string]bool{
	settings.KeyLockoutThreshold:        true,
	settings.KeyLockoutWindow:           true,
	settings.KeyLockoutDuration:         true,
	settings.KeySessionTimeout:          true,
	settings.KeyMinPassphraseLength:     true,
	settings.KeyDefaultPassphraseLength: true,
	settings.KeyMaxPassphraseLength:     true,
}

// NewSettingsCmd creates the settings subcommand and its children.
func NewSettingsCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and update system settings",
		Long: `Inspect and update the stored system settings. Stored values
overlay the file/flag configuration; lockout durations are in minutes
and the session timeout in hours.`,
	}

	cmd.AddCommand(newSettingsShowCmd(rootCfg, deps))
	cmd.AddCommand(newSettingsSetCmd(rootCfg, deps))

	return cmd
}

func newSettingsShowCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				s, err := svc.GetSettings(ctx)
				if err != nil {
					return err
				}
				printSettings(cmd, s)
				return nil
			})
		},
	}
}

func newSettingsSetCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key>=<value> ...",
		Short: "Update stored system settings",
		Long: `Update stored system settings as key=value pairs, for example:

  simpleauth settings set fail_lock_attempts=10 session_timeout=12

All updated values are validated together; nothing is persisted when
any constraint is violated.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates := make(map[string]string, len(args))
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok || key == "" || value == "" {
					return fmt.Errorf("expected <key>=<value>, got %q", arg)
				}
				if !storedSettingKeys[key] {
					return fmt.Errorf("unknown setting %q", key)
				}
				updates[key] = value
			}

			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				current, err := svc.GetSettings(ctx)
				if err != nil {
					return err
				}
				updated, err := settings.FromMap(current, updates)
				if err != nil {
					return err
				}
				if err := svc.UpdateSettings(ctx, updated); err != nil {
					return err
				}
				cmd.Printf("Updated %d setting(s)\n", len(updates))
				return nil
			})
		},
	}
}

// printSettings writes the stored-key view of the settings.
func printSettings(cmd *cobra.Command, s settings.Settings) {
	cmd.Printf("%s = %d\n", settings.KeyLockoutThreshold, s.LockoutThreshold)
	cmd.Printf("%s = %d (minutes)\n", settings.KeyLockoutWindow, int(s.LockoutWindow/time.Minute))
	cmd.Printf("%s = %d (minutes)\n", settings.KeyLockoutDuration, int(s.LockoutDuration/time.Minute))
	cmd.Printf("%s = %d (hours)\n", settings.KeySessionTimeout, int(s.SessionTimeout/time.Hour))
	cmd.Printf("%s = %d\n", settings.KeyMinPassphraseLength, s.MinPassphraseLength)
	cmd.Printf("%s = %d\n", settings.KeyDefaultPassphraseLength, s.DefaultPassphraseLength)
	cmd.Printf("%s = %d\n", settings.KeyMaxPassphraseLength, s.MaxPassphraseLength)
}
