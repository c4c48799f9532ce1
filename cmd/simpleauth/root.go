// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simpleauth/simpleauth/internal/logging"
)

// rootConfig holds the global flags shared by all subcommands.
type rootConfig struct {
	configFile string
	logFormat  string
	logLevel   string
}

// NewRootCmd creates the root command for the simpleauth CLI.
func NewRootCmd() *cobra.Command {
	cfg := &rootConfig{}

	cmd := &cobra.Command{
		Use:   "simpleauth",
		Short: "SimpleAuth - session-based authentication service",
		Long: `SimpleAuth manages user accounts, argon2id credentials, login
lockout, and opaque session tokens backed by PostgreSQL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if cfg.logFormat != "json" && cfg.logFormat != "text" {
				return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.logFormat)
			}
			logging.SetDefault("simpleauth", version, cfg.logFormat, logging.ParseLevel(cfg.logLevel))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfg.configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&cfg.logFormat, "log-format", "json", "log format (json or text)")
	cmd.PersistentFlags().StringVar(&cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(NewMigrateCmd(cfg, nil))
	cmd.AddCommand(NewLoginCmd(cfg, nil))
	cmd.AddCommand(NewSweepCmd(cfg, nil))
	cmd.AddCommand(NewUserCmd(cfg, nil))
	cmd.AddCommand(NewSettingsCmd(cfg, nil))
	cmd.AddCommand(NewStatusCmd(cfg, nil))

	return cmd
}
