// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simpleauth/simpleauth/internal/store"
)

// StoreStatus holds the status information reported by the status command.
type StoreStatus struct {
	Reachable        bool   `json:"reachable"`
	MigrationVersion uint   `json:"migration_version"`
	MigrationName    string `json:"migration_name,omitempty"`
	Dirty            bool   `json:"dirty,omitempty"`
	Pending          []uint `json:"pending,omitempty"`
	Error            string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd(_ *rootConfig, deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database connectivity and schema status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg, deps)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig, deps *Deps) error {
	status := queryStoreStatus(cmd.Context(), deps)

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if !status.Reachable {
		cmd.Printf("Database: unreachable (%s)\n", status.Error)
		return nil
	}

	cmd.Println("Database: reachable")
	if status.MigrationVersion == 0 {
		cmd.Println("Schema:   no migrations applied")
	} else {
		dirty := ""
		if status.Dirty {
			dirty = " [dirty]"
		}
		cmd.Printf("Schema:   version %d (%s)%s\n",
			status.MigrationVersion, status.MigrationName, dirty)
	}
	if len(status.Pending) > 0 {
		cmd.Printf("Pending:  %d migration(s)\n", len(status.Pending))
	}
	return nil
}

// queryStoreStatus probes the database and migration state. Failures
// are reported in the result rather than returned, so the command can
// still render partial information.
func queryStoreStatus(ctx context.Context, deps *Deps) StoreStatus {
	var status StoreStatus

	url, err := deps.requireDatabaseURL()
	if err != nil {
		status.Error = err.Error()
		return status
	}

	if err := deps.Pinger(ctx, url); err != nil {
		status.Error = err.Error()
		return status
	}
	status.Reachable = true

	m, err := deps.MigratorFactory(url)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer func() { _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.MigrationVersion = version
	status.MigrationName = store.MigrationName(version)
	status.Dirty = dirty

	if pending, err := m.PendingMigrations(); err == nil {
		status.Pending = pending
	}

	return status
}
