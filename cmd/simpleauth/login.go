// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package main

import (
	"bufio"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simpleauth/simpleauth/internal/auth"
	"github.com/simpleauth/simpleauth/internal/settings"
)

// NewLoginCmd creates the login subcommand for verifying credentials
// end to end.
func NewLoginCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	var passphrase string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Verify credentials and issue a session",
		Long: `Verify a user's credentials against the store and issue a session,
printing the plaintext token once. Failed attempts count toward the
lockout threshold exactly as they would for any other client. Without
--passphrase the passphrase is read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := passphrase
			if secret == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				secret = strings.TrimRight(line, "\r\n")
			}

			cfg, err := settings.Load(rootCfg.configFile, nil)
			if err != nil {
				return err
			}

			svc, cleanup, err := deps.AuthFactory(cmd.Context(), cfg, slog.Default())
			if err != nil {
				return err
			}
			defer cleanup()

			session, token, err := svc.Login(cmd.Context(), args[0], secret, clientMeta())
			if err != nil {
				return err
			}

			cmd.Printf("Logged in as %s\n", args[0])
			cmd.Printf("Session: %s\n", session.ID)
			cmd.Printf("Token:   %s\n", token)
			cmd.Printf("Expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase (empty = read from stdin)")

	return cmd
}

// clientMeta identifies logins made through the CLI in the audit trail.
func clientMeta() auth.ClientMeta {
	return auth.ClientMeta{
		IPAddress: "127.0.0.1",
		UserAgent: "simpleauth-cli",
	}
}
