// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/simpleauth/simpleauth/internal/auth"
	"github.com/simpleauth/simpleauth/internal/settings"
)

// NewUserCmd creates the user subcommand and its children.
func NewUserCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	cmd.AddCommand(newUserCreateCmd(rootCfg, deps))
	cmd.AddCommand(newUserListCmd(rootCfg, deps))
	cmd.AddCommand(newUserDeleteCmd(rootCfg, deps))
	cmd.AddCommand(newUserLockCmd(rootCfg, deps))
	cmd.AddCommand(newUserUnlockCmd(rootCfg, deps))
	cmd.AddCommand(newUserResetCmd(rootCfg, deps))
	cmd.AddCommand(newUserAttemptsCmd(rootCfg, deps))

	return cmd
}

// withAdmin loads settings, builds the admin service, and runs fn with
// it. The pool is released when fn returns.
func withAdmin(rootCfg *rootConfig, deps *Deps, cmd *cobra.Command, fn func(ctx context.Context, svc AdminAPI) error) error {
	cfg, err := settings.Load(rootCfg.configFile, nil)
	if err != nil {
		return err
	}

	svc, cleanup, err := deps.AdminFactory(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(cmd.Context(), svc)
}

// parseUserID parses a ULID argument with a friendly error.
func parseUserID(arg string) (ulid.ULID, error) {
	id, err := ulid.Parse(arg)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("invalid user ID %q: %w", arg, err)
	}
	return id, nil
}

func newUserCreateCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	var (
		isAdmin    bool
		passphrase string
	)

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user account",
		Long: `Create a user account. Without --passphrase a random passphrase is
generated and printed once; it cannot be recovered later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				user, generated, err := svc.CreateUser(ctx, args[0], passphrase, isAdmin)
				if err != nil {
					return err
				}
				cmd.Printf("Created user %s (%s)\n", user.Username, user.ID)
				if generated != "" {
					cmd.Printf("Passphrase: %s\n", generated)
					cmd.Println("Store it now; it is not shown again.")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant administrative privileges")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase (empty = generate one)")

	return cmd
}

func newUserListCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	var (
		skip  int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				users, err := svc.ListUsers(ctx, skip, limit)
				if err != nil {
					return err
				}
				if len(users) == 0 {
					cmd.Println("No users found")
					return nil
				}
				cmd.Print(formatUserTable(users))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "number of users to skip")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of users to return")

	return cmd
}

func newUserDeleteCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user and all its sessions and login attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				if err := svc.DeleteUser(ctx, id); err != nil {
					return err
				}
				cmd.Printf("Deleted user %s\n", id)
				return nil
			})
		},
	}
}

func newUserLockCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "lock <user-id>",
		Short: "Lock an account until explicitly unlocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				if err := svc.LockAccount(ctx, id); err != nil {
					return err
				}
				cmd.Printf("Locked user %s\n", id)
				return nil
			})
		},
	}
}

func newUserUnlockCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <user-id>",
		Short: "Unlock an account and reset its failure counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				if err := svc.UnlockAccount(ctx, id); err != nil {
					return err
				}
				cmd.Printf("Unlocked user %s\n", id)
				return nil
			})
		},
	}
}

func newUserResetCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Reset a user's passphrase",
		Long: `Reset a user's passphrase without requiring the current one.
Without --passphrase a random passphrase is generated and printed once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				generated, err := svc.ResetSecret(ctx, id, passphrase)
				if err != nil {
					return err
				}
				cmd.Printf("Reset passphrase for user %s\n", id)
				if generated != "" {
					cmd.Printf("Passphrase: %s\n", generated)
					cmd.Println("Store it now; it is not shown again.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "new passphrase (empty = generate one)")

	return cmd
}

func newUserAttemptsCmd(rootCfg *rootConfig, deps *Deps) *cobra.Command {
	var (
		userArg    string
		failedOnly bool
		since      time.Duration
		skip       int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List login attempts",
		Long:  `List the login attempt audit trail, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := auth.AttemptFilter{Skip: skip, Limit: limit}
			if userArg != "" {
				id, err := parseUserID(userArg)
				if err != nil {
					return err
				}
				filter.UserID = &id
			}
			if failedOnly {
				success := false
				filter.Success = &success
			}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}

			return withAdmin(rootCfg, deps, cmd, func(ctx context.Context, svc AdminAPI) error {
				attempts, err := svc.ListLoginAttempts(ctx, filter)
				if err != nil {
					return err
				}
				if len(attempts) == 0 {
					cmd.Println("No login attempts found")
				} else {
					cmd.Print(formatAttemptTable(attempts))
				}
				if filter.UserID != nil {
					count, err := svc.RecentFailureCount(ctx, *filter.UserID)
					if err != nil {
						return err
					}
					cmd.Printf("Failures within lockout window: %d\n", count)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userArg, "user", "", "filter by user ID")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only show failed attempts")
	cmd.Flags().DurationVar(&since, "since", 0, "only show attempts within this window (e.g. 24h)")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of attempts to skip")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of attempts to return")

	return cmd
}

// formatUserTable renders users as a tab-aligned table.
func formatUserTable(users []*auth.User) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ID\tUSERNAME\tADMIN\tACTIVE\tLOCKED\tLAST LOGIN")
	for _, u := range users {
		lastLogin := "-"
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.Format(time.RFC3339)
		}
		locked := "no"
		if u.IsLocked {
			if u.LockedUntil != nil {
				locked = "until " + u.LockedUntil.Format(time.RFC3339)
			} else {
				locked = "indefinite"
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\t%s\n",
			u.ID, u.Username, u.IsAdmin, u.IsActive, locked, lastLogin)
	}

	_ = w.Flush()
	return string(buf)
}

// formatAttemptTable renders login attempts as a tab-aligned table.
func formatAttemptTable(attempts []*auth.LoginAttempt) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "TIME\tUSER\tIP\tRESULT")
	for _, a := range attempts {
		user := "-"
		if a.UserID != nil {
			user = a.UserID.String()
		}
		result := "failure"
		if a.Success {
			result = "success"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			a.Timestamp.Format(time.RFC3339), user, a.IPAddress, result)
	}

	_ = w.Flush()
	return string(buf)
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
