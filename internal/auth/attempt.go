// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// LoginAttempt is an immutable audit record. One is written for every
// authentication call, including attempts against unknown usernames
// (UserID nil) and currently locked accounts.
type LoginAttempt struct {
	ID        ulid.ULID
	UserID    *ulid.ULID
	Timestamp time.Time
	IPAddress string
	UserAgent string
	Success   bool
}

// NewLoginAttempt creates an attempt record. userID is nil when the
// username did not resolve to an account.
func NewLoginAttempt(userID *ulid.ULID, meta ClientMeta, success bool) *LoginAttempt {
	return &LoginAttempt{
		ID:        ulid.Make(),
		UserID:    userID,
		Timestamp: time.Now(),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   success,
	}
}

// AttemptFilter narrows ListLoginAttempts results. Zero values mean
// "no filter" for that field.
type AttemptFilter struct {
	UserID  *ulid.ULID
	Success *bool
	Since   *time.Time
	Until   *time.Time
	Skip    int
	Limit   int
}

// LoginAttemptRepository manages the append-only attempt log.
type LoginAttemptRepository interface {
	// Create appends an attempt record.
	Create(ctx context.Context, attempt *LoginAttempt) error

	// List returns attempts matching the filter, newest first.
	List(ctx context.Context, filter AttemptFilter) ([]*LoginAttempt, error)

	// CountRecentFailures counts failed attempts for a user since the
	// given time. Used for reporting against the lockout window.
	CountRecentFailures(ctx context.Context, userID ulid.ULID, since time.Time) (int, error)

	// DeleteByUser removes all attempt records for a user. Part of the
	// explicit user-deletion cascade.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error
}
