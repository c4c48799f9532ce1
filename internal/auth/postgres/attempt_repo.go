// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/simpleauth/simpleauth/internal/auth"
)

// LoginAttemptRepository implements auth.LoginAttemptRepository using
// PostgreSQL.
type LoginAttemptRepository struct {
	q Querier
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository.
func NewLoginAttemptRepository(q Querier) *LoginAttemptRepository {
	return &LoginAttemptRepository{q: q}
}

// Create stores a login attempt record.
func (r *LoginAttemptRepository) Create(ctx context.Context, attempt *auth.LoginAttempt) error {
	var userID *string
	if attempt.UserID != nil {
		s := attempt.UserID.String()
		userID = &s
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO login_attempts (
			id, user_id, attempted_at, ip_address, user_agent, success
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		attempt.ID.String(),
		userID,
		attempt.Timestamp,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
	)
	if err != nil {
		return oops.Code("ATTEMPT_CREATE_FAILED").
			With("operation", "insert login attempt").
			Wrap(err)
	}
	return nil
}

// List returns login attempts matching the filter, newest first.
func (r *LoginAttemptRepository) List(ctx context.Context, filter auth.AttemptFilter) ([]*auth.LoginAttempt, error) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != nil {
		conds = append(conds, "user_id = "+arg(filter.UserID.String()))
	}
	if filter.Success != nil {
		conds = append(conds, "success = "+arg(*filter.Success))
	}
	if filter.Since != nil {
		conds = append(conds, "attempted_at >= "+arg(*filter.Since))
	}
	if filter.Until != nil {
		conds = append(conds, "attempted_at < "+arg(*filter.Until))
	}

	query := `
		SELECT id, user_id, attempted_at, ip_address, user_agent, success
		FROM login_attempts`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY attempted_at DESC, id"
	// Zero values mean no paging, so the clauses are only added when set.
	if filter.Skip > 0 {
		query += "\n\t\tOFFSET " + arg(filter.Skip)
	}
	if filter.Limit > 0 {
		query += "\n\t\tLIMIT " + arg(filter.Limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("ATTEMPT_LIST_FAILED").
			With("operation", "list login attempts").
			Wrap(err)
	}
	defer rows.Close()

	var attempts []*auth.LoginAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, oops.Code("ATTEMPT_SCAN_FAILED").
				With("operation", "scan login attempt row").
				Wrap(err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("ATTEMPT_ROWS_ERROR").
			With("operation", "iterate login attempt rows").
			Wrap(err)
	}

	return attempts, nil
}

// CountRecentFailures counts failed attempts for a user since the given time.
func (r *LoginAttemptRepository) CountRecentFailures(ctx context.Context, userID ulid.ULID, since time.Time) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE user_id = $1 AND success = FALSE AND attempted_at >= $2
	`, userID.String(), since).Scan(&count)
	if err != nil {
		return 0, oops.Code("ATTEMPT_COUNT_FAILED").
			With("operation", "count recent failures").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return count, nil
}

// DeleteByUser removes all login attempts for a user.
func (r *LoginAttemptRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM login_attempts WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("ATTEMPT_DELETE_FAILED").
			With("operation", "delete login attempts by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

func scanAttempt(row pgx.Row) (*auth.LoginAttempt, error) {
	var (
		idStr       string
		userIDStr   *string
		attemptedAt time.Time
		ipAddress   string
		userAgent   string
		success     bool
	)

	err := row.Scan(&idStr, &userIDStr, &attemptedAt, &ipAddress, &userAgent, &success)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ATTEMPT_SCAN_FAILED").
			With("operation", "scan login attempt").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ATTEMPT_INVALID_ID").
			With("operation", "parse attempt id").
			With("id", idStr).
			Wrap(err)
	}

	var userID *ulid.ULID
	if userIDStr != nil {
		parsed, err := ulid.Parse(*userIDStr)
		if err != nil {
			return nil, oops.Code("ATTEMPT_INVALID_ID").
				With("operation", "parse attempt user id").
				With("user_id", *userIDStr).
				Wrap(err)
		}
		userID = &parsed
	}

	return &auth.LoginAttempt{
		ID:        id,
		UserID:    userID,
		Timestamp: attemptedAt,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   success,
	}, nil
}

// Compile-time interface check.
var _ auth.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
