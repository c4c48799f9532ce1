// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

// Package postgres implements the auth repositories using PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/simpleauth/simpleauth/internal/auth"
)

// Querier is the subset of pgx operations the repositories need. It is
// satisfied by *pgxpool.Pool, pgx.Tx, and pgxmock pools, so the same
// repository type serves pool-scoped reads, transactional writes, and
// unit tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// beginner starts transactions. Satisfied by *pgxpool.Pool and pgxmock.
type beginner interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxManager implements auth.UnitOfWork over a pgx connection pool.
type TxManager struct {
	pool beginner
}

// NewTxManager creates a TxManager.
func NewTxManager(pool beginner) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx runs fn with transaction-scoped repositories. The
// transaction commits only when fn returns nil; every other exit path,
// including panics and context cancellation, rolls it back.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos auth.Repositories) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return oops.Code("STORE_UNAVAILABLE").
			With("operation", "begin transaction").
			Wrap(err)
	}
	// Rollback after a successful commit is a harmless no-op.
	defer tx.Rollback(ctx) //nolint:errcheck // rollback of committed tx returns ErrTxClosed

	repos := auth.Repositories{
		Users:    NewUserRepository(tx),
		Sessions: NewSessionRepository(tx),
		Attempts: NewLoginAttemptRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("STORE_UNAVAILABLE").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.UnitOfWork = (*TxManager)(nil)
