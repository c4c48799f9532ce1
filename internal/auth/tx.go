// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package auth

import "context"

// Repositories bundles the transaction-scoped repositories handed to a
// UnitOfWork function.
type Repositories struct {
	Users    UserRepository
	Sessions SessionRepository
	Attempts LoginAttemptRepository
}

// UnitOfWork runs a function atomically. The repositories passed to fn
// are scoped to a single transaction: everything fn writes commits
// together when fn returns nil and rolls back otherwise, including on
// panic or context cancellation. The "evaluate lock state, verify
// secret, update counters" sequence for one user runs under this
// boundary with the user row locked, which serializes concurrent
// attempts against the same account.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
