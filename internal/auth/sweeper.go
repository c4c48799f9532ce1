// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/simpleauth/simpleauth/pkg/errutil"
)

// Sweeper periodically deletes expired sessions. Lazy expiry keeps the
// system correct without it; the sweep only reclaims storage.
type Sweeper struct {
	sessions SessionRepository
	interval time.Duration
	logger   *slog.Logger

	// onSweep, if set, receives the number of sessions deleted by each
	// sweep. Used to feed metrics.
	onSweep func(deleted int64)
}

// NewSweeper creates a Sweeper. A non-positive interval defaults to one
// hour.
func NewSweeper(sessions SessionRepository, interval time.Duration, logger *slog.Logger, onSweep func(int64)) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		onSweep:  onSweep,
	}
}

// Run sweeps once immediately and then on every tick until the context
// is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// SweepOnce performs a single sweep and returns the number of deleted
// sessions.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	deleted, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if s.onSweep != nil {
		s.onSweep(deleted)
	}
	return deleted, nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.SweepOnce(ctx)
	if err != nil {
		errutil.LogError(s.logger, "session sweep failed", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("session sweep completed", "deleted", deleted)
	}
}
