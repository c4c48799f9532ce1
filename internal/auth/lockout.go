// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package auth

import (
	"time"

	"github.com/simpleauth/simpleauth/internal/settings"
)

// LockState describes a user's lockout state at a point in time.
type LockState int

// Lockout states. LockedIndefinite is only entered administratively and
// never expires on its own.
const (
	Unlocked LockState = iota
	LockedTimed
	LockedIndefinite
)

// LockoutPolicy is the pure failure-counting state machine. It performs
// no I/O; callers persist the mutated user afterwards.
//
// The failure counter is monotonic per account until a reset event
// (successful login, lock expiry, or administrative unlock). The
// configured lockout window does not bound counting; it is carried for
// reporting only.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// NewLockoutPolicy creates a LockoutPolicy from the configured settings.
func NewLockoutPolicy(cfg settings.Settings) LockoutPolicy {
	return LockoutPolicy{
		Threshold: cfg.LockoutThreshold,
		Duration:  cfg.LockoutDuration,
	}
}

// Evaluate returns the user's lock state at the given time, applying
// lazy expiry: a timed lock whose deadline has passed transitions the
// user back to Unlocked with counters reset. The caller must persist
// the user when true is returned for mutated.
func (p LockoutPolicy) Evaluate(u *User, now time.Time) (state LockState, mutated bool) {
	if !u.IsLocked {
		return Unlocked, false
	}
	if u.LockedUntil == nil {
		return LockedIndefinite, false
	}
	if now.Before(*u.LockedUntil) {
		return LockedTimed, false
	}

	// Lock expired: lazy transition back to Unlocked.
	u.IsLocked = false
	u.LockedUntil = nil
	u.FailedAttempts = 0
	u.LastFailedAttempt = nil
	u.UpdatedAt = now
	return Unlocked, true
}

// Remaining returns how long a timed lock has left at the given time.
// Zero for unlocked or indefinitely locked users.
func (p LockoutPolicy) Remaining(u *User, now time.Time) time.Duration {
	if !u.IsLocked || u.LockedUntil == nil {
		return 0
	}
	if d := u.LockedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

// RecordFailure increments the failure counter and locks the account
// for the configured duration once the threshold is reached.
func (p LockoutPolicy) RecordFailure(u *User, now time.Time) {
	u.FailedAttempts++
	u.LastFailedAttempt = &now
	if !u.IsLocked && u.FailedAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		u.IsLocked = true
		u.LockedUntil = &until
	}
	u.UpdatedAt = now
}

// RecordSuccess resets the lockout state from any prior state and
// stamps the login time.
func (p LockoutPolicy) RecordSuccess(u *User, now time.Time) {
	u.IsLocked = false
	u.LockedUntil = nil
	u.FailedAttempts = 0
	u.LastFailedAttempt = nil
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// Lock forces an indefinite administrative lock regardless of counters.
func (p LockoutPolicy) Lock(u *User, now time.Time) {
	u.IsLocked = true
	u.LockedUntil = nil
	u.UpdatedAt = now
}

// Unlock forces Unlocked with counters reset, regardless of prior state.
func (p LockoutPolicy) Unlock(u *User, now time.Time) {
	u.IsLocked = false
	u.LockedUntil = nil
	u.FailedAttempts = 0
	u.LastFailedAttempt = nil
	u.UpdatedAt = now
}
