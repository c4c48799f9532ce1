// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/simpleauth/simpleauth/internal/settings"
)

// SystemSettingsRepository persists the administrable policy parameters
// as key/value pairs.
type SystemSettingsRepository interface {
	// GetAll returns all stored settings.
	GetAll(ctx context.Context) (map[string]string, error)

	// SetAll upserts the given settings atomically.
	SetAll(ctx context.Context, values map[string]string) error
}

// AdminService provides the administrative user-management operations.
// Callers are expected to have verified admin privileges already; this
// service does not gate on the acting user.
type AdminService struct {
	uow          UnitOfWork
	users        UserRepository
	attempts     LoginAttemptRepository
	sysSettings  SystemSettingsRepository
	hasher       PasswordHasher
	gen          *PassphraseGenerator
	policy       LockoutPolicy
	baseSettings settings.Settings
	logger       *slog.Logger
}

// NewAdminService creates an AdminService. sysSettings may be nil when
// stored settings management is not wired (e.g. some CLI commands).
func NewAdminService(
	uow UnitOfWork,
	users UserRepository,
	attempts LoginAttemptRepository,
	sysSettings SystemSettingsRepository,
	hasher PasswordHasher,
	gen *PassphraseGenerator,
	cfg settings.Settings,
	logger *slog.Logger,
) (*AdminService, error) {
	if uow == nil {
		return nil, oops.Errorf("unit of work is required")
	}
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if attempts == nil {
		return nil, oops.Errorf("attempts repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if gen == nil {
		return nil, oops.Errorf("passphrase generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		uow:          uow,
		users:        users,
		attempts:     attempts,
		sysSettings:  sysSettings,
		hasher:       hasher,
		gen:          gen,
		policy:       NewLockoutPolicy(cfg),
		baseSettings: cfg,
		logger:       logger,
	}, nil
}

// CreateUser provisions an account. When secret is empty a passphrase
// is generated; the returned string is the plaintext secret in that
// case (the only chance to see it) and empty otherwise.
func (s *AdminService) CreateUser(ctx context.Context, username, secret string, isAdmin bool) (*User, string, error) {
	generated := ""
	if secret == "" {
		p, err := s.gen.Generate(0)
		if err != nil {
			return nil, "", err
		}
		secret = p
		generated = p
	} else if !s.gen.Validate(secret) {
		return nil, "", oops.Code(CodePassphrasePolicy).
			With("min_length", s.gen.minLength).
			With("max_length", s.gen.maxLength).
			Errorf("passphrase length outside policy bounds")
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, "", err
	}

	user, err := NewUser(username, hash, isAdmin)
	if err != nil {
		return nil, "", err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, "", oops.Code(CodeDuplicateUsername).
				With("username", username).
				Wrap(err)
		}
		return nil, "", oops.Code(CodeStoreUnavailable).
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("user created", "user_id", user.ID.String(), "username", username, "is_admin", isAdmin)
	return user, generated, nil
}

// ListUsers returns users ordered by creation time with paging.
func (s *AdminService) ListUsers(ctx context.Context, skip, limit int) ([]*User, error) {
	users, err := s.users.List(ctx, skip, limit)
	if err != nil {
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "list users").
			Wrap(err)
	}
	return users, nil
}

// LockAccount forces an indefinite administrative lock.
func (s *AdminService) LockAccount(ctx context.Context, userID ulid.ULID) error {
	return s.withUser(ctx, userID, func(user *User) {
		s.policy.Lock(user, time.Now())
	})
}

// UnlockAccount clears any lock and resets the failure counters.
func (s *AdminService) UnlockAccount(ctx context.Context, userID ulid.ULID) error {
	return s.withUser(ctx, userID, func(user *User) {
		s.policy.Unlock(user, time.Now())
	})
}

// withUser applies a mutation to a user under the row lock.
func (s *AdminService) withUser(ctx context.Context, userID ulid.ULID, mutate func(*User)) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		user, err := repos.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code(CodeUserNotFound).
					With("user_id", userID.String()).
					Wrap(err)
			}
			return oops.Code(CodeStoreUnavailable).
				With("operation", "get user by id").
				Wrap(err)
		}
		mutate(user)
		if err := repos.Users.Update(ctx, user); err != nil {
			return oops.Code(CodeStoreUnavailable).
				With("operation", "update user").
				Wrap(err)
		}
		return nil
	})
}

// ResetSecret replaces a user's passphrase without requiring the old
// one. When secret is empty a new passphrase is generated and returned
// in plaintext; otherwise the supplied secret must satisfy the length
// policy and the returned string is empty.
func (s *AdminService) ResetSecret(ctx context.Context, userID ulid.ULID, secret string) (string, error) {
	generated := ""
	if secret == "" {
		p, err := s.gen.Generate(0)
		if err != nil {
			return "", err
		}
		secret = p
		generated = p
	} else if !s.gen.Validate(secret) {
		return "", oops.Code(CodePassphrasePolicy).
			With("min_length", s.gen.minLength).
			With("max_length", s.gen.maxLength).
			Errorf("passphrase length outside policy bounds")
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return "", err
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code(CodeUserNotFound).
				With("user_id", userID.String()).
				Wrap(err)
		}
		return "", oops.Code(CodeStoreUnavailable).
			With("operation", "update password").
			Wrap(err)
	}

	s.logger.Info("passphrase reset", "user_id", userID.String())
	return generated, nil
}

// DeleteUser removes a user together with its sessions and attempt
// records in one transaction. The cascade is explicit: there is no
// reliance on storage-level cascade rules.
func (s *AdminService) DeleteUser(ctx context.Context, userID ulid.ULID) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		if err := repos.Sessions.DeleteByUser(ctx, userID); err != nil {
			return oops.Code(CodeStoreUnavailable).
				With("operation", "delete user sessions").
				Wrap(err)
		}
		if err := repos.Attempts.DeleteByUser(ctx, userID); err != nil {
			return oops.Code(CodeStoreUnavailable).
				With("operation", "delete user attempts").
				Wrap(err)
		}
		if err := repos.Users.Delete(ctx, userID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code(CodeUserNotFound).
					With("user_id", userID.String()).
					Wrap(err)
			}
			return oops.Code(CodeStoreUnavailable).
				With("operation", "delete user").
				Wrap(err)
		}
		return nil
	})
}

// ListLoginAttempts returns audit records matching the filter, newest
// first.
func (s *AdminService) ListLoginAttempts(ctx context.Context, filter AttemptFilter) ([]*LoginAttempt, error) {
	attempts, err := s.attempts.List(ctx, filter)
	if err != nil {
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "list attempts").
			Wrap(err)
	}
	return attempts, nil
}

// RecentFailureCount reports how many failed attempts a user has made
// within the configured lockout window. The window is informational:
// lockout itself counts failures monotonically, this is for operators
// reading the audit trail.
func (s *AdminService) RecentFailureCount(ctx context.Context, userID ulid.ULID) (int, error) {
	since := time.Now().Add(-s.baseSettings.LockoutWindow)
	count, err := s.attempts.CountRecentFailures(ctx, userID, since)
	if err != nil {
		return 0, oops.Code(CodeStoreUnavailable).
			With("operation", "count recent failures").
			Wrap(err)
	}
	return count, nil
}

// GetSettings returns the effective settings: the injected base with
// any stored system settings overlaid.
func (s *AdminService) GetSettings(ctx context.Context) (settings.Settings, error) {
	if s.sysSettings == nil {
		return s.baseSettings, nil
	}
	stored, err := s.sysSettings.GetAll(ctx)
	if err != nil {
		return settings.Settings{}, oops.Code(CodeStoreUnavailable).
			With("operation", "get system settings").
			Wrap(err)
	}
	return settings.FromMap(s.baseSettings, stored)
}

// UpdateSettings validates the new settings value as a whole and, only
// if every constraint holds, persists it.
func (s *AdminService) UpdateSettings(ctx context.Context, newSettings settings.Settings) error {
	if s.sysSettings == nil {
		return oops.Errorf("system settings repository is not configured")
	}
	if err := newSettings.Validate(); err != nil {
		return err
	}
	if err := s.sysSettings.SetAll(ctx, newSettings.ToMap()); err != nil {
		return oops.Code(CodeStoreUnavailable).
			With("operation", "set system settings").
			Wrap(err)
	}
	s.logger.Info("system settings updated")
	return nil
}
