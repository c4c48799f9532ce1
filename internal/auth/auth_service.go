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

// Service orchestrates credential verification, the lockout policy,
// and session issuance.
type Service struct {
	uow      UnitOfWork
	sessions SessionRepository
	users    UserRepository
	hasher   PasswordHasher
	gen      *PassphraseGenerator
	policy   LockoutPolicy
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService creates a Service. All dependencies are required.
func NewService(
	uow UnitOfWork,
	users UserRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	gen *PassphraseGenerator,
	cfg settings.Settings,
	logger *slog.Logger,
) (*Service, error) {
	if uow == nil {
		return nil, oops.Errorf("unit of work is required")
	}
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
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
	return &Service{
		uow:      uow,
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		gen:      gen,
		policy:   NewLockoutPolicy(cfg),
		ttl:      cfg.SessionTimeout,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=102400,t=2,p=8$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Login authenticates a user and creates a session on success.
// Returns the session and its plaintext token, which is the caller's
// only chance to see the token.
//
// The whole read-modify-write sequence runs in one transaction with the
// user row locked, so concurrent failures against the same account
// cannot under-count toward the lockout threshold. Counter updates and
// the attempt record commit together: an expected refusal (bad
// credentials, inactive, locked) still commits its side effects, while
// infrastructure faults roll everything back.
func (s *Service) Login(ctx context.Context, username, secret string, meta ClientMeta) (*Session, string, error) {
	var (
		session  *Session
		token    string
		loginErr error
	)

	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		user, lookupErr := repos.Users.GetByUsernameForUpdate(ctx, username)
		if lookupErr != nil {
			if !errors.Is(lookupErr, ErrNotFound) {
				return oops.Code(CodeStoreUnavailable).
					With("operation", "get user by username").
					Wrap(lookupErr)
			}

			// Unknown username: still verify against a dummy hash so
			// response time does not reveal account existence, and the
			// reply is identical to a wrong-password failure.
			_, _ = s.hasher.Verify(secret, dummyPasswordHash) //nolint:errcheck // timing parity only
			if err := repos.Attempts.Create(ctx, NewLoginAttempt(nil, meta, false)); err != nil {
				return oops.Code(CodeStoreUnavailable).
					With("operation", "record attempt").
					Wrap(err)
			}
			loginErr = oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
			return nil
		}

		if !user.IsActive {
			if err := s.recordAttempt(ctx, repos, user.ID, meta, false); err != nil {
				return err
			}
			loginErr = oops.Code(CodeAccountInactive).Errorf("account is inactive")
			return nil
		}

		now := time.Now()
		state, mutated := s.policy.Evaluate(user, now)
		if mutated {
			if err := repos.Users.Update(ctx, user); err != nil {
				return oops.Code(CodeStoreUnavailable).
					With("operation", "persist lock expiry").
					Wrap(err)
			}
		}
		if state != Unlocked {
			if err := s.recordAttempt(ctx, repos, user.ID, meta, false); err != nil {
				return err
			}
			loginErr = oops.Code(CodeAccountLocked).
				With("remaining", s.policy.Remaining(user, now)).
				Errorf("account is locked")
			return nil
		}

		valid, verifyErr := s.hasher.Verify(secret, user.PasswordHash)
		if verifyErr != nil {
			// A malformed stored hash can never match; treat it as a
			// normal mismatch rather than a fatal fault.
			s.logger.Warn("stored hash failed to parse during verification",
				"user_id", user.ID.String())
			valid = false
		}

		if !valid {
			s.policy.RecordFailure(user, now)
			if err := repos.Users.Update(ctx, user); err != nil {
				return oops.Code(CodeStoreUnavailable).
					With("operation", "persist failure counters").
					Wrap(err)
			}
			if err := s.recordAttempt(ctx, repos, user.ID, meta, false); err != nil {
				return err
			}
			loginErr = oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
			return nil
		}

		s.policy.RecordSuccess(user, now)
		if err := repos.Users.Update(ctx, user); err != nil {
			return oops.Code(CodeStoreUnavailable).
				With("operation", "persist success state").
				Wrap(err)
		}
		if err := s.recordAttempt(ctx, repos, user.ID, meta, true); err != nil {
			return err
		}

		plaintext, tokenHash, err := GenerateSessionToken()
		if err != nil {
			return err
		}
		sess, err := NewSession(user.ID, tokenHash, meta, s.ttl)
		if err != nil {
			return err
		}
		if err := repos.Sessions.Create(ctx, sess); err != nil {
			return oops.Code(CodeStoreUnavailable).
				With("operation", "persist session").
				Wrap(err)
		}

		session = sess
		token = plaintext
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	if loginErr != nil {
		return nil, "", loginErr
	}

	s.logger.Info("login succeeded",
		"user_id", session.UserID.String(),
		"session_id", session.ID.String())
	return session, token, nil
}

func (s *Service) recordAttempt(ctx context.Context, repos Repositories, userID ulid.ULID, meta ClientMeta, success bool) error {
	if err := repos.Attempts.Create(ctx, NewLoginAttempt(&userID, meta, success)); err != nil {
		return oops.Code(CodeStoreUnavailable).
			With("operation", "record attempt").
			Wrap(err)
	}
	return nil
}

// Logout revokes the session identified by the token. Returns whether
// a session existed.
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	sess, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code(CodeStoreUnavailable).
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code(CodeStoreUnavailable).
			With("operation", "delete session").
			Wrap(err)
	}
	return true, nil
}

// ResolveSession validates a token and returns the owning user's ID.
// This is the authentication gate for all subsequent calls. Expired
// sessions are opportunistically deleted.
func (s *Service) ResolveSession(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code(CodeSessionNotFound).Errorf("session token cannot be empty")
	}

	sess, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code(CodeSessionNotFound).Errorf("invalid session token")
		}
		return ulid.ULID{}, oops.Code(CodeStoreUnavailable).
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if sess.IsExpired() {
		// Best effort cleanup; lazy expiry already decided the outcome.
		_ = s.sessions.Delete(ctx, sess.ID) //nolint:errcheck // opportunistic delete
		return ulid.ULID{}, oops.Code(CodeSessionExpired).Errorf("session has expired")
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code(CodeSessionNotFound).Errorf("session user no longer exists")
		}
		return ulid.ULID{}, oops.Code(CodeStoreUnavailable).
			With("operation", "get session user").
			Wrap(err)
	}
	if !user.IsActive {
		return ulid.ULID{}, oops.Code(CodeAccountInactive).Errorf("account is inactive")
	}

	return sess.UserID, nil
}

// ListSessions returns the caller's non-expired sessions, flagging the
// one matching currentToken.
func (s *Service) ListSessions(ctx context.Context, userID ulid.ULID, currentToken string) ([]SessionInfo, error) {
	sessions, err := s.sessions.GetByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "get sessions by user").
			Wrap(err)
	}

	currentHash := ""
	if currentToken != "" {
		currentHash = HashSessionToken(currentToken)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		if sess.IsExpired() {
			continue
		}
		infos = append(infos, SessionInfo{
			ID:        sess.ID,
			IPAddress: sess.IPAddress,
			UserAgent: sess.UserAgent,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
			Current:   currentHash != "" && sess.TokenHash == currentHash,
		})
	}
	return infos, nil
}

// RevokeSession deletes one of the user's own sessions by ID. Returns
// whether a matching session existed. A session belonging to another
// user is reported as not found.
func (s *Service) RevokeSession(ctx context.Context, userID, sessionID ulid.ULID) (bool, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code(CodeStoreUnavailable).
			With("operation", "get session by id").
			Wrap(err)
	}
	if sess.UserID.Compare(userID) != 0 {
		return false, nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code(CodeStoreUnavailable).
			With("operation", "delete session").
			Wrap(err)
	}
	return true, nil
}

// ChangeSecret replaces the user's passphrase after re-verifying the
// current one and length-checking the new one. Returns false with no
// state change on any verification or validation failure.
func (s *Service) ChangeSecret(ctx context.Context, userID ulid.ULID, currentSecret, newSecret string) (bool, error) {
	if !s.gen.Validate(newSecret) {
		return false, nil
	}

	changed := false
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		user, err := repos.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return oops.Code(CodeStoreUnavailable).
				With("operation", "get user by id").
				Wrap(err)
		}

		valid, verifyErr := s.hasher.Verify(currentSecret, user.PasswordHash)
		if verifyErr != nil || !valid {
			return nil
		}

		newHash, err := s.hasher.Hash(newSecret)
		if err != nil {
			return err
		}
		if err := repos.Users.UpdatePassword(ctx, userID, newHash); err != nil {
			return oops.Code(CodeStoreUnavailable).
				With("operation", "update password").
				Wrap(err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}
