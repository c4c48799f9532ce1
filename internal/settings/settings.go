// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

// Package settings holds the policy configuration consumed by the
// authentication core. A Settings value is an explicit snapshot passed
// into each service constructor; nothing in this package is global.
package settings

import (
	"strconv"
	"time"

	"github.com/samber/oops"
)

// Argon2Params configures the argon2id key derivation.
type Argon2Params struct {
	TimeCost    uint32 `koanf:"time_cost"`
	MemoryKiB   uint32 `koanf:"memory_kib"`
	Parallelism uint8  `koanf:"parallelism"`
	KeyLength   uint32 `koanf:"key_length"`
	SaltLength  uint32 `koanf:"salt_length"`
}

// Settings is the configuration surface of the authentication core.
type Settings struct {
	// Account lockout policy.
	LockoutThreshold int           `koanf:"lockout_threshold"`
	LockoutWindow    time.Duration `koanf:"lockout_window"` // informational only, see LockoutPolicy
	LockoutDuration  time.Duration `koanf:"lockout_duration"`

	// Session policy.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// Passphrase policy.
	MinPassphraseLength     int `koanf:"min_passphrase_length"`
	DefaultPassphraseLength int `koanf:"default_passphrase_length"`
	MaxPassphraseLength     int `koanf:"max_passphrase_length"`

	Argon2 Argon2Params `koanf:"argon2"`
}

// Default returns the built-in settings, matching the documented policy
// defaults (5 failures, 120 minute lock, 24 hour sessions).
func Default() Settings {
	return Settings{
		LockoutThreshold:        5,
		LockoutWindow:           30 * time.Minute,
		LockoutDuration:         120 * time.Minute,
		SessionTimeout:          24 * time.Hour,
		MinPassphraseLength:     32,
		DefaultPassphraseLength: 64,
		MaxPassphraseLength:     128,
		Argon2: Argon2Params{
			TimeCost:    2,
			MemoryKiB:   100 * 1024,
			Parallelism: 8,
			KeyLength:   32,
			SaltLength:  16,
		},
	}
}

// Validate checks the whole settings value at once and reports every
// violated constraint, not just the first one found.
func (s Settings) Validate() error {
	var violations []string

	if s.LockoutThreshold < 1 {
		violations = append(violations, "lockout_threshold must be at least 1")
	}
	if s.LockoutWindow <= 0 {
		violations = append(violations, "lockout_window must be positive")
	}
	if s.LockoutDuration <= 0 {
		violations = append(violations, "lockout_duration must be positive")
	}
	if s.SessionTimeout <= 0 {
		violations = append(violations, "session_timeout must be positive")
	}
	// Three character classes are guaranteed in generated passphrases,
	// so anything shorter than 3 cannot satisfy the policy.
	if s.MinPassphraseLength < 3 {
		violations = append(violations, "min_passphrase_length must be at least 3")
	}
	if s.DefaultPassphraseLength < s.MinPassphraseLength {
		violations = append(violations, "default_passphrase_length must not be below min_passphrase_length")
	}
	if s.MaxPassphraseLength < s.DefaultPassphraseLength {
		violations = append(violations, "max_passphrase_length must not be below default_passphrase_length")
	}
	if s.Argon2.TimeCost < 1 {
		violations = append(violations, "argon2.time_cost must be at least 1")
	}
	if s.Argon2.MemoryKiB < 8 {
		violations = append(violations, "argon2.memory_kib must be at least 8")
	}
	if s.Argon2.Parallelism < 1 {
		violations = append(violations, "argon2.parallelism must be at least 1")
	}
	if s.Argon2.KeyLength < 16 {
		violations = append(violations, "argon2.key_length must be at least 16")
	}
	if s.Argon2.SaltLength < 8 {
		violations = append(violations, "argon2.salt_length must be at least 8")
	}

	if len(violations) > 0 {
		return oops.Code("SETTINGS_INVALID").
			With("violations", violations).
			Errorf("invalid settings: %d constraint(s) violated", len(violations))
	}
	return nil
}

// Stored keys in the system_settings table. Durations are stored in the
// units the administration tooling historically used: minutes for the
// lockout values, hours for the session timeout.
const (
	KeyLockoutThreshold        = "fail_lock_attempts"
	KeyLockoutWindow           = "fail_lock_window"
	KeyLockoutDuration         = "fail_lock_duration"
	KeySessionTimeout          = "session_timeout"
	KeyMinPassphraseLength     = "min_passphrase_length"
	KeyDefaultPassphraseLength = "default_passphrase_length"
	KeyMaxPassphraseLength     = "max_passphrase_length"
)

// FromMap overlays stored system settings on top of base. Unknown keys
// are ignored; malformed values are reported instead of silently kept.
func FromMap(base Settings, stored map[string]string) (Settings, error) {
	s := base

	for key, raw := range stored {
		switch key {
		case KeyLockoutThreshold, KeyLockoutWindow, KeyLockoutDuration,
			KeySessionTimeout, KeyMinPassphraseLength,
			KeyDefaultPassphraseLength, KeyMaxPassphraseLength:
			// known key, parsed below
		default:
			continue
		}

		n, err := strconv.Atoi(raw)
		if err != nil {
			return base, oops.Code("SETTINGS_INVALID").
				With("key", key).
				With("value", raw).
				Wrap(err)
		}

		switch key {
		case KeyLockoutThreshold:
			s.LockoutThreshold = n
		case KeyLockoutWindow:
			s.LockoutWindow = time.Duration(n) * time.Minute
		case KeyLockoutDuration:
			s.LockoutDuration = time.Duration(n) * time.Minute
		case KeySessionTimeout:
			s.SessionTimeout = time.Duration(n) * time.Hour
		case KeyMinPassphraseLength:
			s.MinPassphraseLength = n
		case KeyDefaultPassphraseLength:
			s.DefaultPassphraseLength = n
		case KeyMaxPassphraseLength:
			s.MaxPassphraseLength = n
		}
	}

	return s, nil
}

// ToMap converts the stored portion of the settings back to the
// key/value form persisted in system_settings.
func (s Settings) ToMap() map[string]string {
	return map[string]string{
		KeyLockoutThreshold:        strconv.Itoa(s.LockoutThreshold),
		KeyLockoutWindow:           strconv.Itoa(int(s.LockoutWindow / time.Minute)),
		KeyLockoutDuration:         strconv.Itoa(int(s.LockoutDuration / time.Minute)),
		KeySessionTimeout:          strconv.Itoa(int(s.SessionTimeout / time.Hour)),
		KeyMinPassphraseLength:     strconv.Itoa(s.MinPassphraseLength),
		KeyDefaultPassphraseLength: strconv.Itoa(s.DefaultPassphraseLength),
		KeyMaxPassphraseLength:     strconv.Itoa(s.MaxPassphraseLength),
	}
}
