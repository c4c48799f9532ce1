// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package auth

import (
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"

	"github.com/simpleauth/simpleauth/internal/settings"
)

// Passphrase alphabet. Visually ambiguous glyphs (0, 1, O, I, l) are
// excluded to reduce transcription errors.
const (
	passphraseLower  = "abcdefghijkmnopqrstuvwxyz"
	passphraseUpper  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passphraseDigits = "23456789"
)

// PassphraseGenerator produces policy-compliant random secrets.
type PassphraseGenerator struct {
	minLength     int
	defaultLength int
	maxLength     int
}

// NewPassphraseGenerator creates a generator bound to the configured
// length policy.
func NewPassphraseGenerator(cfg settings.Settings) *PassphraseGenerator {
	return &PassphraseGenerator{
		minLength:     cfg.MinPassphraseLength,
		defaultLength: cfg.DefaultPassphraseLength,
		maxLength:     cfg.MaxPassphraseLength,
	}
}

// Generate produces a random passphrase of the given length. A length
// of 0 means the configured default; out-of-range lengths are clamped
// to the nearest bound rather than rejected. The result always contains
// at least one lowercase letter, one uppercase letter, and one digit,
// with the guaranteed characters shuffled into random positions.
func (g *PassphraseGenerator) Generate(length int) (string, error) {
	if length == 0 {
		length = g.defaultLength
	}
	if length < g.minLength {
		length = g.minLength
	}
	if length > g.maxLength {
		length = g.maxLength
	}

	alphabet := passphraseLower + passphraseUpper + passphraseDigits

	chars := make([]byte, 0, length)

	lower, err := pickRandom(passphraseLower)
	if err != nil {
		return "", err
	}
	upper, err := pickRandom(passphraseUpper)
	if err != nil {
		return "", err
	}
	digit, err := pickRandom(passphraseDigits)
	if err != nil {
		return "", err
	}
	chars = append(chars, lower, upper, digit)

	for len(chars) < length {
		c, err := pickRandom(alphabet)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates shuffle so the guaranteed characters are not
	// predictably placed at the front.
	for i := len(chars) - 1; i > 0; i-- {
		n, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[n] = chars[n], chars[i]
	}

	return string(chars), nil
}

// Validate reports whether the passphrase length is within the policy
// bounds. This is a policy gate, not a strength estimator: character
// class coverage is not checked for externally supplied passphrases.
func (g *PassphraseGenerator) Validate(passphrase string) bool {
	return len(passphrase) >= g.minLength && len(passphrase) <= g.maxLength
}

// pickRandom draws one character uniformly from the given set using a
// cryptographically secure source.
func pickRandom(set string) (byte, error) {
	n, err := randomInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[n], nil
}

// randomInt returns a uniform random int in [0, max).
func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, oops.Code("PASSPHRASE_ENTROPY_FAILED").
			With("operation", "crypto/rand.Int").
			Wrap(err)
	}
	return int(n.Int64()), nil
}
