// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpleauth/simpleauth/internal/auth"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{
		"bob",
		"alice_smith",
		"Admin2",
		"a12",
		strings.Repeat("x", 30),
	}
	for _, name := range valid {
		assert.NoError(t, auth.ValidateUsername(name), "expected %q to be valid", name)
	}

	invalid := []string{
		"",
		"ab",
		strings.Repeat("x", 31),
		"1starts_with_digit",
		"_starts_with_underscore",
		"has space",
		"has-dash",
		"has.dot",
	}
	for _, name := range invalid {
		assert.Error(t, auth.ValidateUsername(name), "expected %q to be invalid", name)
	}
}

func TestNewUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		user, err := auth.NewUser("alice", "somehash", true)
		require.NoError(t, err)

		assert.Equal(t, "alice", user.Username)
		assert.True(t, user.IsActive, "new accounts start active")
		assert.True(t, user.IsAdmin)
		assert.False(t, user.IsLocked)
		assert.Equal(t, 0, user.FailedAttempts)
		assert.NotZero(t, user.ID)
	})

	t.Run("invalid username", func(t *testing.T) {
		_, err := auth.NewUser("x", "somehash", false)
		require.Error(t, err)
	})

	t.Run("empty hash", func(t *testing.T) {
		_, err := auth.NewUser("alice", "", false)
		require.Error(t, err)
	})
}
