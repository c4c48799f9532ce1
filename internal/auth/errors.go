// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when creating a user whose username
// is already taken.
var ErrDuplicateUsername = errors.New("username already exists")

// Error codes returned by the authentication core. Repository faults
// are wrapped as STORE_UNAVAILABLE; everything else is an expected,
// caller-recoverable outcome.
const (
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeAccountInactive     = "AUTH_ACCOUNT_INACTIVE"
	CodeAccountLocked       = "AUTH_ACCOUNT_LOCKED"
	CodeSessionExpired      = "SESSION_EXPIRED"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodePassphrasePolicy    = "PASSPHRASE_POLICY_VIOLATION"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeDuplicateUsername   = "AUTH_DUPLICATE_USERNAME"
	CodeUserNotFound        = "AUTH_USER_NOT_FOUND"
)
