// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

// Package auth provides the authentication core: credential
// verification with argon2id, the account-lockout state machine,
// session issuance and validation, and policy-compliant passphrase
// generation.
//
// # Domain Types
//
// Domain types (User, Session, LoginAttempt) should be created using
// their constructors (NewUser, NewSession, NewLoginAttempt); direct
// struct initialization bypasses validation.
//
// # Services
//
// Service handles login, logout, session resolution and self-service
// operations. AdminService handles user provisioning, locking, and
// system settings. Both run their read-modify-write sequences inside a
// UnitOfWork so per-user state stays consistent under concurrency.
package auth
