// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

//go:build integration

package auth_test

import (
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/simpleauth/simpleauth/internal/auth"
)

var _ = Describe("Sessions", func() {
	const passphrase = "correct horse battery"

	BeforeEach(func() {
		resetTables()
	})

	// expireSession moves a session's expiry into the past in storage.
	expireSession := func(token string) {
		GinkgoHelper()
		past := time.Now().Add(-time.Second)
		tag, err := env.pool.Exec(env.ctx,
			"UPDATE sessions SET expires_at = $2 WHERE token_hash = $1",
			auth.HashSessionToken(token), past)
		Expect(err).NotTo(HaveOccurred())
		Expect(tag.RowsAffected()).To(Equal(int64(1)))
	}

	It("rejects and deletes a session past its TTL", func() {
		createAccount("alice", passphrase)

		_, token, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())

		expireSession(token)

		_, err = env.Service.ResolveSession(env.ctx, token)
		expectCode(err, auth.CodeSessionExpired)

		// The opportunistic delete removed the row; a retry is NOT_FOUND.
		_, err = env.Service.ResolveSession(env.ctx, token)
		expectCode(err, auth.CodeSessionNotFound)
	})

	It("accepts a session right up to its expiry", func() {
		user := createAccount("alice", passphrase)

		_, token, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())

		// Shrink the TTL to a few seconds; still before expiry.
		soon := time.Now().Add(3 * time.Second)
		_, err = env.pool.Exec(env.ctx,
			"UPDATE sessions SET expires_at = $2 WHERE token_hash = $1",
			auth.HashSessionToken(token), soon)
		Expect(err).NotTo(HaveOccurred())

		resolved, err := env.Service.ResolveSession(env.ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(resolved).To(Equal(user.ID))
	})

	It("lists only live sessions and flags the current one", func() {
		user := createAccount("alice", passphrase)

		_, first, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())
		_, second, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())

		expireSession(first)

		infos, err := env.Service.ListSessions(env.ctx, user.ID, second)
		Expect(err).NotTo(HaveOccurred())
		Expect(infos).To(HaveLen(1))
		Expect(infos[0].Current).To(BeTrue())
	})

	It("refuses to revoke another user's session", func() {
		createAccount("alice", passphrase)
		bob := createAccount("bob", passphrase)

		session, _, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())

		revoked, err := env.Service.RevokeSession(env.ctx, bob.ID, session.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeFalse())

		// Alice's session is untouched.
		sessions, err := env.Sessions.GetByUser(env.ctx, session.UserID)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(HaveLen(1))
	})

	It("sweeps only expired sessions", func() {
		createAccount("alice", passphrase)

		_, live, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())
		_, dead, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())

		expireSession(dead)

		sweeper := auth.NewSweeper(env.Sessions, time.Hour, slog.Default(), nil)
		deleted, err := sweeper.SweepOnce(env.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(Equal(int64(1)))

		_, err = env.Service.ResolveSession(env.ctx, live)
		Expect(err).NotTo(HaveOccurred())
	})

	It("invalidates sessions of a deactivated account", func() {
		user := createAccount("alice", passphrase)

		_, token, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())

		_, err = env.pool.Exec(env.ctx,
			"UPDATE users SET is_active = FALSE WHERE id = $1", user.ID.String())
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Service.ResolveSession(env.ctx, token)
		expectCode(err, auth.CodeAccountInactive)
	})
})
