// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

//go:build integration

package auth_test

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/simpleauth/simpleauth/internal/auth"
)

// expectCode asserts that err carries the given oops code.
func expectCode(err error, code string) {
	GinkgoHelper()
	Expect(err).To(HaveOccurred())
	oopsErr, ok := oops.AsOops(err)
	Expect(ok).To(BeTrue(), "expected an oops error, got %v", err)
	Expect(oopsErr.Code()).To(Equal(code))
}

var _ = Describe("Login flow", func() {
	const passphrase = "correct horse battery"

	BeforeEach(func() {
		resetTables()
	})

	It("issues a token that resolves back to the user", func() {
		user := createAccount("alice", passphrase)

		session, token, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(HaveLen(64))
		Expect(session.UserID).To(Equal(user.ID))

		resolved, err := env.Service.ResolveSession(env.ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(resolved).To(Equal(user.ID))
	})

	It("stores only the hash of the token", func() {
		createAccount("alice", passphrase)

		_, token, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())

		var stored string
		row := env.pool.QueryRow(env.ctx, "SELECT token_hash FROM sessions")
		Expect(row.Scan(&stored)).To(Succeed())
		Expect(stored).To(Equal(auth.HashSessionToken(token)))
		Expect(stored).NotTo(Equal(token))
	})

	It("records a failed attempt on a wrong password", func() {
		user := createAccount("alice", passphrase)

		_, _, err := env.Service.Login(env.ctx, "alice", "wrong password!", testMeta)
		expectCode(err, auth.CodeInvalidCredentials)

		attempts, err := env.Attempts.List(env.ctx, auth.AttemptFilter{UserID: &user.ID, Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(HaveLen(1))
		Expect(attempts[0].Success).To(BeFalse())
		Expect(attempts[0].IPAddress).To(Equal(testMeta.IPAddress))
	})

	It("records an anonymous attempt for an unknown username", func() {
		_, _, err := env.Service.Login(env.ctx, "nobody", passphrase, testMeta)
		expectCode(err, auth.CodeInvalidCredentials)

		attempts, err := env.Attempts.List(env.ctx, auth.AttemptFilter{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(HaveLen(1))
		Expect(attempts[0].UserID).To(BeNil())
	})

	It("revokes the session on logout", func() {
		createAccount("alice", passphrase)

		_, token, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())

		existed, err := env.Service.Logout(env.ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(existed).To(BeTrue())

		_, err = env.Service.ResolveSession(env.ctx, token)
		expectCode(err, auth.CodeSessionNotFound)
	})

	It("changes the passphrase atomically", func() {
		user := createAccount("alice", passphrase)
		const newSecret = "an entirely new secret"

		changed, err := env.Service.ChangeSecret(env.ctx, user.ID, passphrase, newSecret)
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())

		_, _, err = env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		expectCode(err, auth.CodeInvalidCredentials)

		_, _, err = env.Service.Login(env.ctx, "alice", newSecret, testMeta)
		Expect(err).NotTo(HaveOccurred())
	})

	It("refuses a change with the wrong current passphrase", func() {
		user := createAccount("alice", passphrase)

		changed, err := env.Service.ChangeSecret(env.ctx, user.ID, "not the passphrase", "a new long secret")
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())

		_, _, err = env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())
	})
})
