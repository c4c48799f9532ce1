// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

//go:build integration

package auth_test

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/simpleauth/simpleauth/internal/auth"
	"github.com/simpleauth/simpleauth/internal/settings"
)

var _ = Describe("Administration", func() {
	const passphrase = "correct horse battery"

	BeforeEach(func() {
		resetTables()
	})

	It("generates a working passphrase when none is supplied", func() {
		user, generated, err := env.Admin.CreateUser(env.ctx, "alice", "", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(generated).To(HaveLen(env.cfg.DefaultPassphraseLength))

		session, _, err := env.Service.Login(env.ctx, "alice", generated, testMeta)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.UserID).To(Equal(user.ID))
	})

	It("rejects duplicate usernames", func() {
		createAccount("alice", passphrase)

		_, _, err := env.Admin.CreateUser(env.ctx, "alice", passphrase, false)
		expectCode(err, auth.CodeDuplicateUsername)
	})

	It("treats usernames as unique case-insensitively", func() {
		createAccount("alice", passphrase)

		_, _, err := env.Admin.CreateUser(env.ctx, "ALICE", passphrase, false)
		expectCode(err, auth.CodeDuplicateUsername)
	})

	It("deletes a user together with sessions and attempts", func() {
		user := createAccount("alice", passphrase)

		_, _, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())
		_, _, err = env.Service.Login(env.ctx, "alice", "wrong password!", testMeta)
		Expect(err).To(HaveOccurred())

		Expect(env.Admin.DeleteUser(env.ctx, user.ID)).To(Succeed())

		var count int
		Expect(env.pool.QueryRow(env.ctx, "SELECT COUNT(*) FROM users").Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
		Expect(env.pool.QueryRow(env.ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
		Expect(env.pool.QueryRow(env.ctx, "SELECT COUNT(*) FROM login_attempts").Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
	})

	It("resets a passphrase so the old one stops working", func() {
		user := createAccount("alice", passphrase)

		generated, err := env.Admin.ResetSecret(env.ctx, user.ID, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(generated).NotTo(BeEmpty())

		_, _, err = env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		expectCode(err, auth.CodeInvalidCredentials)

		_, _, err = env.Service.Login(env.ctx, "alice", generated, testMeta)
		Expect(err).NotTo(HaveOccurred())
	})

	It("persists settings and overlays them on reads", func() {
		updated := env.cfg
		updated.LockoutThreshold = 10

		Expect(env.Admin.UpdateSettings(env.ctx, updated)).To(Succeed())

		effective, err := env.Admin.GetSettings(env.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(effective.LockoutThreshold).To(Equal(10))

		var stored string
		Expect(env.pool.QueryRow(env.ctx,
			"SELECT value FROM system_settings WHERE key = $1",
			settings.KeyLockoutThreshold).Scan(&stored)).To(Succeed())
		Expect(stored).To(Equal("10"))
	})

	It("rejects invalid settings without persisting anything", func() {
		bad := env.cfg
		bad.LockoutThreshold = 0

		err := env.Admin.UpdateSettings(env.ctx, bad)
		expectCode(err, "SETTINGS_INVALID")

		var count int
		Expect(env.pool.QueryRow(env.ctx, "SELECT COUNT(*) FROM system_settings").Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
	})

	It("pages the audit trail newest first", func() {
		createAccount("alice", passphrase)

		for range 3 {
			_, _, _ = env.Service.Login(env.ctx, "alice", "wrong password!", testMeta)
		}

		page, err := env.Admin.ListLoginAttempts(env.ctx, auth.AttemptFilter{Limit: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(page).To(HaveLen(2))
		Expect(page[0].Timestamp).To(BeTemporally(">=", page[1].Timestamp))

		rest, err := env.Admin.ListLoginAttempts(env.ctx, auth.AttemptFilter{Skip: 2, Limit: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(rest).To(HaveLen(1))
	})
})
