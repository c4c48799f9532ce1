// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

//go:build integration

package auth_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/simpleauth/simpleauth/internal/auth"
)

var _ = Describe("Account lockout", func() {
	const passphrase = "correct horse battery"

	BeforeEach(func() {
		resetTables()
	})

	failLogin := func(username string) {
		GinkgoHelper()
		_, _, err := env.Service.Login(env.ctx, username, "definitely wrong", testMeta)
		expectCode(err, auth.CodeInvalidCredentials)
	}

	It("locks after the threshold of sequential failures", func() {
		user := createAccount("alice", passphrase)

		for range env.cfg.LockoutThreshold {
			failLogin("alice")
		}

		stored, err := env.Users.GetByID(env.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.IsLocked).To(BeTrue())
		Expect(stored.LockedUntil).NotTo(BeNil())
		Expect(stored.FailedAttempts).To(Equal(env.cfg.LockoutThreshold))
	})

	It("never under-counts concurrent failures", func() {
		// The row lock serializes the read-modify-write, so N concurrent
		// wrong-password logins must land the account exactly at N
		// counted failures, locked.
		user := createAccount("alice", passphrase)

		n := env.cfg.LockoutThreshold
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, _, errs[i] = env.Service.Login(env.ctx, "alice", "definitely wrong", testMeta)
			}()
		}
		wg.Wait()

		for _, err := range errs {
			Expect(err).To(HaveOccurred())
		}

		stored, err := env.Users.GetByID(env.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.FailedAttempts).To(Equal(n))
		Expect(stored.IsLocked).To(BeTrue())

		attempts, err := env.Attempts.List(env.ctx, auth.AttemptFilter{UserID: &user.ID, Limit: 100})
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(HaveLen(n))
	})

	It("rejects the correct passphrase while locked", func() {
		createAccount("alice", passphrase)

		for range env.cfg.LockoutThreshold {
			failLogin("alice")
		}

		_, _, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		expectCode(err, auth.CodeAccountLocked)
	})

	It("clears an expired lock lazily on the next login", func() {
		user := createAccount("alice", passphrase)

		for range env.cfg.LockoutThreshold {
			failLogin("alice")
		}

		// Move the lock expiry into the past directly in storage.
		past := time.Now().Add(-time.Minute)
		_, err := env.pool.Exec(env.ctx,
			"UPDATE users SET locked_until = $2 WHERE id = $1", user.ID.String(), past)
		Expect(err).NotTo(HaveOccurred())

		session, _, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())
		Expect(session).NotTo(BeNil())

		stored, err := env.Users.GetByID(env.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.IsLocked).To(BeFalse())
		Expect(stored.FailedAttempts).To(BeZero())
		Expect(stored.LastLoginAt).NotTo(BeNil())
	})

	It("admin unlock restores access immediately", func() {
		user := createAccount("alice", passphrase)

		for range env.cfg.LockoutThreshold {
			failLogin("alice")
		}

		Expect(env.Admin.UnlockAccount(env.ctx, user.ID)).To(Succeed())

		_, _, err := env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		Expect(err).NotTo(HaveOccurred())
	})

	It("admin lock is indefinite and survives the lockout duration", func() {
		user := createAccount("alice", passphrase)

		Expect(env.Admin.LockAccount(env.ctx, user.ID)).To(Succeed())

		stored, err := env.Users.GetByID(env.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.IsLocked).To(BeTrue())
		Expect(stored.LockedUntil).To(BeNil())

		_, _, err = env.Service.Login(env.ctx, "alice", passphrase, testMeta)
		expectCode(err, auth.CodeAccountLocked)
	})
})
