// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

//go:build integration

package store_test

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/simpleauth/simpleauth/internal/store"
)

var _ = Describe("PostgresSettingsRepository", func() {
	var (
		ctx         context.Context
		pgContainer *postgres.PostgresContainer
		pool        *pgxpool.Pool
		repo        *store.PostgresSettingsRepository
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		pgContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2)),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(ctx, connStr, slog.Default())
		Expect(err).NotTo(HaveOccurred())

		repo = store.NewPostgresSettingsRepository(pool)
	})

	AfterEach(func() {
		if pool != nil {
			pool.Close()
		}
		if pgContainer != nil {
			Expect(pgContainer.Terminate(ctx)).To(Succeed())
		}
	})

	It("returns an empty map for a fresh database", func() {
		settings, err := repo.GetAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(settings).To(BeEmpty())
	})

	It("round-trips stored settings", func() {
		err := repo.SetAll(ctx, map[string]string{
			"fail_lock_attempts": "10",
			"session_timeout":    "12",
		})
		Expect(err).NotTo(HaveOccurred())

		settings, err := repo.GetAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(settings).To(Equal(map[string]string{
			"fail_lock_attempts": "10",
			"session_timeout":    "12",
		}))
	})

	It("overwrites an existing key on conflict", func() {
		Expect(repo.SetAll(ctx, map[string]string{"fail_lock_attempts": "5"})).To(Succeed())
		Expect(repo.SetAll(ctx, map[string]string{"fail_lock_attempts": "7"})).To(Succeed())

		settings, err := repo.GetAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(settings).To(HaveKeyWithValue("fail_lock_attempts", "7"))
	})
})
