// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpleauth/simpleauth/pkg/errutil"
)

func TestPostgresSettingsRepository_GetAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"key", "value"}).
		AddRow("fail_lock_attempts", "5").
		AddRow("session_timeout", "24")
	mock.ExpectQuery(`SELECT key, value FROM system_settings`).WillReturnRows(rows)

	repo := NewPostgresSettingsRepository(mock)
	settings, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"fail_lock_attempts": "5",
		"session_timeout":    "24",
	}, settings)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSettingsRepository_GetAll_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT key, value FROM system_settings`).
		WillReturnRows(pgxmock.NewRows([]string{"key", "value"}))

	repo := NewPostgresSettingsRepository(mock)
	settings, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, settings)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSettingsRepository_GetAll_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT key, value FROM system_settings`).
		WillReturnError(errors.New("connection refused"))

	repo := NewPostgresSettingsRepository(mock)
	_, err = repo.GetAll(context.Background())
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SETTINGS_GET_FAILED")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSettingsRepository_SetAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO system_settings`).
		WithArgs("fail_lock_attempts", "10").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresSettingsRepository(mock)
	err = repo.SetAll(context.Background(), map[string]string{"fail_lock_attempts": "10"})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSettingsRepository_SetAll_ExecError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO system_settings`).
		WithArgs("fail_lock_attempts", "10").
		WillReturnError(errors.New("disk full"))

	repo := NewPostgresSettingsRepository(mock)
	err = repo.SetAll(context.Background(), map[string]string{"fail_lock_attempts": "10"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SETTINGS_SET_FAILED")

	require.NoError(t, mock.ExpectationsWereMet())
}
