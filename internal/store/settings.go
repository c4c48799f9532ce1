// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package store

import (
	"context"

	"github.com/samber/oops"

	"github.com/simpleauth/simpleauth/internal/auth"
)

// PostgresSettingsRepository implements auth.SystemSettingsRepository
// using a key/value table.
type PostgresSettingsRepository struct {
	pool poolIface
}

// NewPostgresSettingsRepository creates a new PostgreSQL settings repository.
func NewPostgresSettingsRepository(pool poolIface) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{pool: pool}
}

// GetAll retrieves all stored settings as a key/value map.
func (r *PostgresSettingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM system_settings`)
	if err != nil {
		return nil, oops.Code("SETTINGS_GET_FAILED").
			With("operation", "get system settings").
			Wrap(err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, oops.Code("SETTINGS_SCAN_FAILED").
				With("operation", "scan system setting row").
				Wrap(err)
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("SETTINGS_ROWS_ERROR").
			With("operation", "iterate system settings").
			Wrap(err)
	}

	return settings, nil
}

// SetAll upserts every key/value pair in the map.
func (r *PostgresSettingsRepository) SetAll(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO system_settings (key, value, updated_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
			key, value)
		if err != nil {
			return oops.Code("SETTINGS_SET_FAILED").
				With("operation", "set system setting").
				With("key", key).
				Wrap(err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ auth.SystemSettingsRepository = (*PostgresSettingsRepository)(nil)
