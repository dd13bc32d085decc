// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// Well-known settings keys.
const (
	SettingDeviceID           = "device_id"
	SettingActiveServerID     = "active_server_id"
	SettingActiveServerPinned = "active_server_pinned"
	settingLastSyncPrefix     = "last_sync_at:"
)

// SettingLastSyncAt is the key holding the last completed session time of a
// record type.
func SettingLastSyncAt(recordType models.RecordType) string {
	return settingLastSyncPrefix + string(recordType)
}

type settingsRepository struct {
	runner
}

// NewSettingsRepository returns the key/value settings table.
func NewSettingsRepository(db *DB) SettingsRepository {
	return &settingsRepository{runner: runner{db: db}}
}

func (s *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.q().QueryRowContext(ctx, getSetting, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "settingsRepository.Get").
			Str("key", key).
			Msg("failed to read setting")
		return "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return value, nil
}

func (s *settingsRepository) Set(ctx context.Context, key, value string) error {
	if _, err := s.q().ExecContext(ctx, upsertSetting, key, value); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "settingsRepository.Set").
			Str("key", key).
			Msg("failed to write setting")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *settingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := s.q().ExecContext(ctx, deleteSetting, key); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "settingsRepository.Delete").
			Str("key", key).
			Msg("failed to delete setting")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// GetTime reads a timestamp stored with SetTime. A missing key yields nil.
func (s *settingsRepository) GetTime(ctx context.Context, key string) (*time.Time, error) {
	value, err := s.Get(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("setting %s is not a timestamp: %w", key, err)
	}
	t = t.UTC()
	return &t, nil
}

func (s *settingsRepository) SetTime(ctx context.Context, key string, t time.Time) error {
	return s.Set(ctx, key, t.UTC().Format(time.RFC3339Nano))
}
