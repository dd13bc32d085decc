// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MKhiriev/go-recipe-sync/internal/config"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
)

// ClientStorages groups the client repositories so the service layer gets a
// single value.
type ClientStorages struct {
	PendingChanges PendingChangeRepository
	Records        LocalRecordRepository
	Conflicts      ConflictRepository
	Servers        ServerRepository
	Settings       SettingsRepository

	db *DB
}

// TxStorages exposes repositories bound to one transaction.
type TxStorages struct {
	PendingChanges PendingChangeRepository
	Records        LocalRecordRepository
	Conflicts      ConflictRepository
}

// NewClientStorages opens (creating if needed) the SQLite file named by
// cfg.DB.DSN, applies migrations and wires the repositories.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return NewClientStoragesFromDB(db), nil
}

// NewClientStoragesFromDB wires repositories on an already migrated database.
func NewClientStoragesFromDB(db *DB) *ClientStorages {
	return &ClientStorages{
		PendingChanges: NewPendingChangeRepository(db),
		Records:        NewLocalRecordRepository(db),
		Conflicts:      NewConflictRepository(db),
		Servers:        NewServerRepository(db),
		Settings:       NewSettingsRepository(db),
		db:             db,
	}
}

// WithinTx runs fn with repositories sharing one transaction. Only the
// repositories passed to fn may be used inside it.
func (s *ClientStorages) WithinTx(ctx context.Context, fn func(tx TxStorages) error) error {
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		r := runner{db: s.db, tx: tx}
		return fn(TxStorages{
			PendingChanges: &pendingChangeRepository{runner: r},
			Records:        &localRecordRepository{runner: r},
			Conflicts:      &conflictRepository{runner: r},
		})
	})
}

// Close closes the database.
func (s *ClientStorages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
