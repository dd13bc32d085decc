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
	"github.com/MKhiriev/go-recipe-sync/migrations"
)

// querier is the part of *sql.DB and *sql.Tx the repositories need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the local SQLite database.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// NewDB wraps an open connection. Used by tests that bring their own
// *sql.DB (sqlmock).
func NewDB(conn *sql.DB, log *logger.Logger) *DB {
	return &DB{DB: conn, errorClassificator: NewSQLiteErrorClassifier(), logger: log}
}

func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}

const (
	maxTxAttempts = 3
	txRetryDelay  = 50 * time.Millisecond
)

// inTx runs fn inside a transaction and commits when fn returns nil. The
// whole transaction is replayed while the database reports a retryable lock
// error, so fn must not have effects outside tx.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = db.runTx(ctx, fn)
		if err == nil || attempt == maxTxAttempts || db.errorClassificator.Classify(err) != Retryable {
			return err
		}

		db.logger.Warn().Err(err).Int("attempt", attempt).Msg("database is busy, retrying transaction")
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt) * txRetryDelay):
		}
	}
}

func (db *DB) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

// runner executes repository work either inside the transaction it is bound
// to or inside a fresh one.
type runner struct {
	db *DB
	tx *sql.Tx
}

func (r runner) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r runner) atomic(ctx context.Context, fn func(q querier) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		return fn(tx)
	})
}
