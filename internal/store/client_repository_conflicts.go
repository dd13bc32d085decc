// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/models"
)

type conflictRepository struct {
	runner
}

// NewConflictRepository returns the SQLite store of conflict cases.
func NewConflictRepository(db *DB) ConflictRepository {
	return &conflictRepository{runner: runner{db: db}}
}

// Save inserts the case or updates an open one. A resolved case is never
// overwritten.
func (c *conflictRepository) Save(ctx context.Context, conflict models.ConflictCase) error {
	log := logger.FromContext(ctx)

	localVersion, err := json.Marshal(conflict.LocalVersion)
	if err != nil {
		return fmt.Errorf("encode local version: %w", err)
	}
	serverVersion, err := json.Marshal(conflict.ServerVersion)
	if err != nil {
		return fmt.Errorf("encode server version: %w", err)
	}

	_, err = c.q().ExecContext(ctx, upsertConflict,
		conflict.ID,
		conflict.ConflictType,
		conflict.ItemID,
		conflict.ServerID,
		localVersion,
		serverVersion,
		conflict.Strategy,
		[]byte(conflict.ResolvedVersion),
		conflict.Resolved,
		conflict.DetectedAt.UTC(),
		utcPtr(conflict.ResolvedAt),
	)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Save").
			Str("conflict_id", conflict.ID).
			Str("item_id", conflict.ItemID).
			Msg("failed to execute upsert for conflict")
		return fmt.Errorf("failed to save conflict (id=%s): %w", conflict.ID, err)
	}
	return nil
}

func (c *conflictRepository) Get(ctx context.Context, id string) (models.ConflictCase, error) {
	conflict, err := scanConflict(c.q().QueryRowContext(ctx, getConflictByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConflictCase{}, ErrConflictNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "conflictRepository.Get").
			Str("conflict_id", id).
			Msg("failed to scan conflict row")
		return models.ConflictCase{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return conflict, nil
}

func (c *conflictRepository) FindOpenByItem(ctx context.Context, conflictType models.ConflictType, itemID string) (models.ConflictCase, error) {
	conflict, err := scanConflict(c.q().QueryRowContext(ctx, getOpenConflictByItem, conflictType, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConflictCase{}, ErrConflictNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "conflictRepository.FindOpenByItem").
			Str("item_id", itemID).
			Msg("failed to scan conflict row")
		return models.ConflictCase{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return conflict, nil
}

func (c *conflictRepository) List(ctx context.Context, filter ConflictFilter) ([]models.ConflictCase, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListConflictsQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := c.q().QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.List").
			Msg("failed to execute query for listing conflicts")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var conflicts []models.ConflictCase
	for rows.Next() {
		conflict, scanErr := scanConflict(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "conflictRepository.List").
				Msg("failed to scan conflict row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		conflicts = append(conflicts, conflict)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return conflicts, nil
}

func (c *conflictRepository) CountOpen(ctx context.Context, types ...models.ConflictType) (int, error) {
	query, args, err := buildCountOpenConflictsQuery(types)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var n int
	if err = c.q().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "conflictRepository.CountOpen").
			Msg("failed to count open conflicts")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return n, nil
}

func (c *conflictRepository) PurgeResolvedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := buildPurgeResolvedConflictsQuery(cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := c.q().ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "conflictRepository.PurgeResolvedOlderThan").
			Msg("failed to purge resolved conflicts")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return res.RowsAffected()
}
