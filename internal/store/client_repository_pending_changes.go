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

type pendingChangeRepository struct {
	runner
}

// NewPendingChangeRepository returns the SQLite-backed pending change queue.
func NewPendingChangeRepository(db *DB) PendingChangeRepository {
	return &pendingChangeRepository{runner: runner{db: db}}
}

func (p *pendingChangeRepository) Enqueue(ctx context.Context, change models.PendingChange) (models.PendingChange, error) {
	log := logger.FromContext(ctx)

	var stored models.PendingChange
	err := p.atomic(ctx, func(q querier) error {
		existing, err := p.getByItem(ctx, q, change.ItemID, change.RecordType)
		switch {
		case errors.Is(err, ErrPendingChangeNotFound):
			res, execErr := q.ExecContext(ctx, insertPendingChange,
				change.ItemID,
				change.RecordType,
				change.Action,
				[]byte(change.Payload),
				change.OriginDeviceID,
				change.CreatedAt.UTC(),
			)
			if execErr != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, execErr)
			}
			id, idErr := res.LastInsertId()
			if idErr != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, idErr)
			}
			stored, err = p.get(ctx, q, id)
			return err
		case err != nil:
			return err
		}

		action := models.CollapseAction(existing.Action, change.Action)
		if _, err = q.ExecContext(ctx, collapsePendingChange,
			action,
			[]byte(change.Payload),
			change.OriginDeviceID,
			existing.ID,
		); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		stored, err = p.get(ctx, q, existing.ID)
		return err
	})
	if err != nil {
		log.Err(err).
			Str("func", "pendingChangeRepository.Enqueue").
			Str("item_id", change.ItemID).
			Str("record_type", string(change.RecordType)).
			Str("action", string(change.Action)).
			Msg("failed to enqueue pending change")
		return models.PendingChange{}, fmt.Errorf("failed to enqueue pending change (item_id=%s): %w", change.ItemID, err)
	}

	return stored, nil
}

func (p *pendingChangeRepository) Get(ctx context.Context, id int64) (models.PendingChange, error) {
	return p.get(ctx, p.q(), id)
}

func (p *pendingChangeRepository) GetByItem(ctx context.Context, itemID string, recordType models.RecordType) (models.PendingChange, error) {
	return p.getByItem(ctx, p.q(), itemID, recordType)
}

func (p *pendingChangeRepository) get(ctx context.Context, q querier, id int64) (models.PendingChange, error) {
	change, err := scanPendingChange(q.QueryRowContext(ctx, getPendingChangeByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PendingChange{}, ErrPendingChangeNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "pendingChangeRepository.get").
			Int64("id", id).
			Msg("failed to scan pending change row")
		return models.PendingChange{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return change, nil
}

func (p *pendingChangeRepository) getByItem(ctx context.Context, q querier, itemID string, recordType models.RecordType) (models.PendingChange, error) {
	change, err := scanPendingChange(q.QueryRowContext(ctx, getPendingChangeByItem, itemID, recordType))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PendingChange{}, ErrPendingChangeNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "pendingChangeRepository.getByItem").
			Str("item_id", itemID).
			Msg("failed to scan pending change row")
		return models.PendingChange{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return change, nil
}

func (p *pendingChangeRepository) List(ctx context.Context, filter PendingFilter) ([]models.PendingChange, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListPendingChangesQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := p.q().QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "pendingChangeRepository.List").
			Msg("failed to execute query for listing pending changes")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var changes []models.PendingChange
	for rows.Next() {
		change, scanErr := scanPendingChange(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "pendingChangeRepository.List").
				Msg("failed to scan pending change row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		changes = append(changes, change)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "pendingChangeRepository.List").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return changes, nil
}

func (p *pendingChangeRepository) Count(ctx context.Context, filter PendingFilter) (int, error) {
	query, args, err := buildCountPendingChangesQuery(filter)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var n int
	if err = p.q().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "pendingChangeRepository.Count").
			Msg("failed to count pending changes")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return n, nil
}

func (p *pendingChangeRepository) MarkSyncing(ctx context.Context, id int64, at time.Time) error {
	return p.execOne(ctx, "pendingChangeRepository.MarkSyncing", id, markPendingChangeSyncing, at.UTC(), id)
}

// MarkSucceeded deletes the entry if it still carries revision. It reports
// false when the entry was superseded in the meantime.
func (p *pendingChangeRepository) MarkSucceeded(ctx context.Context, id int64, revision int64) (bool, error) {
	log := logger.FromContext(ctx)

	removed := false
	err := p.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, deletePendingChangeAtRevision, id, revision)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed = true
			return nil
		}

		res, err = q.ExecContext(ctx, requeueSupersededPendingChange, id)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrPendingChangeNotFound
		}
		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "pendingChangeRepository.MarkSucceeded").
			Int64("id", id).
			Int64("revision", revision).
			Msg("failed to complete pending change")
		return false, fmt.Errorf("failed to complete pending change (id=%d): %w", id, err)
	}

	if !removed {
		log.Debug().
			Str("func", "pendingChangeRepository.MarkSucceeded").
			Int64("id", id).
			Msg("pending change was superseded during upload, requeued")
	}
	return removed, nil
}

// MarkFailed bumps the retry counter and moves the entry to FAILED once it
// reaches maxRetries.
func (p *pendingChangeRepository) MarkFailed(ctx context.Context, id int64, maxRetries int, lastError string, at time.Time) (models.PendingChange, error) {
	if err := p.execOne(ctx, "pendingChangeRepository.MarkFailed", id, markPendingChangeFailed, maxRetries, at.UTC(), lastError, id); err != nil {
		return models.PendingChange{}, err
	}
	return p.Get(ctx, id)
}

func (p *pendingChangeRepository) MarkPermanentlyFailed(ctx context.Context, id int64, lastError string, at time.Time) error {
	return p.execOne(ctx, "pendingChangeRepository.MarkPermanentlyFailed", id, markPendingChangePermanentlyFailed, at.UTC(), lastError, id)
}

func (p *pendingChangeRepository) ResetSyncing(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := buildResetSyncingQuery(ids)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return p.execCount(ctx, "pendingChangeRepository.ResetSyncing", query, args...)
}

func (p *pendingChangeRepository) RecoverStuck(ctx context.Context) (int64, error) {
	return p.execCount(ctx, "pendingChangeRepository.RecoverStuck", recoverStuckPendingChanges)
}

func (p *pendingChangeRepository) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	query, args, err := buildRetryFailedQuery(ids)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return p.execCount(ctx, "pendingChangeRepository.RetryFailed", query, args...)
}

func (p *pendingChangeRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := buildPurgePendingChangesQuery(cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return p.execCount(ctx, "pendingChangeRepository.PurgeOlderThan", query, args...)
}

func (p *pendingChangeRepository) DeleteByItem(ctx context.Context, itemID string, recordType models.RecordType) error {
	_, err := p.execCount(ctx, "pendingChangeRepository.DeleteByItem", deletePendingChangeByItem, itemID, recordType)
	return err
}

// execOne runs a single-row update and reports ErrPendingChangeNotFound when
// nothing matched.
func (p *pendingChangeRepository) execOne(ctx context.Context, fn string, id int64, query string, args ...any) error {
	n, err := p.execCount(ctx, fn, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w (id=%d)", ErrPendingChangeNotFound, id)
	}
	return nil
}

func (p *pendingChangeRepository) execCount(ctx context.Context, fn string, query string, args ...any) (int64, error) {
	res, err := p.q().ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", fn).
			Msg("failed to execute statement")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return n, nil
}
