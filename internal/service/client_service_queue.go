// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

type pendingQueue struct {
	repo       store.PendingChangeRepository
	clock      utils.Clock
	deviceID   string
	maxRetries int

	logger *logger.Logger
}

// NewPendingQueue creates a queue over repo. clock stamps createdAt and must
// be monotonic (see [utils.LogicalClock]); maxRetries <= 0 means
// [models.MaxRetries].
func NewPendingQueue(repo store.PendingChangeRepository, clock utils.Clock, deviceID string, maxRetries int, logger *logger.Logger) PendingQueue {
	if maxRetries <= 0 {
		maxRetries = models.MaxRetries
	}
	return &pendingQueue{
		repo:       repo,
		clock:      clock,
		deviceID:   deviceID,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Enqueue records a local change, collapsing it into an entry already queued
// for the same item.
func (q *pendingQueue) Enqueue(ctx context.Context, change models.PendingChange) (models.PendingChange, error) {
	return q.EnqueueWith(ctx, q.repo, change)
}

func (q *pendingQueue) EnqueueWith(ctx context.Context, repo store.PendingChangeRepository, change models.PendingChange) (models.PendingChange, error) {
	if change.ItemID == "" {
		return models.PendingChange{}, fmt.Errorf("%w: empty item id", ErrInvalidRecord)
	}
	if !change.RecordType.Valid() {
		return models.PendingChange{}, fmt.Errorf("%w: %q", ErrUnknownRecordType, change.RecordType)
	}
	if !change.Action.Valid() {
		return models.PendingChange{}, fmt.Errorf("%w: unknown action %q", ErrInvalidRecord, change.Action)
	}

	change.CreatedAt = q.clock.Now()
	if change.OriginDeviceID == "" {
		change.OriginDeviceID = q.deviceID
	}

	stored, err := repo.Enqueue(ctx, change)
	if err != nil {
		return models.PendingChange{}, fmt.Errorf("enqueue %s %s/%s: %w", change.Action, change.RecordType, change.ItemID, err)
	}

	q.logger.Debug().
		Int64("id", stored.ID).
		Str("item_id", stored.ItemID).
		Str("record_type", string(stored.RecordType)).
		Str("action", string(stored.Action)).
		Int64("revision", stored.Revision).
		Msg("pending change enqueued")

	return stored, nil
}

// NextBatch returns PENDING entries oldest first, optionally limited to
// recordTypes.
func (q *pendingQueue) NextBatch(ctx context.Context, recordTypes ...models.RecordType) ([]models.PendingChange, error) {
	return q.repo.List(ctx, store.PendingFilter{
		Statuses:    []models.PendingStatus{models.PendingStatusPending},
		RecordTypes: recordTypes,
	})
}

func (q *pendingQueue) MarkSyncing(ctx context.Context, id int64) error {
	return q.repo.MarkSyncing(ctx, id, q.clock.Now())
}

// MarkFailed counts a failed attempt. The entry stays PENDING until it runs
// out of retries.
func (q *pendingQueue) MarkFailed(ctx context.Context, id int64, cause error) (models.PendingChange, error) {
	change, err := q.repo.MarkFailed(ctx, id, q.maxRetries, errorText(cause), q.clock.Now())
	if err != nil {
		return models.PendingChange{}, err
	}

	if change.Status == models.PendingStatusFailed {
		q.logger.Warn().
			Int64("id", id).
			Str("item_id", change.ItemID).
			Int("retry_count", change.RetryCount).
			Str("last_error", change.LastError).
			Msg("pending change exhausted its retries")
	}
	return change, nil
}

func (q *pendingQueue) MarkPermanentlyFailed(ctx context.Context, id int64, cause error) error {
	if err := q.repo.MarkPermanentlyFailed(ctx, id, errorText(cause), q.clock.Now()); err != nil {
		return err
	}

	q.logger.Warn().
		Int64("id", id).
		Err(cause).
		Msg("pending change rejected by server")
	return nil
}

func (q *pendingQueue) ResetSyncing(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.repo.ResetSyncing(ctx, ids...)
	return err
}

// RecoverStuck returns entries left SYNCING by an interrupted run to PENDING.
func (q *pendingQueue) RecoverStuck(ctx context.Context) (int64, error) {
	n, err := q.repo.RecoverStuck(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.logger.Info().Int64("count", n).Msg("recovered pending changes left in SYNCING")
	}
	return n, nil
}

func (q *pendingQueue) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return q.repo.PurgeOlderThan(ctx, cutoff)
}

// PendingCount counts entries not yet confirmed and not given up on.
func (q *pendingQueue) PendingCount(ctx context.Context) (int, error) {
	return q.repo.Count(ctx, store.PendingFilter{
		Statuses: []models.PendingStatus{models.PendingStatusPending, models.PendingStatusSyncing},
	})
}

func (q *pendingQueue) FailedCount(ctx context.Context) (int, error) {
	return q.repo.Count(ctx, store.PendingFilter{
		Statuses: []models.PendingStatus{models.PendingStatusFailed},
	})
}

func (q *pendingQueue) ListFailed(ctx context.Context) ([]models.PendingChange, error) {
	return q.repo.List(ctx, store.PendingFilter{
		Statuses: []models.PendingStatus{models.PendingStatusFailed},
	})
}

// RetryFailed puts FAILED entries back in the queue with a fresh retry
// budget. No ids means every failed entry.
func (q *pendingQueue) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	return q.repo.RetryFailed(ctx, ids...)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
