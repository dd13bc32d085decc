// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-recipe-sync/models"
)

// PendingChangeRepository is the durable storage of the pending-change queue.
// It enforces one entry per (item, record type).
type PendingChangeRepository interface {
	// Enqueue inserts the change or folds it into the existing entry of the
	// same record, see [models.CollapseAction].
	Enqueue(ctx context.Context, change models.PendingChange) (models.PendingChange, error)
	Get(ctx context.Context, id int64) (models.PendingChange, error)
	GetByItem(ctx context.Context, itemID string, recordType models.RecordType) (models.PendingChange, error)
	// List returns entries in FIFO order.
	List(ctx context.Context, filter PendingFilter) ([]models.PendingChange, error)
	Count(ctx context.Context, filter PendingFilter) (int, error)
	MarkSyncing(ctx context.Context, id int64, at time.Time) error
	// MarkSucceeded removes the entry if it is still at revision and reports
	// whether it did. A superseded entry is returned to PENDING.
	MarkSucceeded(ctx context.Context, id int64, revision int64) (bool, error)
	MarkFailed(ctx context.Context, id int64, maxRetries int, lastError string, at time.Time) (models.PendingChange, error)
	MarkPermanentlyFailed(ctx context.Context, id int64, lastError string, at time.Time) error
	ResetSyncing(ctx context.Context, ids ...int64) (int64, error)
	RecoverStuck(ctx context.Context) (int64, error)
	// RetryFailed returns FAILED entries to PENDING; no ids means all.
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteByItem(ctx context.Context, itemID string, recordType models.RecordType) error
}

// LocalRecordRepository stores local copies of domain records.
type LocalRecordRepository interface {
	Save(ctx context.Context, record models.LocalRecord) error
	Get(ctx context.Context, recordType models.RecordType, localID string) (models.LocalRecord, error)
	GetByServerID(ctx context.Context, recordType models.RecordType, serverID string) (models.LocalRecord, error)
	GetByNaturalKey(ctx context.Context, recordType models.RecordType, naturalKey string) (models.LocalRecord, error)
	List(ctx context.Context, filter RecordFilter) ([]models.LocalRecord, error)
	MarkSynced(ctx context.Context, recordType models.RecordType, localID, serverID string, serverUpdatedAt *time.Time, syncedAt time.Time) error
	SetServerID(ctx context.Context, recordType models.RecordType, localID, serverID string) error
	// SetServerVersion records the server id and timestamp of a version the
	// server holds while leaving the record unsynced.
	SetServerVersion(ctx context.Context, recordType models.RecordType, localID, serverID string, serverUpdatedAt *time.Time) error
	Delete(ctx context.Context, recordType models.RecordType, localID string) error
}

// ConflictRepository stores conflict cases until they are resolved and
// archived.
type ConflictRepository interface {
	Save(ctx context.Context, conflict models.ConflictCase) error
	Get(ctx context.Context, id string) (models.ConflictCase, error)
	FindOpenByItem(ctx context.Context, conflictType models.ConflictType, itemID string) (models.ConflictCase, error)
	List(ctx context.Context, filter ConflictFilter) ([]models.ConflictCase, error)
	CountOpen(ctx context.Context, types ...models.ConflictType) (int, error)
	PurgeResolvedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ServerRepository stores server profiles.
type ServerRepository interface {
	Seed(ctx context.Context, profiles []models.ServerProfile) ([]models.ServerProfile, error)
	Get(ctx context.Context, id int64) (models.ServerProfile, error)
	List(ctx context.Context) ([]models.ServerProfile, error)
	UpdateStatus(ctx context.Context, id int64, status models.ServerStatus, checkedAt time.Time, connectedAt *time.Time) error
}

// SettingsRepository is a small key/value table for engine bookkeeping.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
