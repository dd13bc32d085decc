// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/adapter"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// PendingQueue is the durable queue of local mutations not yet confirmed by a
// server. Only the orchestrator changes entry status; record mutations only
// enqueue.
type PendingQueue interface {
	// Enqueue stamps change with the logical time and device id, then folds
	// it into the queue (one entry per item and record type).
	Enqueue(ctx context.Context, change models.PendingChange) (models.PendingChange, error)

	// EnqueueWith is Enqueue on a transaction-bound repository, so a record
	// mutation and its queue entry commit together.
	EnqueueWith(ctx context.Context, repo store.PendingChangeRepository, change models.PendingChange) (models.PendingChange, error)

	// NextBatch returns all PENDING entries in FIFO order, optionally only
	// those of the given record types.
	NextBatch(ctx context.Context, recordTypes ...models.RecordType) ([]models.PendingChange, error)

	MarkSyncing(ctx context.Context, id int64) error

	// MarkFailed counts one failed attempt. The entry returns to PENDING
	// while attempts remain and becomes FAILED afterwards.
	MarkFailed(ctx context.Context, id int64, cause error) (models.PendingChange, error)

	// MarkPermanentlyFailed moves the entry to FAILED without counting.
	MarkPermanentlyFailed(ctx context.Context, id int64, cause error) error

	// ResetSyncing returns in-flight entries to PENDING.
	ResetSyncing(ctx context.Context, ids ...int64) error

	// RecoverStuck returns every SYNCING entry to PENDING. Called at startup.
	RecoverStuck(ctx context.Context) (int64, error)

	// PurgeOlderThan deletes FAILED entries whose last attempt is older than
	// cutoff.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	PendingCount(ctx context.Context) (int, error)
	FailedCount(ctx context.Context) (int, error)
	ListFailed(ctx context.Context) ([]models.PendingChange, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
}

// Outcome is the result of comparing a local record to its server version.
type Outcome int

const (
	// OutcomeUnchanged: neither side changed since the last sync point.
	OutcomeUnchanged Outcome = iota
	// OutcomeApplyRemote: only the server changed; the server version wins.
	OutcomeApplyRemote
	// OutcomeKeepLocal: only the local side changed; the upload pushes it.
	OutcomeKeepLocal
	// OutcomeIdentical: both changed to the same content.
	OutcomeIdentical
	// OutcomeConflict: both changed differently.
	OutcomeConflict
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeApplyRemote:
		return "apply-remote"
	case OutcomeKeepLocal:
		return "keep-local"
	case OutcomeIdentical:
		return "identical"
	case OutcomeConflict:
		return "conflict"
	}
	return "unknown"
}

// MergeFunc combines a local and a server payload into one version. The
// resolver never merges on its own; callers supply the function.
type MergeFunc func(local, server json.RawMessage) (json.RawMessage, error)

// ConflictResolver detects divergent versions and records their resolution.
type ConflictResolver interface {
	// Detect compares local with remote relative to the local record's last
	// common sync point.
	Detect(local models.LocalRecord, remote models.RemoteRecord) Outcome

	// Raise stores a conflict for local and remote inside repo. An open case
	// for the same item is refreshed instead of duplicated.
	Raise(ctx context.Context, repo store.ConflictRepository, local models.LocalRecord, remote models.RemoteRecord) (models.ConflictCase, error)

	// Resolve settles a conflict with strategy, applies the resolved version
	// to local storage and re-enqueues it when it still has to reach the
	// server. version is the merged or user-chosen payload for MERGE and
	// ASK_USER and is ignored otherwise.
	Resolve(ctx context.Context, conflictID string, strategy models.ResolutionStrategy, version json.RawMessage) (models.ConflictCase, error)

	// Merge resolves a conflict with MERGE using fn on both payloads.
	Merge(ctx context.Context, conflictID string, fn MergeFunc) (models.ConflictCase, error)

	Get(ctx context.Context, conflictID string) (models.ConflictCase, error)
	ListOpen(ctx context.Context, types ...models.ConflictType) ([]models.ConflictCase, error)
	CountOpen(ctx context.Context, types ...models.ConflictType) (int, error)
	HasOpen(ctx context.Context, recordType models.RecordType, itemID string) (bool, error)
	PurgeResolvedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ServerRegistry tracks configured servers, their health and the active
// server. It is the only writer of server status.
type ServerRegistry interface {
	// Seed stores the configured servers, see [store.ServerRepository].
	Seed(ctx context.Context, profiles []models.ServerProfile) ([]models.ServerProfile, error)

	List(ctx context.Context) ([]models.ServerProfile, error)

	// Select returns the best available sync server, skipping exclude.
	Select(ctx context.Context, exclude ...int64) (models.ServerProfile, error)

	// Active returns the server sessions should use, selecting and persisting
	// one if there is none or it became unusable.
	Active(ctx context.Context) (models.ServerProfile, error)

	// SetActive makes id the active server. IsDefault is never changed.
	SetActive(ctx context.Context, id int64) (models.ServerProfile, error)

	// Failover marks failedID offline and switches to the best server not in
	// failedID or exclude.
	Failover(ctx context.Context, failedID int64, exclude ...int64) (models.ServerProfile, error)

	// Probe checks one server. Concurrent probes of the same server share a
	// single round trip.
	Probe(ctx context.Context, id int64) (models.HealthResult, error)

	// TestAll probes every enabled server concurrently.
	TestAll(ctx context.Context) ([]models.HealthResult, error)

	// Target returns the address and a valid token for server, logging in
	// when needed.
	Target(ctx context.Context, server models.ServerProfile) (adapter.Target, error)

	// InvalidateToken drops the cached token of a server.
	InvalidateToken(id int64)

	// ReportSuccess records that a request to the server just succeeded.
	ReportSuccess(ctx context.Context, id int64) error
}

// SyncOrchestrator runs download and upload sessions per record type.
type SyncOrchestrator interface {
	// TriggerSync starts one session per record type (all types when none is
	// given) and streams their progress. The channel is closed after every
	// session reached a terminal state. A type that is already syncing is
	// skipped. Progress may be dropped for a slow reader, terminal statuses
	// are always delivered; a reader that stops early leaks nothing.
	TriggerSync(ctx context.Context, recordTypes ...models.RecordType) <-chan models.SyncSessionStatus

	// Sync runs one session synchronously and returns its terminal status.
	Sync(ctx context.Context, recordType models.RecordType) (models.SyncSessionStatus, error)

	// Status returns the latest status of a record type.
	Status(recordType models.RecordType) models.SyncSessionStatus

	// Statuses returns the latest status of every record type.
	Statuses() []models.SyncSessionStatus
}

// RecordService performs local mutations of domain records. Every mutation
// updates the local copy and enqueues a pending change atomically.
type RecordService interface {
	Create(ctx context.Context, record models.Record) (models.LocalRecord, error)
	Update(ctx context.Context, localID string, record models.Record) (models.LocalRecord, error)
	Delete(ctx context.Context, recordType models.RecordType, localID string) error
	Get(ctx context.Context, recordType models.RecordType, localID string) (models.LocalRecord, error)
	List(ctx context.Context, recordType models.RecordType) ([]models.LocalRecord, error)
}

// BackgroundJob is a periodic task with explicit start and stop.
type BackgroundJob interface {
	// Start launches the job. A running job is stopped first.
	Start(ctx context.Context)
	// Stop cancels the job and waits for it to exit.
	Stop()
	// Name identifies the job in logs.
	Name() string
}
