// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-recipe-sync/models"
)

// builder produces SQLite style "?" placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const pendingChangeColumns = `id, item_id, record_type, action, payload, origin_device_id, created_at,
	status, retry_count, last_attempt_at, last_error, revision`

const (
	insertPendingChange = `
		INSERT INTO pending_changes (
			item_id, record_type, action, payload, origin_device_id, created_at, status, retry_count, revision
		) VALUES (?, ?, ?, ?, ?, ?, 'PENDING', 0, 1);`

	getPendingChangeByID = `SELECT ` + pendingChangeColumns + `
		FROM pending_changes
		WHERE id = ?;`

	getPendingChangeByItem = `SELECT ` + pendingChangeColumns + `
		FROM pending_changes
		WHERE item_id = ? AND record_type = ?;`

	// a collapsed entry keeps created_at so it keeps its queue position;
	// a SYNCING entry stays SYNCING and the revision bump marks it superseded
	collapsePendingChange = `
		UPDATE pending_changes SET
			action           = ?,
			payload          = ?,
			origin_device_id = ?,
			status           = CASE WHEN status = 'SYNCING' THEN 'SYNCING' ELSE 'PENDING' END,
			retry_count      = CASE WHEN status = 'SYNCING' THEN retry_count ELSE 0 END,
			last_error       = CASE WHEN status = 'SYNCING' THEN last_error ELSE '' END,
			revision         = revision + 1
		WHERE id = ?;`

	markPendingChangeSyncing = `
		UPDATE pending_changes SET
			status          = 'SYNCING',
			last_attempt_at = ?
		WHERE id = ? AND status = 'PENDING';`

	deletePendingChangeAtRevision = `
		DELETE FROM pending_changes
		WHERE id = ? AND revision = ?;`

	// the uploaded revision was superseded: the record now exists remotely,
	// so a pending CREATE has to go out as an UPDATE
	requeueSupersededPendingChange = `
		UPDATE pending_changes SET
			status      = 'PENDING',
			retry_count = 0,
			last_error  = '',
			action      = CASE WHEN action = 'CREATE' THEN 'UPDATE' ELSE action END
		WHERE id = ?;`

	markPendingChangeFailed = `
		UPDATE pending_changes SET
			retry_count     = retry_count + 1,
			status          = CASE WHEN retry_count + 1 < ? THEN 'PENDING' ELSE 'FAILED' END,
			last_attempt_at = ?,
			last_error      = ?
		WHERE id = ?;`

	markPendingChangePermanentlyFailed = `
		UPDATE pending_changes SET
			status          = 'FAILED',
			last_attempt_at = ?,
			last_error      = ?
		WHERE id = ?;`

	recoverStuckPendingChanges = `
		UPDATE pending_changes SET status = 'PENDING'
		WHERE status = 'SYNCING';`

	deletePendingChangeByItem = `
		DELETE FROM pending_changes
		WHERE item_id = ? AND record_type = ?;`
)

const localRecordColumns = `local_id, record_type, server_id, natural_key, payload, updated_at,
	server_updated_at, last_sync_at, is_synced, deleted`

const (
	upsertLocalRecord = `
		INSERT INTO local_records (` + localRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (local_id, record_type) DO UPDATE SET
			server_id         = excluded.server_id,
			natural_key       = excluded.natural_key,
			payload           = excluded.payload,
			updated_at        = excluded.updated_at,
			server_updated_at = excluded.server_updated_at,
			last_sync_at      = excluded.last_sync_at,
			is_synced         = excluded.is_synced,
			deleted           = excluded.deleted;`

	markLocalRecordSynced = `
		UPDATE local_records SET
			server_id         = ?,
			server_updated_at = ?,
			last_sync_at      = ?,
			is_synced         = TRUE
		WHERE record_type = ? AND local_id = ?;`

	setLocalRecordServerID = `
		UPDATE local_records SET server_id = ?
		WHERE record_type = ? AND local_id = ?;`

	setLocalRecordServerVersion = `
		UPDATE local_records SET
			server_id         = ?,
			server_updated_at = ?
		WHERE record_type = ? AND local_id = ?;`

	deleteLocalRecord = `
		DELETE FROM local_records
		WHERE record_type = ? AND local_id = ?;`
)

const conflictColumns = `id, conflict_type, item_id, server_id, local_version, server_version,
	strategy, resolved_version, resolved, detected_at, resolved_at`

const (
	upsertConflict = `
		INSERT INTO conflicts (` + conflictColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			server_id        = excluded.server_id,
			local_version    = excluded.local_version,
			server_version   = excluded.server_version,
			strategy         = excluded.strategy,
			resolved_version = excluded.resolved_version,
			resolved         = excluded.resolved,
			resolved_at      = excluded.resolved_at
		WHERE conflicts.resolved = FALSE;`

	getConflictByID = `SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE id = ?;`

	getOpenConflictByItem = `SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE conflict_type = ? AND item_id = ? AND resolved = FALSE
		ORDER BY detected_at DESC
		LIMIT 1;`
)

const serverColumns = `id, name, base_url, priority, enabled, is_default, status,
	last_status_check_at, last_connected_at, sync_enabled`

const (
	clearServerDefaults = `UPDATE servers SET is_default = FALSE;`

	disableAllServers = `UPDATE servers SET enabled = FALSE;`

	// status and timestamps belong to the registry and survive reseeding
	upsertServer = `
		INSERT INTO servers (name, base_url, priority, enabled, is_default, status, sync_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (base_url) DO UPDATE SET
			name         = excluded.name,
			priority     = excluded.priority,
			enabled      = excluded.enabled,
			is_default   = excluded.is_default,
			sync_enabled = excluded.sync_enabled;`

	getServerByID = `SELECT ` + serverColumns + `
		FROM servers
		WHERE id = ?;`

	getServerByBaseURL = `SELECT ` + serverColumns + `
		FROM servers
		WHERE base_url = ?;`

	listServers = `SELECT ` + serverColumns + `
		FROM servers
		ORDER BY priority DESC, id ASC;`

	updateServerStatus = `
		UPDATE servers SET
			status               = ?,
			last_status_check_at = ?,
			last_connected_at    = COALESCE(?, last_connected_at)
		WHERE id = ?;`
)

const (
	getSetting = `SELECT value FROM settings WHERE key = ?;`

	upsertSetting = `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value;`

	deleteSetting = `DELETE FROM settings WHERE key = ?;`
)

// PendingFilter narrows a pending change listing. Empty fields do not filter.
type PendingFilter struct {
	Statuses    []models.PendingStatus
	RecordTypes []models.RecordType
}

// RecordFilter narrows a local record listing.
type RecordFilter struct {
	RecordType models.RecordType
	// IncludeDeleted also returns local tombstones.
	IncludeDeleted bool
	// OnlyUnsynced returns records with local changes not yet confirmed.
	OnlyUnsynced bool
}

// ConflictFilter narrows a conflict listing.
type ConflictFilter struct {
	Types    []models.ConflictType
	OnlyOpen bool
}

func recordTypeStrings(types []models.RecordType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func buildListPendingChangesQuery(filter PendingFilter) (string, []any, error) {
	q := builder.Select(pendingChangeColumns).From("pending_changes")

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where(sq.Eq{"status": statuses})
	}
	if len(filter.RecordTypes) > 0 {
		q = q.Where(sq.Eq{"record_type": recordTypeStrings(filter.RecordTypes)})
	}

	return q.OrderBy("created_at ASC", "id ASC").ToSql()
}

func buildCountPendingChangesQuery(filter PendingFilter) (string, []any, error) {
	q := builder.Select("COUNT(*)").From("pending_changes")

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where(sq.Eq{"status": statuses})
	}
	if len(filter.RecordTypes) > 0 {
		q = q.Where(sq.Eq{"record_type": recordTypeStrings(filter.RecordTypes)})
	}

	return q.ToSql()
}

func buildResetSyncingQuery(ids []int64) (string, []any, error) {
	return builder.Update("pending_changes").
		Set("status", string(models.PendingStatusPending)).
		Where(sq.Eq{"status": string(models.PendingStatusSyncing), "id": ids}).
		ToSql()
}

func buildRetryFailedQuery(ids []int64) (string, []any, error) {
	q := builder.Update("pending_changes").
		Set("status", string(models.PendingStatusPending)).
		Set("retry_count", 0).
		Set("last_error", "").
		Where(sq.Eq{"status": string(models.PendingStatusFailed)})
	if len(ids) > 0 {
		q = q.Where(sq.Eq{"id": ids})
	}
	return q.ToSql()
}

// buildPurgePendingChangesQuery removes permanently failed entries whose last
// attempt is older than cutoff. Confirmed entries are deleted on success.
func buildPurgePendingChangesQuery(cutoff time.Time) (string, []any, error) {
	return builder.Delete("pending_changes").
		Where(sq.Eq{"status": string(models.PendingStatusFailed)}).
		Where(sq.Lt{"COALESCE(last_attempt_at, created_at)": cutoff.UTC()}).
		ToSql()
}

func buildListLocalRecordsQuery(filter RecordFilter) (string, []any, error) {
	q := builder.Select(localRecordColumns).From("local_records")

	if filter.RecordType != "" {
		q = q.Where(sq.Eq{"record_type": string(filter.RecordType)})
	}
	if !filter.IncludeDeleted {
		q = q.Where(sq.Eq{"deleted": false})
	}
	if filter.OnlyUnsynced {
		q = q.Where(sq.Eq{"is_synced": false})
	}

	return q.OrderBy("record_type ASC", "updated_at ASC", "local_id ASC").ToSql()
}

func buildGetLocalRecordQuery(recordType models.RecordType, column, value string) (string, []any, error) {
	return builder.Select(localRecordColumns).
		From("local_records").
		Where(sq.Eq{"record_type": string(recordType), column: value}).
		OrderBy("updated_at DESC").
		Limit(1).
		ToSql()
}

func buildListConflictsQuery(filter ConflictFilter) (string, []any, error) {
	q := builder.Select(conflictColumns).From("conflicts")

	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		q = q.Where(sq.Eq{"conflict_type": types})
	}
	if filter.OnlyOpen {
		q = q.Where(sq.Eq{"resolved": false})
	}

	return q.OrderBy("detected_at ASC", "id ASC").ToSql()
}

func buildCountOpenConflictsQuery(types []models.ConflictType) (string, []any, error) {
	q := builder.Select("COUNT(*)").From("conflicts").Where(sq.Eq{"resolved": false})
	if len(types) > 0 {
		ts := make([]string, 0, len(types))
		for _, t := range types {
			ts = append(ts, string(t))
		}
		q = q.Where(sq.Eq{"conflict_type": ts})
	}
	return q.ToSql()
}

func buildPurgeResolvedConflictsQuery(cutoff time.Time) (string, []any, error) {
	return builder.Delete("conflicts").
		Where(sq.Eq{"resolved": true}).
		Where(sq.Lt{"resolved_at": cutoff.UTC()}).
		ToSql()
}
