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

type localRecordRepository struct {
	runner
}

// NewLocalRecordRepository returns the SQLite store of local record copies.
func NewLocalRecordRepository(db *DB) LocalRecordRepository {
	return &localRecordRepository{runner: runner{db: db}}
}

func (l *localRecordRepository) Save(ctx context.Context, record models.LocalRecord) error {
	_, err := l.q().ExecContext(ctx, upsertLocalRecord,
		record.LocalID,
		record.RecordType,
		record.ServerID,
		record.NaturalKey,
		[]byte(record.Payload),
		record.UpdatedAt.UTC(),
		utcPtr(record.ServerUpdatedAt),
		utcPtr(record.LastSyncAt),
		record.IsSynced,
		record.Deleted,
	)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "localRecordRepository.Save").
			Str("local_id", record.LocalID).
			Str("record_type", string(record.RecordType)).
			Msg("failed to execute upsert for local record")
		return fmt.Errorf("failed to save local record (local_id=%s): %w", record.LocalID, err)
	}
	return nil
}

func (l *localRecordRepository) Get(ctx context.Context, recordType models.RecordType, localID string) (models.LocalRecord, error) {
	return l.getBy(ctx, "localRecordRepository.Get", recordType, "local_id", localID)
}

func (l *localRecordRepository) GetByServerID(ctx context.Context, recordType models.RecordType, serverID string) (models.LocalRecord, error) {
	if serverID == "" {
		return models.LocalRecord{}, ErrRecordNotFound
	}
	return l.getBy(ctx, "localRecordRepository.GetByServerID", recordType, "server_id", serverID)
}

func (l *localRecordRepository) GetByNaturalKey(ctx context.Context, recordType models.RecordType, naturalKey string) (models.LocalRecord, error) {
	if naturalKey == "" {
		return models.LocalRecord{}, ErrRecordNotFound
	}
	return l.getBy(ctx, "localRecordRepository.GetByNaturalKey", recordType, "natural_key", naturalKey)
}

func (l *localRecordRepository) getBy(ctx context.Context, fn string, recordType models.RecordType, column, value string) (models.LocalRecord, error) {
	query, args, err := buildGetLocalRecordQuery(recordType, column, value)
	if err != nil {
		return models.LocalRecord{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	record, err := scanLocalRecord(l.q().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.LocalRecord{}, ErrRecordNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", fn).
			Str(column, value).
			Str("record_type", string(recordType)).
			Msg("failed to scan local record row")
		return models.LocalRecord{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return record, nil
}

func (l *localRecordRepository) List(ctx context.Context, filter RecordFilter) ([]models.LocalRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListLocalRecordsQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := l.q().QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRecordRepository.List").
			Str("record_type", string(filter.RecordType)).
			Msg("failed to execute query for listing local records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var records []models.LocalRecord
	for rows.Next() {
		record, scanErr := scanLocalRecord(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "localRecordRepository.List").
				Msg("failed to scan local record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "localRecordRepository.List").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, nil
}

// MarkSynced records that the server holds exactly the local version.
func (l *localRecordRepository) MarkSynced(ctx context.Context, recordType models.RecordType, localID, serverID string, serverUpdatedAt *time.Time, syncedAt time.Time) error {
	return l.execOne(ctx, "localRecordRepository.MarkSynced", localID, markLocalRecordSynced,
		serverID, utcPtr(serverUpdatedAt), syncedAt.UTC(), recordType, localID)
}

func (l *localRecordRepository) SetServerID(ctx context.Context, recordType models.RecordType, localID, serverID string) error {
	return l.execOne(ctx, "localRecordRepository.SetServerID", localID, setLocalRecordServerID,
		serverID, recordType, localID)
}

func (l *localRecordRepository) SetServerVersion(ctx context.Context, recordType models.RecordType, localID, serverID string, serverUpdatedAt *time.Time) error {
	return l.execOne(ctx, "localRecordRepository.SetServerVersion", localID, setLocalRecordServerVersion,
		serverID, utcPtr(serverUpdatedAt), recordType, localID)
}

func (l *localRecordRepository) Delete(ctx context.Context, recordType models.RecordType, localID string) error {
	_, err := l.q().ExecContext(ctx, deleteLocalRecord, recordType, localID)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "localRecordRepository.Delete").
			Str("local_id", localID).
			Msg("failed to delete local record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (l *localRecordRepository) execOne(ctx context.Context, fn, localID, query string, args ...any) error {
	res, err := l.q().ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", fn).
			Str("local_id", localID).
			Msg("failed to execute statement")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w (local_id=%s)", ErrRecordNotFound, localID)
	}
	return nil
}
