// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MKhiriev/go-recipe-sync/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func scanPendingChange(s rowScanner) (models.PendingChange, error) {
	var (
		c             models.PendingChange
		payload       []byte
		lastAttemptAt sql.NullTime
	)
	err := s.Scan(
		&c.ID,
		&c.ItemID,
		&c.RecordType,
		&c.Action,
		&payload,
		&c.OriginDeviceID,
		&c.CreatedAt,
		&c.Status,
		&c.RetryCount,
		&lastAttemptAt,
		&c.LastError,
		&c.Revision,
	)
	if err != nil {
		return models.PendingChange{}, err
	}

	c.Payload = payload
	c.CreatedAt = c.CreatedAt.UTC()
	c.LastAttemptAt = timePtr(lastAttemptAt)
	return c, nil
}

func scanLocalRecord(s rowScanner) (models.LocalRecord, error) {
	var (
		r               models.LocalRecord
		payload         []byte
		serverUpdatedAt sql.NullTime
		lastSyncAt      sql.NullTime
	)
	err := s.Scan(
		&r.LocalID,
		&r.RecordType,
		&r.ServerID,
		&r.NaturalKey,
		&payload,
		&r.UpdatedAt,
		&serverUpdatedAt,
		&lastSyncAt,
		&r.IsSynced,
		&r.Deleted,
	)
	if err != nil {
		return models.LocalRecord{}, err
	}

	r.Payload = payload
	r.UpdatedAt = r.UpdatedAt.UTC()
	r.ServerUpdatedAt = timePtr(serverUpdatedAt)
	r.LastSyncAt = timePtr(lastSyncAt)
	return r, nil
}

func scanConflict(s rowScanner) (models.ConflictCase, error) {
	var (
		c               models.ConflictCase
		localVersion    []byte
		serverVersion   []byte
		resolvedVersion []byte
		resolvedAt      sql.NullTime
	)
	err := s.Scan(
		&c.ID,
		&c.ConflictType,
		&c.ItemID,
		&c.ServerID,
		&localVersion,
		&serverVersion,
		&c.Strategy,
		&resolvedVersion,
		&c.Resolved,
		&c.DetectedAt,
		&resolvedAt,
	)
	if err != nil {
		return models.ConflictCase{}, err
	}

	if err := json.Unmarshal(localVersion, &c.LocalVersion); err != nil {
		return models.ConflictCase{}, fmt.Errorf("decode local version: %w", err)
	}
	if err := json.Unmarshal(serverVersion, &c.ServerVersion); err != nil {
		return models.ConflictCase{}, fmt.Errorf("decode server version: %w", err)
	}
	c.ResolvedVersion = resolvedVersion
	c.DetectedAt = c.DetectedAt.UTC()
	c.ResolvedAt = timePtr(resolvedAt)
	return c, nil
}

func scanServer(s rowScanner) (models.ServerProfile, error) {
	var (
		p                 models.ServerProfile
		lastStatusCheckAt sql.NullTime
		lastConnectedAt   sql.NullTime
	)
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.BaseURL,
		&p.Priority,
		&p.Enabled,
		&p.IsDefault,
		&p.Status,
		&lastStatusCheckAt,
		&lastConnectedAt,
		&p.SyncEnabled,
	)
	if err != nil {
		return models.ServerProfile{}, err
	}

	p.LastStatusCheckAt = timePtr(lastStatusCheckAt)
	p.LastConnectedAt = timePtr(lastConnectedAt)
	return p, nil
}
