// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// LocalRecord is the locally stored copy of one domain record together with
// its sync bookkeeping.
type LocalRecord struct {
	// LocalID is the client-side id, used as PendingChange.ItemID.
	LocalID    string     `json:"local_id"`
	RecordType RecordType `json:"record_type"`
	// ServerID is assigned by the server on the first successful CREATE.
	ServerID string `json:"server_id,omitempty"`
	// NaturalKey identifies the record across devices (e.g. a recipe slug);
	// the server rejects a second record with the same key.
	NaturalKey string          `json:"natural_key,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	// UpdatedAt is the last local modification time.
	UpdatedAt time.Time `json:"updated_at"`
	// ServerUpdatedAt is the server modification time seen at the last sync.
	ServerUpdatedAt *time.Time `json:"server_updated_at,omitempty"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	IsSynced        bool       `json:"is_synced"`
	Deleted         bool       `json:"deleted"`
}

// SyncPoint returns the last common synchronization point of the record, or
// nil if it was never synchronized.
func (r LocalRecord) SyncPoint() *time.Time {
	if r.ServerUpdatedAt != nil {
		return r.ServerUpdatedAt
	}
	return r.LastSyncAt
}

// ChangedLocally reports whether the record was modified on this device after
// its last sync.
func (r LocalRecord) ChangedLocally() bool {
	if !r.IsSynced {
		return true
	}
	if r.LastSyncAt == nil {
		return true
	}
	return r.UpdatedAt.After(*r.LastSyncAt)
}

// RemoteRecord is a record as returned by the recipe server.
type RemoteRecord struct {
	ID         string          `json:"id"`
	NaturalKey string          `json:"slug,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Deleted    bool            `json:"deleted,omitempty"`
	Payload    json.RawMessage `json:"data,omitempty"`
}

// FilterWindow bounds a listing request. A zero window lists everything.
type FilterWindow struct {
	From *time.Time
	To   *time.Time
}

// IsZero reports whether the window is unbounded.
func (w FilterWindow) IsZero() bool {
	return w.From == nil && w.To == nil
}

// Credentials are the login parameters for a recipe server.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
