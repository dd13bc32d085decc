// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// MaxRetries is the number of failed upload attempts after which a
// PendingChange is moved to the FAILED status for good.
const MaxRetries = 3

// PendingStatus is the lifecycle state of a PendingChange.
type PendingStatus string

const (
	PendingStatusPending PendingStatus = "PENDING"
	PendingStatusSyncing PendingStatus = "SYNCING"
	PendingStatusFailed  PendingStatus = "FAILED"
)

// PendingChange is one durable, not yet confirmed local mutation.
//
// At most one PendingChange exists per (ItemID, RecordType): enqueueing a new
// mutation for the same record collapses into the existing entry (see
// [CollapseAction]).
type PendingChange struct {
	// ID is the surrogate key assigned by storage.
	ID int64 `json:"id"`
	// ItemID is the client-side identifier of the mutated record.
	ItemID     string     `json:"item_id"`
	RecordType RecordType `json:"record_type"`
	Action     Action     `json:"action"`
	// Payload is the serialized record snapshot taken at mutation time.
	Payload        json.RawMessage `json:"payload,omitempty"`
	OriginDeviceID string          `json:"origin_device_id"`
	// CreatedAt orders the queue. Collapsing keeps the original value so the
	// entry keeps its place in FIFO order.
	CreatedAt     time.Time     `json:"created_at"`
	Status        PendingStatus `json:"status"`
	RetryCount    int           `json:"retry_count"`
	LastAttemptAt *time.Time    `json:"last_attempt_at,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
	// Revision is bumped every time a newer mutation is folded into the entry.
	Revision int64 `json:"revision"`
}

// Key returns the (item, type) pair a PendingChange is unique on.
func (p PendingChange) Key() PendingKey {
	return PendingKey{ItemID: p.ItemID, RecordType: p.RecordType}
}

// PendingKey identifies the record a PendingChange belongs to.
type PendingKey struct {
	ItemID     string
	RecordType RecordType
}

// collapseTable[previous][next] is the action an existing entry turns into when
// a newer mutation for the same record is enqueued.
//
//	CREATE + UPDATE -> CREATE (record still unknown to the server; payload is the newest snapshot)
//	CREATE + DELETE -> DELETE
//	UPDATE + UPDATE -> UPDATE
//	UPDATE + DELETE -> DELETE
//	DELETE + CREATE/UPDATE -> UPDATE (record resurrected; created on upload if it has no server id)
var collapseTable = map[Action]map[Action]Action{
	ActionCreate: {
		ActionCreate: ActionCreate,
		ActionUpdate: ActionCreate,
		ActionDelete: ActionDelete,
	},
	ActionUpdate: {
		ActionCreate: ActionUpdate,
		ActionUpdate: ActionUpdate,
		ActionDelete: ActionDelete,
	},
	ActionDelete: {
		ActionCreate: ActionUpdate,
		ActionUpdate: ActionUpdate,
		ActionDelete: ActionDelete,
	},
}

// CollapseAction returns the action that results from folding next into an
// existing entry whose action is prev.
func CollapseAction(prev, next Action) Action {
	if row, ok := collapseTable[prev]; ok {
		if a, ok := row[next]; ok {
			return a
		}
	}
	return next
}
