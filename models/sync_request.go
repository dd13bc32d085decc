// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// SyncRequest is the in-memory view of a PendingChange used during one
// upload pass. It is never persisted on its own.
type SyncRequest struct {
	ID             int64
	ItemID         string
	RecordType     RecordType
	Action         Action
	Timestamp      time.Time
	OriginDeviceID string
	Payload        json.RawMessage
	RetryCount     int
	// Revision is the queue revision this request was built from.
	Revision int64
}

// NewSyncRequest builds a SyncRequest from a queue entry.
func NewSyncRequest(change PendingChange) SyncRequest {
	return SyncRequest{
		ID:             change.ID,
		ItemID:         change.ItemID,
		RecordType:     change.RecordType,
		Action:         change.Action,
		Timestamp:      change.CreatedAt,
		OriginDeviceID: change.OriginDeviceID,
		Payload:        change.Payload,
		RetryCount:     change.RetryCount,
		Revision:       change.Revision,
	}
}
