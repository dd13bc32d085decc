// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"

	"github.com/MKhiriev/go-recipe-sync/models"
)

// RemoteRecordRepository is the record storage of the in-process recipe
// server. Deleted records stay as tombstones so that clients learn about the
// deletion on their next download.
type RemoteRecordRepository interface {
	// List returns the records of recordType inside window, oldest change
	// first. Tombstones are included.
	List(ctx context.Context, recordType models.RecordType, window models.FilterWindow) ([]models.RemoteRecord, error)
	Get(ctx context.Context, recordType models.RecordType, id string) (models.RemoteRecord, error)
	// Create stores a new record under a fresh id. If a live record already
	// holds the natural key, it is returned together with [ErrNaturalKeyTaken].
	Create(ctx context.Context, recordType models.RecordType, record models.RemoteRecord) (models.RemoteRecord, error)
	Update(ctx context.Context, recordType models.RecordType, record models.RemoteRecord) (models.RemoteRecord, error)
	// Delete turns the record into a tombstone.
	Delete(ctx context.Context, recordType models.RecordType, id string) error
}
