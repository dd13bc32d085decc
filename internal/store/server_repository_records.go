// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// remoteEntry is one stored record. day is the planned date of a meal plan
// and survives deletion, so a tombstone still falls into the listing window
// of the plan it replaced.
type remoteEntry struct {
	record models.RemoteRecord
	day    *time.Time
}

// collection holds the records of one type. keys indexes live records only.
type collection struct {
	entries map[string]*remoteEntry
	keys    map[string]string
}

type memoryRecordRepository struct {
	mu          sync.RWMutex
	collections map[models.RecordType]*collection

	clock utils.Clock
	ids   *utils.UUIDGenerator
}

// NewMemoryRecordRepository returns a [RemoteRecordRepository] that keeps
// everything in memory. A nil clock means a logical clock over the wall clock.
func NewMemoryRecordRepository(clock utils.Clock) RemoteRecordRepository {
	if clock == nil {
		clock = utils.NewLogicalClock(nil)
	}

	collections := make(map[models.RecordType]*collection, len(models.AllRecordTypes))
	for _, rt := range models.AllRecordTypes {
		collections[rt] = &collection{
			entries: make(map[string]*remoteEntry),
			keys:    make(map[string]string),
		}
	}

	return &memoryRecordRepository{
		collections: collections,
		clock:       clock,
		ids:         utils.NewUUIDGenerator(),
	}
}

func (m *memoryRecordRepository) collection(recordType models.RecordType) (*collection, error) {
	c, ok := m.collections[recordType]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", recordType)
	}
	return c, nil
}

func (m *memoryRecordRepository) List(ctx context.Context, recordType models.RecordType, window models.FilterWindow) ([]models.RemoteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.collection(recordType)
	if err != nil {
		return nil, err
	}

	records := make([]models.RemoteRecord, 0, len(c.entries))
	for _, e := range c.entries {
		if !e.inWindow(window) {
			continue
		}
		records = append(records, e.record)
	}

	slices.SortFunc(records, func(a, b models.RemoteRecord) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	logger.FromContext(ctx).Debug().
		Str("func", "memoryRecordRepository.List").
		Str("record_type", string(recordType)).
		Int("count", len(records)).
		Msg("listed records")

	return records, nil
}

func (m *memoryRecordRepository) Get(_ context.Context, recordType models.RecordType, id string) (models.RemoteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.collection(recordType)
	if err != nil {
		return models.RemoteRecord{}, err
	}

	e, ok := c.entries[id]
	if !ok {
		return models.RemoteRecord{}, ErrRemoteRecordNotFound
	}
	return e.record, nil
}

func (m *memoryRecordRepository) Create(ctx context.Context, recordType models.RecordType, record models.RemoteRecord) (models.RemoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.collection(recordType)
	if err != nil {
		return models.RemoteRecord{}, err
	}

	if record.NaturalKey != "" {
		if id, taken := c.keys[record.NaturalKey]; taken {
			return c.entries[id].record, ErrNaturalKeyTaken
		}
	}

	stored := models.RemoteRecord{
		ID:         m.ids.Generate(),
		NaturalKey: record.NaturalKey,
		UpdatedAt:  m.clock.Now(),
		Payload:    record.Payload,
	}
	c.entries[stored.ID] = &remoteEntry{record: stored, day: plannedDay(recordType, stored.Payload)}
	if stored.NaturalKey != "" {
		c.keys[stored.NaturalKey] = stored.ID
	}

	logger.FromContext(ctx).Debug().
		Str("func", "memoryRecordRepository.Create").
		Str("record_type", string(recordType)).
		Str("id", stored.ID).
		Str("key", stored.NaturalKey).
		Msg("record created")

	return stored, nil
}

func (m *memoryRecordRepository) Update(ctx context.Context, recordType models.RecordType, record models.RemoteRecord) (models.RemoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.collection(recordType)
	if err != nil {
		return models.RemoteRecord{}, err
	}

	e, ok := c.entries[record.ID]
	if !ok || e.record.Deleted {
		return models.RemoteRecord{}, ErrRemoteRecordNotFound
	}

	key := record.NaturalKey
	if key == "" {
		key = e.record.NaturalKey
	}
	if id, taken := c.keys[key]; taken && id != record.ID {
		return models.RemoteRecord{}, ErrNaturalKeyTaken
	}

	delete(c.keys, e.record.NaturalKey)
	e.record = models.RemoteRecord{
		ID:         record.ID,
		NaturalKey: key,
		UpdatedAt:  m.clock.Now(),
		Payload:    record.Payload,
	}
	e.day = plannedDay(recordType, record.Payload)
	if key != "" {
		c.keys[key] = record.ID
	}

	logger.FromContext(ctx).Debug().
		Str("func", "memoryRecordRepository.Update").
		Str("record_type", string(recordType)).
		Str("id", record.ID).
		Msg("record updated")

	return e.record, nil
}

func (m *memoryRecordRepository) Delete(ctx context.Context, recordType models.RecordType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.collection(recordType)
	if err != nil {
		return err
	}

	e, ok := c.entries[id]
	if !ok || e.record.Deleted {
		return ErrRemoteRecordNotFound
	}

	delete(c.keys, e.record.NaturalKey)
	e.record.Deleted = true
	e.record.Payload = nil
	e.record.UpdatedAt = m.clock.Now()

	logger.FromContext(ctx).Debug().
		Str("func", "memoryRecordRepository.Delete").
		Str("record_type", string(recordType)).
		Str("id", id).
		Msg("record deleted")

	return nil
}

// inWindow matches meal plans on their planned day and everything else on
// the modification time. The window is half-open: [From, To).
func (e *remoteEntry) inWindow(window models.FilterWindow) bool {
	if window.IsZero() {
		return true
	}

	at := e.record.UpdatedAt
	if e.day != nil {
		at = *e.day
	}
	if window.From != nil && at.Before(*window.From) {
		return false
	}
	if window.To != nil && !at.Before(*window.To) {
		return false
	}
	return true
}

func plannedDay(recordType models.RecordType, payload json.RawMessage) *time.Time {
	if recordType != models.RecordTypeMealPlan || len(payload) == 0 {
		return nil
	}

	var plan models.MealPlan
	if err := json.Unmarshal(payload, &plan); err != nil || plan.Date.IsZero() {
		return nil
	}

	day := plan.Date.UTC()
	return &day
}
