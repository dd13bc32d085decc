// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/internal/validators"
	"github.com/MKhiriev/go-recipe-sync/models"
)

type recordService struct {
	storages *store.ClientStorages
	queue    PendingQueue
	clock    utils.Clock
	ids      *utils.UUIDGenerator

	validator validators.Validator

	logger *logger.Logger
}

// NewRecordService builds the local record API. Every write is validated, then
// stored and queued for upload in one transaction.
func NewRecordService(storages *store.ClientStorages, queue PendingQueue, validator validators.Validator, clock utils.Clock, logger *logger.Logger) RecordService {
	return &recordService{
		storages:  storages,
		queue:     queue,
		clock:     clock,
		ids:       utils.NewUUIDGenerator(),
		validator: validator,
		logger:    logger,
	}
}

func (s *recordService) Create(ctx context.Context, record models.Record) (models.LocalRecord, error) {
	payload, key, err := s.encodeRecord(ctx, record)
	if err != nil {
		return models.LocalRecord{}, err
	}

	local := models.LocalRecord{
		LocalID:    s.ids.Generate(),
		RecordType: record.Type(),
		NaturalKey: key,
		Payload:    payload,
		UpdatedAt:  s.clock.Now(),
	}

	err = s.storages.WithinTx(ctx, func(tx store.TxStorages) error {
		existing, err := tx.Records.GetByNaturalKey(ctx, local.RecordType, key)
		if err == nil && !existing.Deleted {
			return fmt.Errorf("%w: %s %q already exists", ErrInvalidRecord, local.RecordType.Title(), key)
		}
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		if err = tx.Records.Save(ctx, local); err != nil {
			return err
		}
		_, err = s.queue.EnqueueWith(ctx, tx.PendingChanges, models.PendingChange{
			ItemID:     local.LocalID,
			RecordType: local.RecordType,
			Action:     models.ActionCreate,
			Payload:    payload,
		})
		return err
	})
	if err != nil {
		return models.LocalRecord{}, err
	}

	s.logger.Debug().
		Str("local_id", local.LocalID).
		Str("record_type", string(local.RecordType)).
		Msg("record created locally")
	return local, nil
}

func (s *recordService) Update(ctx context.Context, localID string, record models.Record) (models.LocalRecord, error) {
	payload, key, err := s.encodeRecord(ctx, record)
	if err != nil {
		return models.LocalRecord{}, err
	}

	var local models.LocalRecord
	err = s.storages.WithinTx(ctx, func(tx store.TxStorages) error {
		local, err = tx.Records.Get(ctx, record.Type(), localID)
		if err != nil {
			return err
		}
		if local.Deleted {
			return fmt.Errorf("%w: %s", ErrRecordDeleted, localID)
		}

		local.NaturalKey = key
		local.Payload = payload
		local.UpdatedAt = s.clock.Now()
		local.IsSynced = false
		if err = tx.Records.Save(ctx, local); err != nil {
			return err
		}

		action := models.ActionUpdate
		if local.ServerID == "" {
			action = models.ActionCreate
		}
		_, err = s.queue.EnqueueWith(ctx, tx.PendingChanges, models.PendingChange{
			ItemID:     local.LocalID,
			RecordType: local.RecordType,
			Action:     action,
			Payload:    payload,
		})
		return err
	})
	if err != nil {
		return models.LocalRecord{}, err
	}

	return local, nil
}

// Delete leaves a tombstone that is removed once the server confirms the
// DELETE. A record the server never saw is removed by the next upload
// without a round trip.
func (s *recordService) Delete(ctx context.Context, recordType models.RecordType, localID string) error {
	if !recordType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRecordType, recordType)
	}

	return s.storages.WithinTx(ctx, func(tx store.TxStorages) error {
		local, err := tx.Records.Get(ctx, recordType, localID)
		if err != nil {
			return err
		}
		if local.Deleted {
			return nil
		}

		local.Deleted = true
		local.UpdatedAt = s.clock.Now()
		local.IsSynced = false
		if err = tx.Records.Save(ctx, local); err != nil {
			return err
		}
		_, err = s.queue.EnqueueWith(ctx, tx.PendingChanges, models.PendingChange{
			ItemID:     local.LocalID,
			RecordType: local.RecordType,
			Action:     models.ActionDelete,
		})
		return err
	})
}

func (s *recordService) Get(ctx context.Context, recordType models.RecordType, localID string) (models.LocalRecord, error) {
	return s.storages.Records.Get(ctx, recordType, localID)
}

func (s *recordService) List(ctx context.Context, recordType models.RecordType) ([]models.LocalRecord, error) {
	if !recordType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, recordType)
	}
	return s.storages.Records.List(ctx, store.RecordFilter{RecordType: recordType})
}

func (s *recordService) encodeRecord(ctx context.Context, record models.Record) (json.RawMessage, string, error) {
	if record == nil {
		return nil, "", fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if !record.Type().Valid() {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownRecordType, record.Type())
	}
	if err := s.validator.Validate(ctx, record); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	key := record.Key()
	if key == "" {
		return nil, "", fmt.Errorf("%w: %s has no natural key", ErrInvalidRecord, record.Type().Title())
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return payload, key, nil
}
