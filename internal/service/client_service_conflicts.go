// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

type conflictResolver struct {
	storages *store.ClientStorages
	queue    PendingQueue
	clock    utils.Clock
	ids      *utils.UUIDGenerator

	logger *logger.Logger
}

// NewConflictResolver builds the resolver. Resolutions that keep the local
// version are pushed through queue.
func NewConflictResolver(storages *store.ClientStorages, queue PendingQueue, clock utils.Clock, logger *logger.Logger) ConflictResolver {
	return &conflictResolver{
		storages: storages,
		queue:    queue,
		clock:    clock,
		ids:      utils.NewUUIDGenerator(),
		logger:   logger,
	}
}

// Detect applies the rule: a conflict exists iff both sides changed after the
// last common sync point. A record that was never synced has no sync point,
// so any server version of it counts as changed.
func (r *conflictResolver) Detect(local models.LocalRecord, remote models.RemoteRecord) Outcome {
	localChanged := local.ChangedLocally()
	remoteChanged := true
	if syncPoint := local.SyncPoint(); syncPoint != nil {
		remoteChanged = remote.UpdatedAt.After(*syncPoint)
	}

	switch {
	case localChanged && remoteChanged:
		if samePayload(local, remote) {
			return OutcomeIdentical
		}
		return OutcomeConflict
	case remoteChanged:
		return OutcomeApplyRemote
	case localChanged:
		return OutcomeKeepLocal
	}
	return OutcomeUnchanged
}

func samePayload(local models.LocalRecord, remote models.RemoteRecord) bool {
	if local.Deleted || remote.Deleted {
		return local.Deleted && remote.Deleted
	}
	return utils.SamePayload(local.Payload, remote.Payload)
}

// Raise opens a conflict for local against remote inside the caller's
// transaction, or refreshes both versions of the one already open.
func (r *conflictResolver) Raise(ctx context.Context, repo store.ConflictRepository, local models.LocalRecord, remote models.RemoteRecord) (models.ConflictCase, error) {
	conflictType, ok := models.ConflictTypeFor(local.RecordType)
	if !ok {
		return models.ConflictCase{}, fmt.Errorf("%w: %s has no conflict type", ErrUnknownRecordType, local.RecordType)
	}

	localVersion := models.VersionSnapshot{
		Payload:    local.Payload,
		ModifiedAt: local.UpdatedAt,
		Deleted:    local.Deleted,
	}
	serverVersion := models.VersionSnapshot{
		Payload:    remote.Payload,
		ModifiedAt: remote.UpdatedAt,
		Deleted:    remote.Deleted,
	}

	conflict, err := repo.FindOpenByItem(ctx, conflictType, local.LocalID)
	switch {
	case err == nil:
		// the server moved on again before the user decided
		conflict.ServerID = remote.ID
		conflict.LocalVersion = localVersion
		conflict.ServerVersion = serverVersion
	case errors.Is(err, store.ErrConflictNotFound):
		conflict = models.ConflictCase{
			ID:            r.ids.Generate(),
			ConflictType:  conflictType,
			ItemID:        local.LocalID,
			ServerID:      remote.ID,
			LocalVersion:  localVersion,
			ServerVersion: serverVersion,
			DetectedAt:    r.clock.Now(),
		}
	default:
		return models.ConflictCase{}, err
	}

	if err = repo.Save(ctx, conflict); err != nil {
		return models.ConflictCase{}, err
	}

	logger.FromContext(ctx).Info().
		Str("conflict_id", conflict.ID).
		Str("conflict_type", string(conflict.ConflictType)).
		Str("item_id", conflict.ItemID).
		Msg(conflict.Description())

	return conflict, nil
}

// Resolve settles an open conflict with strategy. MERGE and ASK_USER need
// the resolved version.
func (r *conflictResolver) Resolve(ctx context.Context, conflictID string, strategy models.ResolutionStrategy, version json.RawMessage) (models.ConflictCase, error) {
	conflict, err := r.storages.Conflicts.Get(ctx, conflictID)
	if err != nil {
		return models.ConflictCase{}, err
	}
	if conflict.Resolved {
		return models.ConflictCase{}, ErrConflictAlreadyResolved
	}

	switch strategy {
	case models.StrategyUseLocal:
		err = conflict.ResolveWithLocal()
	case models.StrategyUseServer:
		err = conflict.ResolveWithServer()
	case models.StrategyMerge:
		if len(version) == 0 {
			return models.ConflictCase{}, ErrResolvedVersionRequired
		}
		err = conflict.ResolveWithMerge(version)
	case models.StrategyAskUser:
		if len(version) == 0 {
			return models.ConflictCase{}, ErrResolvedVersionRequired
		}
		err = conflict.ResolveWithCustom(version)
	default:
		return models.ConflictCase{}, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
	if err != nil {
		return models.ConflictCase{}, err
	}

	now := r.clock.Now()
	conflict.ResolvedAt = &now

	err = r.storages.WithinTx(ctx, func(tx store.TxStorages) error {
		if err := tx.Conflicts.Save(ctx, conflict); err != nil {
			return err
		}
		return r.apply(ctx, tx, conflict, now)
	})
	if err != nil {
		return models.ConflictCase{}, fmt.Errorf("apply resolution of conflict %s: %w", conflictID, err)
	}

	r.logger.Info().
		Str("conflict_id", conflict.ID).
		Str("strategy", string(conflict.Strategy)).
		Bool("needs_upload", conflict.NeedsUpload()).
		Msg("conflict resolved")

	return conflict, nil
}

// apply writes the resolved version to the local record and, unless the
// server already holds it, replaces the item's queue entry with one that
// uploads it.
func (r *conflictResolver) apply(ctx context.Context, tx store.TxStorages, conflict models.ConflictCase, now time.Time) error {
	recordType := conflict.ConflictType.RecordType()

	local, err := tx.Records.Get(ctx, recordType, conflict.ItemID)
	if errors.Is(err, store.ErrRecordNotFound) {
		local = models.LocalRecord{LocalID: conflict.ItemID, RecordType: recordType}
	} else if err != nil {
		return err
	}

	if err = tx.PendingChanges.DeleteByItem(ctx, conflict.ItemID, recordType); err != nil {
		return err
	}

	serverAt := conflict.ServerVersion.ModifiedAt
	local.ServerUpdatedAt = &serverAt
	local.ServerID = conflict.ServerID

	if !conflict.NeedsUpload() {
		if conflict.ServerVersion.Deleted {
			return tx.Records.Delete(ctx, recordType, conflict.ItemID)
		}
		local.Payload = conflict.ResolvedVersion
		local.Deleted = false
		local.UpdatedAt = now
		local.LastSyncAt = &now
		local.IsSynced = true
		return tx.Records.Save(ctx, local)
	}

	if conflict.ServerVersion.Deleted {
		// nothing left on the server to update
		local.ServerID = ""
	}
	local.IsSynced = false
	local.UpdatedAt = now

	change := models.PendingChange{ItemID: conflict.ItemID, RecordType: recordType}
	switch {
	case conflict.ResolvedDeleted() && local.ServerID == "":
		return tx.Records.Delete(ctx, recordType, conflict.ItemID)
	case conflict.ResolvedDeleted():
		local.Deleted = true
		change.Action = models.ActionDelete
	default:
		local.Deleted = false
		local.Payload = conflict.ResolvedVersion
		change.Payload = conflict.ResolvedVersion
		change.Action = models.ActionUpdate
		if local.ServerID == "" {
			change.Action = models.ActionCreate
		}
	}

	if err = tx.Records.Save(ctx, local); err != nil {
		return err
	}
	_, err = r.queue.EnqueueWith(ctx, tx.PendingChanges, change)
	return err
}

func (r *conflictResolver) Merge(ctx context.Context, conflictID string, fn MergeFunc) (models.ConflictCase, error) {
	conflict, err := r.storages.Conflicts.Get(ctx, conflictID)
	if err != nil {
		return models.ConflictCase{}, err
	}
	if conflict.Resolved {
		return models.ConflictCase{}, ErrConflictAlreadyResolved
	}

	merged, err := fn(conflict.LocalVersion.Payload, conflict.ServerVersion.Payload)
	if err != nil {
		return models.ConflictCase{}, fmt.Errorf("merge conflict %s: %w", conflictID, err)
	}

	return r.Resolve(ctx, conflictID, models.StrategyMerge, merged)
}

func (r *conflictResolver) Get(ctx context.Context, conflictID string) (models.ConflictCase, error) {
	return r.storages.Conflicts.Get(ctx, conflictID)
}

func (r *conflictResolver) ListOpen(ctx context.Context, types ...models.ConflictType) ([]models.ConflictCase, error) {
	return r.storages.Conflicts.List(ctx, store.ConflictFilter{Types: types, OnlyOpen: true})
}

func (r *conflictResolver) CountOpen(ctx context.Context, types ...models.ConflictType) (int, error) {
	return r.storages.Conflicts.CountOpen(ctx, types...)
}

func (r *conflictResolver) HasOpen(ctx context.Context, recordType models.RecordType, itemID string) (bool, error) {
	conflictType, ok := models.ConflictTypeFor(recordType)
	if !ok {
		return false, nil
	}

	_, err := r.storages.Conflicts.FindOpenByItem(ctx, conflictType, itemID)
	if errors.Is(err, store.ErrConflictNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *conflictResolver) PurgeResolvedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.storages.Conflicts.PurgeResolvedOlderThan(ctx, cutoff)
}
