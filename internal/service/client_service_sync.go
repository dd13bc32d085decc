// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-recipe-sync/internal/adapter"
	"github.com/MKhiriev/go-recipe-sync/internal/config"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// statusBuffer is the room a TriggerSync stream gives to progress updates.
// Progress is dropped when the consumer falls behind; terminal statuses have
// a slot of their own per record type and are never dropped.
const statusBuffer = 32

type syncOrchestrator struct {
	storages *store.ClientStorages
	queue    PendingQueue
	resolver ConflictResolver
	registry ServerRegistry
	adapter  adapter.ServerAdapter
	clock    utils.Clock
	ids      *utils.UUIDGenerator
	cfg      config.ClientSync

	mu       sync.RWMutex
	statuses map[models.RecordType]models.SyncSessionStatus
	running  map[models.RecordType]bool

	logger *logger.Logger
}

// NewSyncOrchestrator wires the session runner. Sessions for different record
// types run in parallel; at most one session per type runs at a time.
func NewSyncOrchestrator(
	storages *store.ClientStorages,
	queue PendingQueue,
	resolver ConflictResolver,
	registry ServerRegistry,
	serverAdapter adapter.ServerAdapter,
	clock utils.Clock,
	cfg config.ClientSync,
	logger *logger.Logger,
) SyncOrchestrator {
	return &syncOrchestrator{
		storages: storages,
		queue:    queue,
		resolver: resolver,
		registry: registry,
		adapter:  serverAdapter,
		clock:    clock,
		ids:      utils.NewUUIDGenerator(),
		cfg:      cfg,
		statuses: make(map[models.RecordType]models.SyncSessionStatus),
		running:  make(map[models.RecordType]bool),
		logger:   logger,
	}
}

// session is the mutable state of one download+upload pass.
type session struct {
	recordType models.RecordType
	status     models.SyncSessionStatus
	emit       func(models.SyncSessionStatus)

	server models.ServerProfile
	// excluded holds servers that failed during this session; failover never
	// returns to them.
	excluded  []int64
	confirmed bool

	log *logger.Logger
}

func (s *syncOrchestrator) TriggerSync(ctx context.Context, recordTypes ...models.RecordType) <-chan models.SyncSessionStatus {
	if len(recordTypes) == 0 {
		recordTypes = models.AllRecordTypes
	}

	// every session emits at most one terminal status, so with the extra
	// slots a terminal send never blocks, even if nobody reads
	out := make(chan models.SyncSessionStatus, statusBuffer+len(recordTypes))
	var sendMu sync.Mutex
	emit := func(st models.SyncSessionStatus) {
		sendMu.Lock()
		defer sendMu.Unlock()

		if st.State.Terminal() || len(out) < statusBuffer {
			out <- st
		}
	}

	go func() {
		defer close(out)

		var g errgroup.Group
		for _, recordType := range recordTypes {
			g.Go(func() error {
				if _, err := s.run(ctx, recordType, emit); errors.Is(err, ErrSyncInProgress) {
					s.logger.Debug().Str("record_type", string(recordType)).Msg("sync already running, trigger ignored")
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return out
}

// Sync runs one session for recordType and blocks until it ends.
func (s *syncOrchestrator) Sync(ctx context.Context, recordType models.RecordType) (models.SyncSessionStatus, error) {
	return s.run(ctx, recordType, nil)
}

// Status returns the last published status of recordType, IDLE if it never
// synced in this process.
func (s *syncOrchestrator) Status(recordType models.RecordType) models.SyncSessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.statuses[recordType]; ok {
		return st
	}
	return models.SyncSessionStatus{RecordType: recordType, State: models.SyncStateIdle}
}

func (s *syncOrchestrator) Statuses() []models.SyncSessionStatus {
	out := make([]models.SyncSessionStatus, 0, len(models.AllRecordTypes))
	for _, recordType := range models.AllRecordTypes {
		out = append(out, s.Status(recordType))
	}
	return out
}

func (s *syncOrchestrator) run(ctx context.Context, recordType models.RecordType, emit func(models.SyncSessionStatus)) (models.SyncSessionStatus, error) {
	if !recordType.Valid() {
		return models.SyncSessionStatus{}, fmt.Errorf("%w: %q", ErrUnknownRecordType, recordType)
	}

	sess := &session{
		recordType: recordType,
		emit:       emit,
		log:        s.logger,
	}

	if !s.cfg.Enabled {
		sess.status = models.SyncSessionStatus{
			RecordType: recordType,
			State:      models.SyncStateDisabled,
			Message:    "sync is disabled",
		}
		s.publish(sess)
		return sess.status, ErrSyncDisabled
	}

	if !s.acquire(recordType) {
		return s.Status(recordType), ErrSyncInProgress
	}
	defer s.release(recordType)

	lastSyncAt, err := s.storages.Settings.GetTime(ctx, store.SettingLastSyncAt(recordType))
	if err != nil {
		s.logger.Err(err).Str("record_type", string(recordType)).Msg("failed to read last sync time")
	}

	sess.status = models.SyncSessionStatus{
		RecordType: recordType,
		State:      models.SyncStateSyncing,
		Phase:      models.SyncPhaseDownloading,
		LastSyncAt: lastSyncAt,
		Message:    "downloading",
	}
	s.publish(sess)
	sess.log.Info().Str("record_type", string(recordType)).Msg("sync session started")

	err = s.download(ctx, sess)
	if err == nil {
		err = s.upload(ctx, sess)
	}
	return s.finish(ctx, sess, err)
}

func (s *syncOrchestrator) acquire(recordType models.RecordType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running[recordType] {
		return false
	}
	s.running[recordType] = true
	return true
}

func (s *syncOrchestrator) release(recordType models.RecordType) {
	s.mu.Lock()
	delete(s.running, recordType)
	s.mu.Unlock()
}

func (s *syncOrchestrator) publish(sess *session) {
	st := sess.status

	s.mu.Lock()
	s.statuses[sess.recordType] = st
	s.mu.Unlock()

	if sess.emit != nil {
		sess.emit(st)
	}
}

func (s *syncOrchestrator) finish(ctx context.Context, sess *session, err error) (models.SyncSessionStatus, error) {
	// bookkeeping must land even when the session was cancelled
	bg := context.WithoutCancel(ctx)
	st := &sess.status
	st.Phase = models.SyncPhaseNone

	if err != nil {
		st.State = models.SyncStateError
		st.Message = sessionMessage(err)
		s.publish(sess)

		sess.log.Warn().Err(err).
			Str("record_type", string(sess.recordType)).
			Msg("sync session failed")
		return *st, err
	}

	now := s.clock.Now()
	if setErr := s.storages.Settings.SetTime(bg, store.SettingLastSyncAt(sess.recordType), now); setErr != nil {
		sess.log.Err(setErr).Str("record_type", string(sess.recordType)).Msg("failed to store last sync time")
	}
	st.LastSyncAt = &now

	if conflictType, ok := models.ConflictTypeFor(sess.recordType); ok {
		open, countErr := s.resolver.CountOpen(bg, conflictType)
		if countErr != nil {
			sess.log.Err(countErr).Str("record_type", string(sess.recordType)).Msg("failed to count open conflicts")
		}
		st.Conflicts = open
	}

	if st.Conflicts > 0 {
		st.State = models.SyncStateConflicts
		st.Message = fmt.Sprintf("%d conflict(s) need resolution", st.Conflicts)
	} else {
		st.State = models.SyncStateCompleted
		st.Message = "sync completed"
	}
	if st.FailedItems > 0 {
		st.Message += fmt.Sprintf(", %d change(s) failed", st.FailedItems)
	}
	s.publish(sess)

	sess.log.Info().
		Str("record_type", string(sess.recordType)).
		Str("state", string(st.State)).
		Int("downloaded", st.DownloadDone).
		Int("uploaded", st.UploadDone).
		Int("failed", st.FailedItems).
		Int("conflicts", st.Conflicts).
		Msg("sync session finished")
	return *st, nil
}

func sessionMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "sync cancelled"
	case errors.Is(err, ErrNoServerAvailable):
		return "no available servers"
	case errors.Is(err, ErrWrongCredentials):
		return "wrong username or password"
	case errors.Is(err, ErrAuth):
		return "authentication failed"
	}
	return err.Error()
}

// ── Server access ──────────────────────────────────────────────────────────

// withServer runs call against the session's server. A network failure fails
// over to the next server not yet tried in this session; an auth failure
// triggers one re-login.
func (s *syncOrchestrator) withServer(ctx context.Context, sess *session, call func(target adapter.Target) error) error {
	relogged := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if sess.server.ID == 0 {
			server, err := s.registry.Active(ctx)
			if err != nil {
				return err
			}
			sess.server = server
		}

		target, err := s.registry.Target(ctx, sess.server)
		if err == nil {
			err = call(target)
		}
		if err == nil {
			if !sess.confirmed {
				sess.confirmed = true
				if repErr := s.registry.ReportSuccess(ctx, sess.server.ID); repErr != nil {
					sess.log.Err(repErr).Int64("server_id", sess.server.ID).Msg("failed to record server success")
				}
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = mapAdapterError(err)
		switch {
		case errors.Is(err, ErrAuth):
			if relogged || errors.Is(err, ErrWrongCredentials) {
				return err
			}
			relogged = true
			s.registry.InvalidateToken(sess.server.ID)

		case errors.Is(err, ErrNetwork):
			sess.log.Warn().Err(err).
				Int64("server_id", sess.server.ID).
				Str("server", sess.server.Name).
				Msg("server failed, trying failover")

			sess.excluded = append(sess.excluded, sess.server.ID)
			next, foErr := s.registry.Failover(ctx, sess.server.ID, sess.excluded...)
			if foErr != nil {
				return foErr
			}
			sess.server = next
			sess.confirmed = false
			relogged = false

		default:
			return err
		}
	}
}

// ── Download ───────────────────────────────────────────────────────────────

func (s *syncOrchestrator) download(ctx context.Context, sess *session) error {
	window := s.window(sess.recordType)

	var remote []models.RemoteRecord
	err := s.withServer(ctx, sess, func(target adapter.Target) error {
		var err error
		remote, err = s.adapter.ListRecords(ctx, target, sess.recordType, window)
		return err
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", sess.recordType, err)
	}

	sess.status.DownloadTotal = len(remote)
	sess.status.TotalItems = len(remote)
	s.publish(sess)

	for _, record := range remote {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = s.reconcile(ctx, sess, record); err != nil {
			return fmt.Errorf("reconcile %s %s: %w", sess.recordType, record.ID, err)
		}
		sess.status.DownloadDone++
		sess.status.ProcessedItems++
		s.publish(sess)
	}

	return nil
}

// window bounds the listing of a record type. Meal plans are fetched for a
// range of days around today; everything else is listed in full.
func (s *syncOrchestrator) window(recordType models.RecordType) models.FilterWindow {
	if recordType != models.RecordTypeMealPlan {
		return models.FilterWindow{}
	}
	if s.cfg.MealPlanPastDays <= 0 && s.cfg.MealPlanFutureDays <= 0 {
		return models.FilterWindow{}
	}

	today := s.clock.Now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -s.cfg.MealPlanPastDays)
	to := today.AddDate(0, 0, s.cfg.MealPlanFutureDays+1)
	return models.FilterWindow{From: &from, To: &to}
}

// reconcile merges one server record into local storage.
func (s *syncOrchestrator) reconcile(ctx context.Context, sess *session, remote models.RemoteRecord) error {
	now := s.clock.Now()

	return s.storages.WithinTx(ctx, func(tx store.TxStorages) error {
		local, err := findLocal(ctx, tx.Records, sess.recordType, remote)
		if errors.Is(err, store.ErrRecordNotFound) {
			if remote.Deleted {
				return nil
			}
			return s.insertRemote(ctx, tx, sess.recordType, remote, now)
		}
		if err != nil {
			return err
		}

		outcome := s.resolver.Detect(local, remote)
		sess.log.Debug().
			Str("record_type", string(sess.recordType)).
			Str("local_id", local.LocalID).
			Str("server_id", remote.ID).
			Stringer("outcome", outcome).
			Msg("record reconciled")

		switch outcome {
		case OutcomeUnchanged, OutcomeKeepLocal:
			// the upload phase pushes local changes
			if local.ServerID == "" {
				return tx.Records.SetServerID(ctx, local.RecordType, local.LocalID, remote.ID)
			}
			return nil

		case OutcomeApplyRemote:
			return applyRemote(ctx, tx, local, remote, now)

		case OutcomeIdentical:
			if err = tx.PendingChanges.DeleteByItem(ctx, local.LocalID, local.RecordType); err != nil {
				return err
			}
			if remote.Deleted {
				return tx.Records.Delete(ctx, local.RecordType, local.LocalID)
			}
			serverAt := remote.UpdatedAt
			return tx.Records.MarkSynced(ctx, local.RecordType, local.LocalID, remote.ID, &serverAt, now)

		case OutcomeConflict:
			if _, ok := models.ConflictTypeFor(local.RecordType); !ok {
				sess.log.Warn().
					Str("record_type", string(local.RecordType)).
					Str("local_id", local.LocalID).
					Msg("divergent versions, server version applied")
				return applyRemote(ctx, tx, local, remote, now)
			}
			_, err = s.resolver.Raise(ctx, tx.Conflicts, local, remote)
			return err
		}
		return nil
	})
}

// findLocal looks a server record up by server id, then by natural key among
// records the server does not know yet.
func findLocal(ctx context.Context, records store.LocalRecordRepository, recordType models.RecordType, remote models.RemoteRecord) (models.LocalRecord, error) {
	local, err := records.GetByServerID(ctx, recordType, remote.ID)
	if !errors.Is(err, store.ErrRecordNotFound) || remote.NaturalKey == "" {
		return local, err
	}

	local, err = records.GetByNaturalKey(ctx, recordType, remote.NaturalKey)
	if err != nil {
		return models.LocalRecord{}, err
	}
	if local.ServerID != "" {
		return models.LocalRecord{}, store.ErrRecordNotFound
	}
	return local, nil
}

func (s *syncOrchestrator) insertRemote(ctx context.Context, tx store.TxStorages, recordType models.RecordType, remote models.RemoteRecord, now time.Time) error {
	serverAt := remote.UpdatedAt
	return tx.Records.Save(ctx, models.LocalRecord{
		LocalID:         s.ids.Generate(),
		RecordType:      recordType,
		ServerID:        remote.ID,
		NaturalKey:      remote.NaturalKey,
		Payload:         remote.Payload,
		UpdatedAt:       now,
		ServerUpdatedAt: &serverAt,
		LastSyncAt:      &now,
		IsSynced:        true,
	})
}

// applyRemote overwrites local with the server version and drops whatever the
// item still had queued.
func applyRemote(ctx context.Context, tx store.TxStorages, local models.LocalRecord, remote models.RemoteRecord, now time.Time) error {
	if err := tx.PendingChanges.DeleteByItem(ctx, local.LocalID, local.RecordType); err != nil {
		return err
	}
	if remote.Deleted {
		return tx.Records.Delete(ctx, local.RecordType, local.LocalID)
	}

	serverAt := remote.UpdatedAt
	local.ServerID = remote.ID
	if remote.NaturalKey != "" {
		local.NaturalKey = remote.NaturalKey
	}
	local.Payload = remote.Payload
	local.Deleted = false
	local.UpdatedAt = now
	local.ServerUpdatedAt = &serverAt
	local.LastSyncAt = &now
	local.IsSynced = true
	return tx.Records.Save(ctx, local)
}

// ── Upload ─────────────────────────────────────────────────────────────────

// uploadResult is what the server made of one queue entry.
type uploadResult struct {
	serverID  string
	updatedAt *time.Time
	// existing is set when a CREATE found a different record under the same
	// natural key.
	existing *models.RemoteRecord
	// orphan: the local record no longer exists, nothing was sent.
	orphan bool
}

func (s *syncOrchestrator) upload(ctx context.Context, sess *session) error {
	sess.status.Phase = models.SyncPhaseUploading
	sess.status.Message = "uploading"

	batch, err := s.queue.NextBatch(ctx, sess.recordType)
	if err != nil {
		return fmt.Errorf("load pending changes: %w", err)
	}

	sess.status.UploadTotal = len(batch)
	sess.status.TotalItems += len(batch)
	s.publish(sess)

	for _, change := range batch {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.uploadOne(ctx, sess, change)
		if errors.Is(err, ErrConflictDetected) {
			// waits for the resolution, which requeues it
			sess.log.Debug().Str("item_id", change.ItemID).Msg("item has an open conflict, upload skipped")
			err = nil
		}
		if err != nil {
			return err
		}
		sess.status.UploadDone++
		sess.status.ProcessedItems++
		s.publish(sess)
	}

	return nil
}

func (s *syncOrchestrator) uploadOne(ctx context.Context, sess *session, change models.PendingChange) error {
	open, err := s.resolver.HasOpen(ctx, change.RecordType, change.ItemID)
	if err != nil {
		return err
	}
	if open {
		return ErrConflictDetected
	}

	local, err := s.storages.Records.Get(ctx, change.RecordType, change.ItemID)
	orphan := errors.Is(err, store.ErrRecordNotFound)
	if err != nil && !orphan {
		return err
	}

	if err = s.queue.MarkSyncing(ctx, change.ID); err != nil {
		if errors.Is(err, store.ErrPendingChangeNotFound) {
			// resolved or purged since the batch was read
			return nil
		}
		return err
	}

	req := models.NewSyncRequest(change)
	result := uploadResult{orphan: orphan}
	if !orphan {
		result, err = s.dispatch(ctx, sess, req, local)
		if err != nil {
			return s.fail(ctx, sess, req, err)
		}
	}

	return s.complete(ctx, sess, req, result)
}

func (s *syncOrchestrator) dispatch(ctx context.Context, sess *session, req models.SyncRequest, local models.LocalRecord) (uploadResult, error) {
	if req.Action == models.ActionDelete {
		if local.ServerID == "" {
			// never reached the server
			return uploadResult{}, nil
		}
		err := s.withServer(ctx, sess, func(target adapter.Target) error {
			return s.adapter.DeleteRecord(ctx, target, req.RecordType, local.ServerID)
		})
		if errors.Is(err, adapter.ErrNotFound) {
			err = nil
		}
		return uploadResult{serverID: local.ServerID}, err
	}

	payload := req.Payload
	if len(payload) == 0 {
		payload = local.Payload
	}
	record := models.RemoteRecord{
		ID:         local.ServerID,
		NaturalKey: local.NaturalKey,
		UpdatedAt:  local.UpdatedAt,
		Payload:    payload,
	}

	var stored models.RemoteRecord
	err := s.withServer(ctx, sess, func(target adapter.Target) error {
		var err error
		if record.ID != "" {
			stored, err = s.adapter.UpdateRecord(ctx, target, req.RecordType, record)
			if !errors.Is(err, adapter.ErrNotFound) {
				return err
			}
			// gone on the server, create it again
			record.ID = ""
		}
		stored, err = s.adapter.CreateRecord(ctx, target, req.RecordType, record)
		return err
	})

	var exists *adapter.AlreadyExistsError
	if errors.As(err, &exists) {
		existing := exists.Existing
		result := uploadResult{serverID: existing.ID, updatedAt: &existing.UpdatedAt}
		if !utils.SamePayload(existing.Payload, payload) {
			result.existing = &existing
		}
		sess.log.Info().
			Str("item_id", req.ItemID).
			Str("server_id", existing.ID).
			Bool("diverged", result.existing != nil).
			Msg("record already exists on server")
		return result, nil
	}
	if err != nil {
		return uploadResult{}, err
	}

	return uploadResult{serverID: stored.ID, updatedAt: &stored.UpdatedAt}, nil
}

// complete settles a queue entry the server accepted.
func (s *syncOrchestrator) complete(ctx context.Context, sess *session, req models.SyncRequest, result uploadResult) error {
	now := s.clock.Now()
	// the server already applied the change; record that even if cancelled now
	ctx = context.WithoutCancel(ctx)

	return s.storages.WithinTx(ctx, func(tx store.TxStorages) error {
		removed, err := tx.PendingChanges.MarkSucceeded(ctx, req.ID, req.Revision)
		if errors.Is(err, store.ErrPendingChangeNotFound) {
			// replaced by a conflict resolution meanwhile
			removed, err = false, nil
		}
		if err != nil {
			return err
		}
		if result.orphan {
			return nil
		}

		if result.existing != nil {
			local, err := tx.Records.Get(ctx, req.RecordType, req.ItemID)
			if err != nil {
				return err
			}
			local.ServerID = result.existing.ID
			if err = tx.Records.SetServerID(ctx, local.RecordType, local.LocalID, local.ServerID); err != nil {
				return err
			}
			if _, ok := models.ConflictTypeFor(local.RecordType); !ok {
				return applyRemote(ctx, tx, local, *result.existing, now)
			}
			_, err = s.resolver.Raise(ctx, tx.Conflicts, local, *result.existing)
			return err
		}

		if !removed {
			// superseded while in flight, the newer revision uploads later
			sess.log.Debug().Str("item_id", req.ItemID).Msg("pending change superseded during upload")
			if req.Action == models.ActionDelete || result.serverID == "" {
				return nil
			}
			// keep the sync point of the version the server now holds, so the
			// next download does not mistake this device's write for a remote edit
			if result.updatedAt == nil {
				return tx.Records.SetServerID(ctx, req.RecordType, req.ItemID, result.serverID)
			}
			err = tx.Records.SetServerVersion(ctx, req.RecordType, req.ItemID, result.serverID, result.updatedAt)
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if req.Action == models.ActionDelete {
			return tx.Records.Delete(ctx, req.RecordType, req.ItemID)
		}
		err = tx.Records.MarkSynced(ctx, req.RecordType, req.ItemID, result.serverID, result.updatedAt, now)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		return err
	})
}

// fail routes an upload error to the retry path. Returning an error ends the
// session; per-item failures do not.
func (s *syncOrchestrator) fail(ctx context.Context, sess *session, req models.SyncRequest, cause error) error {
	bg := context.WithoutCancel(ctx)
	log := sess.log.With().
		Int64("id", req.ID).
		Str("item_id", req.ItemID).
		Str("action", string(req.Action)).
		Logger()

	switch {
	case ctx.Err() != nil:
		if err := s.queue.ResetSyncing(bg, req.ID); err != nil {
			log.Err(err).Msg("failed to reset cancelled pending change")
		}
		return ctx.Err()

	case errors.Is(cause, ErrAuth):
		// not the item's fault
		if err := s.queue.ResetSyncing(bg, req.ID); err != nil {
			return err
		}
		return cause

	case permanent(cause):
		if err := s.queue.MarkPermanentlyFailed(bg, req.ID, cause); err != nil {
			return err
		}
		sess.status.FailedItems++
		return nil

	case errors.Is(cause, ErrNoServerAvailable):
		if _, err := s.queue.MarkFailed(bg, req.ID, cause); err != nil {
			return err
		}
		return cause

	case transient(cause):
		change, err := s.queue.MarkFailed(bg, req.ID, cause)
		if err != nil {
			return err
		}
		if change.Status == models.PendingStatusFailed {
			sess.status.FailedItems++
		}
		log.Debug().Err(cause).Int("retry_count", change.RetryCount).Msg("upload failed, will retry")
		return nil
	}

	// a local failure, e.g. the store; the item is not to blame
	if err := s.queue.ResetSyncing(bg, req.ID); err != nil {
		log.Err(err).Msg("failed to reset pending change")
	}
	return cause
}
