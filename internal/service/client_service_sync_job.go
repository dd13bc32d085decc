// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

const (
	defaultSyncInterval        = 5 * time.Minute
	defaultHealthCheckInterval = time.Minute
	defaultPurgeInterval       = time.Hour
	defaultFailedRetention     = 7 * 24 * time.Hour
)

// periodicJob calls run on a ticker until stopped.
type periodicJob struct {
	name     string
	interval time.Duration
	// runOnStart makes the first run happen right away instead of after one
	// interval.
	runOnStart bool
	run        func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logger.Logger
}

func newPeriodicJob(name string, interval, fallback time.Duration, run func(ctx context.Context) error, logger *logger.Logger) *periodicJob {
	if interval <= 0 {
		interval = fallback
	}
	return &periodicJob{
		name:     name,
		interval: interval,
		run:      run,
		logger:   logger,
	}
}

func (j *periodicJob) Name() string {
	return j.name
}

// Start stops a running instance of the job, then launches a goroutine that
// runs it every interval. The goroutine exits when ctx is cancelled or Stop
// is called.
func (j *periodicJob) Start(ctx context.Context) {
	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	j.logger.Info().Str("job", j.name).Dur("interval", j.interval).Msg("background job started")

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(j.interval)
		defer t.Stop()

		if j.runOnStart {
			j.tick(jobCtx)
		}
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.tick(jobCtx)
			}
		}
	}()
}

func (j *periodicJob) tick(ctx context.Context) {
	if err := j.run(ctx); err != nil && ctx.Err() == nil {
		j.logger.Err(err).Str("job", j.name).Msg("background job run failed")
	}
}

// Stop cancels the goroutine and blocks until it has exited. Safe to call
// when the job is not running.
func (j *periodicJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
		j.logger.Info().Str("job", j.name).Msg("background job stopped")
	}
	j.wg.Wait()
}

// NewSyncJob triggers a sync of every record type each interval.
func NewSyncJob(orchestrator SyncOrchestrator, interval time.Duration, logger *logger.Logger) BackgroundJob {
	return newPeriodicJob("sync", interval, defaultSyncInterval, func(ctx context.Context) error {
		for st := range orchestrator.TriggerSync(ctx) {
			if st.State == models.SyncStateError {
				logger.Warn().
					Str("record_type", string(st.RecordType)).
					Str("message", st.Message).
					Msg("scheduled sync failed")
			}
		}
		return nil
	}, logger)
}

// NewHealthCheckJob probes every enabled server each interval, starting
// immediately.
func NewHealthCheckJob(registry ServerRegistry, interval time.Duration, logger *logger.Logger) BackgroundJob {
	job := newPeriodicJob("health-check", interval, defaultHealthCheckInterval, func(ctx context.Context) error {
		_, err := registry.TestAll(ctx)
		return err
	}, logger)
	job.runOnStart = true
	return job
}

// NewPurgeJob drops FAILED queue entries and resolved conflicts older than
// retention.
func NewPurgeJob(queue PendingQueue, resolver ConflictResolver, clock utils.Clock, interval, retention time.Duration, logger *logger.Logger) BackgroundJob {
	if retention <= 0 {
		retention = defaultFailedRetention
	}
	return newPeriodicJob("purge", interval, defaultPurgeInterval, func(ctx context.Context) error {
		cutoff := clock.Now().Add(-retention)

		changes, err := queue.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		conflicts, err := resolver.PurgeResolvedOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}

		if changes > 0 || conflicts > 0 {
			logger.Info().
				Int64("pending_changes", changes).
				Int64("conflicts", conflicts).
				Msg("purged old sync bookkeeping")
		}
		return nil
	}, logger)
}
