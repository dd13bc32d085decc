// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-recipe-sync/internal/adapter"
	"github.com/MKhiriev/go-recipe-sync/internal/config"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/internal/validators"
)

// ClientServices is the sync engine wired on one local database.
type ClientServices struct {
	Queue        PendingQueue
	Resolver     ConflictResolver
	Registry     ServerRegistry
	Orchestrator SyncOrchestrator
	Records      RecordService

	SyncJob        BackgroundJob
	HealthCheckJob BackgroundJob
	PurgeJob       BackgroundJob

	DeviceID string
	Clock    utils.Clock
}

// NewClientServices wires the services, recovers queue entries left in
// SYNCING by a previous run and seeds the configured servers.
func NewClientServices(ctx context.Context, storages *store.ClientStorages, serverAdapter adapter.ServerAdapter, cfg *config.ClientConfig, logger *logger.Logger) (*ClientServices, error) {
	// one clock for every service so a sync time is never before the
	// modification it confirms
	clock := utils.NewLogicalClock(utils.SystemClock{})

	deviceID, err := resolveDeviceID(ctx, storages.Settings, cfg.App.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve device id: %w", err)
	}

	queue := NewPendingQueue(storages.PendingChanges, clock, deviceID, cfg.Sync.MaxRetries, logger)
	resolver := NewConflictResolver(storages, queue, clock, logger)
	registry := NewServerRegistry(storages, serverAdapter, cfg.Adapter.Credentials, clock, logger)
	orchestrator := NewSyncOrchestrator(storages, queue, resolver, registry, serverAdapter, clock, cfg.Sync, logger)

	if _, err = queue.RecoverStuck(ctx); err != nil {
		return nil, fmt.Errorf("recover pending changes: %w", err)
	}
	if len(cfg.Servers) > 0 {
		if _, err = registry.Seed(ctx, cfg.Servers); err != nil {
			return nil, fmt.Errorf("seed servers: %w", err)
		}
	}

	return &ClientServices{
		Queue:          queue,
		Resolver:       resolver,
		Registry:       registry,
		Orchestrator:   orchestrator,
		Records:        NewRecordService(storages, queue, validators.NewRecordValidator(), clock, logger),
		SyncJob:        NewSyncJob(orchestrator, cfg.Workers.SyncInterval, logger),
		HealthCheckJob: NewHealthCheckJob(registry, cfg.Workers.HealthCheckInterval, logger),
		PurgeJob:       NewPurgeJob(queue, resolver, clock, cfg.Workers.PurgeInterval, cfg.Sync.FailedRetention, logger),
		DeviceID:       deviceID,
		Clock:          clock,
	}, nil
}

// resolveDeviceID prefers the configured id, then the stored one, and
// generates and stores a new one on first start.
func resolveDeviceID(ctx context.Context, settings store.SettingsRepository, configured string) (string, error) {
	if configured != "" {
		return configured, settings.Set(ctx, store.SettingDeviceID, configured)
	}

	stored, err := settings.Get(ctx, store.SettingDeviceID)
	if err == nil && stored != "" {
		return stored, nil
	}
	if err != nil && !errors.Is(err, store.ErrSettingNotFound) {
		return "", err
	}

	deviceID := utils.NewUUIDGenerator().Generate()
	return deviceID, settings.Set(ctx, store.SettingDeviceID, deviceID)
}
