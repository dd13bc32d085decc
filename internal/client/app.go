// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MKhiriev/go-recipe-sync/internal/adapter"
	"github.com/MKhiriev/go-recipe-sync/internal/config"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/service"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/tui"
	"github.com/MKhiriev/go-recipe-sync/internal/workers"
	"github.com/MKhiriev/go-recipe-sync/models"
)

type App struct {
	storages *store.ClientStorages
	services *service.ClientServices
	workers  *workers.Workers
	ui       *tui.TUI

	in  io.Reader
	out io.Writer

	logger *logger.Logger
}

// NewApp opens local storage and wires every client service.
func NewApp(ctx context.Context, cfg *config.ClientConfig, buildInfo models.AppBuildInfo, logger *logger.Logger) (*App, error) {
	storages, err := store.NewClientStorages(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	adapterCfg := cfg.Adapter
	adapterCfg.UserAgent = buildInfo.UserAgent()
	serverAdapter := adapter.NewHTTPServerAdapter(adapterCfg, logger)

	services, err := service.NewClientServices(ctx, storages, serverAdapter, cfg, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create client services: %w", err), storages.Close())
	}

	ui, err := tui.New(services, buildInfo, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create ui: %w", err), storages.Close())
	}

	return newApp(storages, services, ui, logger), nil
}

func newApp(storages *store.ClientStorages, services *service.ClientServices, ui *tui.TUI, logger *logger.Logger) *App {
	return &App{
		storages: storages,
		services: services,
		workers:  workers.New(logger, services.HealthCheckJob, services.SyncJob, services.PurgeJob),
		ui:       ui,
		in:       os.Stdin,
		out:      os.Stdout,
		logger:   logger,
	}
}

// Run executes the command in args, or starts the dashboard when args is
// empty.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.runDashboard(ctx)
	}

	cmd, ok := a.commands()[args[0]]
	if !ok {
		return fmt.Errorf("%w: %q, see \"help\"", ErrUnknownCommand, args[0])
	}

	a.logger.Debug().Str("command", args[0]).Strs("args", args[1:]).Msg("running command")
	return cmd.run(ctx, args[1:])
}

// runDashboard keeps the background jobs running for as long as the
// dashboard is open.
func (a *App) runDashboard(ctx context.Context) error {
	a.workers.Start(ctx)
	defer a.workers.Stop()

	a.logger.Info().Strs("workers", a.workers.Names()).Str("device_id", a.services.DeviceID).Msg("client started")
	return a.ui.Run(ctx)
}

func (a *App) Close() error {
	return a.storages.Close()
}
