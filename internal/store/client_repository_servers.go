// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/models"
)

type serverRepository struct {
	runner
}

// NewServerRepository returns the SQLite store of server profiles.
func NewServerRepository(db *DB) ServerRepository {
	return &serverRepository{runner: runner{db: db}}
}

// Seed makes the stored server list match the configured one. Profiles are
// matched by base URL; servers missing from the configuration are disabled,
// and the default flag is taken from the configuration only. Runtime status
// and timestamps of known servers are kept.
func (s *serverRepository) Seed(ctx context.Context, profiles []models.ServerProfile) ([]models.ServerProfile, error) {
	log := logger.FromContext(ctx)

	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		key := strings.TrimRight(p.BaseURL, "/")
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBaseURL, p.BaseURL)
		}
		seen[key] = struct{}{}
	}

	var seeded []models.ServerProfile
	err := s.atomic(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, clearServerDefaults); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		if _, err := q.ExecContext(ctx, disableAllServers); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		for _, p := range profiles {
			baseURL := strings.TrimRight(p.BaseURL, "/")
			status := p.Status
			if status == "" {
				status = models.ServerStatusUnknown
			}
			if _, err := q.ExecContext(ctx, upsertServer,
				p.Name,
				baseURL,
				p.Priority,
				p.Enabled,
				p.IsDefault,
				status,
				p.SyncEnabled,
			); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}

			stored, err := scanServer(q.QueryRowContext(ctx, getServerByBaseURL, baseURL))
			if err != nil {
				return fmt.Errorf("%w: %w", ErrScanningRow, err)
			}
			seeded = append(seeded, stored)
		}
		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "serverRepository.Seed").
			Int("servers", len(profiles)).
			Msg("failed to seed servers")
		return nil, fmt.Errorf("failed to seed servers: %w", err)
	}

	return seeded, nil
}

func (s *serverRepository) Get(ctx context.Context, id int64) (models.ServerProfile, error) {
	server, err := scanServer(s.q().QueryRowContext(ctx, getServerByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ServerProfile{}, ErrServerNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "serverRepository.Get").
			Int64("server_id", id).
			Msg("failed to scan server row")
		return models.ServerProfile{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return server, nil
}

func (s *serverRepository) List(ctx context.Context) ([]models.ServerProfile, error) {
	log := logger.FromContext(ctx)

	rows, err := s.q().QueryContext(ctx, listServers)
	if err != nil {
		log.Err(err).
			Str("func", "serverRepository.List").
			Msg("failed to execute query for listing servers")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var servers []models.ServerProfile
	for rows.Next() {
		server, scanErr := scanServer(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "serverRepository.List").
				Msg("failed to scan server row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		servers = append(servers, server)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return servers, nil
}

// UpdateStatus records a probe or request outcome. connectedAt is only
// written when non-nil.
func (s *serverRepository) UpdateStatus(ctx context.Context, id int64, status models.ServerStatus, checkedAt time.Time, connectedAt *time.Time) error {
	res, err := s.q().ExecContext(ctx, updateServerStatus, status, checkedAt.UTC(), utcPtr(connectedAt), id)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "serverRepository.UpdateStatus").
			Int64("server_id", id).
			Str("status", string(status)).
			Msg("failed to update server status")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w (id=%d)", ErrServerNotFound, id)
	}
	return nil
}
