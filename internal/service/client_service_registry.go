// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MKhiriev/go-recipe-sync/internal/adapter"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// tokenSkew renews a token shortly before its exp claim.
const tokenSkew = 30 * time.Second

type serverRegistry struct {
	servers  store.ServerRepository
	settings store.SettingsRepository
	adapter  adapter.ServerAdapter
	creds    models.Credentials
	clock    utils.Clock

	probes singleflight.Group
	logins singleflight.Group

	mu     sync.RWMutex
	tokens map[int64]models.Token

	// activeMu serialises changes of the active server
	activeMu sync.Mutex

	logger *logger.Logger
}

// NewServerRegistry builds the registry over the client's server and settings
// tables. creds are used to log in to every server; tokens live in memory only.
func NewServerRegistry(storages *store.ClientStorages, serverAdapter adapter.ServerAdapter, creds models.Credentials, clock utils.Clock, logger *logger.Logger) ServerRegistry {
	return &serverRegistry{
		servers:  storages.Servers,
		settings: storages.Settings,
		adapter:  serverAdapter,
		creds:    creds,
		clock:    clock,
		tokens:   make(map[int64]models.Token),
		logger:   logger,
	}
}

// Seed stores the configured profiles. More than one default is rejected
// before anything is written.
func (r *serverRegistry) Seed(ctx context.Context, profiles []models.ServerProfile) ([]models.ServerProfile, error) {
	defaults := 0
	for _, p := range profiles {
		if p.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return nil, ErrMultipleDefaults
	}

	seeded, err := r.servers.Seed(ctx, profiles)
	if err != nil {
		return nil, err
	}

	r.logger.Info().Int("servers", len(seeded)).Msg("server profiles seeded")
	return seeded, nil
}

func (r *serverRegistry) List(ctx context.Context) ([]models.ServerProfile, error) {
	return r.servers.List(ctx)
}

// Select runs the selection rules over every usable server except exclude
// without changing the active server.
func (r *serverRegistry) Select(ctx context.Context, exclude ...int64) (models.ServerProfile, error) {
	servers, err := r.servers.List(ctx)
	if err != nil {
		return models.ServerProfile{}, err
	}
	if len(servers) == 0 {
		return models.ServerProfile{}, fmt.Errorf("%w: %w", ErrNoServerAvailable, ErrNoServerConfigured)
	}

	best, ok := selectBest(servers, exclude)
	if !ok {
		return models.ServerProfile{}, ErrNoServerAvailable
	}
	return best, nil
}

// selectBest picks, in order: the default server if it is online, the best
// online server, the best enabled server regardless of status. "Best" is
// highest priority, then most recent connection, then lowest id.
func selectBest(servers []models.ServerProfile, exclude []int64) (models.ServerProfile, bool) {
	candidates := make([]models.ServerProfile, 0, len(servers))
	for _, s := range servers {
		if usable(s) && !slices.Contains(exclude, s.ID) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return models.ServerProfile{}, false
	}

	slices.SortFunc(candidates, compareServers)

	for _, s := range candidates {
		if s.IsDefault && s.Online() {
			return s, true
		}
	}
	for _, s := range candidates {
		if s.Online() {
			return s, true
		}
	}
	return candidates[0], true
}

func compareServers(a, b models.ServerProfile) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	switch {
	case a.LastConnectedAt != nil && b.LastConnectedAt == nil:
		return -1
	case a.LastConnectedAt == nil && b.LastConnectedAt != nil:
		return 1
	case a.LastConnectedAt != nil && b.LastConnectedAt != nil:
		if c := b.LastConnectedAt.Compare(*a.LastConnectedAt); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}

func usable(s models.ServerProfile) bool {
	return s.Enabled && s.SyncEnabled
}

// Active returns the server sync sessions talk to. The current active server
// is kept while it is usable, not offline and ranked no lower than a fresh
// selection; so a default server that comes back online after a failover
// takes over again. A server chosen with SetActive is pinned until it fails.
func (r *serverRegistry) Active(ctx context.Context) (models.ServerProfile, error) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	best, err := r.Select(ctx)
	if err != nil {
		return models.ServerProfile{}, err
	}

	currentID, hasCurrent := r.activeID(ctx)
	if hasCurrent {
		if currentID == best.ID {
			return best, nil
		}
		current, getErr := r.servers.Get(ctx, currentID)
		if getErr != nil && !errors.Is(getErr, store.ErrServerNotFound) {
			return models.ServerProfile{}, getErr
		}
		if getErr == nil && usable(current) && current.Status != models.ServerStatusOffline &&
			(r.pinned(ctx) || selectionRank(best) >= selectionRank(current)) {
			return current, nil
		}
	}

	if err = r.persistActive(ctx, best.ID, false); err != nil {
		return models.ServerProfile{}, err
	}

	log := r.logger.Info().
		Int64("server_id", best.ID).
		Str("server", best.Name)
	if hasCurrent {
		log = log.Int64("previous_server_id", currentID)
	}
	log.Msg("active server selected")
	return best, nil
}

// selectionRank orders servers the way selectBest prefers them; lower is
// better.
func selectionRank(s models.ServerProfile) int {
	switch {
	case s.IsDefault && s.Online():
		return 0
	case s.Online():
		return 1
	}
	return 2
}

// SetActive makes id the active server and pins it, so Active keeps it even
// when a higher ranked server is online. The pin is dropped on failover.
func (r *serverRegistry) SetActive(ctx context.Context, id int64) (models.ServerProfile, error) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	server, err := r.servers.Get(ctx, id)
	if err != nil {
		return models.ServerProfile{}, err
	}
	if !usable(server) {
		return models.ServerProfile{}, fmt.Errorf("%w: %s", ErrServerDisabled, server.Name)
	}

	if err = r.persistActive(ctx, id, true); err != nil {
		return models.ServerProfile{}, err
	}

	r.logger.Info().
		Int64("server_id", server.ID).
		Str("server", server.Name).
		Msg("active server set")
	return server, nil
}

// Failover marks failedID OFFLINE and switches to the best server outside
// failedID and exclude. The default flag is never touched.
func (r *serverRegistry) Failover(ctx context.Context, failedID int64, exclude ...int64) (models.ServerProfile, error) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	now := r.clock.Now()
	if err := r.servers.UpdateStatus(ctx, failedID, models.ServerStatusOffline, now, nil); err != nil {
		r.logger.Err(err).Int64("server_id", failedID).Msg("failed to mark server offline")
	}

	next, err := r.Select(ctx, append([]int64{failedID}, exclude...)...)
	if err != nil {
		r.logger.Error().Int64("failed_server_id", failedID).Msg("failover found no available server")
		return models.ServerProfile{}, err
	}
	if err = r.persistActive(ctx, next.ID, false); err != nil {
		return models.ServerProfile{}, err
	}

	r.logger.Warn().
		Int64("failed_server_id", failedID).
		Int64("server_id", next.ID).
		Str("server", next.Name).
		Msg("failed over to another server")
	return next, nil
}

func (r *serverRegistry) activeID(ctx context.Context) (int64, bool) {
	raw, err := r.settings.Get(ctx, store.SettingActiveServerID)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// persistActive stores the active server id. A pinned choice survives
// Active re-selection.
func (r *serverRegistry) persistActive(ctx context.Context, id int64, pinned bool) error {
	if err := r.settings.Set(ctx, store.SettingActiveServerID, strconv.FormatInt(id, 10)); err != nil {
		return err
	}
	if pinned {
		return r.settings.Set(ctx, store.SettingActiveServerPinned, "true")
	}
	return r.settings.Delete(ctx, store.SettingActiveServerPinned)
}

func (r *serverRegistry) pinned(ctx context.Context) bool {
	raw, err := r.settings.Get(ctx, store.SettingActiveServerPinned)
	return err == nil && raw == "true"
}

// Probe checks one server's health endpoint and records the outcome.
// Concurrent probes of the same server share one request.
func (r *serverRegistry) Probe(ctx context.Context, id int64) (models.HealthResult, error) {
	v, err, _ := r.probes.Do(strconv.FormatInt(id, 10), func() (any, error) {
		server, err := r.servers.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return r.probe(ctx, server), nil
	})
	if err != nil {
		return models.HealthResult{}, err
	}
	return v.(models.HealthResult), nil
}

func (r *serverRegistry) probe(ctx context.Context, server models.ServerProfile) models.HealthResult {
	start := time.Now()
	err := r.adapter.Ping(ctx, server.BaseURL)
	latency := time.Since(start)

	now := r.clock.Now()
	result := models.HealthResult{
		ServerID:  server.ID,
		Name:      server.Name,
		BaseURL:   server.BaseURL,
		Latency:   latency,
		CheckedAt: now,
	}

	if ctx.Err() != nil {
		// an aborted probe says nothing about the server
		result.Status = models.ServerStatusUnknown
		result.Error = ctx.Err().Error()
		return result
	}

	var connectedAt *time.Time
	if err != nil {
		result.Status = models.ServerStatusOffline
		result.Error = err.Error()
	} else {
		result.Status = models.ServerStatusOnline
		connectedAt = &now
	}

	if updErr := r.servers.UpdateStatus(ctx, server.ID, result.Status, now, connectedAt); updErr != nil {
		r.logger.Err(updErr).Int64("server_id", server.ID).Msg("failed to store probe result")
	}

	r.logger.Debug().
		Int64("server_id", server.ID).
		Str("status", string(result.Status)).
		Dur("latency", latency).
		Msg("server probed")

	return result
}

func (r *serverRegistry) TestAll(ctx context.Context) ([]models.HealthResult, error) {
	servers, err := r.servers.List(ctx)
	if err != nil {
		return nil, err
	}

	enabled := slices.DeleteFunc(servers, func(s models.ServerProfile) bool { return !s.Enabled })
	results := make([]models.HealthResult, len(enabled))

	g, gctx := errgroup.WithContext(ctx)
	for i, server := range enabled {
		g.Go(func() error {
			res, err := r.Probe(gctx, server.ID)
			if err != nil {
				return fmt.Errorf("probe %s: %w", server.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Target returns the address and a valid token for server, logging in when
// the cached token is missing or about to expire. Without credentials the
// target carries no token.
func (r *serverRegistry) Target(ctx context.Context, server models.ServerProfile) (adapter.Target, error) {
	target := adapter.Target{BaseURL: server.BaseURL}
	if r.creds.Username == "" {
		return target, nil
	}

	r.mu.RLock()
	token, ok := r.tokens[server.ID]
	r.mu.RUnlock()
	if ok && token.Valid(r.clock.Now(), tokenSkew) {
		target.Token = token.AccessToken
		return target, nil
	}

	v, err, _ := r.logins.Do(strconv.FormatInt(server.ID, 10), func() (any, error) {
		token, err := r.adapter.Login(ctx, server.BaseURL, r.creds)
		if err != nil {
			return nil, mapAdapterError(err)
		}

		r.mu.Lock()
		r.tokens[server.ID] = token
		r.mu.Unlock()

		r.logger.Debug().Int64("server_id", server.ID).Msg("logged in to server")
		return token, nil
	})
	if err != nil {
		return adapter.Target{}, fmt.Errorf("login to %s: %w", server.Name, err)
	}

	target.Token = v.(models.Token).AccessToken
	return target, nil
}

func (r *serverRegistry) InvalidateToken(id int64) {
	r.mu.Lock()
	delete(r.tokens, id)
	r.mu.Unlock()
}

// ReportSuccess marks id ONLINE and stamps its last connection time.
func (r *serverRegistry) ReportSuccess(ctx context.Context, id int64) error {
	now := r.clock.Now()
	return r.servers.UpdateStatus(ctx, id, models.ServerStatusOnline, now, &now)
}
