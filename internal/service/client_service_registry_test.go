// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-recipe-sync/internal/adapter"
	"github.com/MKhiriev/go-recipe-sync/internal/app"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// ── selectBest ───────────────────────────────────────────────────────────────

func profileWith(id int64, name string, priority int, status models.ServerStatus, opts ...func(*models.ServerProfile)) models.ServerProfile {
	p := models.ServerProfile{
		ID:          id,
		Name:        name,
		Priority:    priority,
		Enabled:     true,
		SyncEnabled: true,
		Status:      status,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func asDefault(p *models.ServerProfile) { p.IsDefault = true }
func disabled(p *models.ServerProfile)  { p.Enabled = false }
func noSync(p *models.ServerProfile)    { p.SyncEnabled = false }
func connectedAt(t time.Time) func(*models.ServerProfile) {
	return func(p *models.ServerProfile) { p.LastConnectedAt = &t }
}

func TestSelectBest(t *testing.T) {
	online, offline, unknown := models.ServerStatusOnline, models.ServerStatusOffline, models.ServerStatusUnknown

	tests := []struct {
		name    string
		servers []models.ServerProfile
		exclude []int64
		want    string
		wantOK  bool
	}{
		{
			name: "default and online beats higher priority",
			servers: []models.ServerProfile{
				profileWith(1, "A", 1, online, asDefault),
				profileWith(2, "B", 5, online),
				profileWith(3, "C", 10, offline),
			},
			want: "A", wantOK: true,
		},
		{
			name: "offline default loses to online",
			servers: []models.ServerProfile{
				profileWith(1, "A", 1, offline, asDefault),
				profileWith(2, "B", 5, online),
				profileWith(3, "C", 10, offline),
			},
			want: "B", wantOK: true,
		},
		{
			name: "online tie broken by most recent connection",
			servers: []models.ServerProfile{
				profileWith(1, "A", 5, online, connectedAt(testT0)),
				profileWith(2, "B", 5, online, connectedAt(testT0.Add(time.Minute))),
				profileWith(3, "C", 5, online),
			},
			want: "B", wantOK: true,
		},
		{
			name: "full tie broken by id",
			servers: []models.ServerProfile{
				profileWith(7, "late", 5, online),
				profileWith(3, "early", 5, online),
			},
			want: "early", wantOK: true,
		},
		{
			name: "nothing online falls back to best enabled",
			servers: []models.ServerProfile{
				profileWith(1, "A", 1, offline, asDefault),
				profileWith(2, "B", 5, unknown),
				profileWith(3, "C", 10, offline),
			},
			want: "C", wantOK: true,
		},
		{
			name: "disabled and sync-disabled servers are never chosen",
			servers: []models.ServerProfile{
				profileWith(1, "A", 10, online, disabled),
				profileWith(2, "B", 9, online, noSync),
				profileWith(3, "C", 1, offline),
			},
			want: "C", wantOK: true,
		},
		{
			name: "excluded servers are skipped",
			servers: []models.ServerProfile{
				profileWith(1, "A", 1, online, asDefault),
				profileWith(2, "B", 5, online),
			},
			exclude: []int64{1},
			want:    "B", wantOK: true,
		},
		{
			name: "no candidate",
			servers: []models.ServerProfile{
				profileWith(1, "A", 1, online, disabled),
			},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectBest(tt.servers, tt.exclude)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.Name)
			}
		})
	}
}

// Порядок входа не влияет на выбор.
func TestSelectBest_Deterministic(t *testing.T) {
	servers := []models.ServerProfile{
		profileWith(1, "A", 3, models.ServerStatusOnline),
		profileWith(2, "B", 3, models.ServerStatusOnline, connectedAt(testT0)),
		profileWith(3, "C", 1, models.ServerStatusOnline),
	}
	reversed := []models.ServerProfile{servers[2], servers[1], servers[0]}

	first, _ := selectBest(servers, nil)
	second, _ := selectBest(reversed, nil)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "B", first.Name)
}

// ── Seed / List ──────────────────────────────────────────────────────────────

func TestServerRegistry_Seed_RejectsTwoDefaults(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.Seed(context.Background(), []models.ServerProfile{
		serverProfile("a", 1, true),
		serverProfile("b", 1, true),
	})
	require.ErrorIs(t, err, ErrMultipleDefaults)
}

func TestServerRegistry_Select_NoServers(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.Select(context.Background())
	require.ErrorIs(t, err, ErrNoServerAvailable)
	require.ErrorIs(t, err, ErrNoServerConfigured)
}

// ── Active / SetActive / Failover ───────────────────────────────────────────

func TestServerRegistry_Active_SelectsAndPersists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t, serverProfile("main", 1, true), serverProfile("backup", 5, false))
	env.setStatus(t, servers["main"].ID, models.ServerStatusOnline)
	env.setStatus(t, servers["backup"].ID, models.ServerStatusOnline)

	active, err := env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", active.Name)

	// новый реестр на той же базе видит сохранённый выбор
	other := NewServerRegistry(env.storages, env.adapter, models.Credentials{}, env.clock, logger.Nop())
	id, ok := other.(*serverRegistry).activeID(ctx)
	require.True(t, ok)
	assert.Equal(t, servers["main"].ID, id)
}

func TestServerRegistry_SetActive_KeepsDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t, serverProfile("main", 1, true), serverProfile("backup", 5, false))

	active, err := env.registry.SetActive(ctx, servers["backup"].ID)
	require.NoError(t, err)
	assert.Equal(t, "backup", active.Name)

	got, err := env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup", got.Name)

	assert.True(t, env.server(t, servers["main"].ID).IsDefault)
	assert.False(t, env.server(t, servers["backup"].ID).IsDefault)
}

func TestServerRegistry_SetActive_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	off := serverProfile("off", 1, false)
	off.Enabled = false
	servers := env.seed(t, serverProfile("main", 1, true), off)

	_, err := env.registry.SetActive(ctx, 999)
	require.ErrorIs(t, err, ErrServerNotFound)

	_, err = env.registry.SetActive(ctx, servers["off"].ID)
	require.ErrorIs(t, err, ErrServerDisabled)
}

func TestServerRegistry_Failover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t,
		serverProfile("main", 1, true),
		serverProfile("backup", 5, false),
		serverProfile("spare", 3, false),
	)
	for _, s := range servers {
		env.setStatus(t, s.ID, models.ServerStatusOnline)
	}

	next, err := env.registry.Failover(ctx, servers["main"].ID)
	require.NoError(t, err)
	assert.Equal(t, "backup", next.Name)

	main := env.server(t, servers["main"].ID)
	assert.Equal(t, models.ServerStatusOffline, main.Status)
	assert.True(t, main.IsDefault)

	active, err := env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup", active.Name)

	next, err = env.registry.Failover(ctx, servers["backup"].ID, servers["main"].ID)
	require.NoError(t, err)
	assert.Equal(t, "spare", next.Name)

	_, err = env.registry.Failover(ctx, servers["spare"].ID, servers["main"].ID, servers["backup"].ID)
	require.ErrorIs(t, err, ErrNoServerAvailable)
}

// Активный сервер, помеченный OFFLINE, заменяется при следующем Active.
func TestServerRegistry_Active_ReplacesOfflineServer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t, serverProfile("main", 1, true), serverProfile("backup", 5, false))
	env.setStatus(t, servers["main"].ID, models.ServerStatusOnline)
	env.setStatus(t, servers["backup"].ID, models.ServerStatusOnline)

	_, err := env.registry.Active(ctx)
	require.NoError(t, err)

	env.setStatus(t, servers["main"].ID, models.ServerStatusOffline)

	active, err := env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup", active.Name)
}

// Основной сервер вернулся после отказа: Active снова выбирает его.
func TestServerRegistry_Active_ReturnsToRecoveredDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t, serverProfile("main", 1, true), serverProfile("backup", 5, false))
	env.setStatus(t, servers["main"].ID, models.ServerStatusOnline)
	env.setStatus(t, servers["backup"].ID, models.ServerStatusOnline)

	next, err := env.registry.Failover(ctx, servers["main"].ID)
	require.NoError(t, err)
	require.Equal(t, "backup", next.Name)

	active, err := env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup", active.Name, "default is still offline")

	env.setStatus(t, servers["main"].ID, models.ServerStatusOnline)

	selected, err := env.registry.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", selected.Name)

	active, err = env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", active.Name)

	id, ok := env.registry.(*serverRegistry).activeID(ctx)
	require.True(t, ok)
	assert.Equal(t, servers["main"].ID, id)
}

// Среди равных по рангу текущий активный сервер не меняется.
func TestServerRegistry_Active_KeepsEqualRankedServer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t,
		serverProfile("main", 1, true),
		serverProfile("backup", 5, false),
		serverProfile("spare", 3, false),
	)
	for _, s := range servers {
		env.setStatus(t, s.ID, models.ServerStatusOnline)
	}

	_, err := env.registry.Failover(ctx, servers["main"].ID)
	require.NoError(t, err)
	_, err = env.registry.Failover(ctx, servers["backup"].ID, servers["main"].ID)
	require.NoError(t, err)

	// backup снова доступен, но он не лучше spare: оба не основные
	env.setStatus(t, servers["backup"].ID, models.ServerStatusOnline)

	active, err := env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "spare", active.Name)
}

// Выбор, сделанный вручную, держится, пока сервер не откажет.
func TestServerRegistry_SetActive_PinnedUntilFailover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t,
		serverProfile("main", 1, true),
		serverProfile("backup", 5, false),
		serverProfile("spare", 3, false),
	)
	for _, s := range servers {
		env.setStatus(t, s.ID, models.ServerStatusOnline)
	}

	_, err := env.registry.SetActive(ctx, servers["spare"].ID)
	require.NoError(t, err)

	active, err := env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "spare", active.Name, "pinned over the online default")

	_, err = env.registry.Failover(ctx, servers["spare"].ID)
	require.NoError(t, err)

	// после отказа закрепление снято, выбор снова автоматический
	env.setStatus(t, servers["spare"].ID, models.ServerStatusOnline)
	active, err = env.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", active.Name)
}

// ── Probe / TestAll ──────────────────────────────────────────────────────────

func TestServerRegistry_Probe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t, serverProfile("main", 1, true), serverProfile("down", 1, false))

	env.adapter.EXPECT().Ping(gomock.Any(), "http://main.test").Return(nil)
	env.adapter.EXPECT().Ping(gomock.Any(), "http://down.test").Return(fmt.Errorf("%w: connection refused", adapter.ErrTransport))

	up, err := env.registry.Probe(ctx, servers["main"].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ServerStatusOnline, up.Status)
	assert.Empty(t, up.Error)

	down, err := env.registry.Probe(ctx, servers["down"].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ServerStatusOffline, down.Status)
	assert.Contains(t, down.Error, "connection refused")

	main := env.server(t, servers["main"].ID)
	assert.Equal(t, models.ServerStatusOnline, main.Status)
	assert.NotNil(t, main.LastConnectedAt)
	assert.NotNil(t, main.LastStatusCheckAt)

	gone := env.server(t, servers["down"].ID)
	assert.Equal(t, models.ServerStatusOffline, gone.Status)
	assert.Nil(t, gone.LastConnectedAt)

	_, err = env.registry.Probe(ctx, 999)
	require.ErrorIs(t, err, ErrServerNotFound)
}

// Пока проба сервера в полёте, повторная проба не отправляет второй запрос.
func TestServerRegistry_Probe_SingleFlight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servers := env.seed(t, serverProfile("main", 1, true))

	started := make(chan struct{})
	release := make(chan struct{})
	env.adapter.EXPECT().Ping(gomock.Any(), "http://main.test").
		DoAndReturn(func(context.Context, string) error {
			close(started)
			<-release
			return nil
		}).Times(1)

	var wg sync.WaitGroup
	results := make([]models.HealthResult, 3)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i > 0 {
				<-started
			}
			res, err := env.registry.Probe(ctx, servers["main"].ID)
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, models.ServerStatusOnline, r.Status)
	}
}

func TestServerRegistry_TestAll(t *testing.T) {
	env := newTestEnv(t)
	off := serverProfile("off", 1, false)
	off.Enabled = false
	env.seed(t, serverProfile("main", 1, true), serverProfile("backup", 2, false), off)

	env.adapter.EXPECT().Ping(gomock.Any(), "http://main.test").Return(nil)
	env.adapter.EXPECT().Ping(gomock.Any(), "http://backup.test").Return(adapter.ErrServerError)

	results, err := env.registry.TestAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]models.ServerStatus{}
	for _, r := range results {
		byName[r.Name] = r.Status
	}
	assert.Equal(t, models.ServerStatusOnline, byName["main"])
	assert.Equal(t, models.ServerStatusOffline, byName["backup"])
}

// ── Target ───────────────────────────────────────────────────────────────────

func TestServerRegistry_Target_WithoutCredentials(t *testing.T) {
	env := newTestEnv(t)
	servers := env.seed(t, serverProfile("main", 1, true))

	target, err := env.registry.Target(context.Background(), servers["main"])
	require.NoError(t, err)
	assert.Equal(t, adapter.Target{BaseURL: "http://main.test"}, target)
}

func TestServerRegistry_Target_CachesToken(t *testing.T) {
	creds := models.Credentials{Username: "cook", Password: "secret"}
	env := newTestEnvWith(t, creds)
	ctx := context.Background()
	servers := env.seed(t, serverProfile("main", 1, true))

	expires := testT0.Add(time.Hour)
	env.adapter.EXPECT().Login(gomock.Any(), "http://main.test", creds).
		Return(models.Token{AccessToken: "t1", TokenType: "Bearer", ExpiresAt: &expires}, nil)

	for range 3 {
		target, err := env.registry.Target(ctx, servers["main"])
		require.NoError(t, err)
		assert.Equal(t, "t1", target.Token)
	}

	env.registry.InvalidateToken(servers["main"].ID)
	env.adapter.EXPECT().Login(gomock.Any(), "http://main.test", creds).
		Return(models.Token{AccessToken: "t2", ExpiresAt: &expires}, nil)

	target, err := env.registry.Target(ctx, servers["main"])
	require.NoError(t, err)
	assert.Equal(t, "t2", target.Token)
}

func TestServerRegistry_Target_RenewsExpiredToken(t *testing.T) {
	creds := models.Credentials{Username: "cook", Password: "secret"}
	env := newTestEnvWith(t, creds)
	ctx := context.Background()
	servers := env.seed(t, serverProfile("main", 1, true))

	expires := testT0.Add(time.Minute)
	env.adapter.EXPECT().Login(gomock.Any(), gomock.Any(), creds).
		Return(models.Token{AccessToken: "short", ExpiresAt: &expires}, nil)
	env.adapter.EXPECT().Login(gomock.Any(), gomock.Any(), creds).
		Return(models.Token{AccessToken: "fresh"}, nil)

	_, err := env.registry.Target(ctx, servers["main"])
	require.NoError(t, err)

	env.manual.Advance(time.Hour)

	target, err := env.registry.Target(ctx, servers["main"])
	require.NoError(t, err)
	assert.Equal(t, "fresh", target.Token)
}

func TestServerRegistry_Target_WrongCredentials(t *testing.T) {
	creds := models.Credentials{Username: "cook", Password: "wrong"}
	env := newTestEnvWith(t, creds)
	servers := env.seed(t, serverProfile("main", 1, true))

	env.adapter.EXPECT().Login(gomock.Any(), gomock.Any(), creds).
		Return(models.Token{}, fmt.Errorf("%w: %s", adapter.ErrUnauthorized, app.MsgInvalidLoginPassword))

	_, err := env.registry.Target(context.Background(), servers["main"])
	require.ErrorIs(t, err, ErrWrongCredentials)
	require.ErrorIs(t, err, ErrAuth)
	assert.True(t, errors.Is(err, adapter.ErrUnauthorized))
}

func TestServerRegistry_ReportSuccess(t *testing.T) {
	env := newTestEnv(t)
	servers := env.seed(t, serverProfile("main", 1, true))

	require.NoError(t, env.registry.ReportSuccess(context.Background(), servers["main"].ID))

	got := env.server(t, servers["main"].ID)
	assert.Equal(t, models.ServerStatusOnline, got.Status)
	assert.NotNil(t, got.LastConnectedAt)
}
