// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-recipe-sync/internal/adapter"
	"github.com/MKhiriev/go-recipe-sync/internal/config"
	recipehttp "github.com/MKhiriev/go-recipe-sync/internal/handler/http"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// Сквозные тесты: настоящий resty-адаптер против настоящего HTTP-сервера
// рецептов, локальная база — SQLite во временном каталоге.

var e2eCreds = models.Credentials{Username: "cook", Password: "secret"}

type e2eServer struct {
	handler *recipehttp.Handler
	records store.RemoteRecordRepository
	url     string
}

func newE2EServer(t *testing.T) *e2eServer {
	t.Helper()

	cfg := &config.RecipeServer{
		SignKey:     "e2e-sign-key",
		TokenIssuer: config.DefaultTokenIssuer,
		TokenTTL:    time.Hour,
		Users:       []string{e2eCreds.Username + ":" + e2eCreds.Password},
	}
	records := store.NewMemoryRecordRepository(nil)
	h := recipehttp.NewHandler(records, cfg, models.NewAppBuildInfo("e2e", "", ""), logger.Nop())

	srv := httptest.NewServer(h.Init())
	t.Cleanup(srv.Close)

	return &e2eServer{handler: h, records: records, url: srv.URL}
}

// newE2EClient wires a complete client on its own database against servers,
// the first one being the default.
func newE2EClient(t *testing.T, deviceID string, servers ...*e2eServer) *ClientServices {
	t.Helper()

	cfg := &config.ClientConfig{
		App: config.ClientApp{DeviceID: deviceID},
		Adapter: config.ClientAdapter{
			RequestTimeout: 5 * time.Second,
			ProbeTimeout:   2 * time.Second,
			Credentials:    e2eCreds,
		},
		Sync: config.ClientSync{Enabled: true, MaxRetries: models.MaxRetries},
	}
	for i, s := range servers {
		cfg.Servers = append(cfg.Servers, models.ServerProfile{
			Name:        deviceID + "-server-" + string(rune('a'+i)),
			BaseURL:     s.url,
			Priority:    len(servers) - i,
			Enabled:     true,
			IsDefault:   i == 0,
			SyncEnabled: true,
		})
	}

	serverAdapter := adapter.NewHTTPServerAdapter(cfg.Adapter, logger.Nop())
	svc, err := NewClientServices(context.Background(), newTestStorages(t), serverAdapter, cfg, logger.Nop())
	require.NoError(t, err)
	return svc
}

func syncType(t *testing.T, svc *ClientServices, recordType models.RecordType) models.SyncSessionStatus {
	t.Helper()

	status, err := svc.Orchestrator.Sync(context.Background(), recordType)
	require.NoError(t, err)
	return status
}

func TestE2E_OfflineCreateIsUploaded(t *testing.T) {
	server := newE2EServer(t)
	client := newE2EClient(t, "phone", server)
	ctx := context.Background()

	// offline: записи только локально
	local, err := client.Records.Create(ctx, models.Recipe{Name: "Pancakes", Servings: 4})
	require.NoError(t, err)
	count, err := client.Queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var final models.SyncSessionStatus
	for st := range client.Orchestrator.TriggerSync(ctx, models.RecordTypeRecipe) {
		final = st
	}
	require.Equal(t, models.SyncStateCompleted, final.State, final.Message)
	assert.InDelta(t, 100, final.Percent(), 0.001)

	synced, err := client.Records.Get(ctx, models.RecordTypeRecipe, local.LocalID)
	require.NoError(t, err)
	assert.True(t, synced.IsSynced)
	assert.NotEmpty(t, synced.ServerID)

	count, err = client.Queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	remote, err := server.records.Get(ctx, models.RecordTypeRecipe, synced.ServerID)
	require.NoError(t, err)
	assert.Equal(t, "pancakes", remote.NaturalKey)

	var recipe models.Recipe
	require.NoError(t, json.Unmarshal(remote.Payload, &recipe))
	assert.Equal(t, 4, recipe.Servings)
}

func TestE2E_ChangesTravelBetweenDevices(t *testing.T) {
	server := newE2EServer(t)
	phone := newE2EClient(t, "phone", server)
	tablet := newE2EClient(t, "tablet", server)
	ctx := context.Background()

	created, err := phone.Records.Create(ctx, models.Recipe{Name: "Soup"})
	require.NoError(t, err)
	require.Equal(t, models.SyncStateCompleted, syncType(t, phone, models.RecordTypeRecipe).State)

	// планшет скачивает рецепт телефона
	require.Equal(t, models.SyncStateCompleted, syncType(t, tablet, models.RecordTypeRecipe).State)
	onTablet, err := tablet.Records.List(ctx, models.RecordTypeRecipe)
	require.NoError(t, err)
	require.Len(t, onTablet, 1)
	assert.Equal(t, "soup", onTablet[0].NaturalKey)
	assert.True(t, onTablet[0].IsSynced)

	// планшет удаляет, телефон узнаёт об этом из надгробия
	require.NoError(t, tablet.Records.Delete(ctx, models.RecordTypeRecipe, onTablet[0].LocalID))
	require.Equal(t, models.SyncStateCompleted, syncType(t, tablet, models.RecordTypeRecipe).State)
	require.Equal(t, models.SyncStateCompleted, syncType(t, phone, models.RecordTypeRecipe).State)

	_, err = phone.Records.Get(ctx, models.RecordTypeRecipe, created.LocalID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestE2E_DuplicateCreateIsLinked(t *testing.T) {
	server := newE2EServer(t)
	phone := newE2EClient(t, "phone", server)
	tablet := newE2EClient(t, "tablet", server)
	ctx := context.Background()

	_, err := phone.Records.Create(ctx, models.ShoppingList{Name: "Weekly"})
	require.NoError(t, err)
	_, err = tablet.Records.Create(ctx, models.ShoppingList{Name: "Weekly"})
	require.NoError(t, err)

	require.Equal(t, models.SyncStateCompleted, syncType(t, phone, models.RecordTypeShoppingList).State)
	require.Equal(t, models.SyncStateCompleted, syncType(t, tablet, models.RecordTypeShoppingList).State)

	// одинаковое содержимое: один серверный объект, ничего не висит в очереди
	all, err := server.records.List(ctx, models.RecordTypeShoppingList, models.FilterWindow{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	onTablet, err := tablet.Records.List(ctx, models.RecordTypeShoppingList)
	require.NoError(t, err)
	require.Len(t, onTablet, 1)
	assert.Equal(t, all[0].ID, onTablet[0].ServerID)

	count, err := tablet.Queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestE2E_FailoverToBackupServer(t *testing.T) {
	primary := newE2EServer(t)
	backup := newE2EServer(t)
	client := newE2EClient(t, "phone", primary, backup)
	ctx := context.Background()

	results, err := client.Registry.TestAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, models.ServerStatusOnline, r.Status, r.Name)
	}

	active, err := client.Registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, primary.url, active.BaseURL, "default online server is preferred")

	// основной сервер уходит на обслуживание посреди работы
	primary.handler.SetAvailable(false)

	_, err = client.Records.Create(ctx, models.Recipe{Name: "Stew"})
	require.NoError(t, err)
	status := syncType(t, client, models.RecordTypeRecipe)
	require.Equal(t, models.SyncStateCompleted, status.State, status.Message)

	onBackup, err := backup.records.List(ctx, models.RecordTypeRecipe, models.FilterWindow{})
	require.NoError(t, err)
	require.Len(t, onBackup, 1)
	assert.Equal(t, "stew", onBackup[0].NaturalKey)

	active, err = client.Registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, backup.url, active.BaseURL)

	servers, err := client.Registry.List(ctx)
	require.NoError(t, err)
	for _, s := range servers {
		if s.BaseURL == primary.url {
			assert.True(t, s.IsDefault, "failover never rewrites the default")
			assert.Equal(t, models.ServerStatusOffline, s.Status)
		}
	}
}

func TestE2E_AllServersDown(t *testing.T) {
	primary := newE2EServer(t)
	backup := newE2EServer(t)
	client := newE2EClient(t, "phone", primary, backup)
	ctx := context.Background()

	primary.handler.SetAvailable(false)
	backup.handler.SetAvailable(false)

	_, err := client.Records.Create(ctx, models.Recipe{Name: "Stew"})
	require.NoError(t, err)

	status := syncType(t, client, models.RecordTypeRecipe)
	assert.Equal(t, models.SyncStateError, status.State)

	// изменение остаётся в очереди до следующей попытки
	pending, err := client.Queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	primary.handler.SetAvailable(true)
	status = syncType(t, client, models.RecordTypeRecipe)
	assert.Equal(t, models.SyncStateCompleted, status.State, status.Message)
}
