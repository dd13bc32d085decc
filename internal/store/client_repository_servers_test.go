// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-recipe-sync/models"
)

func profile(name, url string, prio int, def bool) models.ServerProfile {
	return models.ServerProfile{
		Name: name, BaseURL: url, Priority: prio, Enabled: true, IsDefault: def, SyncEnabled: true,
	}
}

func TestServers_SeedInsertsAndLists(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()

	seeded, err := s.Servers.Seed(ctx, []models.ServerProfile{
		profile("home", "https://home.example.com/", 1, true),
		profile("cloud", "https://cloud.example.com", 5, false),
	})
	require.NoError(t, err)
	require.Len(t, seeded, 2)
	assert.NotZero(t, seeded[0].ID)
	assert.Equal(t, "https://home.example.com", seeded[0].BaseURL)
	assert.Equal(t, models.ServerStatusUnknown, seeded[0].Status)

	list, err := s.Servers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// highest priority first
	assert.Equal(t, "cloud", list[0].Name)

	got, err := s.Servers.Get(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)

	_, err = s.Servers.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestServers_ReseedKeepsRuntimeStateAndDisablesRemoved(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()

	seeded, err := s.Servers.Seed(ctx, []models.ServerProfile{
		profile("home", "https://home.example.com", 1, true),
		profile("old", "https://old.example.com", 1, false),
	})
	require.NoError(t, err)

	connected := testT0.Add(-time.Minute)
	require.NoError(t, s.Servers.UpdateStatus(ctx, seeded[0].ID, models.ServerStatusOnline, testT0, &connected))

	reseeded, err := s.Servers.Seed(ctx, []models.ServerProfile{
		profile("home renamed", "https://home.example.com", 7, false),
		profile("new", "https://new.example.com", 2, true),
	})
	require.NoError(t, err)
	require.Len(t, reseeded, 2)

	home := reseeded[0]
	assert.Equal(t, seeded[0].ID, home.ID)
	assert.Equal(t, "home renamed", home.Name)
	assert.Equal(t, 7, home.Priority)
	assert.False(t, home.IsDefault)
	assert.Equal(t, models.ServerStatusOnline, home.Status)
	require.NotNil(t, home.LastConnectedAt)
	assert.True(t, home.LastConnectedAt.Equal(connected))

	old, err := s.Servers.Get(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.False(t, old.Enabled)

	list, err := s.Servers.List(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, p := range list {
		if p.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestServers_SeedRejectsDuplicates(t *testing.T) {
	s := newTestStorages(t)

	_, err := s.Servers.Seed(context.Background(), []models.ServerProfile{
		profile("a", "https://a.example.com", 1, false),
		profile("b", "https://a.example.com/", 1, false),
	})
	assert.ErrorIs(t, err, ErrDuplicateBaseURL)
}

func TestServers_UpdateStatus(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()

	seeded, err := s.Servers.Seed(ctx, []models.ServerProfile{profile("a", "https://a.example.com", 1, false)})
	require.NoError(t, err)
	id := seeded[0].ID

	connected := testT0
	require.NoError(t, s.Servers.UpdateStatus(ctx, id, models.ServerStatusOnline, testT0, &connected))
	// an offline probe keeps the last successful connection time
	require.NoError(t, s.Servers.UpdateStatus(ctx, id, models.ServerStatusOffline, testT0.Add(time.Minute), nil))

	got, err := s.Servers.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ServerStatusOffline, got.Status)
	require.NotNil(t, got.LastStatusCheckAt)
	assert.True(t, got.LastStatusCheckAt.Equal(testT0.Add(time.Minute)))
	require.NotNil(t, got.LastConnectedAt)
	assert.True(t, got.LastConnectedAt.Equal(testT0))

	err = s.Servers.UpdateStatus(ctx, 999, models.ServerStatusOnline, testT0, nil)
	assert.ErrorIs(t, err, ErrServerNotFound)
}
