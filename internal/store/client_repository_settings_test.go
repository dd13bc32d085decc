// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-recipe-sync/models"
)

func TestSettings_GetSetDelete(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()

	_, err := s.Settings.Get(ctx, SettingDeviceID)
	assert.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, s.Settings.Set(ctx, SettingDeviceID, "d1"))
	require.NoError(t, s.Settings.Set(ctx, SettingDeviceID, "d2"))

	v, err := s.Settings.Get(ctx, SettingDeviceID)
	require.NoError(t, err)
	assert.Equal(t, "d2", v)

	require.NoError(t, s.Settings.Delete(ctx, SettingDeviceID))
	_, err = s.Settings.Get(ctx, SettingDeviceID)
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestSettings_Time(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()
	key := SettingLastSyncAt(models.RecordTypeRecipe)

	got, err := s.Settings.GetTime(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Settings.SetTime(ctx, key, testT0))
	got, err = s.Settings.GetTime(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(testT0))

	require.NoError(t, s.Settings.Set(ctx, key, "yesterday"))
	_, err = s.Settings.GetTime(ctx, key)
	assert.Error(t, err)
}

func TestSettingLastSyncAtKey(t *testing.T) {
	assert.Equal(t, "last_sync_at:MEAL_PLAN", SettingLastSyncAt(models.RecordTypeMealPlan))
}
