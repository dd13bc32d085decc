// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

func newMemoryRepo(t *testing.T) (RemoteRecordRepository, *utils.ManualClock) {
	t.Helper()
	clock := utils.NewManualClock(testT0)
	return NewMemoryRecordRepository(clock), clock
}

func TestMemoryRecords_CreateAndGet(t *testing.T) {
	repo, _ := newMemoryRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{
		ID:         "client-chosen",
		NaturalKey: "pancakes",
		Payload:    []byte(`{"name":"Pancakes"}`),
	})
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", created.ID, "id is assigned by the server")
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.UpdatedAt.Equal(testT0))

	got, err := repo.Get(ctx, models.RecordTypeRecipe, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	// коллекции разных типов не пересекаются
	_, err = repo.Get(ctx, models.RecordTypeShoppingList, created.ID)
	assert.ErrorIs(t, err, ErrRemoteRecordNotFound)

	_, err = repo.Get(ctx, "DESSERT", created.ID)
	assert.Error(t, err)
}

func TestMemoryRecords_CreateDuplicateKeyReturnsExisting(t *testing.T) {
	repo, clock := newMemoryRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{NaturalKey: "soup", Payload: []byte(`{"name":"Soup"}`)})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	existing, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{NaturalKey: "soup", Payload: []byte(`{"name":"Other soup"}`)})
	require.ErrorIs(t, err, ErrNaturalKeyTaken)
	assert.Equal(t, first, existing)

	// без ключа дубликаты не отслеживаются
	a, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{Payload: []byte(`{}`)})
	require.NoError(t, err)
	b, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{Payload: []byte(`{}`)})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMemoryRecords_Update(t *testing.T) {
	repo, clock := newMemoryRepo(t)
	ctx := context.Background()

	soup, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{NaturalKey: "soup", Payload: []byte(`{"name":"Soup"}`)})
	require.NoError(t, err)
	salad, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{NaturalKey: "salad", Payload: []byte(`{"name":"Salad"}`)})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := repo.Update(ctx, models.RecordTypeRecipe, models.RemoteRecord{ID: soup.ID, Payload: []byte(`{"name":"Soup","servings":2}`)})
	require.NoError(t, err)
	assert.Equal(t, "soup", updated.NaturalKey, "empty key keeps the stored one")
	assert.True(t, updated.UpdatedAt.Equal(testT0.Add(time.Minute)))
	assert.JSONEq(t, `{"name":"Soup","servings":2}`, string(updated.Payload))

	// переименование на занятый ключ
	_, err = repo.Update(ctx, models.RecordTypeRecipe, models.RemoteRecord{ID: soup.ID, NaturalKey: "salad"})
	require.ErrorIs(t, err, ErrNaturalKeyTaken)

	// переименование освобождает старый ключ
	_, err = repo.Update(ctx, models.RecordTypeRecipe, models.RemoteRecord{ID: soup.ID, NaturalKey: "tomato-soup"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{NaturalKey: "soup"})
	require.NoError(t, err)

	_, err = repo.Update(ctx, models.RecordTypeRecipe, models.RemoteRecord{ID: "missing"})
	require.ErrorIs(t, err, ErrRemoteRecordNotFound)

	require.NoError(t, repo.Delete(ctx, models.RecordTypeRecipe, salad.ID))
	_, err = repo.Update(ctx, models.RecordTypeRecipe, models.RemoteRecord{ID: salad.ID})
	require.ErrorIs(t, err, ErrRemoteRecordNotFound, "tombstones cannot be updated")
}

func TestMemoryRecords_DeleteLeavesTombstone(t *testing.T) {
	repo, clock := newMemoryRepo(t)
	ctx := context.Background()

	soup, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{NaturalKey: "soup", Payload: []byte(`{"name":"Soup"}`)})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, repo.Delete(ctx, models.RecordTypeRecipe, soup.ID))
	require.ErrorIs(t, repo.Delete(ctx, models.RecordTypeRecipe, soup.ID), ErrRemoteRecordNotFound)
	require.ErrorIs(t, repo.Delete(ctx, models.RecordTypeRecipe, "missing"), ErrRemoteRecordNotFound)

	records, err := repo.List(ctx, models.RecordTypeRecipe, models.FilterWindow{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Deleted)
	assert.Empty(t, records[0].Payload)
	assert.True(t, records[0].UpdatedAt.Equal(testT0.Add(time.Minute)))

	// ключ удалённой записи снова свободен
	again, err := repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{NaturalKey: "soup"})
	require.NoError(t, err)
	assert.NotEqual(t, soup.ID, again.ID)
}

func TestMemoryRecords_ListOrderAndWindow(t *testing.T) {
	repo, clock := newMemoryRepo(t)
	ctx := context.Background()

	day := time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC)
	plan := func(d time.Time, slot string) models.RemoteRecord {
		clock.Advance(time.Second)
		rec, err := repo.Create(ctx, models.RecordTypeMealPlan, models.RemoteRecord{
			NaturalKey: d.Format("2006-01-02") + ":" + slot,
			Payload:    []byte(`{"date":"` + d.Format(time.RFC3339) + `","entryType":"` + slot + `"}`),
		})
		require.NoError(t, err)
		return rec
	}

	before := plan(day.AddDate(0, 0, -8), "dinner")
	first := plan(day.AddDate(0, 0, -7), "lunch")
	last := plan(day.AddDate(0, 0, 14), "dinner")
	after := plan(day.AddDate(0, 0, 15), "dinner")

	// удалённый план остаётся в окне своего дня
	clock.Advance(time.Second)
	require.NoError(t, repo.Delete(ctx, models.RecordTypeMealPlan, first.ID))

	from, to := day.AddDate(0, 0, -7), day.AddDate(0, 0, 15)
	records, err := repo.List(ctx, models.RecordTypeMealPlan, models.FilterWindow{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, last.ID, records[0].ID, "oldest change first")
	assert.Equal(t, first.ID, records[1].ID)
	assert.True(t, records[1].Deleted)

	all, err := repo.List(ctx, models.RecordTypeMealPlan, models.FilterWindow{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	ids := []string{all[0].ID, all[1].ID, all[2].ID, all[3].ID}
	assert.Equal(t, []string{before.ID, last.ID, after.ID, first.ID}, ids)

	// для остальных типов окно применяется к времени изменения
	soupAt := clock.Now().Add(time.Second)
	clock.Set(soupAt)
	_, err = repo.Create(ctx, models.RecordTypeRecipe, models.RemoteRecord{NaturalKey: "soup"})
	require.NoError(t, err)
	records, err = repo.List(ctx, models.RecordTypeRecipe, models.FilterWindow{To: &soupAt})
	require.NoError(t, err)
	assert.Empty(t, records)
	records, err = repo.List(ctx, models.RecordTypeRecipe, models.FilterWindow{From: &soupAt})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryRecords_ConcurrentCreateSameKey(t *testing.T) {
	repo := NewMemoryRecordRepository(nil)
	ctx := context.Background()

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(ctx, models.RecordTypeShoppingList, models.RemoteRecord{NaturalKey: "weekly"}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}
