// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-recipe-sync/models"
)

func TestBuildListPendingChangesQuery(t *testing.T) {
	tests := []struct {
		name       string
		filter     PendingFilter
		checkQuery func(t *testing.T, query string, args []any)
	}{
		{
			name:   "no filter",
			filter: PendingFilter{},
			checkQuery: func(t *testing.T, query string, args []any) {
				q := strings.ToLower(query)
				require.Contains(t, q, "from pending_changes")
				require.NotContains(t, q, "where")
				require.Contains(t, q, "order by created_at asc, id asc")
				require.Empty(t, args)
			},
		},
		{
			name: "status and types",
			filter: PendingFilter{
				Statuses:    []models.PendingStatus{models.PendingStatusPending},
				RecordTypes: []models.RecordType{models.RecordTypeRecipe, models.RecordTypeMealPlan},
			},
			checkQuery: func(t *testing.T, query string, args []any) {
				q := strings.ToLower(query)
				require.Contains(t, q, "status in (?)")
				require.Contains(t, q, "record_type in (?,?)")
				require.Equal(t, []any{"PENDING", "RECIPE", "MEAL_PLAN"}, args)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildListPendingChangesQuery(tt.filter)
			require.NoError(t, err)
			tt.checkQuery(t, query, args)
		})
	}
}

func TestBuildCountPendingChangesQuery(t *testing.T) {
	query, args, err := buildCountPendingChangesQuery(PendingFilter{
		Statuses: []models.PendingStatus{models.PendingStatusFailed},
	})
	require.NoError(t, err)
	require.Contains(t, query, "COUNT(*)")
	require.Equal(t, []any{"FAILED"}, args)
}

func TestBuildRetryFailedQuery(t *testing.T) {
	query, args, err := buildRetryFailedQuery(nil)
	require.NoError(t, err)
	require.NotContains(t, query, "id IN")
	require.Len(t, args, 4)

	query, args, err = buildRetryFailedQuery([]int64{3, 4})
	require.NoError(t, err)
	require.Contains(t, query, "id IN (?,?)")
	require.Len(t, args, 6)
}

func TestBuildPurgePendingChangesQuery(t *testing.T) {
	query, args, err := buildPurgePendingChangesQuery(testT0)
	require.NoError(t, err)
	q := strings.ToLower(query)
	require.Contains(t, q, "delete from pending_changes")
	require.Contains(t, q, "coalesce(last_attempt_at, created_at) < ?")
	require.Equal(t, "FAILED", args[0])
}

func TestBuildListLocalRecordsQuery(t *testing.T) {
	query, args, err := buildListLocalRecordsQuery(RecordFilter{RecordType: models.RecordTypeRecipe, OnlyUnsynced: true})
	require.NoError(t, err)
	q := strings.ToLower(query)
	require.Contains(t, q, "record_type = ?")
	require.Contains(t, q, "deleted = ?")
	require.Contains(t, q, "is_synced = ?")
	require.Equal(t, []any{"RECIPE", false, false}, args)

	query, args, err = buildListLocalRecordsQuery(RecordFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.NotContains(t, strings.ToLower(query), "where")
	require.Empty(t, args)
}

func TestBuildGetLocalRecordQuery(t *testing.T) {
	query, args, err := buildGetLocalRecordQuery(models.RecordTypeShoppingList, "server_id", "s1")
	require.NoError(t, err)
	require.Contains(t, query, "LIMIT 1")
	require.ElementsMatch(t, []any{"SHOPPING_LIST", "s1"}, args)
}

func TestBuildConflictQueries(t *testing.T) {
	query, args, err := buildListConflictsQuery(ConflictFilter{
		Types:    []models.ConflictType{models.ConflictTypeRecipe},
		OnlyOpen: true,
	})
	require.NoError(t, err)
	require.Contains(t, query, "conflict_type IN (?)")
	require.Contains(t, query, "resolved = ?")
	require.Equal(t, []any{"RECIPE", false}, args)

	query, args, err = buildCountOpenConflictsQuery(nil)
	require.NoError(t, err)
	require.Contains(t, query, "COUNT(*)")
	require.Equal(t, []any{false}, args)

	query, _, err = buildPurgeResolvedConflictsQuery(testT0)
	require.NoError(t, err)
	require.Contains(t, strings.ToLower(query), "delete from conflicts")
}
