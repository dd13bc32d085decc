// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-recipe-sync/internal/config"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// newTestAdapter создаёт адаптер с короткими таймаутами для тестов
func newTestAdapter(t *testing.T) *httpServerAdapter {
	t.Helper()
	cfg := config.ClientAdapter{RequestTimeout: 2 * time.Second, ProbeTimeout: 200 * time.Millisecond}
	return NewHTTPServerAdapter(cfg, logger.Nop()).(*httpServerAdapter)
}

var testRecord = models.RemoteRecord{
	ID:         "srv-1",
	NaturalKey: "tomato-soup",
	UpdatedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	Payload:    json.RawMessage(`{"name":"Tomato soup"}`),
}

// ── Login ────────────────────────────────────────────────────────────────────

func TestLogin_Success(t *testing.T) {
	jwtToken, exp, err := utils.GenerateJWTToken("recipes", "alice", time.Hour, "secret")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)

		var creds models.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "alice", creds.Username)
		assert.Equal(t, "pw", creds.Password)

		_, _ = utils.WriteJSON(w, models.Token{AccessToken: jwtToken, TokenType: "bearer"}, http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAdapter(t)
	token, err := a.Login(context.Background(), srv.URL+"/", models.Credentials{Username: "alice", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, jwtToken, token.AccessToken)
	require.NotNil(t, token.ExpiresAt)
	assert.WithinDuration(t, exp, *token.ExpiresAt, time.Second)
}

func TestLogin_TokenFromHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Authorization", "Bearer opaque-token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAdapter(t)
	token, err := a.Login(context.Background(), srv.URL, models.Credentials{Username: "alice"})

	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token.AccessToken)
	assert.Nil(t, token.ExpiresAt)
}

func TestLogin_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, "invalid username/password", http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := newTestAdapter(t)
	_, err := a.Login(context.Background(), srv.URL, models.Credentials{Username: "alice"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid username/password")
}

func TestLogin_InvalidBaseURL(t *testing.T) {
	a := newTestAdapter(t)

	_, err := a.Login(context.Background(), "  ", models.Credentials{})
	assert.ErrorIs(t, err, ErrInvalidBaseURL)

	_, err = a.Login(context.Background(), "http://", models.Credentials{})
	assert.ErrorIs(t, err, ErrInvalidBaseURL)
}

// ── Ping ─────────────────────────────────────────────────────────────────────

func TestPing_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "ok", status: http.StatusOK},
		{name: "no content", status: http.StatusNoContent},
		{name: "bad request", status: http.StatusBadRequest, wantErr: ErrBadRequest},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, wantErr: ErrBadRequest},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, wantErr: ErrForbidden},
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "conflict", status: http.StatusConflict, wantErr: ErrConflict},
		{name: "too many requests", status: http.StatusTooManyRequests, wantErr: ErrServerError},
		{name: "internal", status: http.StatusInternalServerError, wantErr: ErrServerError},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantErr: ErrServerError},
		{name: "teapot", status: http.StatusTeapot, wantErr: ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/health", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newTestAdapter(t).Ping(context.Background(), srv.URL)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPing_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := newTestAdapter(t).Ping(context.Background(), srv.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

// Запросы к данным ограничены RequestTimeout так же, как проверка здоровья.
func TestRecordCalls_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := NewHTTPServerAdapter(config.ClientAdapter{RequestTimeout: 50 * time.Millisecond}, logger.Nop())
	target := Target{BaseURL: srv.URL, Token: "tok"}

	tests := []struct {
		name string
		call func(ctx context.Context) error
	}{
		{"list", func(ctx context.Context) error {
			_, err := a.ListRecords(ctx, target, models.RecordTypeRecipe, models.FilterWindow{})
			return err
		}},
		{"create", func(ctx context.Context) error {
			_, err := a.CreateRecord(ctx, target, models.RecordTypeRecipe, testRecord)
			return err
		}},
		{"update", func(ctx context.Context) error {
			_, err := a.UpdateRecord(ctx, target, models.RecordTypeRecipe, testRecord)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			err := tt.call(context.Background())

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransport)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestAdapter(t).Ping(context.Background(), url)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

// ── ListRecords ──────────────────────────────────────────────────────────────

func TestListRecords_WindowAndAuth(t *testing.T) {
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/mealplans", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-05-01T00:00:00Z", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-06-01T00:00:00Z", r.URL.Query().Get("to"))

		_, _ = utils.WriteJSON(w, []models.RemoteRecord{testRecord}, http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAdapter(t)
	got, err := a.ListRecords(context.Background(), Target{BaseURL: srv.URL, Token: "tok"},
		models.RecordTypeMealPlan, models.FilterWindow{From: &from, To: &to})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, testRecord.ID, got[0].ID)
	assert.Equal(t, testRecord.NaturalKey, got[0].NaturalKey)
	assert.True(t, testRecord.UpdatedAt.Equal(got[0].UpdatedAt))
	assert.JSONEq(t, string(testRecord.Payload), string(got[0].Payload))
}

func TestListRecords_UnboundedWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recipes", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		_, _ = utils.WriteJSON(w, []models.RemoteRecord{}, http.StatusOK)
	}))
	defer srv.Close()

	got, err := newTestAdapter(t).ListRecords(context.Background(), Target{BaseURL: srv.URL},
		models.RecordTypeRecipe, models.FilterWindow{})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListRecords_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := newTestAdapter(t).ListRecords(context.Background(), Target{BaseURL: srv.URL},
		models.RecordTypeRecipe, models.FilterWindow{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode list response")
}

func TestListRecords_UnknownType(t *testing.T) {
	_, err := newTestAdapter(t).ListRecords(context.Background(), Target{BaseURL: "http://localhost"},
		models.RecordType("BOOK"), models.FilterWindow{})

	assert.ErrorIs(t, err, ErrBadRequest)
}

// ── CreateRecord ─────────────────────────────────────────────────────────────

func TestCreateRecord_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/recipes", r.URL.Path)

		var body models.RemoteRecord
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Empty(t, body.ID)
		assert.Equal(t, "tomato-soup", body.NaturalKey)

		_, _ = utils.WriteJSON(w, testRecord, http.StatusCreated)
	}))
	defer srv.Close()

	in := testRecord
	in.ID = "local-id-must-not-leak"
	got, err := newTestAdapter(t).CreateRecord(context.Background(), Target{BaseURL: srv.URL, Token: "tok"},
		models.RecordTypeRecipe, in)

	require.NoError(t, err)
	assert.Equal(t, "srv-1", got.ID)
}

func TestCreateRecord_AlreadyExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = utils.WriteJSON(w, map[string]any{
			"error":    "recipe with this slug already exists",
			"existing": testRecord,
		}, http.StatusConflict)
	}))
	defer srv.Close()

	_, err := newTestAdapter(t).CreateRecord(context.Background(), Target{BaseURL: srv.URL},
		models.RecordTypeRecipe, testRecord)

	require.Error(t, err)
	var exists *AlreadyExistsError
	require.True(t, errors.As(err, &exists))
	assert.Equal(t, "srv-1", exists.Existing.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateRecord_PlainConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, "conflict", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := newTestAdapter(t).CreateRecord(context.Background(), Target{BaseURL: srv.URL},
		models.RecordTypeRecipe, testRecord)

	require.Error(t, err)
	var exists *AlreadyExistsError
	assert.False(t, errors.As(err, &exists))
	assert.ErrorIs(t, err, ErrConflict)
}

// ── UpdateRecord / DeleteRecord ──────────────────────────────────────────────

func TestUpdateRecord_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/shoppinglists/srv-1", r.URL.Path)
		_, _ = utils.WriteJSON(w, testRecord, http.StatusOK)
	}))
	defer srv.Close()

	got, err := newTestAdapter(t).UpdateRecord(context.Background(), Target{BaseURL: srv.URL},
		models.RecordTypeShoppingList, testRecord)

	require.NoError(t, err)
	assert.Equal(t, "srv-1", got.ID)
}

func TestUpdateRecord_WithoutID(t *testing.T) {
	_, err := newTestAdapter(t).UpdateRecord(context.Background(), Target{BaseURL: "http://localhost"},
		models.RecordTypeRecipe, models.RemoteRecord{})

	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestDeleteRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path == "/api/recipes/gone" {
			utils.WriteError(w, "not found", http.StatusNotFound)
			return
		}
		assert.Equal(t, "/api/recipes/srv-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newTestAdapter(t)
	target := Target{BaseURL: srv.URL}

	require.NoError(t, a.DeleteRecord(context.Background(), target, models.RecordTypeRecipe, "srv-1"))

	err := a.DeleteRecord(context.Background(), target, models.RecordTypeRecipe, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	err = a.DeleteRecord(context.Background(), target, models.RecordTypeRecipe, "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestNormalizeBaseURL(t *testing.T) {
	got, err := normalizeBaseURL("recipes.local:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://recipes.local:8080", got)

	got, err = normalizeBaseURL("https://recipes.example.com///")
	require.NoError(t, err)
	assert.Equal(t, "https://recipes.example.com", got)
}
