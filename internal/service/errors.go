// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// Error taxonomy of the sync engine.
var (
	// ErrNetwork is transient: the request may succeed on retry or on
	// another server.
	ErrNetwork = errors.New("network error")
	// ErrAuth requires re-authentication and halts sync for the server.
	ErrAuth = errors.New("authentication failed")
	// ErrValidation is permanent: the server rejected the payload.
	ErrValidation = errors.New("server rejected the payload")
	// ErrConflictDetected is not a failure; the item needs resolution.
	ErrConflictDetected = errors.New("conflict detected")
	// ErrNoServerAvailable means every configured server is unreachable or
	// disabled.
	ErrNoServerAvailable = errors.New("no available servers")
)

var (
	ErrTokenExpired     = fmt.Errorf("%w: token is expired or invalid", ErrAuth)
	ErrWrongCredentials = fmt.Errorf("%w: invalid username/password", ErrAuth)
)

var (
	ErrSyncDisabled   = errors.New("sync is disabled")
	ErrSyncInProgress = errors.New("sync already in progress")

	ErrConflictNotFound        = store.ErrConflictNotFound
	ErrConflictAlreadyResolved = models.ErrConflictResolved
	ErrInvalidStrategy         = errors.New("invalid resolution strategy")
	ErrResolvedVersionRequired = errors.New("resolved version is required for this strategy")

	ErrServerNotFound     = store.ErrServerNotFound
	ErrServerDisabled     = errors.New("server is disabled")
	ErrMultipleDefaults   = errors.New("more than one default server configured")
	ErrNoServerConfigured = errors.New("no server configured")

	ErrRecordNotFound      = store.ErrRecordNotFound
	ErrUnknownRecordType   = errors.New("unknown record type")
	ErrInvalidRecord       = errors.New("invalid record")
	ErrRecordDeleted       = errors.New("record is deleted")
)
