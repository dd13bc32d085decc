// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport layer used to talk to recipe servers.
//
// The primary abstraction is [ServerAdapter], which decouples the sync engine
// from the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPServerAdapter]). Every call names the server it targets, so one
// adapter serves all configured servers and failover never rebuilds it.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic error
// handling (e.g. [ErrConflict] for 409, [ErrUnauthorized] for 401). Failures
// that never produced a response wrap [ErrTransport].
package adapter

import (
	"context"

	"github.com/MKhiriev/go-recipe-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// Target addresses one recipe server on behalf of one session.
type Target struct {
	// BaseURL is the server root, e.g. "https://recipes.example.com".
	BaseURL string
	// Token is the bearer token obtained from Login for this server.
	Token string
}

// ServerAdapter defines transport-agnostic communication with recipe servers.
// Implementations are responsible for serialisation, authentication headers,
// per-call timeouts and mapping transport-level errors to the sentinel values
// defined in this package.
type ServerAdapter interface {
	// Login authenticates against the server at baseURL and returns the
	// issued bearer token with its expiry, if the token carries one.
	Login(ctx context.Context, baseURL string, creds models.Credentials) (models.Token, error)

	// Ping performs one health round trip to the server at baseURL. It does
	// not require authentication and uses the probe timeout.
	Ping(ctx context.Context, baseURL string) error

	// ListRecords returns the remote records of recordType inside window.
	// A zero window lists everything.
	ListRecords(ctx context.Context, target Target, recordType models.RecordType, window models.FilterWindow) ([]models.RemoteRecord, error)

	// CreateRecord creates record and returns the stored version carrying the
	// server-assigned id. When a record with the same natural key already
	// exists the returned error is an [*AlreadyExistsError] holding it.
	CreateRecord(ctx context.Context, target Target, recordType models.RecordType, record models.RemoteRecord) (models.RemoteRecord, error)

	// UpdateRecord replaces the record identified by record.ID and returns
	// the stored version.
	UpdateRecord(ctx context.Context, target Target, recordType models.RecordType, record models.RemoteRecord) (models.RemoteRecord, error)

	// DeleteRecord deletes the record with the given server id. Returns
	// [ErrNotFound] (wrapped) if the server does not know it.
	DeleteRecord(ctx context.Context, target Target, recordType models.RecordType, serverID string) error
}
