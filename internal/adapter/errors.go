// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-recipe-sync/models"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("client unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServerError  = errors.New("server error")

	// ErrTransport marks failures that produced no HTTP response: refused
	// connections, DNS errors, timeouts and cancelled contexts.
	ErrTransport = errors.New("transport error")

	ErrInvalidBaseURL = errors.New("invalid server base url")
)

// AlreadyExistsError is returned by CreateRecord when the server already holds
// a record with the same natural key. Existing is the server's copy.
type AlreadyExistsError struct {
	Existing models.RemoteRecord
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("record already exists (id=%s, key=%s)", e.Existing.ID, e.Existing.NaturalKey)
}

// Unwrap lets errors.Is(err, ErrConflict) match an AlreadyExistsError.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrConflict
}
