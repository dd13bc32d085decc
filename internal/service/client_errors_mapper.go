// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-recipe-sync/internal/adapter"
	"github.com/MKhiriev/go-recipe-sync/internal/app"
)

// mapAdapterError translates the adapter's transport error into the sync
// engine taxonomy. The adapter error stays in the chain, so callers can still
// match adapter sentinels.
func mapAdapterError(err error) error {
	if err == nil {
		return nil
	}

	// a cancelled session is neither a network nor a server failure
	if errors.Is(err, context.Canceled) {
		return err
	}

	// already classified, e.g. a login error coming back through the registry
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrValidation) || errors.Is(err, ErrNoServerAvailable) {
		return err
	}

	msg := extractBody(err)

	switch {
	case errors.Is(err, adapter.ErrTransport),
		errors.Is(err, adapter.ErrServerError),
		errors.Is(err, adapter.ErrInvalidBaseURL):
		return fmt.Errorf("%w: %w", ErrNetwork, err)

	case errors.Is(err, adapter.ErrUnauthorized):
		switch msg {
		case app.MsgInvalidLoginPassword:
			return fmt.Errorf("%w: %w", ErrWrongCredentials, err)
		case app.MsgTokenIsExpiredOrInvalid:
			return fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %w", ErrAuth, err)

	case errors.Is(err, adapter.ErrForbidden),
		errors.Is(err, adapter.ErrBadRequest),
		errors.Is(err, adapter.ErrNotFound),
		errors.Is(err, adapter.ErrConflict):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	// unknown failures (e.g. an undecodable body) are treated as transient
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// extractBody extracts the body from a message of the form "bad request: <body>"
func extractBody(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx != -1 {
		return msg[idx+2:]
	}
	return msg
}

// transient reports whether err should feed the retry path.
func transient(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// permanent reports whether err marks the item FAILED regardless of retries.
func permanent(err error) bool {
	return errors.Is(err, ErrValidation)
}
