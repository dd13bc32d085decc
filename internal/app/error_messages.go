// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used by the recipe
// test server and the sync client.
//
// All Msg* constants are human-readable message strings that are written into
// HTTP error bodies ({"error": "..."}) by the server and matched by the client
// when it maps transport errors. Keeping them in one place ensures both sides
// agree on the wording.
package app

const (
	// MsgInvalidDataProvided is returned when the request body cannot be
	// decoded or fails basic validation (e.g. missing payload).
	MsgInvalidDataProvided = "invalid data provided"

	// MsgInvalidLoginPassword is returned when the supplied credentials do
	// not match any user.
	MsgInvalidLoginPassword = "invalid username/password"

	// MsgInternalServerError is returned when an unexpected server-side
	// failure occurs that the client cannot resolve.
	MsgInternalServerError = "internal server error"

	// MsgTokenIsExpiredOrInvalid is returned when a JWT bearer token is
	// either expired or cannot be verified. The client logs in again.
	MsgTokenIsExpiredOrInvalid = "token is expired or invalid"

	// MsgUnknownResource is returned for a record collection the server does
	// not serve.
	MsgUnknownResource = "unknown resource"

	// MsgRecordNotFound is returned when an update or delete targets a record
	// id the server does not know.
	MsgRecordNotFound = "record not found"

	// MsgRecordAlreadyExists is returned with the existing record when a
	// create request reuses a natural key.
	MsgRecordAlreadyExists = "record already exists"

	// MsgServiceUnavailable is returned while the server refuses traffic,
	// e.g. during maintenance.
	MsgServiceUnavailable = "service unavailable"
)
