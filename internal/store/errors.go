// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by repository methods. Callers match them with
// [errors.Is].
var (
	// ErrPendingChangeNotFound is returned when a queue operation targets an
	// entry that does not exist or is not in the expected status.
	ErrPendingChangeNotFound = errors.New("pending change was not found")

	// ErrRecordNotFound is returned when no local record matches the lookup.
	ErrRecordNotFound = errors.New("local record was not found")

	// ErrConflictNotFound is returned when no conflict case matches the id.
	ErrConflictNotFound = errors.New("conflict was not found")

	// ErrServerNotFound is returned when no server profile matches the id.
	ErrServerNotFound = errors.New("server was not found")

	// ErrSettingNotFound is returned when a settings key has no value.
	ErrSettingNotFound = errors.New("setting was not found")

	// ErrDuplicateBaseURL is returned when two server profiles share a base URL.
	ErrDuplicateBaseURL = errors.New("server base url already exists")

	// ErrRemoteRecordNotFound is returned by the server-side repository when
	// no live record has the id.
	ErrRemoteRecordNotFound = errors.New("remote record was not found")

	// ErrNaturalKeyTaken is returned when a live record already holds the
	// natural key of a new or renamed record.
	ErrNaturalKeyTaken = errors.New("natural key is already taken")
)

// Low-level database operation errors, wrapped together with the driver error.
var (
	ErrBuildingSQLQuery     = errors.New("error building sql query")
	ErrExecutingQuery       = errors.New("error executing sql query")
	ErrBeginningTransaction = errors.New("failed to begin transaction")
	ErrCommitingTransaction = errors.New("failed to commit transaction")
	ErrExecutingStatement   = errors.New("failed to execute statement")
	ErrScanningRow          = errors.New("failed to scan row")
	ErrScanningRows         = errors.New("failed to scan rows")
)
