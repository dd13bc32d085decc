// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "errors"

// Validation errors returned by [ClientConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAdapterConfigs indicates non-positive request or probe timeouts.
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates an empty or in-memory DSN.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidWorkerConfigs indicates a non-positive job interval.
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
	// ErrInvalidSyncConfigs indicates an out of range retry cap.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrNoServersConfigured indicates that no recipe server was configured.
	ErrNoServersConfigured = errors.New("no servers configured")
	// ErrInvalidServerConfigs indicates a malformed server list.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
)
