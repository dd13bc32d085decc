// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container of the recipe
// sync client. It is populated by merging values from environment variables,
// command-line flags and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds device-level settings.
	App App `envPrefix:"APP_"`

	// Auth holds the account used to log in to every configured server.
	Auth Auth `envPrefix:"AUTH_"`

	// Storage holds the local SQLite database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds outbound transport timeouts.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds background job intervals.
	Workers Workers `envPrefix:"WORKERS_"`

	// Sync holds retry and window settings of the sync engine.
	Sync Sync `envPrefix:"SYNC_"`

	// Servers lists configured endpoints. Only the JSON file can describe
	// them in full; env and flags provide ServerURLs instead.
	Servers []Server

	// ServerURLs is a shorthand server list. The first URL becomes the
	// default server and priorities decrease in list order.
	// Env: SERVERS (comma separated)
	ServerURLs []string `env:"SERVERS" envSeparator:","`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds device-level configuration.
type App struct {
	// DeviceID identifies this installation in PendingChange.OriginDeviceID.
	// When empty a generated id is persisted in the local database.
	// Env: APP_DEVICE_ID
	DeviceID string `env:"DEVICE_ID"`
}

// Auth holds the recipe server account.
type Auth struct {
	// Env: AUTH_USERNAME
	Username string `env:"USERNAME"`
	// Env: AUTH_PASSWORD
	Password string `env:"PASSWORD"`
}

// Storage groups the configuration of the local persistence backend.
type Storage struct {
	// DB holds the SQLite connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite file path, e.g. "recipes.db".
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Adapter holds timeouts for calls to recipe servers.
type Adapter struct {
	// RequestTimeout bounds every list/create/update/delete/login call.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// ProbeTimeout bounds a single health probe.
	// Env: ADAPTER_PROBE_TIMEOUT
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT"`
}

// Workers holds configuration for background jobs.
type Workers struct {
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
	// Env: WORKERS_HEALTH_CHECK_INTERVAL
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL"`
	// Env: WORKERS_PURGE_INTERVAL
	PurgeInterval time.Duration `env:"PURGE_INTERVAL"`
}

// Sync holds sync engine settings.
type Sync struct {
	// Disabled turns every sync session into a DISABLED no-op.
	// Env: SYNC_DISABLED
	Disabled bool `env:"DISABLED"`

	// MaxRetries caps upload attempts per pending change.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// FailedRetention is how long permanently failed changes are kept.
	// Env: SYNC_FAILED_RETENTION
	FailedRetention time.Duration `env:"FAILED_RETENTION"`

	// MealPlanPastDays and MealPlanFutureDays bound the meal plan download
	// window around today.
	// Env: SYNC_MEAL_PLAN_PAST_DAYS, SYNC_MEAL_PLAN_FUTURE_DAYS
	MealPlanPastDays   int `env:"MEAL_PLAN_PAST_DAYS"`
	MealPlanFutureDays int `env:"MEAL_PLAN_FUTURE_DAYS"`
}

// Server describes one configured recipe server. The negative booleans keep
// the zero value meaning "enabled".
type Server struct {
	Name         string `json:"name"`
	BaseURL      string `json:"base_url"`
	Priority     int    `json:"priority"`
	Default      bool   `json:"default"`
	Disabled     bool   `json:"disabled"`
	SyncDisabled bool   `json:"sync_disabled"`
}

// GetStructuredConfig loads and merges the configuration from all sources.
// For every field the first source that sets it wins:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
