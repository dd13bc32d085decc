// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/MKhiriev/go-recipe-sync/models"
)

// Defaults applied by [GetClientConfig] to unset fields.
const (
	DefaultRequestTimeout      = 15 * time.Second
	DefaultProbeTimeout        = 5 * time.Second
	DefaultSyncInterval        = 5 * time.Minute
	DefaultHealthCheckInterval = time.Minute
	DefaultPurgeInterval       = time.Hour
	DefaultFailedRetention     = 30 * 24 * time.Hour
	DefaultMealPlanPastDays    = 7
	DefaultMealPlanFutureDays  = 30
	DefaultDSN                 = "recipes.db"
)

// ClientApp holds device-level settings.
type ClientApp struct {
	DeviceID string
}

// ClientAdapter holds network settings used by the transport layer.
type ClientAdapter struct {
	// RequestTimeout is the timeout of every data and login request.
	RequestTimeout time.Duration
	// ProbeTimeout is the timeout of a single health probe.
	ProbeTimeout time.Duration
	// Credentials are used to log in to every server.
	Credentials models.Credentials
	// UserAgent is sent with every request; set from the build info.
	UserAgent string
}

// ClientDB contains local database connection settings.
type ClientDB struct {
	// DSN is the SQLite file path.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	DB ClientDB
}

// ClientWorkers contains background job settings.
type ClientWorkers struct {
	SyncInterval        time.Duration
	HealthCheckInterval time.Duration
	PurgeInterval       time.Duration
}

// ClientSync contains sync engine settings.
type ClientSync struct {
	Enabled            bool
	MaxRetries         int
	FailedRetention    time.Duration
	MealPlanPastDays   int
	MealPlanFutureDays int
}

// ClientConfig is the validated client configuration.
type ClientConfig struct {
	App     ClientApp
	Adapter ClientAdapter
	Storage ClientStorage
	Workers ClientWorkers
	Sync    ClientSync
	// Servers are seeded into the server registry at startup.
	Servers []models.ServerProfile
}

// GetClientConfig loads the merged configuration, applies defaults and
// validates the result.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return NewClientConfig(cfg)
}

// NewClientConfig maps a structured config onto a [ClientConfig].
func NewClientConfig(cfg *StructuredConfig) (*ClientConfig, error) {
	clientCfg := &ClientConfig{
		App: ClientApp{DeviceID: cfg.App.DeviceID},
		Adapter: ClientAdapter{
			RequestTimeout: orDuration(cfg.Adapter.RequestTimeout, DefaultRequestTimeout),
			ProbeTimeout:   orDuration(cfg.Adapter.ProbeTimeout, DefaultProbeTimeout),
			Credentials: models.Credentials{
				Username: cfg.Auth.Username,
				Password: cfg.Auth.Password,
			},
		},
		Storage: ClientStorage{
			DB: ClientDB{DSN: orString(cfg.Storage.DB.DSN, DefaultDSN)},
		},
		Workers: ClientWorkers{
			SyncInterval:        orDuration(cfg.Workers.SyncInterval, DefaultSyncInterval),
			HealthCheckInterval: orDuration(cfg.Workers.HealthCheckInterval, DefaultHealthCheckInterval),
			PurgeInterval:       orDuration(cfg.Workers.PurgeInterval, DefaultPurgeInterval),
		},
		Sync: ClientSync{
			Enabled:            !cfg.Sync.Disabled,
			MaxRetries:         orInt(cfg.Sync.MaxRetries, models.MaxRetries),
			FailedRetention:    orDuration(cfg.Sync.FailedRetention, DefaultFailedRetention),
			MealPlanPastDays:   orInt(cfg.Sync.MealPlanPastDays, DefaultMealPlanPastDays),
			MealPlanFutureDays: orInt(cfg.Sync.MealPlanFutureDays, DefaultMealPlanFutureDays),
		},
		Servers: serverProfiles(cfg),
	}

	return clientCfg, clientCfg.validate()
}

// serverProfiles prefers the detailed JSON list and falls back to ServerURLs.
func serverProfiles(cfg *StructuredConfig) []models.ServerProfile {
	if len(cfg.Servers) > 0 {
		profiles := make([]models.ServerProfile, 0, len(cfg.Servers))
		for _, s := range cfg.Servers {
			profiles = append(profiles, models.ServerProfile{
				Name:        orString(s.Name, hostOf(s.BaseURL)),
				BaseURL:     s.BaseURL,
				Priority:    s.Priority,
				Enabled:     !s.Disabled,
				IsDefault:   s.Default,
				Status:      models.ServerStatusUnknown,
				SyncEnabled: !s.SyncDisabled,
			})
		}
		return profiles
	}

	profiles := make([]models.ServerProfile, 0, len(cfg.ServerURLs))
	for i, raw := range cfg.ServerURLs {
		profiles = append(profiles, models.ServerProfile{
			Name:        hostOf(raw),
			BaseURL:     raw,
			Priority:    len(cfg.ServerURLs) - i,
			Enabled:     true,
			IsDefault:   i == 0,
			Status:      models.ServerStatusUnknown,
			SyncEnabled: true,
		})
	}
	return profiles
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
