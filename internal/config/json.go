// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] for the JSON file format.
type StructuredJSONConfig struct {
	App struct {
		DeviceID string `json:"device_id"`
	} `json:"app,omitempty"`

	Auth struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"auth,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Adapter struct {
		RequestTimeout Duration `json:"request_timeout"`
		ProbeTimeout   Duration `json:"probe_timeout"`
	} `json:"adapter,omitempty"`

	Workers struct {
		SyncInterval        Duration `json:"sync_interval"`
		HealthCheckInterval Duration `json:"health_check_interval"`
		PurgeInterval       Duration `json:"purge_interval"`
	} `json:"workers,omitempty"`

	Sync struct {
		Disabled           bool     `json:"disabled"`
		MaxRetries         int      `json:"max_retries"`
		FailedRetention    Duration `json:"failed_retention"`
		MealPlanPastDays   int      `json:"meal_plan_past_days"`
		MealPlanFutureDays int      `json:"meal_plan_future_days"`
	} `json:"sync,omitempty"`

	Servers []Server `json:"servers,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App:  App{DeviceID: jsonCfg.App.DeviceID},
		Auth: Auth{Username: jsonCfg.Auth.Username, Password: jsonCfg.Auth.Password},
		Storage: Storage{
			DB: DB{DSN: jsonCfg.Storage.DB.DSN},
		},
		Adapter: Adapter{
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
			ProbeTimeout:   time.Duration(jsonCfg.Adapter.ProbeTimeout),
		},
		Workers: Workers{
			SyncInterval:        time.Duration(jsonCfg.Workers.SyncInterval),
			HealthCheckInterval: time.Duration(jsonCfg.Workers.HealthCheckInterval),
			PurgeInterval:       time.Duration(jsonCfg.Workers.PurgeInterval),
		},
		Sync: Sync{
			Disabled:           jsonCfg.Sync.Disabled,
			MaxRetries:         jsonCfg.Sync.MaxRetries,
			FailedRetention:    time.Duration(jsonCfg.Sync.FailedRetention),
			MealPlanPastDays:   jsonCfg.Sync.MealPlanPastDays,
			MealPlanFutureDays: jsonCfg.Sync.MealPlanFutureDays,
		},
		Servers: jsonCfg.Servers,
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
