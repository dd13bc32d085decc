// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"net/url"
	"os"
	"strings"
	"time"
)

// URLList collects server URLs from repeated or comma separated flag values.
// It implements the flag.Value interface.
type URLList []string

// String joins the collected URLs with commas.
func (l *URLList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

// Set validates each comma separated URL and appends it to the list.
func (l *URLList) Set(s string) error {
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("server url must start with http:// or https://")
		}
		if u.Host == "" {
			return errors.New("server url must include a host")
		}
		*l = append(*l, strings.TrimRight(raw, "/"))
	}
	return nil
}

// ParseFlags parses the process command line.
//
// Flags:
//
//	-s/-servers server URLs (repeatable, comma separated)
//	-d database DSN (SQLite file path)
//	-c/-config json file path with configs
//	-u username
//	-p password
//	-device-id device identifier
//	-request-timeout request timeout (e.g., "15s")
//	-probe-timeout health probe timeout (e.g., "5s")
//	-sync-interval background sync interval (e.g., "5m")
//	-health-interval background health check interval (e.g., "1m")
//	-max-retries upload attempts per pending change
//	-sync-disabled turn synchronization off
//
// The remaining positional arguments are available through flag.Args.
func ParseFlags() (*StructuredConfig, error) {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) (*StructuredConfig, error) {
	var servers URLList
	var databaseDSN string
	var jsonConfigPath string
	var username, password string
	var deviceID string
	var requestTimeout, probeTimeout time.Duration
	var syncInterval, healthInterval time.Duration
	var maxRetries int
	var syncDisabled bool

	fs.Var(&servers, "s", "Server URLs (repeatable, comma separated)")
	fs.Var(&servers, "servers", "Server URLs (alias)")
	fs.StringVar(&databaseDSN, "d", "", "Database DSN")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&username, "u", "", "Username")
	fs.StringVar(&password, "p", "", "Password")
	fs.StringVar(&deviceID, "device-id", "", "Device identifier")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s)")
	fs.DurationVar(&probeTimeout, "probe-timeout", 0, "Health probe timeout (e.g., 5s)")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g., 5m)")
	fs.DurationVar(&healthInterval, "health-interval", 0, "Background health check interval (e.g., 1m)")
	fs.IntVar(&maxRetries, "max-retries", 0, "Upload attempts per pending change")
	fs.BoolVar(&syncDisabled, "sync-disabled", false, "Turn synchronization off")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		App:     App{DeviceID: deviceID},
		Auth:    Auth{Username: username, Password: password},
		Storage: Storage{DB: DB{DSN: databaseDSN}},
		Adapter: Adapter{
			RequestTimeout: requestTimeout,
			ProbeTimeout:   probeTimeout,
		},
		Workers: Workers{
			SyncInterval:        syncInterval,
			HealthCheckInterval: healthInterval,
		},
		Sync: Sync{
			Disabled:   syncDisabled,
			MaxRetries: maxRetries,
		},
		ServerURLs:   []string(servers),
		JSONFilePath: jsonConfigPath,
	}, nil
}
