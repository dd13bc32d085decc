// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// maxRetriesLimit keeps a misconfigured retry cap from turning the queue
// into an endless retry loop.
const maxRetriesLimit = 10

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.RequestTimeout <= 0 || cfg.Adapter.ProbeTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.HealthCheckInterval <= 0 || cfg.Workers.PurgeInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Sync.MaxRetries < 1 || cfg.Sync.MaxRetries > maxRetriesLimit {
		return ErrInvalidSyncConfigs
	}

	return validateServers(cfg)
}

func validateServers(cfg *ClientConfig) error {
	if len(cfg.Servers) == 0 {
		return ErrNoServersConfigured
	}

	defaults := 0
	seen := make(map[string]struct{}, len(cfg.Servers))
	for _, s := range cfg.Servers {
		u, err := url.Parse(s.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: bad base url %q", ErrInvalidServerConfigs, s.BaseURL)
		}
		key := strings.TrimRight(s.BaseURL, "/")
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate base url %q", ErrInvalidServerConfigs, s.BaseURL)
		}
		seen[key] = struct{}{}
		if s.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: more than one default server", ErrInvalidServerConfigs)
	}

	return nil
}
