// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// ServerStatus is the last observed health of a server.
type ServerStatus string

const (
	ServerStatusOnline  ServerStatus = "ONLINE"
	ServerStatusOffline ServerStatus = "OFFLINE"
	ServerStatusUnknown ServerStatus = "UNKNOWN"
)

// ServerProfile is one configured remote endpoint.
//
// IsDefault is operator configuration and is never changed by failover;
// Status, LastStatusCheckAt and LastConnectedAt are owned by the registry.
type ServerProfile struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	BaseURL           string       `json:"base_url"`
	Priority          int          `json:"priority"`
	Enabled           bool         `json:"enabled"`
	IsDefault         bool         `json:"is_default"`
	Status            ServerStatus `json:"status"`
	LastStatusCheckAt *time.Time   `json:"last_status_check_at,omitempty"`
	LastConnectedAt   *time.Time   `json:"last_connected_at,omitempty"`
	SyncEnabled       bool         `json:"sync_enabled"`
}

// Online reports whether the last probe saw the server reachable.
func (s ServerProfile) Online() bool {
	return s.Status == ServerStatusOnline
}

// HealthResult is the outcome of probing one server.
type HealthResult struct {
	ServerID  int64         `json:"server_id"`
	Name      string        `json:"name"`
	BaseURL   string        `json:"base_url"`
	Status    ServerStatus  `json:"status"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checked_at"`
	Error     string        `json:"error,omitempty"`
}
