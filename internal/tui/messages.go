// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"time"

	"github.com/MKhiriev/go-recipe-sync/models"
)

// statusMsg carries one progress snapshot from a running TriggerSync stream.
type statusMsg struct {
	status models.SyncSessionStatus
}

// streamClosedMsg: every session of the stream reached a terminal state.
type streamClosedMsg struct{}

type refreshedMsg struct {
	statuses  []models.SyncSessionStatus
	servers   []models.ServerProfile
	activeID  int64
	pending   int
	failed    int
	conflicts int
	err       error
}

type healthDoneMsg struct {
	results []models.HealthResult
	err     error
}

type retryDoneMsg struct {
	count int64
	err   error
}

type refreshTickMsg time.Time
