// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SyncState is the externally visible state of a sync session.
type SyncState string

const (
	SyncStateIdle      SyncState = "IDLE"
	SyncStateSyncing   SyncState = "SYNCING"
	SyncStateCompleted SyncState = "COMPLETED"
	SyncStateError     SyncState = "ERROR"
	SyncStateConflicts SyncState = "CONFLICTS"
	SyncStateDisabled  SyncState = "DISABLED"
)

// Terminal reports whether s ends a session.
func (s SyncState) Terminal() bool {
	switch s {
	case SyncStateCompleted, SyncStateError, SyncStateConflicts, SyncStateDisabled:
		return true
	}
	return false
}

// SyncPhase refines SyncStateSyncing into the two halves of a session.
type SyncPhase string

const (
	SyncPhaseNone        SyncPhase = ""
	SyncPhaseDownloading SyncPhase = "DOWNLOADING"
	SyncPhaseUploading   SyncPhase = "UPLOADING"
)

// SyncSessionStatus is a read-only progress snapshot of one sync session.
type SyncSessionStatus struct {
	RecordType     RecordType `json:"record_type"`
	State          SyncState  `json:"state"`
	Phase          SyncPhase  `json:"phase,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	TotalItems     int        `json:"total_items"`
	ProcessedItems int        `json:"processed_items"`
	Message        string     `json:"message,omitempty"`

	// DownloadTotal/DownloadDone and UploadTotal/UploadDone split the
	// counters into the two halves used by Percent.
	DownloadTotal int `json:"download_total"`
	DownloadDone  int `json:"download_done"`
	UploadTotal   int `json:"upload_total"`
	UploadDone    int `json:"upload_done"`

	// FailedItems counts queue entries that failed permanently in this session.
	FailedItems int `json:"failed_items"`
	// Conflicts counts open conflicts for the record type after the session.
	Conflicts int `json:"conflicts"`
}

// Percent returns combined progress in [0, 100]: the download phase fills the
// first half and the upload phase the second half.
func (s SyncSessionStatus) Percent() float64 {
	if s.State.Terminal() && s.State != SyncStateError {
		return 100
	}
	return half(s.DownloadDone, s.DownloadTotal, s.Phase != SyncPhaseDownloading && s.Phase != SyncPhaseNone) +
		half(s.UploadDone, s.UploadTotal, false)
}

func half(done, total int, finished bool) float64 {
	if total <= 0 {
		if finished {
			return 50
		}
		return 0
	}
	if done > total {
		done = total
	}
	return 50 * float64(done) / float64(total)
}
