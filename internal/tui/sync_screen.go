// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/MKhiriev/go-recipe-sync/models"
)

const barWidth = 20

// progressBar renders percent (0..100) as a fixed width bar.
func progressBar(percent float64) string {
	percent = math.Max(0, math.Min(100, percent))
	full := int(math.Round(percent / 100 * barWidth))

	return barFullStyle.Render(strings.Repeat("█", full)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-full)) +
		fmt.Sprintf(" %3.0f%%", percent)
}

var stateTitles = map[models.SyncState]string{
	models.SyncStateIdle:      "ожидание",
	models.SyncStateSyncing:   "синхронизация",
	models.SyncStateCompleted: "готово",
	models.SyncStateError:     "ошибка",
	models.SyncStateConflicts: "конфликты",
	models.SyncStateDisabled:  "отключено",
}

var phaseTitles = map[models.SyncPhase]string{
	models.SyncPhaseDownloading: "загрузка",
	models.SyncPhaseUploading:   "отправка",
}

func stateTitle(st models.SyncSessionStatus) string {
	title, ok := stateTitles[st.State]
	if !ok {
		title = string(st.State)
	}
	if phase, ok := phaseTitles[st.Phase]; ok && st.State == models.SyncStateSyncing {
		title += " (" + phase + ")"
	}
	return title
}
