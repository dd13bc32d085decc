// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/MKhiriev/go-recipe-sync/models"
)

var (
	appStyle        = lipgloss.NewStyle().Padding(1, 2)
	titleStyle      = lipgloss.NewStyle().Bold(true)
	helpStyle       = lipgloss.NewStyle().Faint(true)
	errorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	overlayBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)

	barFullStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	barEmptyStyle = lipgloss.NewStyle().Faint(true)
)

var stateColors = map[models.SyncState]lipgloss.Color{
	models.SyncStateSyncing:   lipgloss.Color("12"),
	models.SyncStateCompleted: lipgloss.Color("10"),
	models.SyncStateError:     lipgloss.Color("9"),
	models.SyncStateConflicts: lipgloss.Color("11"),
	models.SyncStateDisabled:  lipgloss.Color("8"),
}

func stateStyle(state models.SyncState) lipgloss.Style {
	if c, ok := stateColors[state]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return lipgloss.NewStyle()
}

func serverStatusStyle(status models.ServerStatus) lipgloss.Style {
	switch status {
	case models.ServerStatusOnline:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case models.ServerStatusOffline:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	return lipgloss.NewStyle().Faint(true)
}
