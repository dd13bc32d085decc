// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"strings"

	"github.com/MKhiriev/go-recipe-sync/models"
)

func renderBuildInfoWindow(info models.AppBuildInfo) string {
	var b strings.Builder

	b.WriteString("Название приложения: GoRecipeSync\n")
	b.WriteString("Версия: " + info.Version + "\n")
	b.WriteString("Дата: " + info.Date + "\n")
	b.WriteString("Коммит: " + info.Commit)

	return renderPage("О ПРОГРАММЕ", b.String(), "esc: назад")
}
