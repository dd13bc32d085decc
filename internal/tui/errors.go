// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"context"
	"errors"

	"github.com/MKhiriev/go-recipe-sync/internal/service"
)

// humanizeError turns service errors into a line for the user.
func humanizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Операция отменена"
	case errors.Is(err, service.ErrNoServerAvailable), errors.Is(err, service.ErrNoServerConfigured):
		return "Нет доступных серверов"
	case errors.Is(err, service.ErrWrongCredentials):
		return "Неверный логин или пароль"
	case errors.Is(err, service.ErrAuth):
		return "Ошибка авторизации на сервере"
	case errors.Is(err, service.ErrNetwork):
		return "Отсутствует сеть или Сервер недоступен"
	case errors.Is(err, service.ErrSyncDisabled):
		return "Синхронизация отключена"
	}
	return err.Error()
}
