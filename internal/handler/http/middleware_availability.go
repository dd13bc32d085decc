// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/MKhiriev/go-recipe-sync/internal/app"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
)

// withAvailability answers 503 to every request while the server is switched
// unavailable, health probes included.
func (h *Handler) withAvailability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.available.Load() {
			utils.WriteError(w, app.MsgServiceUnavailable, http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}
