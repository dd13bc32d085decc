// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/MKhiriev/go-recipe-sync/internal/app"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Err(err).Str("func", "*Handler.login").Msg("Invalid JSON was passed")
		utils.WriteError(w, app.MsgInvalidDataProvided, http.StatusBadRequest)
		return
	}

	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" {
		log.Warn().Str("func", "*Handler.login").Msg("empty username")
		utils.WriteError(w, app.MsgInvalidDataProvided, http.StatusBadRequest)
		return
	}

	if !h.checkPassword(creds) {
		log.Warn().Str("func", "*Handler.login").Str("username", creds.Username).Msg("wrong username/password")
		utils.WriteError(w, app.MsgInvalidLoginPassword, http.StatusUnauthorized)
		return
	}

	signed, expiresAt, err := utils.GenerateJWTToken(h.issuer, creds.Username, h.tokenTTL, h.signKey)
	if err != nil {
		log.Err(err).Str("func", "*Handler.login").Msg("creation of token failed")
		utils.WriteError(w, app.MsgInternalServerError, http.StatusInternalServerError)
		return
	}

	log.Debug().Str("username", creds.Username).Time("expires_at", expiresAt).Msg("user successfully logged in")

	w.Header().Set("Authorization", fmt.Sprintf("Bearer %s", signed))
	utils.WriteJSON(w, models.Token{AccessToken: signed, TokenType: "bearer"}, http.StatusOK)
}

func (h *Handler) checkPassword(creds models.Credentials) bool {
	if h.openAccess {
		return true
	}

	hash, ok := h.accounts[creds.Username]
	if !ok {
		return false
	}
	return h.hasher.Verify(creds.Password, hash)
}
