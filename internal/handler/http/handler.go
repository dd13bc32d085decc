// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-recipe-sync/internal/config"
	"github.com/MKhiriev/go-recipe-sync/internal/crypto"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/validators"
	"github.com/MKhiriev/go-recipe-sync/models"
)

type Handler struct {
	records   store.RemoteRecordRepository
	validator validators.Validator

	signKey  string
	issuer   string
	tokenTTL time.Duration
	// openAccess accepts any credentials; set when no users are configured
	openAccess bool
	accounts   map[string]crypto.PasswordHash
	hasher     crypto.PasswordHasher

	buildInfo models.AppBuildInfo
	available atomic.Bool

	logger *logger.Logger
}

// NewHandler builds the dev server handler. Accounts from cfg are hashed once
// here; without accounts every login is accepted.
func NewHandler(records store.RemoteRecordRepository, cfg *config.RecipeServer, buildInfo models.AppBuildInfo, logger *logger.Logger) *Handler {
	h := &Handler{
		records:   records,
		validator: validators.NewRecordValidator(),
		signKey:   cfg.SignKey,
		issuer:    cfg.TokenIssuer,
		tokenTTL:  cfg.TokenTTL,
		hasher:    crypto.NewPasswordHasher(),
		buildInfo: buildInfo,
		logger:    logger,
	}
	h.available.Store(true)
	h.openAccess = len(cfg.Users) == 0
	h.accounts = h.hashAccounts(cfg.Accounts())

	logger.Info().Msg("http handler created")
	return h
}

// hashAccounts keeps only password hashes. Passwords already given as an
// encoded argon2id hash are taken as is.
func (h *Handler) hashAccounts(accounts map[string]string) map[string]crypto.PasswordHash {
	hashes := make(map[string]crypto.PasswordHash, len(accounts))
	for name, password := range accounts {
		var (
			hash crypto.PasswordHash
			err  error
		)
		if strings.HasPrefix(password, crypto.HashPrefix) {
			hash, err = crypto.ParseHash(password)
		} else {
			hash, err = h.hasher.Hash(password)
		}
		if err != nil {
			h.logger.Err(err).Str("func", "NewHandler").Str("username", name).Msg("account skipped")
			continue
		}
		hashes[name] = hash
	}
	return hashes
}

// SetAvailable switches the server between answering normally and answering
// every request with 503.
func (h *Handler) SetAvailable(available bool) {
	h.available.Store(available)
	h.logger.Info().Bool("available", available).Msg("server availability changed")
}

// Available reports whether the server currently answers requests.
func (h *Handler) Available() bool {
	return h.available.Load()
}
