// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Command server runs a recipe server that keeps its records in memory. It
// speaks the same REST API the sync client talks to and is meant for local
// development: start two of them on different ports to try failover.
package main

import (
	"fmt"

	"github.com/MKhiriev/go-recipe-sync/internal/config"
	handler "github.com/MKhiriev/go-recipe-sync/internal/handler/http"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/server"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	fmt.Println(buildInfo)

	log := logger.NewLogger("recipe-server")
	cfg, err := config.GetRecipeServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Str("address", cfg.Address).Int("users", len(cfg.Users)).Dur("token_ttl", cfg.TokenTTL).Msg("received configs")

	records := store.NewMemoryRecordRepository(nil)
	h := handler.NewHandler(records, cfg, buildInfo, log)

	srv, err := server.NewServer(h.Init(), cfg.Address, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}
