// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Command client is the offline-first recipe sync client. Without a command
// it opens the sync dashboard; "client help" lists the one-shot commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-recipe-sync/internal/client"
	"github.com/MKhiriev/go-recipe-sync/internal/config"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)

	log := logger.NewClientLogger("recipe-sync-client", os.Getenv("LOG_FILE"))
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := client.NewApp(ctx, cfg, buildInfo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	runErr := app.Run(ctx, flag.Args())
	if err = app.Close(); err != nil {
		log.Err(err).Msg("error closing local storage")
	}
	if runErr != nil {
		log.Error().Err(runErr).Strs("args", flag.Args()).Msg("client run error")
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
