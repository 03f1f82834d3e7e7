package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/souqplus/analytics/internal/analytics"
	"github.com/souqplus/analytics/internal/config"
	"github.com/souqplus/analytics/internal/dataset"
	"github.com/souqplus/analytics/internal/telemetry"
	"github.com/souqplus/analytics/internal/transport"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "dashboard").Logger()

	log.Info().Msg("Analytics dashboard starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	telemetry.Init()

	// Schema and I/O errors here are fatal: a dashboard over a broken
	// dataset must not start. Row-level issues only raise the warning
	// count.
	ds, err := dataset.Load(cfg.Data.Dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Data.Dir).Msg("Failed to load dataset")
	}

	svc := analytics.NewService(ds)
	if n := svc.Warnings(); n > 0 {
		log.Warn().Int("warnings", n).Msg("dataset loaded with data-quality warnings")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      transport.NewRouter(svc),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
