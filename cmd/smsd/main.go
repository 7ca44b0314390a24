package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JustynLim/SoC-SMS/internal/auth/store"
	"github.com/JustynLim/SoC-SMS/internal/config"
	"github.com/JustynLim/SoC-SMS/internal/ratelimit"
	"github.com/JustynLim/SoC-SMS/internal/server"
	"github.com/JustynLim/SoC-SMS/internal/storage"
)

func main() {
	cfg := config.FromEnv()
	logger := server.Logger(cfg)

	secret := cfg.Secret()
	if len(secret) < 32 {
		logger.Fatal().Str("path", cfg.SecretPath).
			Msg("no usable secret key; provision a 32-byte key file")
	}

	users, err := store.New(cfg.UsersPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.UsersPath).Msg("user store failed")
	}
	db, err := storage.Open(*logger, cfg.DBPath, secret)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	defer db.Close()
	rates := ratelimit.New(cfg.RatePath)

	// Periodic housekeeping: drop expired rate-limit windows, persist the
	// survivors.
	jobs := cron.New()
	if _, err := jobs.AddFunc("@every 10m", func() {
		dropped := rates.Sweep(24 * time.Hour)
		if err := rates.Flush(); err != nil {
			logger.Warn().Err(err).Msg("rate-limit flush failed")
		}
		logger.Debug().Int("dropped", dropped).Msg("rate-limit sweep")
	}); err != nil {
		logger.Fatal().Err(err).Msg("cron setup failed")
	}
	jobs.Start()
	defer jobs.Stop()

	srv := server.New(cfg, *logger, users, db, rates)
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Msgf("smsd listening on http://%s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	if err := rates.Flush(); err != nil {
		logger.Warn().Err(err).Msg("final rate-limit flush failed")
	}
}
