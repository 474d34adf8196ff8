package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"unidiary/internal/cli"
	apphttp "unidiary/internal/http"
	"unidiary/internal/log"
	"unidiary/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	be := cli.InitBackend(startupCtx, logger, cfg)
	defer be.Close()

	tracker := services.NewTracker(be.Gateway, services.TrackerConfig{
		Scope:       cli.Scope(cfg),
		TrendMonths: cfg.TrendMonths,
		Logger:      logger,
	})
	// A failed first load is served as an unready instance until /api/reload succeeds.
	if err := tracker.Load(startupCtx); err != nil {
		logger.Warn("Initial load failed", log.FieldError, err)
	}
	cancelStartup()

	srv := apphttp.NewServer(":"+cfg.Port, tracker, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting unidiary server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"change_feed", be.Publishing,
		log.FieldOwnerID, cfg.OwnerID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		be.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
