package main

import (
	"context"
	"os"
	"time"

	"unidiary/internal/cli"
	"unidiary/internal/collection"
	"unidiary/internal/core"
	"unidiary/internal/gateway"
	"unidiary/internal/log"
	"unidiary/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger, nil)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	be := cli.InitBackend(startupCtx, logger, cfg)
	cancelStartup()
	defer be.Close()

	expenses := collection.New[core.Expense](be.Gateway, gateway.TableExpenses, cli.Scope(cfg),
		collection.WithLogger(logger))
	processor := services.NewRecurringProcessor(expenses, cfg.RecurringInterval, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Recurring processor stop failed", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start recurring processor", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring expense processor configured",
		"interval", cfg.RecurringInterval,
		log.FieldBackend, cfg.DataBackend,
		"change_feed", be.Publishing)

	cli.WaitForShutdown(ctx, done)
}
