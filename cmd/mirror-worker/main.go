package main

import (
	"context"
	"errors"
	"os"
	"time"

	"unidiary/internal/amqp"
	"unidiary/internal/cli"
	"unidiary/internal/collection"
	"unidiary/internal/config"
	"unidiary/internal/core"
	"unidiary/internal/gateway"
	"unidiary/internal/log"
	"unidiary/internal/sheets"
	gsheet "unidiary/internal/sheets/google"
	mem "unidiary/internal/sheets/memory"
	"unidiary/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting mirror-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateMirror)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	// The worker only reads, so its store does not publish.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	be := cli.InitBackend(startupCtx, logger, &storeCfg)
	defer be.Close()

	mirror := newMirror(startupCtx, logger, cfg)
	cancelStartup()

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		be.Close()
		os.Exit(1)
	}
	defer consumer.Close()

	expenses := collection.New[core.Expense](be.Gateway, gateway.TableExpenses, cli.Scope(cfg),
		collection.WithLogger(logger))
	mw := worker.NewMirrorWorker(expenses, mirror, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on changes published while the worker was down.
	if n, err := mw.Resync(ctx); err != nil {
		logger.Error("Startup resync incomplete", log.FieldError, err, log.FieldCount, n)
	} else {
		logger.Info("Startup resync complete", log.FieldCount, n)
	}

	go func() {
		if err := consumer.ConsumeChanges(ctx, mw.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Change consumption failed", log.FieldError, err)
			consumer.Close()
			be.Close()
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

// newMirror returns the Sheets mirror when a spreadsheet is configured and an
// in-process one otherwise.
func newMirror(ctx context.Context, logger *log.Logger, cfg *config.Config) sheets.ExpenseMirror {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled, mirroring in memory")
		return mem.New()
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	return client
}
