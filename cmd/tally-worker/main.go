package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/export"
	"tally/internal/export/google"
	"tally/internal/export/memory"
	"tally/internal/log"
	"tally/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: log.DefaultConfig().Level, Component: log.ComponentWorker})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without Google credentials the audit trail stays in memory. Useful for
	// local runs; the rows are lost on exit.
	var writer export.EventWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.NewClient(ctx, cfg)
		if err != nil {
			logger.Error("init sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("audit export to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		writer = memory.New()
		logger.Warn("no spreadsheet configured, audit rows kept in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("connect AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	auditWorker := worker.NewAuditWorker(writer, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("consuming ledger events", "queue", cfg.AMQPQueue, log.FieldOperation, log.OpStartup)
		return amqpClient.ConsumeLedgerEvents(ctx, auditWorker.HandleEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped cleanly", log.FieldOperation, log.OpShutdown)
}
