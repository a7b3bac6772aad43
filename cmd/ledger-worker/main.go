package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"mailledger/internal/amqp"
	"mailledger/internal/backend"
	"mailledger/internal/cli"
	"mailledger/internal/config"
	"mailledger/internal/ledger"
	"mailledger/internal/log"
	"mailledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting ledger-worker",
		log.FieldOperation, log.OpStartup,
		"index", cfg.SQLiteDBPath,
		"export_backend", cfg.ExportBackend,
		"reconcile_interval", cfg.ReconcileInterval)

	index := cli.InitIndex(logger, cfg.SQLiteDBPath)
	defer index.Close()

	// Reconcile reads the same ledger file the API writes.
	store, err := ledger.NewStore(cfg.LedgerPath())
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, "path", cfg.LedgerPath())
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid export backend", log.FieldError, err)
		os.Exit(1)
	}
	exp, err := backend.NewFactory(logger.WithComponent(log.ComponentSheets).Logger).
		CreateExporter(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(index, exp.Exporter, store)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(gctx, mirror.HandleLedgerEvent)
	})
	g.Go(func() error {
		return mirror.Run(gctx, cfg.ReconcileInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ledger worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger worker stopped")
}
