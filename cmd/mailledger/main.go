package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"mailledger/internal/amqp"
	"mailledger/internal/cache"
	"mailledger/internal/categories"
	"mailledger/internal/cli"
	"mailledger/internal/config"
	"mailledger/internal/fxrate"
	apphttp "mailledger/internal/http"
	"mailledger/internal/ledger"
	"mailledger/internal/log"
	"mailledger/internal/mail"
	"mailledger/internal/parsers"
	"mailledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	logger.Info("Starting mailledger",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"ledger", cfg.LedgerPath())

	store, err := ledger.NewStore(cfg.LedgerPath())
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, "path", cfg.LedgerPath())
		os.Exit(1)
	}
	cats, err := categories.NewStore(cfg.CategoriesPath())
	if err != nil {
		logger.Error("Failed to open categories", log.FieldError, err, "path", cfg.CategoriesPath())
		os.Exit(1)
	}

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	rates := fxrate.New(fxrate.Config{
		APIKey: cfg.ExchangeRateAPIKey,
		TTL:    cfg.FXCacheTTL,
		Logger: logger.WithComponent(log.ComponentFX),
	})
	cacheManager.Register(rates.Cache())
	cacheManager.StartCleanup(cfg.FXCacheTTL)

	// Events are optional; without AMQP the ledger still works, only the
	// mirror falls behind until the worker reconciles.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(log.ComponentAMQP).Logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	var fetcher services.Fetcher
	if cfg.IMAPConfigured() {
		fetcher = mail.NewIMAPClient(mail.Config{
			Host:     cfg.IMAPHost,
			Port:     cfg.IMAPPort,
			User:     cfg.IMAPUser,
			Password: cfg.IMAPPassword,
			Folder:   cfg.IMAPFolder,
		}, logger.WithComponent(log.ComponentMail).Logger)
	} else {
		logger.Warn("IMAP_HOST not set, sync and backfill are disabled")
	}
	if cfg.APIKey == "" {
		logger.Warn("API_KEY not set, protected endpoints will answer 500")
	}

	ledgerSvc := services.NewLedgerService(store, cats, rates, publisher, logger.WithComponent(log.ComponentLedger))
	ingestSvc := services.NewIngestService(fetcher, parsers.NewDefaultRegistry(), ledgerSvc,
		cfg.ParseWorkers, logger.WithComponent(log.ComponentIngest))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              net.JoinHostPort("", cfg.Port),
		APIKey:            cfg.APIKey,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger.WithComponent(log.ComponentHTTP),
	}, ledgerSvc, ingestSvc)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close failed", log.FieldError, err)
			}
		}
	})

	logger.Info("HTTP server listening", "addr", srv.Addr, "institutions", ingestSvc.Institutions())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
