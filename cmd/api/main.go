package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stellar-micro-donation/config"
	kafkaEvents "stellar-micro-donation/internal/adapter/events/kafka"
	httpHandler "stellar-micro-donation/internal/adapter/http/handler"
	"stellar-micro-donation/internal/adapter/ledger/simulator"
	"stellar-micro-donation/internal/adapter/storage/jsonfile"
	pgStorage "stellar-micro-donation/internal/adapter/storage/postgres"
	redisStorage "stellar-micro-donation/internal/adapter/storage/redis"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/internal/service"
	"stellar-micro-donation/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("SMD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("network", cfg.Ledger.Network).
		Str("horizon_url", cfg.Ledger.HorizonURL).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting Stellar Micro-Donation API")

	ctx := context.Background()

	// Mock ledger
	bootstrap, _ := cfg.Ledger.Bootstrap() // validated by config.Load
	sim := simulator.New(simulator.Options{
		Asset:            cfg.Ledger.Asset,
		BootstrapBalance: bootstrap,
		HistoryLimit:     cfg.Ledger.HistoryDefaultLimit,
		Logger:           logger.Component(log, "ledger"),
	})
	ledger := simulator.NewClient(sim)
	healthCheckers := []ports.HealthChecker{simulator.NewHealthCheck(sim)}

	// Initialize repositories
	var (
		donationRepo ports.DonationRepository
		walletRepo   ports.WalletRepository
		auditRepo    ports.AuditRepository
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database schema")
		}
		donationRepo = pgStorage.NewDonationRepo(pool)
		walletRepo = pgStorage.NewWalletRepo(pool)
		auditRepo = pgStorage.NewAuditRepo(pool)
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
	default:
		store, err := jsonfile.Open(cfg.Storage.DataDir, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open JSON data store")
		}
		donationRepo = store.Donations
		walletRepo = store.Wallets
		healthCheckers = append(healthCheckers, jsonfile.NewHealthCheck(store))
	}

	// Optional Redis: idempotency cache and rate limiting
	var (
		idempotencyCache ports.IdempotencyCache
		rateLimitStore   *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		idempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: no idempotency cache, no rate limiting")
	}

	// Ledger event relay, published to Kafka when brokers are configured
	var publisher ports.EventPublisher
	if cfg.Kafka.Enabled() {
		p := kafkaEvents.NewPublisher(cfg.Kafka, logger.Component(log, "kafka"))
		defer p.Close()
		publisher = p
	}
	relay := service.NewEventRelay(ledger, publisher, 0, logger.Component(log, "relay"))
	relay.Start()

	// Initialize business services
	donationSvc := service.NewDonationService(donationRepo, idempotencyCache, ledger, log)
	walletSvc := service.NewWalletService(walletRepo, ledger, log)
	reportingSvc := service.NewReportingService(donationRepo)
	auditSvc := service.NewAuditService(auditRepo, log)

	var receiptSvc ports.ReceiptService
	if cfg.Receipt.Secret != "" {
		receiptSvc = service.NewJWTReceiptService(donationRepo, cfg.Receipt.Secret, cfg.Receipt.Expiry, cfg.Receipt.Issuer)
	} else {
		log.Warn().Msg("receipt.secret not set, receipts disabled")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		DonationSvc:  donationSvc,
		WalletSvc:    walletSvc,
		ReportingSvc: reportingSvc,
		ReceiptSvc:   receiptSvc,
		Ledger:       ledger,
		Network:      cfg.Ledger.Network,
		History: httpHandler.HistoryLimits{
			Default: cfg.Ledger.HistoryDefaultLimit,
			Max:     cfg.Ledger.HistoryMaxLimit,
		},
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	relay.Stop()

	log.Info().Msg("Server exited")
}
