package main

import (
	"context"
	"fmt"
	"os"

	"stellar-micro-donation/config"
	"stellar-micro-donation/internal/adapter/storage/jsonfile"
	pgStorage "stellar-micro-donation/internal/adapter/storage/postgres"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/internal/seed"
	"stellar-micro-donation/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("SMD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	ctx := context.Background()

	var (
		donations ports.DonationRepository
		wallets   ports.WalletRepository
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
		log.Info().Msg("Schema ready")
		donations = pgStorage.NewDonationRepo(pool)
		wallets = pgStorage.NewWalletRepo(pool)
	default:
		store, err := jsonfile.Open(cfg.Storage.DataDir, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open JSON data store")
		}
		donations = store.Donations
		wallets = store.Wallets
	}

	res, err := seed.Run(ctx, donations, wallets, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Database initialization failed")
	}
	log.Info().
		Str("driver", cfg.Storage.Driver).
		Int("wallets", res.Wallets).
		Int("donations", res.Donations).
		Msg("Database initialization complete")
}
