package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avolkov/finledger/internal/ai"
	"github.com/avolkov/finledger/internal/config"
	"github.com/avolkov/finledger/internal/database"
	"github.com/avolkov/finledger/internal/ledger"
	"github.com/avolkov/finledger/internal/logger"
	"github.com/avolkov/finledger/internal/receipt"
	"github.com/avolkov/finledger/internal/repository"
	"github.com/avolkov/finledger/internal/server"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.DatabaseURI == "" {
		log.Fatal().Msg("DATABASE_URI is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	// The vision client is optional; without it receipt scanning reports an
	// external-service error instead of extracting.
	var vision receipt.Describer
	if cfg.AIAPIKey != "" {
		vision = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		log.Info().Str("model", cfg.AIModel).Msg("vision client initialized")
	} else {
		log.Warn().Msg("AI_API_KEY not set, receipt scanning disabled")
	}

	store := repository.NewStore(db)
	ledgerSvc := ledger.NewService(store, log)
	receiptSvc := receipt.NewService(vision, log)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(ledgerSvc, receiptSvc, cfg.JWTSecret, log).Handler(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
		cancel()
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}
