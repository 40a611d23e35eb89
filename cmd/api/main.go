package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/analytics"
	"github.com/dvloznov/cardcycle/internal/api/handlers"
	"github.com/dvloznov/cardcycle/internal/api/middleware"
	"github.com/dvloznov/cardcycle/internal/artifact"
	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/config"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/executors"
	"github.com/dvloznov/cardcycle/internal/ledger"
	"github.com/dvloznov/cardcycle/internal/ledger/inmemory"
	"github.com/dvloznov/cardcycle/internal/ledger/mysqlstore"
	"github.com/dvloznov/cardcycle/internal/logger"
	"github.com/dvloznov/cardcycle/internal/runner"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "Path to the YAML config file (or set CONFIG_PATH env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}

	artifacts := artifact.NewStore(cfg.Artifacts.Dir, cfg.Artifacts.GCSBucket)

	var sink *analytics.Sink
	if cfg.Analytics.Project != "" {
		sink, err = analytics.NewSink(ctx, cfg.Analytics.Project, cfg.Analytics.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create analytics sink")
		}
		defer sink.Close()
	}

	orch := batch.NewOrchestrator(log,
		executors.NewPostingExecutor(store, log),
		executors.NewInterestExecutor(store, cfg.Interest.DefaultRateBPS, log),
		executors.NewStatementExecutor(store, artifacts, executors.StatementConfig{
			MinPaymentBPS:   cfg.Statement.MinPaymentBPS,
			MinPaymentFloor: domain.Money(cfg.Statement.MinPaymentFloor),
			GraceDays:       cfg.Statement.GraceDays,
		}, log),
		executors.NewExportImportExecutor(store, artifacts, sink, log),
	)

	registry := runner.NewRegistry()
	runs := runner.New(orch, registry, cfg.Runner.QueueSize, cfg.Runner.Workers, log)

	// Initialize handlers
	jobsHandler := handlers.NewJobsHandler(runs, registry)

	// Create router
	mux := http.NewServeMux()
	jobsHandler.Route(mux)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(log)(mux),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight batch runs reach a terminal status
	if err := runs.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping batch runner")
	}

	log.Info().Msg("Server stopped")
}

func openStore(cfg *config.Config, log zerolog.Logger) (ledger.Store, error) {
	switch cfg.Store.Driver {
	case "mysql":
		db, err := mysqlstore.Open(cfg.Store.MySQL)
		if err != nil {
			return nil, err
		}
		log.Info().Str("host", cfg.Store.MySQL.Host).Str("db", cfg.Store.MySQL.DBName).Msg("Connected to MySQL")
		return mysqlstore.NewStore(db), nil
	default:
		log.Warn().Msg("Using in-memory ledger store - data is lost on restart")
		return inmemory.NewStore(), nil
	}
}
