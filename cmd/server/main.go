package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/progression-hub/internal/config"
	"github.com/progression-hub/internal/handler"
	"github.com/progression-hub/internal/kafka"
	"github.com/progression-hub/internal/linking"
	"github.com/progression-hub/internal/postgres"
	"github.com/progression-hub/internal/redis"
	"github.com/progression-hub/internal/service"
	"github.com/progression-hub/internal/sqlite"
	"github.com/progression-hub/internal/store"
	"github.com/progression-hub/internal/websocket"
	"github.com/progression-hub/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Setup structured logging
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		persisters []worker.Persister
		loaders    []worker.Loader
		backends   []handler.Pinger
		eventLog   worker.EventLog
	)

	// Initialize PostgreSQL
	if cfg.Postgres.Enabled {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		postgresRepo, err := postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer postgresRepo.Close()

		// Run database migrations
		if err := postgresRepo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		persisters = append(persisters, postgresRepo)
		loaders = append(loaders, postgresRepo)
		backends = append(backends, postgresRepo)
		eventLog = postgresRepo
	}

	// Initialize SQLite
	if cfg.SQLite.Enabled {
		logger.Info("opening SQLite database", "path", cfg.SQLite.Path)
		sqliteStore, err := sqlite.Open(cfg.SQLite.Path, logger)
		if err != nil {
			logger.Error("failed to open SQLite", "error", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		persisters = append(persisters, sqliteStore)
		loaders = append(loaders, sqliteStore)
		backends = append(backends, sqliteStore)
	}

	// Initialize Redis
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		mirror, err := redis.NewMirror(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()
		persisters = append(persisters, mirror)
		backends = append(backends, mirror)
	}

	if len(persisters) == 0 {
		logger.Warn("no persistence backend enabled, player records live in memory only")
	}

	// In-memory state
	players := store.New()
	codes := linking.NewRegistry(cfg.Linking.CodeTTL)
	guard := linking.NewGuard(cfg.Linking.MaxFailures, cfg.Linking.BanDuration, time.Now)

	// Initialize sync worker and restore state
	syncWorker := worker.NewSyncWorker(players, persisters, eventLog, &cfg.Sync, logger)
	if len(loaders) > 0 {
		if _, err := syncWorker.Rehydrate(ctx, loaders...); err != nil {
			logger.Warn("failed to rehydrate players on startup", "error", err)
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize services
	opts := []service.Option{service.WithNotifier(wsHub)}
	if eventLog != nil {
		opts = append(opts, service.WithRecorder(syncWorker))
	}
	playerService := service.NewPlayerService(
		players,
		codes,
		guard,
		service.Config{Leaderboard: cfg.Leaderboard, Presence: cfg.Presence},
		logger,
		opts...,
	)

	players.Subscribe(websocket.NewFeed(wsHub, playerService, logger).Observe)

	// Start sync worker
	if cfg.Sync.Enabled && len(persisters) > 0 {
		players.Subscribe(syncWorker.Observe)
		if err := syncWorker.Start(ctx); err != nil {
			logger.Error("failed to start sync worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for plugin event ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, playerService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	trustedProxies, err := cfg.Server.TrustedPrefixes()
	if err != nil {
		logger.Error("invalid trusted proxies", "error", err)
		os.Exit(1)
	}
	httpHandler := handler.NewHandler(playerService, wsHub, cfg.CORS, trustedProxies, logger, backends...)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests before the final flush
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop sync worker
	if err := syncWorker.Stop(); err != nil {
		logger.Error("failed to stop sync worker", "error", err)
	}

	// Stop WebSocket hub
	wsHub.Stop()

	logger.Info("server stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
