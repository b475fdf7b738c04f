package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/config"
	"github.com/UkralStul/testbook/internal/logging"
	"github.com/UkralStul/testbook/internal/server"
	"github.com/UkralStul/testbook/internal/storage"
	"github.com/UkralStul/testbook/internal/storage/inmemory"
	"github.com/UkralStul/testbook/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config.toml (default: user config dir)")
	storageType := flag.String("storage", "", "Storage type (in-memory or postgres)")
	seed := flag.Bool("seed", true, "Fill in-memory storage with demo data")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Printf("warning: failed to load .env: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *storageType != "" {
		cfg.Server.Storage = *storageType
	}
	if err := cfg.Server.Validate(); err != nil {
		log.Fatalf("invalid server config: %v", err)
	}

	logger, err := logging.New(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Server, *seed, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}

	srv := server.New(store, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Router(true),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("server listening",
		zap.String("addr", "http://localhost:"+cfg.Server.Port+"/api"),
		zap.String("storage", cfg.Server.Storage))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// openStorage выбирает хранилище; демо-данные пишутся только в память.
func openStorage(ctx context.Context, cfg config.ServerConfig, seed bool, logger *zap.Logger) (storage.Storage, error) {
	logger = logging.OrNop(logger)
	logger.Info("starting server", zap.String("storage", cfg.Storage))
	if cfg.Storage == config.StoragePostgres {
		return postgres.New(cfg.DatabaseURL, cfg.Debug)
	}

	store := inmemory.New()
	if seed {
		if err := fillWithMockData(ctx, store, time.Now()); err != nil {
			return nil, err
		}
		logger.Info("mock data filled",
			zap.Int("users", len(seedUsers)),
			zap.Int("posts", len(seedPosts)+len(seedReposts)))
	}
	return store, nil
}
