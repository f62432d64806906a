package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction/internal/api"
	"auction/internal/auction"
	"auction/internal/auth"
	"auction/internal/config"
	"auction/internal/events"
	"auction/internal/ledger"
	"auction/internal/models"
	"auction/internal/retry"
	"auction/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🔨 Starting Auction Service...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"store", cfg.StoreBackend,
		"network", cfg.NetworkPassphrase,
		"program_id", cfg.ProgramID,
		"log_level", cfg.LogLevel,
	)

	// 3. Initialize store
	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer store.Close()
	slog.Info("Store ready", "backend", cfg.StoreBackend)

	// 4. Token ledger, optionally seeded with accounts
	tokenLedger := ledger.NewTokenLedger()
	if cfg.SeedAccountsFile != "" {
		n, err := seedAccounts(ctx, store, tokenLedger, cfg.SeedAccountsFile)
		if err != nil {
			log.Fatalf("❌ Failed to seed accounts: %v", err)
		}
		slog.Info("Seeded token accounts", "file", cfg.SeedAccountsFile, "count", n)
	}

	// 5. Event sinks
	sinks := []events.Sink{events.NewLogSink()}
	if cfg.NATSURL != "" {
		natsSink, err := events.NewNATSSink(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			log.Fatalf("❌ Failed to connect to NATS: %v", err)
		}
		defer natsSink.Close()
		sinks = append(sinks, natsSink)
		slog.Info("NATS event sink enabled", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	}
	queue := events.NewQueue(events.NewDispatcher(sinks...), cfg.EventQueueSize)

	// 6. Auction engine
	engine := auction.NewEngine(store, tokenLedger, models.Identity(cfg.ProgramID),
		auction.WithPublisher(queue),
	)

	// 7. API server
	server := api.NewServer(api.Options{
		Port:           cfg.APIPort,
		Engine:         engine,
		Store:          store,
		Verifier:       auth.NewVerifier(cfg.NetworkPassphrase),
		Retry:          retry.NewStrategy(cfg.Retry),
		AmountDecimals: cfg.AmountDecimals,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Failed to start API server: %v", err)
	}

	// 8. Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Warn("Interrupt received, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping API server", "error", err)
	}
	if err := queue.Close(shutdownCtx); err != nil {
		slog.Error("Undelivered events at shutdown", "error", err)
	}

	slog.Info("Auction service stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return storage.NewMemoryStore(), nil
	}
}
