package config

import (
	"fmt"
	"os"
	"strconv"

	"auction/internal/models"
	"auction/internal/retry"

	"github.com/stellar/go/network"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	// Where auctions and token accounts live ( memory or postgres )
	StoreBackend string

	// Postgres connection string, required for the postgres backend
	DatabaseURL string

	// HTTP API port
	APIPort int

	// debug, info, warn or error
	LogLevel string

	// Network passphrase signatures are bound to ( mainnet or testnet )
	NetworkPassphrase string

	// Program identity every custodial authority is derived under (C...)
	ProgramID string

	// NATS server for auction events. Empty disables the NATS sink.
	NATSURL           string
	NATSSubjectPrefix string

	// Events waiting for delivery before operations start to wait on sinks
	EventQueueSize int

	// Decimal places used when rendering amounts in API responses
	AmountDecimals int

	// JSON file of token accounts opened on startup ( memory backend only )
	SeedAccountsFile string

	Retry retry.Config
}

// Load returns the configuration for the auction service.
// Call godotenv.Load first to pick up a .env file.
func Load() *Config {
	return &Config{
		StoreBackend:      getEnv("STORE_BACKEND", BackendMemory),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		APIPort:           getEnvAsInt("API_PORT", 8080),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		NetworkPassphrase: getEnv("NETWORK_PASSPHRASE", network.TestNetworkPassphrase),
		ProgramID:         os.Getenv("PROGRAM_ID"),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "auction"),
		EventQueueSize:    getEnvAsInt("EVENT_QUEUE_SIZE", 256),
		AmountDecimals:    getEnvAsInt("AMOUNT_DECIMALS", 7),
		SeedAccountsFile:  os.Getenv("SEED_ACCOUNTS_FILE"),
		Retry:             retry.LoadConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SeedAccountsFile != "" && c.StoreBackend != BackendMemory {
		return fmt.Errorf("SEED_ACCOUNTS_FILE is only supported with the memory backend")
	}
	if c.NetworkPassphrase == "" {
		return fmt.Errorf("NETWORK_PASSPHRASE is required")
	}
	if c.ProgramID == "" {
		return fmt.Errorf("PROGRAM_ID is required")
	}
	if _, err := models.ParseIdentity(c.ProgramID); err != nil {
		return fmt.Errorf("PROGRAM_ID: %w", err)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT %d out of range", c.APIPort)
	}
	if c.EventQueueSize < 1 {
		return fmt.Errorf("EVENT_QUEUE_SIZE must be positive")
	}
	if c.AmountDecimals < 0 || c.AmountDecimals > 18 {
		return fmt.Errorf("AMOUNT_DECIMALS %d out of range", c.AmountDecimals)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
