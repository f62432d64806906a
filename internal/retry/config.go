package retry

import (
	"os"
	"strconv"
	"time"
)

// Config holds retry configuration
type Config struct {
	Enabled      bool          // Enable/disable retry of whole operations
	MaxRetries   int           // Maximum number of retry attempts
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Maximum delay between retries
}

// LoadConfig loads retry configuration from environment variables.
// Operations are short database transactions, so delays are in milliseconds.
func LoadConfig() Config {
	return Config{
		Enabled:      getEnvAsBool("RETRY_ENABLED", true),
		MaxRetries:   getEnvAsInt("RETRY_MAX_RETRIES", 3),
		InitialDelay: time.Duration(getEnvAsInt("RETRY_INITIAL_DELAY_MS", 20)) * time.Millisecond,
		MaxDelay:     time.Duration(getEnvAsInt("RETRY_MAX_DELAY_MS", 500)) * time.Millisecond,
	}
}

// Helper: get bool from env
func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get int from env
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
