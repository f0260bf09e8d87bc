package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/core-coin/vault-indexer/pkg/validation"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// ErrWatcherDisabled is returned by ValidateWatcher when ENABLE_VAULT_WATCHER is false.
var ErrWatcherDisabled = errors.New("vault watcher is disabled")

type Config struct {
	Development bool
	// API configuration
	APIPort int

	// Database configuration
	DBDriver         string
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	SQLitePath       string

	// Blockchain configuration
	RPCURL         string
	RPCTimeout     time.Duration
	RPCRateLimit   float64
	VaultAddress   string
	TokenAddress   string
	TokenSymbol    string
	TokenDecimals  int32
	StartBlock     *uint64
	// StartBlockRaw keeps VAULT_START_BLOCK as set so a malformed value fails validation.
	StartBlockRaw  string
	WatcherEnabled bool
	// Confirmations is loaded for operators but the scanner does not wait for it.
	Confirmations uint64

	// Scanner configuration
	WatcherSource string
	MaxBlockSpan  uint64
	PollInterval  time.Duration
	Lookback      uint64
	LockTTL       time.Duration

	// Notification configuration
	TelegramBotToken string
	TelegramChatID   string
}

// LoadConfig loads the configuration from environment variables.
// Validation is left to the caller so that CLI flags can be applied first.
func LoadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	startBlockRaw := getEnv("VAULT_START_BLOCK", "")

	return &Config{
		Development: getEnvAsBool("DEVELOPMENT", false),
		APIPort:     getEnvAsInt("API_PORT", 8080),

		DBDriver:         getEnv("DB_DRIVER", DBDriverPostgres),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "vault_indexer"),
		SQLitePath:       getEnv("SQLITE_PATH", "./vault-indexer.db"),

		RPCURL:         getEnv("RPC_HTTP_URL", getEnv("ARBITRUM_HTTP_URL", "")),
		RPCTimeout:     getEnvAsDuration("RPC_TIMEOUT", 10*time.Second),
		RPCRateLimit:   getEnvAsFloat("RPC_RATE_LIMIT", 0),
		VaultAddress:   getEnv("VAULT_CONTRACT_ADDRESS", ""),
		TokenAddress:   getEnv("TOKEN_ADDRESS", getEnv("USDC_TOKEN_ADDRESS", "")),
		TokenSymbol:    getEnv("TOKEN_SYMBOL", "USDC"),
		TokenDecimals:  int32(getEnvAsInt("TOKEN_DECIMALS", 6)),
		StartBlock:     parseOptionalUint(startBlockRaw),
		StartBlockRaw:  startBlockRaw,
		WatcherEnabled: getEnvAsBool("ENABLE_VAULT_WATCHER", true),
		Confirmations:  getEnvAsUint("WATCHER_CONFIRMATIONS", 2),

		WatcherSource: getEnv("WATCHER_SOURCE", "arbitrum_vault"),
		MaxBlockSpan:  getEnvAsUint("WATCHER_MAX_BLOCK_SPAN", 10),
		PollInterval:  getEnvAsDuration("WATCHER_POLL_INTERVAL", 5*time.Second),
		Lookback:      getEnvAsUint("WATCHER_LOOKBACK", 10),
		LockTTL:       getEnvAsDuration("WATCHER_LOCK_TTL", 30*time.Second),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

// Validate checks the settings every run mode needs (API and store)
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DBDriverPostgres:
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	case DBDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected %q or %q)", c.DBDriver, DBDriverPostgres, DBDriverSQLite)
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid API_PORT %d", c.APIPort)
	}

	return nil
}

// ValidateWatcher checks the settings the deposit watcher needs before it may start.
// It returns ErrWatcherDisabled when the watcher is switched off.
func (c *Config) ValidateWatcher() error {
	if !c.WatcherEnabled {
		return ErrWatcherDisabled
	}

	if c.RPCURL == "" {
		return fmt.Errorf("RPC_HTTP_URL is required")
	}

	if c.VaultAddress == "" {
		return fmt.Errorf("VAULT_CONTRACT_ADDRESS is required")
	}
	if err := validation.ValidateAddress(c.VaultAddress); err != nil {
		return fmt.Errorf("invalid VAULT_CONTRACT_ADDRESS format: %w", err)
	}

	if c.TokenAddress == "" {
		return fmt.Errorf("TOKEN_ADDRESS is required")
	}
	if err := validation.ValidateAddress(c.TokenAddress); err != nil {
		return fmt.Errorf("invalid TOKEN_ADDRESS format: %w", err)
	}

	if c.StartBlockRaw != "" {
		if _, err := strconv.ParseUint(c.StartBlockRaw, 10, 64); err != nil {
			return fmt.Errorf("invalid VAULT_START_BLOCK %q: must be a non-negative block number", c.StartBlockRaw)
		}
	}

	if c.WatcherSource == "" {
		return fmt.Errorf("WATCHER_SOURCE is required")
	}
	if c.MaxBlockSpan == 0 {
		return fmt.Errorf("WATCHER_MAX_BLOCK_SPAN must be greater than zero")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("WATCHER_POLL_INTERVAL must be positive")
	}

	return nil
}

// SetStartBlock overrides the start block, replacing any value read from the environment
func (c *Config) SetStartBlock(height uint64) {
	c.StartBlock = &height
	c.StartBlockRaw = strconv.FormatUint(height, 10)
}

// PostgresDSN builds the lib/pq style DSN used by the GORM postgres driver
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort)
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsUint(name string, defaultValue uint64) uint64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseUint(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func parseOptionalUint(valueStr string) *uint64 {
	if valueStr == "" {
		return nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

func getEnvAsFloat(name string, defaultValue float64) float64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
