package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Processor ProcessorConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

// ProcessorConfig holds connection settings for the remote payment API
type ProcessorConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// SyncConfig holds reconciliation engine tuning
type SyncConfig struct {
	BatchSize         int
	BatchDelay        time.Duration
	DefaultPullCount  int
	CredentialTTL     time.Duration
	CategoryTTL       time.Duration
	CategoryCacheSize int
}

// SchedulerConfig holds the periodic sync trigger settings
type SchedulerConfig struct {
	Enabled    bool
	Interval   time.Duration
	MerchantID string
	PullCount  int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Format string // json (default) or text
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "paysync"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Processor: ProcessorConfig{
			BaseURL:        getEnv("PROCESSOR_BASE_URL", "https://sandbox.api.procpay.example"),
			RequestTimeout: getEnvAsDuration("PROCESSOR_REQUEST_TIMEOUT", "30s"),
			MaxRetries:     getEnvAsInt("PROCESSOR_MAX_RETRIES", 3),
			RetryBaseDelay: getEnvAsDuration("PROCESSOR_RETRY_BASE_DELAY", "500ms"),
		},
		Sync: SyncConfig{
			BatchSize:         getEnvAsInt("SYNC_BATCH_SIZE", 100),
			BatchDelay:        getEnvAsDuration("SYNC_BATCH_DELAY", "250ms"),
			DefaultPullCount:  getEnvAsInt("SYNC_DEFAULT_PULL_COUNT", 100),
			CredentialTTL:     getEnvAsDuration("SYNC_CREDENTIAL_TTL", "5m"),
			CategoryTTL:       getEnvAsDuration("SYNC_CATEGORY_TTL", "5m"),
			CategoryCacheSize: getEnvAsInt("SYNC_CATEGORY_CACHE_SIZE", 512),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getEnvAsBool("SCHEDULER_ENABLED", true),
			Interval:   getEnvAsDuration("SCHEDULER_INTERVAL", "15m"),
			MerchantID: getEnv("SCHEDULER_MERCHANT_ID", "default"),
			PullCount:  getEnvAsInt("SCHEDULER_PULL_COUNT", 100),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	if c.Processor.BaseURL == "" {
		return fmt.Errorf("processor base URL cannot be empty")
	}
	if c.Processor.MaxRetries < 0 {
		return fmt.Errorf("processor max retries cannot be negative")
	}

	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync batch size must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.DefaultPullCount <= 0 {
		return fmt.Errorf("sync default pull count must be positive, got %d", c.Sync.DefaultPullCount)
	}
	if c.Sync.CredentialTTL <= 0 {
		return fmt.Errorf("credential cache TTL must be positive")
	}

	if c.Scheduler.Enabled {
		if c.Scheduler.Interval <= 0 {
			return fmt.Errorf("scheduler interval must be positive")
		}
		if c.Scheduler.MerchantID == "" {
			return fmt.Errorf("scheduler merchant id cannot be empty")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to parsing the default if provided value is invalid
		duration, err = time.ParseDuration(defaultValue)
		if err != nil {
			return 0
		}
	}
	return duration
}
