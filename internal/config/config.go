// Package config loads server configuration from the environment. Every
// variable uses the NOTEBOOK_ prefix; a .env file in the working directory
// is honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Observer ObserverConfig
	Notebook NotebookConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORS            bool
}

// DatabaseConfig configures the Postgres connection used by data-query
// cells. An empty DSN means the notebook starts without a database; a
// connection can still be configured over the API.
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string
	Format string
}

// ObserverConfig toggles status-event observers.
type ObserverConfig struct {
	EnableLogger    bool
	EnableWebSocket bool
	WebSocketBuffer int
}

// NotebookConfig locates the notebook file.
type NotebookConfig struct {
	File string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	// Missing .env is not an error; explicit environment always wins.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("NOTEBOOK_HOST", "0.0.0.0"),
			Port:            getEnvInt("NOTEBOOK_PORT", 8000),
			ReadTimeout:     getEnvDuration("NOTEBOOK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("NOTEBOOK_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvDuration("NOTEBOOK_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORS:            getEnvBool("NOTEBOOK_CORS_ENABLED", true),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("NOTEBOOK_DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("NOTEBOOK_DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvInt("NOTEBOOK_DB_MIN_CONNECTIONS", 2),
			ConnMaxLifetime: getEnvDuration("NOTEBOOK_DB_MAX_CONN_LIFETIME", time.Hour),
			Debug:           getEnvBool("NOTEBOOK_DB_DEBUG", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("NOTEBOOK_LOG_LEVEL", "info"),
			Format: getEnv("NOTEBOOK_LOG_FORMAT", "json"),
		},
		Observer: ObserverConfig{
			EnableLogger:    getEnvBool("NOTEBOOK_OBSERVER_LOGGER", true),
			EnableWebSocket: getEnvBool("NOTEBOOK_OBSERVER_WEBSOCKET", true),
			WebSocketBuffer: getEnvInt("NOTEBOOK_WEBSOCKET_BUFFER", 256),
		},
		Notebook: NotebookConfig{
			File: getEnv("NOTEBOOK_FILE", "notebook.py"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	if c.Notebook.File == "" {
		return fmt.Errorf("notebook file path must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
