package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flowdeck/flowdeck/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL         string
	ReplicaURLs string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
}

// RedisConfig holds the optional Redis cache configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuditConfig holds audit sink configuration
type AuditConfig struct {
	// Sink is "db", "file", "both", or "none"
	Sink     string
	FilePath string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("FLOWDECK_HOST", "0.0.0.0"),
			Port:            getEnv("FLOWDECK_PORT", "8080"),
			ReadTimeout:     getEnvDuration("FLOWDECK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("FLOWDECK_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("FLOWDECK_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("FLOWDECK_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("FLOWDECK_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:         getEnv("FLOWDECK_POSTGRES_URL", ""),
			ReplicaURLs: getEnv("FLOWDECK_POSTGRES_REPLICA_URLS", ""),
			MaxConns:    getEnvInt("FLOWDECK_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("FLOWDECK_POSTGRES_MIN_CONNS", 5),
			Timeout:     getEnvDuration("FLOWDECK_POSTGRES_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:      getEnv("FLOWDECK_REDIS_URL", ""),
			Password: getEnv("FLOWDECK_REDIS_PASSWORD", ""),
			DB:       getEnvInt("FLOWDECK_REDIS_DB", 0),
		},
		Audit: AuditConfig{
			Sink:     getEnv("FLOWDECK_AUDIT_SINK", "db"),
			FilePath: getEnv("FLOWDECK_AUDIT_FILE", "/var/log/flowdeck/audit.log"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("FLOWDECK_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("FLOWDECK_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	switch c.Audit.Sink {
	case "db", "none":
	case "file", "both":
		if c.Audit.FilePath == "" {
			return fmt.Errorf("audit file path is required for file sink")
		}
	default:
		return fmt.Errorf("invalid audit sink: %s (must be db, file, both, or none)", c.Audit.Sink)
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
