package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/observability"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("FLOWDECK_POSTGRES_URL", "postgres://localhost/flowdeck")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "9090", cfg.Server.HealthPort)
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 25, cfg.Database.MaxConns)
		assert.Equal(t, "db", cfg.Audit.Sink)
		assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
		assert.True(t, cfg.Observability.MetricsEnabled)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("FLOWDECK_POSTGRES_URL", "postgres://localhost/flowdeck")
		t.Setenv("FLOWDECK_PORT", "3000")
		t.Setenv("FLOWDECK_READ_TIMEOUT", "5s")
		t.Setenv("FLOWDECK_POSTGRES_MAX_CONNS", "50")
		t.Setenv("FLOWDECK_LOG_LEVEL", "debug")
		t.Setenv("FLOWDECK_METRICS_ENABLED", "false")
		t.Setenv("FLOWDECK_AUDIT_SINK", "none")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 50, cfg.Database.MaxConns)
		assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
		assert.False(t, cfg.Observability.MetricsEnabled)
		assert.Equal(t, "none", cfg.Audit.Sink)
	})

	t.Run("missing postgres url fails validation", func(t *testing.T) {
		t.Setenv("FLOWDECK_POSTGRES_URL", "")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres URL")
	})

	t.Run("malformed numeric values fall back to defaults", func(t *testing.T) {
		t.Setenv("FLOWDECK_POSTGRES_URL", "postgres://localhost/flowdeck")
		t.Setenv("FLOWDECK_POSTGRES_MAX_CONNS", "lots")
		t.Setenv("FLOWDECK_READ_TIMEOUT", "soon")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxConns)
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	})
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080", HealthPort: "9090"},
			Database: DatabaseConfig{URL: "postgres://localhost/flowdeck"},
			Audit:    AuditConfig{Sink: "db"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("port clash", func(t *testing.T) {
		cfg := base()
		cfg.Server.HealthPort = cfg.Server.Port
		assert.Error(t, cfg.Validate())
	})

	t.Run("file sink requires a path", func(t *testing.T) {
		cfg := base()
		cfg.Audit.Sink = "file"
		cfg.Audit.FilePath = ""
		assert.Error(t, cfg.Validate())

		cfg.Audit.FilePath = "/tmp/audit.log"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown sink", func(t *testing.T) {
		cfg := base()
		cfg.Audit.Sink = "kafka"
		assert.Error(t, cfg.Validate())
	})
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("unknown"))
}
