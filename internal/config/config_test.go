package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("STATUS_URL", "http://127.0.0.1:1212/status")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.DiscordToken)
	assert.Equal(t, "http://127.0.0.1:1212/status", cfg.StatusURL)
	assert.Equal(t, "subscriptions.json", cfg.StoragePath)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.Equal(t, 14745344, cfg.EmbedColor)
	assert.Equal(t, time.Minute, cfg.Interval())
	assert.Empty(t, cfg.HealthAddress)
	assert.Empty(t, cfg.MetricsAddress)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_PATH", "/var/lib/herald/subs.json")
	t.Setenv("ICON_URL", "https://example.com/icon.png")
	t.Setenv("EMBED_COLOR", "255")
	t.Setenv("UPDATE_INTERVAL", "2000")
	t.Setenv("HEALTH_ADDRESS", ":50051")
	t.Setenv("METRICS_ADDRESS", ":9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/herald/subs.json", cfg.StoragePath)
	assert.Equal(t, "https://example.com/icon.png", cfg.IconURL)
	assert.Equal(t, 255, cfg.EmbedColor)
	assert.Equal(t, 2*time.Second, cfg.Interval())
	assert.Equal(t, ":50051", cfg.HealthAddress)
	assert.Equal(t, ":9090", cfg.MetricsAddress)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"blank token", "DISCORD_TOKEN", "  "},
		{"zero interval", "UPDATE_INTERVAL", "0"},
		{"negative interval", "UPDATE_INTERVAL", "-5"},
		{"interval not a number", "UPDATE_INTERVAL", "soon"},
		{"color out of range", "EMBED_COLOR", "16777216"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("STATUS_URL", "")

	_, err := Load()
	require.Error(t, err)
}
