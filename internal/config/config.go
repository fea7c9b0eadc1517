// Package config reads the bot configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration of the bot.
type Config struct {
	DiscordToken   string     `env:"DISCORD_TOKEN,required"`
	StatusURL      string     `env:"STATUS_URL,required"`
	StoragePath    string     `env:"STORAGE_PATH"      envDefault:"subscriptions.json"`
	DatabaseDSN    string     `env:"DATABASE_DSN"`
	IconURL        string     `env:"ICON_URL"`
	EmbedColor     int        `env:"EMBED_COLOR"       envDefault:"14745344"`
	UpdateInterval int64      `env:"UPDATE_INTERVAL"   envDefault:"60000"`
	HealthAddress  string     `env:"HEALTH_ADDRESS"`
	MetricsAddress string     `env:"METRICS_ADDRESS"`
	LogLevel       slog.Level `env:"LOG_LEVEL"         envDefault:"info"`
}

// Load reads an optional .env file, then parses and validates the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Interval is the refresh period of subscribed messages.
func (c Config) Interval() time.Duration {
	return time.Duration(c.UpdateInterval) * time.Millisecond
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DiscordToken) == "" {
		return fmt.Errorf("DISCORD_TOKEN cannot be blank")
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("UPDATE_INTERVAL must be positive, got %d", c.UpdateInterval)
	}
	if c.EmbedColor < 0 || c.EmbedColor > 0xFFFFFF {
		return fmt.Errorf("EMBED_COLOR must be between 0 and %d, got %d", 0xFFFFFF, c.EmbedColor)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" && strings.TrimSpace(c.StoragePath) == "" {
		return fmt.Errorf("either STORAGE_PATH or DATABASE_DSN must be set")
	}
	return nil
}
