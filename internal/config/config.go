package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	PublicURL string `env:"PUBLIC_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	TikTokWebBaseURL string `env:"TIKTOK_WEB_BASE_URL" default:"https://www.tiktok.com"`
	TikTokWebcastURL string `env:"TIKTOK_WEBCAST_URL" default:"wss://webcast.tiktok.com"`

	UpstreamConnectTimeout time.Duration `env:"UPSTREAM_CONNECT_TIMEOUT" default:"15s"`
	HeartbeatInterval      time.Duration `env:"HEARTBEAT_INTERVAL" default:"10s"`
	CleanupInterval        time.Duration `env:"CLEANUP_INTERVAL" default:"60s"`
	IdleThreshold          time.Duration `env:"IDLE_THRESHOLD" default:"5m"`

	// Zero means unlimited.
	MaxSubscribersPerTenant int `env:"MAX_SUBSCRIBERS_PER_TENANT" default:"0"`

	LiveCheckRatePerSecond float64 `env:"LIVE_CHECK_RATE" default:"1"`
	LiveCheckBurst         int     `env:"LIVE_CHECK_BURST" default:"5"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether the process runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

func validate(cfg *Config) error {
	intervals := map[string]time.Duration{
		"UPSTREAM_CONNECT_TIMEOUT": cfg.UpstreamConnectTimeout,
		"HEARTBEAT_INTERVAL":       cfg.HeartbeatInterval,
		"CLEANUP_INTERVAL":         cfg.CleanupInterval,
		"IDLE_THRESHOLD":           cfg.IdleThreshold,
	}
	for name, value := range intervals {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.MaxSubscribersPerTenant < 0 {
		return fmt.Errorf("MAX_SUBSCRIBERS_PER_TENANT must not be negative")
	}

	if cfg.LiveCheckRatePerSecond <= 0 {
		return fmt.Errorf("LIVE_CHECK_RATE must be positive")
	}
	if cfg.LiveCheckBurst <= 0 {
		return fmt.Errorf("LIVE_CHECK_BURST must be positive")
	}

	if !cfg.IsDevelopment() {
		if strings.HasPrefix(strings.ToLower(cfg.TikTokWebcastURL), "ws://") {
			return fmt.Errorf("TIKTOK_WEBCAST_URL uses ws:// which is not allowed in production")
		}
		if strings.HasPrefix(strings.ToLower(cfg.TikTokWebBaseURL), "http://") {
			return fmt.Errorf("TIKTOK_WEB_BASE_URL uses http:// which is not allowed in production")
		}
	}

	return nil
}
