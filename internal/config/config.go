package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the client application configuration, loaded from
// DONORLINK_* environment variables.
type Config struct {
	Backend   BackendConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	StateDir  string `envconfig:"STATE_DIR"`
}

// BackendConfig locates the remote donation API.
type BackendConfig struct {
	BaseURL           string        `envconfig:"BACKEND_URL" default:"https://api.donorlink.org"`
	Timeout           time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	RefreshCookieName string        `envconfig:"REFRESH_COOKIE" default:"refreshToken"`
}

// GatewayConfig configures the local gateway server.
type GatewayConfig struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8080"`
}

// RateLimitConfig bounds request rates per client IP.
type RateLimitConfig struct {
	PerSecond int `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst     int `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

// Load reads configuration from the environment. The state directory
// defaults to the per-user config dir (the durable-storage analog of the
// browser's local storage).
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("donorlink", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve state dir: %w", err)
		}
		cfg.StateDir = filepath.Join(base, "donorlink")
	}
	return &cfg, nil
}
