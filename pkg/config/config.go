// Package config maps TUSACH_* environment variables into one typed struct,
// shared by the API server and the operator commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr   string `env:"TUSACH_HTTP_ADDR"   envDefault:":8080"`
	SyncAddr   string `env:"TUSACH_SYNC_ADDR"   envDefault:":7070"`
	NotifyAddr string `env:"TUSACH_NOTIFY_ADDR" envDefault:":7071"`

	// DBPath and EpubDir default to ~/.tusach/ when unset; see Load.
	DBPath  string `env:"TUSACH_DB_PATH"`
	EpubDir string `env:"TUSACH_EPUB_DIR"`

	JWTSecret string        `env:"TUSACH_JWT_SECRET" envDefault:"dev-secret-change-me"` // change for production
	JWTIssuer string        `env:"TUSACH_JWT_ISSUER" envDefault:"tusach"`
	JWTTTL    time.Duration `env:"TUSACH_JWT_TTL"    envDefault:"24h"`

	// Per-client request budget for the public API.
	RatePerSec float64 `env:"TUSACH_RATE_PER_SEC" envDefault:"20"`
	RateBurst  int     `env:"TUSACH_RATE_BURST"   envDefault:"40"`

	// Base URL of the local mirror used by the thuquan crawler source.
	MirrorURL string `env:"TUSACH_MIRROR_URL" envDefault:"http://localhost:9000"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(homeDir(), ".tusach", "library.db")
	}
	if cfg.EpubDir == "" {
		cfg.EpubDir = filepath.Join(homeDir(), ".tusach", "epub")
	}
	return cfg, nil
}

// MustLoad is for command mains that cannot start without configuration.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}
