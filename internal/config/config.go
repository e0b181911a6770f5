// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every variable, e.g. PISARNA_ADDR.
const EnvPrefix = "PISARNA"

// Config holds settings that command-line flags may override.
type Config struct {
	DBPath          string        `envconfig:"DB_PATH" default:"pisarna.sqlite3"`
	Addr            string        `envconfig:"ADDR" default:":8080"`
	AdminName       string        `envconfig:"ADMIN_NAME" default:"Admin"`
	AdminEmail      string        `envconfig:"ADMIN_EMAIL" default:"admin@pisarna.local"`
	LogPath         string        `envconfig:"LOG_PATH"`
	Seed            bool          `envconfig:"SEED" default:"true"`
	TokenTTL        time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads the environment after loading any of envFiles that exist.
// Variables already set in the environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("parsing config: %s_TOKEN_TTL must be positive", EnvPrefix)
	}
	return &cfg, nil
}
