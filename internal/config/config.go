package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvDevelopment enables debug logging.
	EnvDevelopment = "development"
	// EnvProduction represents the production environment.
	EnvProduction = "production"

	// Prefix is prepended to every environment variable name.
	Prefix = "WHISTLE"
)

// Config holds all application configuration.
type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogMaxSizeMB is the size at which the TUI log file is rotated.
	LogMaxSizeMB int `envconfig:"LOG_MAX_SIZE_MB" default:"5"`

	// Dir is the clip directory. Empty means $HOME/Documents/Whistle.
	Dir      string `envconfig:"DIR"`
	ClipName string `envconfig:"CLIP_NAME" default:"recording.wav"`

	TickInterval time.Duration `envconfig:"TICK_INTERVAL" default:"250ms"`
	AutoStart    bool          `envconfig:"AUTO_START" default:"true"`
}

// LoadConfig loads configuration from an optional .env file and the
// environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// a missing .env is the normal case
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	var config Config
	if err := envconfig.Process(Prefix, &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate rejects settings the session cannot run with.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}

	if c.ClipName == "" || filepath.Base(c.ClipName) != c.ClipName {
		return fmt.Errorf("clip name %q must be a bare file name", c.ClipName)
	}

	if c.LogMaxSizeMB <= 0 {
		return errors.New("log max size must be positive")
	}

	return nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.Env == EnvDevelopment || c.LogLevel == "debug"
}
