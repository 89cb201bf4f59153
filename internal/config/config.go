package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MaxPriceScale is the largest number of decimal places a price may carry.
const MaxPriceScale = 8

var symbolRegex = regexp.MustCompile(`^[A-Z]{1,10}$`)

// Config holds all runtime configuration for the order book.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	PriceScale      int32         `env:"PRICE_SCALE" envDefault:"2"`
	DepthLevels     int           `env:"DEPTH_LEVELS" envDefault:"0"`
	DefaultSymbol   string        `env:"DEFAULT_SYMBOL" envDefault:"BOOK"`
	VWAPWindow      time.Duration `env:"VWAP_WINDOW" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// LoadEnvFile loads variables from a .env style file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.PriceScale < 0 || c.PriceScale > MaxPriceScale {
		return fmt.Errorf("invalid PRICE_SCALE: %d, must be between 0 and %d", c.PriceScale, MaxPriceScale)
	}
	if c.DepthLevels < 0 {
		return fmt.Errorf("invalid DEPTH_LEVELS: %d, must be >= 0", c.DepthLevels)
	}
	if !symbolRegex.MatchString(c.DefaultSymbol) {
		return fmt.Errorf("invalid DEFAULT_SYMBOL: %q, must match ^[A-Z]{1,10}$", c.DefaultSymbol)
	}
	if c.VWAPWindow <= 0 {
		return fmt.Errorf("invalid VWAP_WINDOW: %v, must be positive", c.VWAPWindow)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %v, must be positive", c.ShutdownTimeout)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
