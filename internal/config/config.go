// Package config loads runtime configuration from ECLIPSE_* environment
// variables, with command-line flags taking precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/ephem"
)

// Prefix is the environment variable prefix.
const Prefix = "ECLIPSE"

const (
	MinSamples = 2
	MaxSamples = 10000
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything the binary needs to run.
type Config struct {
	Lat  float64 `envconfig:"LAT" default:"39.6953"`
	Lon  float64 `envconfig:"LON" default:"3.0176"`
	Elev float64 `envconfig:"ELEV" default:"0"`
	Name string  `envconfig:"NAME" default:"Palma"`

	// Start is the search start in RFC 3339; empty means now.
	Start string `envconfig:"START"`

	Mode         string        `envconfig:"MODE" default:"analytic"`
	HorizonsURL  string        `envconfig:"HORIZONS_URL"`
	MaxLunations int           `envconfig:"MAX_LUNATIONS" default:"1300"`
	Samples      int           `envconfig:"SAMPLES" default:"500"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"30m"`

	Listen   string `envconfig:"LISTEN" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// RegisterFlags binds flags to cfg, using its current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.Float64Var(&c.Lat, "lat", c.Lat, "Observer latitude in degrees (north positive)")
	fs.Float64Var(&c.Lon, "lon", c.Lon, "Observer longitude in degrees (east positive)")
	fs.Float64Var(&c.Elev, "elev", c.Elev, "Observer elevation in meters")
	fs.StringVar(&c.Name, "name", c.Name, "Observer display name")
	fs.StringVar(&c.Start, "start", c.Start, "Search start, RFC 3339 (default now)")
	fs.StringVar(&c.Mode, "mode", c.Mode, "Ephemeris mode (analytic, horizons)")
	fs.StringVar(&c.HorizonsURL, "horizons-url", c.HorizonsURL, "JPL Horizons API endpoint")
	fs.IntVar(&c.MaxLunations, "max-lunations", c.MaxLunations, "Lunations to search before giving up")
	fs.IntVar(&c.Samples, "samples", c.Samples, "Coverage curve samples")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "How long resolved eclipses are reused")
	fs.StringVar(&c.Listen, "listen", c.Listen, "HTTP listen address for -serve")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
}

// Observer returns the configured observer.
func (c Config) Observer() astro.Observer {
	return astro.Observer{LatDeg: c.Lat, LonDeg: c.Lon, ElevationM: c.Elev, Name: c.Name}
}

// StartTime returns the configured search start, or now if unset.
func (c Config) StartTime(now time.Time) (time.Time, error) {
	if c.Start == "" {
		return now.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, c.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start %q: %v", ErrInvalidConfig, c.Start, err)
	}
	return t.UTC(), nil
}

// EphemMode returns the parsed ephemeris mode.
func (c Config) EphemMode() (ephem.Mode, error) {
	switch c.Mode {
	case "", ephem.ModeAnalytic.String(), ephem.ModeHorizons.String():
		return ephem.ParseMode(c.Mode), nil
	}
	return ephem.ModeAnalytic, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
}

// Validate checks the observer, sample count, mode and durations.
func (c Config) Validate() error {
	if err := c.Observer().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Samples < MinSamples || c.Samples > MaxSamples {
		return fmt.Errorf("%w: samples %d outside [%d, %d]", ErrInvalidConfig, c.Samples, MinSamples, MaxSamples)
	}
	if _, err := c.EphemMode(); err != nil {
		return err
	}
	if c.MaxLunations <= 0 {
		return fmt.Errorf("%w: max lunations must be positive", ErrInvalidConfig)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive", ErrInvalidConfig)
	}
	if _, err := c.StartTime(time.Time{}); err != nil {
		return err
	}
	return nil
}
