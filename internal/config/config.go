// Package config holds the engine configuration: rounding, canonical
// precision, undated resolution policy, default avoided-emissions methodology
// and logging. Values come from defaults, an optional YAML document and
// CO2E_* environment overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rshade/co2e-engine/internal/carbon"
	"github.com/rshade/co2e-engine/internal/detmath"
	"github.com/rshade/co2e-engine/internal/factors"
)

// Environment variables read by ApplyEnv.
const (
	EnvRoundingDecimals = "CO2E_ROUNDING_DECIMALS"
	EnvRoundingMode     = "CO2E_ROUNDING_MODE"
	EnvMaxDecimals      = "CO2E_CANONICAL_MAX_DECIMALS"
	EnvUndatedPolicy    = "CO2E_UNDATED_POLICY"
	EnvLogLevel         = "CO2E_LOG_LEVEL"
	EnvLogFormat        = "CO2E_LOG_FORMAT"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config is the complete engine configuration.
type Config struct {
	Rounding    detmath.RoundingSpec `yaml:"rounding"`
	Canonical   CanonicalConfig      `yaml:"canonical"`
	Resolver    ResolverConfig       `yaml:"resolver"`
	Methodology carbon.Methodology   `yaml:"methodology"`
	Logging     LoggingConfig        `yaml:"logging"`
}

// CanonicalConfig controls canonical serialization.
type CanonicalConfig struct {
	MaxDecimals int `yaml:"maxDecimals"`
}

// ResolverConfig controls factor resolution.
type ResolverConfig struct {
	UndatedPolicy factors.UndatedPolicy `yaml:"undatedPolicy"`
}

// LoggingConfig controls the zerolog logger built by internal/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Rounding:    detmath.DefaultRounding(),
		Canonical:   CanonicalConfig{MaxDecimals: detmath.DefaultDecimals},
		Resolver:    ResolverConfig{UndatedPolicy: factors.TableOrder},
		Methodology: carbon.DefaultMethodology(),
		Logging:     LoggingConfig{Level: "info", Format: FormatJSON},
	}
}

// Parse decodes a YAML document over Default and validates the result.
// Unknown keys are rejected. An empty document yields Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if mode, err := detmath.ParseMode(string(cfg.Rounding.Mode)); err == nil {
		cfg.Rounding.Mode = mode
	}
	if p, err := factors.ParseUndatedPolicy(string(cfg.Resolver.UndatedPolicy)); err == nil {
		cfg.Resolver.UndatedPolicy = p
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from environment variables looked up with lookupEnv
// (os.LookupEnv in production). Invalid values are logged and ignored, leaving
// the current setting in place.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool), logger zerolog.Logger) {
	get := func(key string) (string, bool) {
		v, ok := lookupEnv(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	invalid := func(key, value string, err error) {
		logger.Warn().Err(err).Str("value", value).Msgf("invalid %s, using configured value", key)
	}

	if v, ok := get(EnvRoundingDecimals); ok {
		if n, err := strconv.Atoi(v); err != nil || n < 0 || n > detmath.MaxDecimals {
			invalid(EnvRoundingDecimals, v, fmt.Errorf("want an integer between 0 and %d", detmath.MaxDecimals))
		} else {
			c.Rounding.Decimals = n
		}
	}

	if v, ok := get(EnvRoundingMode); ok {
		if mode, err := detmath.ParseMode(v); err != nil {
			invalid(EnvRoundingMode, v, err)
		} else {
			c.Rounding.Mode = mode
		}
	}

	if v, ok := get(EnvMaxDecimals); ok {
		if n, err := strconv.Atoi(v); err != nil || n < 0 || n > detmath.MaxDecimals {
			invalid(EnvMaxDecimals, v, fmt.Errorf("want an integer between 0 and %d", detmath.MaxDecimals))
		} else {
			c.Canonical.MaxDecimals = n
		}
	}

	if v, ok := get(EnvUndatedPolicy); ok {
		if p, err := factors.ParseUndatedPolicy(v); err != nil {
			invalid(EnvUndatedPolicy, v, err)
		} else {
			c.Resolver.UndatedPolicy = p
		}
	}

	if v, ok := get(EnvLogLevel); ok {
		if _, err := zerolog.ParseLevel(strings.ToLower(v)); err != nil {
			invalid(EnvLogLevel, v, err)
		} else {
			c.Logging.Level = strings.ToLower(v)
		}
	}

	if v, ok := get(EnvLogFormat); ok {
		if err := validateFormat(v); err != nil {
			invalid(EnvLogFormat, v, err)
		} else {
			c.Logging.Format = strings.ToLower(v)
		}
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error

	if err := c.Rounding.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rounding: %w", err))
	}
	if n := c.Canonical.MaxDecimals; n < 0 || n > detmath.MaxDecimals {
		errs = append(errs, fmt.Errorf("canonical.maxDecimals must be between 0 and %d, got %d", detmath.MaxDecimals, n))
	}
	if _, err := factors.ParseUndatedPolicy(string(c.Resolver.UndatedPolicy)); err != nil {
		errs = append(errs, fmt.Errorf("resolver.undatedPolicy: %w", err))
	}
	if err := c.Methodology.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("methodology: %w", err))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if err := validateFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("logging.format: %w", err))
	}

	return errors.Join(errs...)
}

func validateFormat(format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, FormatConsole:
		return nil
	default:
		return fmt.Errorf("unknown log format %q (want %s or %s)", format, FormatJSON, FormatConsole)
	}
}
