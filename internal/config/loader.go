package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load.
const (
	EnvConfigFile = "PEERFB_CONFIG"
	EnvPrefix     = "PEERFB_"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if PEERFB_CONFIG is set
//  3. env (prefix PEERFB_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PEERFB_DUPLICATE_POLICY -> duplicate_policy. Keys stay flat so
	// underscores match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.DuplicatePolicy != DuplicateReject && c.DuplicatePolicy != DuplicateUpdate:
		return fmt.Errorf("%w: duplicate_policy %q", ErrInvalidConfig, c.DuplicatePolicy)
	case c.SubmitRatePerSec < 0:
		return fmt.Errorf("%w: submit_rate_per_sec must not be negative", ErrInvalidConfig)
	case c.SubmitBurst < 1:
		return fmt.Errorf("%w: submit_burst must be positive", ErrInvalidConfig)
	case c.ReportRefreshMS <= 0:
		return fmt.Errorf("%w: report_refresh_ms must be positive", ErrInvalidConfig)
	case c.MaxReportTargets < 1:
		return fmt.Errorf("%w: max_report_targets must be positive", ErrInvalidConfig)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	case StoreSheets:
		if c.SheetsURL == "" {
			return fmt.Errorf("%w: sheets_url is required for the sheets store", ErrInvalidConfig)
		}
		if c.SheetsTimeoutMS <= 0 {
			return fmt.Errorf("%w: sheets_timeout_ms must be positive", ErrInvalidConfig)
		}
		if c.DuplicatePolicy == DuplicateUpdate {
			return fmt.Errorf("%w: the sheets store only supports duplicate_policy %q", ErrInvalidConfig, DuplicateReject)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	return nil
}
