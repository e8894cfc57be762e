// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New.
// - Validation failures wrap ErrInvalidConfig; source failures wrap ErrLoadConfig.
package config

import (
	"context"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSheets   = "sheets"
)

// Duplicate policies for a second assessment of the same pair.
const (
	DuplicateReject = "reject"
	DuplicateUpdate = "update"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the gateway backend: memory, postgres or sheets.
	Store string `koanf:"store"`

	// SeedFile is a YAML file of users loaded into the memory store.
	SeedFile string `koanf:"seed_file"`

	// PostgresDSN is required when Store is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// SheetsURL is the web app endpoint; required when Store is sheets.
	SheetsURL string `koanf:"sheets_url"`

	// SheetsTimeoutMS bounds each call to the sheets endpoint.
	SheetsTimeoutMS int `koanf:"sheets_timeout_ms"`

	// DuplicatePolicy is reject (default) or update.
	DuplicatePolicy string `koanf:"duplicate_policy"`

	// SubmitRatePerSec and SubmitBurst throttle POST /assessments per
	// evaluator. A zero rate disables throttling.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec"`
	SubmitBurst      int     `koanf:"submit_burst"`

	// ReportRefreshMS is how often the admin report is recomputed in the background.
	ReportRefreshMS int `koanf:"report_refresh_ms"`

	// MaxReportTargets caps the number of employees in one admin report.
	MaxReportTargets int `koanf:"max_report_targets"`

	// MetricsEnabled turns Prometheus recording on or off. Collectors stay
	// registered either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsRefreshMS is how often system gauges are pushed.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config populated with defaults. The context is reserved for
// sources that need one.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		Store:            StoreMemory,
		SheetsTimeoutMS:  10_000,
		DuplicatePolicy:  DuplicateReject,
		SubmitRatePerSec: 5,
		SubmitBurst:      10,
		ReportRefreshMS:  30_000,
		MaxReportTargets: 5_000,
		MetricsEnabled:   true,
		MetricsNamespace: "peerfeedback",
		MetricsSubsystem: "core",
		MetricsRefreshMS: 10_000,
	}
}

// SheetsTimeout returns SheetsTimeoutMS as a duration.
func (c *Config) SheetsTimeout() time.Duration {
	return time.Duration(c.SheetsTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// ReportRefresh returns ReportRefreshMS as a duration.
func (c *Config) ReportRefresh() time.Duration {
	return time.Duration(c.ReportRefreshMS) * time.Millisecond
}
