package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittoftp/pkg/adapter/ftp"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/control"
)

// DefaultMetricsPort is the Prometheus endpoint port when none is configured.
const DefaultMetricsPort = 9090

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backend implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyBehaviorsDefaults(&cfg.Behaviors)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}

// applyBehaviorsDefaults sets behavior persistence defaults.
func applyBehaviorsDefaults(cfg *BehaviorsConfig) {
	if cfg.Persistence.Type == "" {
		cfg.Persistence.Type = "memory"
	}
	if cfg.Persistence.Badger == nil {
		cfg.Persistence.Badger = make(map[string]any)
	}
	// Filled in for config file generation even when Type is "memory"
	if _, ok := cfg.Persistence.Badger["db_path"]; !ok {
		cfg.Persistence.Badger["db_path"] = "/tmp/dittoftp-behaviors"
	}
	if cfg.Commands == nil {
		cfg.Commands = make(map[string]behavior.CommandBehavior)
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// An adapter with no explicit port looks unconfigured: enable it so a
	// freshly loaded config (with no config file) passes validation. Users
	// can still set enabled: false explicitly.
	if !cfg.FTP.Enabled && cfg.FTP.Port == 0 {
		cfg.FTP.Enabled = true
	}
	if !cfg.Control.Enabled && cfg.Control.Port == 0 {
		cfg.Control.Enabled = true
	}

	applyFTPDefaults(&cfg.FTP)
	applyControlDefaults(&cfg.Control)
}

// applyFTPDefaults sets FTP adapter defaults.
func applyFTPDefaults(cfg *ftp.FTPConfig) {
	if cfg.Port == 0 {
		cfg.Port = ftp.DefaultPort
	}

	// MaxConnections defaults to 0 (unlimited)

	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.DataTimeout == 0 {
		cfg.DataTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = 5 * time.Minute
	}
	if cfg.WelcomeMessage == "" {
		cfg.WelcomeMessage = "DittoFTP simulator ready."
	}

	// RequireAuth defaults to false (permissive)
	// RateLimit defaults to 0 requests per second (unlimited)
}

// applyControlDefaults sets control surface defaults.
func applyControlDefaults(cfg *control.Config) {
	if cfg.Port == 0 {
		cfg.Port = control.DefaultPort
	}
	if cfg.LogBufferSize == 0 {
		cfg.LogBufferSize = 500
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			FTP:     ftp.FTPConfig{Enabled: true},
			Control: control.Config{Enabled: true},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
