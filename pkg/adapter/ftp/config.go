package ftp

import (
	"fmt"
	"time"
)

// DefaultPort is the control port used when none is configured.
const DefaultPort = 8021

// FTPConfig holds configuration parameters for the FTP adapter.
//
// Default values (applied by New if zero):
//   - Port: 8021 (a negative port binds an OS-assigned one, used by tests)
//   - MaxConnections: 0 (unlimited)
//   - IdleTimeout: 5m
//   - WriteTimeout: 30s
//   - DataTimeout: 30s
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 5m
//   - WelcomeMessage: "DittoFTP simulator ready."
type FTPConfig struct {
	// Enabled controls whether the FTP adapter is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP control port.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// PublicHost is the IPv4 address advertised in PASV replies.
	// Empty means the local address of the control connection.
	PublicHost string `mapstructure:"public_host" yaml:"public_host" validate:"omitempty,ipv4"`

	// MaxConnections limits concurrent control connections. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// IdleTimeout closes a control connection that sends no command for this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`

	// WriteTimeout bounds writing one reply.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	// DataTimeout bounds waiting for a peer on a passive port and each read or
	// write on the data connection.
	DataTimeout time.Duration `mapstructure:"data_timeout" yaml:"data_timeout" validate:"min=0"`

	// ShutdownTimeout is how long to wait for sessions before force-closing them.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`

	// MetricsLogInterval is the period of the active connection log line.
	// 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`

	// RequireAuth rejects every command except USER, PASS and QUIT with 530
	// until the session has logged in. Off by default.
	RequireAuth bool `mapstructure:"require_auth" yaml:"require_auth"`

	// WelcomeMessage is the text of the 220 banner.
	WelcomeMessage string `mapstructure:"welcome_message" yaml:"welcome_message"`

	// RateLimit throttles commands per session.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures the per-session command token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained command rate. 0 disables limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the bucket capacity.
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

func (c *FTPConfig) applyDefaults() {
	// Enabled is defaulted in pkg/config so an explicit false survives.
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.DataTimeout == 0 {
		c.DataTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
	if c.WelcomeMessage == "" {
		c.WelcomeMessage = "DittoFTP simulator ready."
	}
}

func (c *FTPConfig) validate() error {
	if c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be <= 65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.IdleTimeout < 0 || c.WriteTimeout < 0 || c.DataTimeout < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// listenPort maps the configured port to the one passed to net.Listen.
func (c *FTPConfig) listenPort() int {
	if c.Port < 0 {
		return 0
	}
	return c.Port
}
