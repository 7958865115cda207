package control

import "time"

// DefaultPort is the control HTTP port used when none is configured.
const DefaultPort = 8022

// Config configures the behavior-configuration HTTP surface.
type Config struct {
	// Enabled controls whether the control adapter is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP listen port. A negative port binds an OS-assigned one.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// LogBufferSize is how many recent log entries GET /api/logs can return.
	LogBufferSize int `mapstructure:"log_buffer_size" yaml:"log_buffer_size" validate:"min=0"`

	// ShutdownTimeout bounds the graceful HTTP shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogBufferSize == 0 {
		c.LogBufferSize = 500
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

func (c *Config) listenPort() int {
	if c.Port < 0 {
		return 0
	}
	return c.Port
}
