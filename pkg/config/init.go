package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// InitConfig writes a commented sample configuration to the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a commented sample configuration to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var sampleTemplate = template.Must(template.New("config").Parse(`# DittoFTP Configuration File
#
# Every value can be overridden from the environment with the DITTOFTP_
# prefix, e.g. DITTOFTP_ADAPTERS_FTP_PORT=9021.

logging:
  # DEBUG, INFO, WARN or ERROR
  level: {{ .Logging.Level }}
  # text or json
  format: {{ .Logging.Format }}
  # stdout, stderr or a file path
  output: {{ .Logging.Output }}

server:
  shutdown_timeout: {{ .Server.ShutdownTimeout }}
  metrics:
    enabled: {{ .Server.Metrics.Enabled }}
    port: {{ .Server.Metrics.Port }}

behaviors:
  persistence:
    # memory or badger
    type: {{ .Behaviors.Persistence.Type }}
    badger:
      db_path: {{ index .Behaviors.Persistence.Badger "db_path" }}
  # Initial per-command behaviors, applied at startup.
  # delay is in whole seconds and clamped to [0, 10].
  commands: {}
  #  LIST:
  #    error: false
  #    delay: 3
  #  STOR:
  #    error: true
  #    delay: 0

adapters:
  ftp:
    enabled: {{ .Adapters.FTP.Enabled }}
    port: {{ .Adapters.FTP.Port }}
    # IPv4 address advertised in PASV replies (empty = local address)
    public_host: "{{ .Adapters.FTP.PublicHost }}"
    # 0 means unlimited
    max_connections: {{ .Adapters.FTP.MaxConnections }}
    idle_timeout: {{ .Adapters.FTP.IdleTimeout }}
    write_timeout: {{ .Adapters.FTP.WriteTimeout }}
    data_timeout: {{ .Adapters.FTP.DataTimeout }}
    shutdown_timeout: {{ .Adapters.FTP.ShutdownTimeout }}
    metrics_log_interval: {{ .Adapters.FTP.MetricsLogInterval }}
    # Reject commands other than USER, PASS and QUIT until logged in
    require_auth: {{ .Adapters.FTP.RequireAuth }}
    welcome_message: "{{ .Adapters.FTP.WelcomeMessage }}"
    rate_limit:
      # 0 disables per-session command throttling
      requests_per_second: {{ .Adapters.FTP.RateLimit.RequestsPerSecond }}
      burst: {{ .Adapters.FTP.RateLimit.Burst }}
  control:
    enabled: {{ .Adapters.Control.Enabled }}
    port: {{ .Adapters.Control.Port }}
    log_buffer_size: {{ .Adapters.Control.LogBufferSize }}
    shutdown_timeout: {{ .Adapters.Control.ShutdownTimeout }}
`))

// generateYAMLWithComments renders cfg as a commented YAML document.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var buf bytes.Buffer
	if err := sampleTemplate.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to render sample config: %w", err)
	}
	return buf.String(), nil
}
