package config

import (
	"github.com/marmos91/dittoftp/pkg/metrics"
	promMetrics "github.com/marmos91/dittoftp/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// FTPMetrics is the collector for the FTP adapter (never nil, no-op if disabled)
	FTPMetrics metrics.FTPMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled the global Prometheus registry is initialized and
// the metrics HTTP server and Prometheus-backed collectors are created.
// Otherwise the server is nil and the collectors are no-ops.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			Server:     nil,
			FTPMetrics: metrics.NewNoopFTPMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:     server,
		FTPMetrics: promMetrics.NewFTPMetrics(),
	}
}
