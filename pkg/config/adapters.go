package config

import (
	"fmt"

	"github.com/marmos91/dittoftp/pkg/adapter"
	"github.com/marmos91/dittoftp/pkg/adapter/ftp"
	"github.com/marmos91/dittoftp/pkg/control"
	"github.com/marmos91/dittoftp/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// The FTP adapter is returned first so it is started before, and stopped
// after, the control surface.
//
// Parameters:
//   - cfg: The complete DittoFTP configuration
//   - ftpMetrics: Optional FTP metrics collector (nil = no metrics)
func CreateAdapters(cfg *Config, ftpMetrics metrics.FTPMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.FTP.Enabled {
		adapters = append(adapters, ftp.New(cfg.Adapters.FTP, ftpMetrics))
	}

	if cfg.Adapters.Control.Enabled {
		adapters = append(adapters, control.New(cfg.Adapters.Control))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
