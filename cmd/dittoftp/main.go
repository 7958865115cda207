package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/config"
	"github.com/marmos91/dittoftp/pkg/server"
	"github.com/marmos91/dittoftp/pkg/vfs"
)

const usage = `DittoFTP - Simulated FTP server with per-command fault injection

Usage:
  dittoftp [flags]              Start the server
  dittoftp init [--force]       Write a sample config file
  dittoftp init --config PATH   Write the sample config to PATH

Flags:
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		runInit(os.Args[2:])
		return
	}

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/dittoftp/config.yaml)")
	port := flag.Int("port", 0, "FTP control port (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags take precedence over file and environment
	if *port != 0 {
		cfg.Adapters.FTP.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	if err := configureLogging(cfg.Logging); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	fmt.Println("DittoFTP - Simulated FTP Server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func configureLogging(cfg config.LoggingConfig) error {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)
	return logger.SetOutput(cfg.Output)
}

// run wires the shared stores, metrics, and adapters and serves until ctx is
// cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	behaviors, err := config.CreateBehaviorStore(ctx, &cfg.Behaviors)
	if err != nil {
		return fmt.Errorf("failed to create behavior store: %w", err)
	}
	defer func() {
		if err := behaviors.Close(); err != nil {
			logger.Error("Failed to close behavior store: %v", err)
		}
	}()

	fs := vfs.New()
	logger.Info("Virtual filesystem seeded")

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	adapters, err := config.CreateAdapters(cfg, metricsResult.FTPMetrics)
	if err != nil {
		return err
	}

	srv := server.New(fs, behaviors)
	srv.StopTimeout = cfg.Server.ShutdownTimeout
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
		logger.Info("%s adapter configured on port %d", a.Protocol(), a.Port())
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")
	return srv.Serve(ctx)
}

func runInit(args []string) {
	fset := flag.NewFlagSet("init", flag.ExitOnError)
	force := fset.Bool("force", false, "Overwrite an existing config file")
	path := fset.String("config", "", "Write the config to this path instead of the default location")
	_ = fset.Parse(args)

	target := *path
	var err error
	if target == "" {
		target, err = config.InitConfig(*force)
	} else {
		err = config.InitConfigToPath(target, *force)
	}
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration written to %s\n", target)
	fmt.Println("Edit it, then start the server with: dittoftp")
}
