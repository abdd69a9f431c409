package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/StrathCole/btcratios/pkg/config"
	"github.com/StrathCole/btcratios/pkg/logging"
	"github.com/StrathCole/btcratios/pkg/metrics"
	"github.com/StrathCole/btcratios/pkg/server/aggregator"
	"github.com/StrathCole/btcratios/pkg/server/api"
	"github.com/StrathCole/btcratios/pkg/server/sources"
	"github.com/StrathCole/btcratios/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file (built-in defaults when missing)")
	envFile    = flag.String("env", ".env", "Path to .env file with API keys")
	showVer    = flag.Bool("version", false, "Show version and exit")
	once       = flag.Bool("once", false, "Refresh once, print the snapshot and exit")
	asJSON     = flag.Bool("json", false, "Print the snapshot as JSON (with -once)")
	serverOnly = flag.Bool("server", false, "Run the snapshot HTTP API")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("btcratios version %s\n", version.Version)
		os.Exit(0)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Override mode based on flags
	if *once {
		cfg.Mode = config.ModeOnce
	} else if *serverOnly {
		cfg.Mode = config.ModeServer
	}

	// stdout carries the snapshot in once mode
	if !cfg.IsServerMode() && cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, logging.FileOptions{
		MaxSize:    cfg.Logging.File.MaxSize,
		MaxBackups: cfg.Logging.File.MaxBackups,
		MaxAge:     cfg.Logging.File.MaxAge,
		Compress:   cfg.Logging.File.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting btcratios", "version", version.Version, "mode", cfg.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsServerMode() {
		err = runServer(ctx, cfg, logger)
	} else {
		err = runOnce(ctx, cfg, logger, os.Stdout, *asJSON)
	}
	if err != nil {
		logger.Error("Exiting with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// buildFetchers creates one client per tracked asset from the registry.
func buildFetchers(cfg *config.Config, logger *logging.Logger) ([]aggregator.Fetcher, error) {
	logger.Debug("Registered parsers", "assets", sources.List())

	fetchers := make([]aggregator.Fetcher, 0, len(sources.Assets()))
	for _, asset := range sources.Assets() {
		settings, err := cfg.Sources.For(asset).Settings()
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", asset, err)
		}

		client, err := sources.Create(asset, settings, sources.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create source %s: %w", asset, err)
		}

		active := client.Settings()
		logger.Info("Source configured",
			"asset", asset,
			"enabled", active.Enabled,
			"has_key", active.HasKey(),
			"timeout", active.Timeout.String(),
			"on_missing_key", active.OnMissingKey.String(),
			"on_failure", active.OnFailure.String(),
			"endpoint", active.RedactedEndpoint())

		fetchers = append(fetchers, client)
	}
	return fetchers, nil
}

func runOnce(ctx context.Context, cfg *config.Config, logger *logging.Logger, out io.Writer, asJSON bool) error {
	fetchers, err := buildFetchers(cfg, logger)
	if err != nil {
		return err
	}

	var renderer aggregator.Renderer = textRenderer{out: out}
	if asJSON {
		renderer = jsonRenderer{out: out}
	}

	agg, err := aggregator.New(fetchers, aggregator.WithLogger(logger), aggregator.WithRenderer(renderer))
	if err != nil {
		return fmt.Errorf("failed to create aggregator: %w", err)
	}

	if cfg.Server.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.RefreshTimeout.ToDuration())
		defer cancel()
	}

	_, err = agg.Refresh(ctx)
	return err
}

func runServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	fetchers, err := buildFetchers(cfg, logger)
	if err != nil {
		return err
	}

	opts := api.Options{
		Addr:            cfg.Server.HTTP.Addr,
		CacheTTL:        cfg.Server.CacheTTL.ToDuration(),
		RefreshInterval: cfg.Server.RefreshInterval.ToDuration(),
		RefreshTimeout:  cfg.Server.RefreshTimeout.ToDuration(),
	}
	if cfg.Server.HTTP.TLS.Enabled {
		opts.CertFile = cfg.Server.HTTP.TLS.Cert
		opts.KeyFile = cfg.Server.HTTP.TLS.Key
	}
	server := api.NewServer(opts, logger)

	agg, err := aggregator.New(fetchers, aggregator.WithLogger(logger), aggregator.WithRenderer(server))
	if err != nil {
		return fmt.Errorf("failed to create aggregator: %w", err)
	}
	server.SetRefresher(agg)

	go server.RunRefreshLoop(ctx)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errChan:
		return err
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down gracefully...")
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return <-errChan
}
