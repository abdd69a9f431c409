// Package config provides configuration loading and validation for btcratios.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/StrathCole/btcratios/pkg/server/sources"
)

// Modes
const (
	ModeServer = "server"
	ModeOnce   = "once"
)

// sourceDefaults are the built-in endpoints and fallback estimates per asset.
var sourceDefaults = map[sources.Asset]SourceConfig{
	sources.AssetBitcoin: {
		URL:          "https://min-api.cryptocompare.com/data/price?fsym=BTC&tsyms=USD",
		OnMissingKey: "attempt",
		OnFailure:    "unavailable",
	},
	sources.AssetGold: {
		URL:           "https://api.metals.dev/v1/latest?api_key={api_key}&currency=USD&unit_to_oz=true",
		OnMissingKey:  "fallback",
		OnFailure:     "unavailable",
		FallbackValue: 2000,
	},
	sources.AssetEquityIndex: {
		URL:           "https://financialmodelingprep.com/api/v3/quote/%5EGSPC?apikey={api_key}",
		OnMissingKey:  "attempt",
		OnFailure:     "unavailable",
		FallbackValue: 5000,
	},
	sources.AssetMedianHome: {
		URL:           "https://api.stlouisfed.org/fred/series/observations?series_id=MSPUS&api_key={api_key}&file_type=json",
		OnMissingKey:  "attempt",
		OnFailure:     "unavailable",
		FallbackValue: 400000,
	},
}

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references from the environment.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the built-in configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeServer
	}

	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.CacheTTL == 0 {
		cfg.Server.CacheTTL = Duration(60 * time.Second)
	}
	if cfg.Server.RefreshTimeout == 0 {
		cfg.Server.RefreshTimeout = Duration(15 * time.Second)
	}

	for _, asset := range sources.Assets() {
		applySourceDefaults(cfg.Sources.For(asset), sourceDefaults[asset])
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func applySourceDefaults(sc *SourceConfig, def SourceConfig) {
	if sc.URL == "" {
		sc.URL = def.URL
	}
	if sc.Timeout == 0 {
		sc.Timeout = Duration(sources.DefaultTimeout)
	}
	if sc.OnMissingKey == "" {
		sc.OnMissingKey = def.OnMissingKey
	}
	if sc.OnFailure == "" {
		sc.OnFailure = def.OnFailure
	}
	if sc.FallbackValue == 0 {
		sc.FallbackValue = def.FallbackValue
	}
	sc.APIKey = strings.TrimSpace(sc.APIKey)
}

// For returns the configuration entry for an asset, or nil for unknown assets.
func (s *SourcesConfig) For(asset sources.Asset) *SourceConfig {
	switch asset {
	case sources.AssetBitcoin:
		return &s.Bitcoin
	case sources.AssetGold:
		return &s.Gold
	case sources.AssetEquityIndex:
		return &s.EquityIndex
	case sources.AssetMedianHome:
		return &s.MedianHome
	default:
		return nil
	}
}

// IsEnabled reports whether the source should be fetched.
func (sc *SourceConfig) IsEnabled() bool {
	return sc.Enabled == nil || *sc.Enabled
}

// Settings converts the YAML entry into immutable source settings.
func (sc *SourceConfig) Settings() (sources.Settings, error) {
	onMissing, err := sources.ParseMissingKeyPolicy(sc.OnMissingKey)
	if err != nil {
		return sources.Settings{}, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	onFailure, err := sources.ParseFailurePolicy(sc.OnFailure)
	if err != nil {
		return sources.Settings{}, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}

	return sources.Settings{
		Enabled:       sc.IsEnabled(),
		URL:           sc.URL,
		APIKey:        sc.APIKey,
		Timeout:       sc.Timeout.ToDuration(),
		Retries:       sc.Retries,
		MinInterval:   sc.MinInterval.ToDuration(),
		OnMissingKey:  onMissing,
		OnFailure:     onFailure,
		FallbackValue: sc.FallbackValue,
	}, nil
}

// NormalizeMode converts mode string to lowercase.
func (c *Config) NormalizeMode() string {
	return strings.ToLower(strings.TrimSpace(c.Mode))
}

// IsServerMode returns true if the HTTP API should run.
func (c *Config) IsServerMode() bool {
	return c.NormalizeMode() == ModeServer
}
