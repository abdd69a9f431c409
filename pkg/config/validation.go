package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/StrathCole/btcratios/pkg/server/sources"
)

const maxRetries = 10

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	mode := cfg.NormalizeMode()
	if mode != ModeServer && mode != ModeOnce {
		return fmt.Errorf("%w: %s (must be '%s' or '%s')", ErrInvalidMode, cfg.Mode, ModeServer, ModeOnce)
	}

	if cfg.IsServerMode() {
		if err := validateServerConfig(&cfg.Server); err != nil {
			return fmt.Errorf("server config: %w", err)
		}
	}

	for _, asset := range sources.Assets() {
		if err := validateSourceConfig(cfg.Sources.For(asset)); err != nil {
			return fmt.Errorf("source %s: %w", asset, err)
		}
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.CacheTTL < 0 || cfg.RefreshInterval < 0 || cfg.RefreshTimeout < 0 {
		return fmt.Errorf("%w: cache_ttl, refresh_interval and refresh_timeout", ErrNegativeDuration)
	}

	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.Cert == "" || cfg.HTTP.TLS.Key == "" {
			return fmt.Errorf("%w", ErrTLSConfigIncomplete)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Cert); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSCertNotFound, cfg.HTTP.TLS.Cert)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Key); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSKeyNotFound, cfg.HTTP.TLS.Key)
		}
	}

	return nil
}

func validateSourceConfig(cfg *SourceConfig) error {
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	if !settings.Enabled {
		return nil
	}

	if settings.URL == "" {
		return fmt.Errorf("%w", ErrSourceURLRequired)
	}
	if settings.Timeout < 0 || settings.MinInterval < 0 {
		return fmt.Errorf("%w: timeout and min_interval", ErrNegativeDuration)
	}
	if settings.MinInterval > settings.Timeout {
		return fmt.Errorf("%w: %s > %s", ErrMinIntervalExceedsTimeout, settings.MinInterval, settings.Timeout)
	}
	if settings.Retries < 0 || settings.Retries > maxRetries {
		return fmt.Errorf("%w: got %d", ErrInvalidRetries, settings.Retries)
	}

	usesFallback := settings.OnMissingKey == sources.MissingKeyFallback || settings.OnFailure == sources.FailureFallback
	if usesFallback && settings.FallbackValue <= 0 {
		return fmt.Errorf("%w", ErrFallbackValueRequired)
	}

	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	format := strings.ToLower(cfg.Format)
	if format != "json" && format != "text" {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
