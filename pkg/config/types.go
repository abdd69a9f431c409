package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure
type Config struct {
	Mode    string        `yaml:"mode"`
	Server  ServerConfig  `yaml:"server"`
	Sources SourcesConfig `yaml:"sources"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the snapshot HTTP API
type ServerConfig struct {
	HTTP            HTTPConfig `yaml:"http"`
	CacheTTL        Duration   `yaml:"cache_ttl"`
	RefreshInterval Duration   `yaml:"refresh_interval"` // 0 disables background refresh
	RefreshTimeout  Duration   `yaml:"refresh_timeout"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string    `yaml:"addr"`
	TLS  TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

// SourcesConfig holds one entry per tracked asset. The set of sources is fixed.
type SourcesConfig struct {
	Bitcoin     SourceConfig `yaml:"bitcoin"`
	Gold        SourceConfig `yaml:"gold"`
	EquityIndex SourceConfig `yaml:"equity_index"`
	MedianHome  SourceConfig `yaml:"median_home"`
}

// SourceConfig configures a price source
type SourceConfig struct {
	Enabled       *bool    `yaml:"enabled"` // nil means enabled
	URL           string   `yaml:"url"`     // "{api_key}" is replaced by APIKey
	APIKey        string   `yaml:"api_key"`
	Timeout       Duration `yaml:"timeout"`
	Retries       int      `yaml:"retries"`
	MinInterval   Duration `yaml:"min_interval"`
	OnMissingKey  string   `yaml:"on_missing_key"` // attempt, skip, fallback
	OnFailure     string   `yaml:"on_failure"`     // unavailable, fallback
	FallbackValue float64  `yaml:"fallback_value"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"`
	Output string        `yaml:"output"` // stdout, stderr or a file path
	File   LogFileConfig `yaml:"file"`
}

// LogFileConfig configures log file rotation
type LogFileConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAge     int  `yaml:"max_age"`
	Compress   bool `yaml:"compress"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(td)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
