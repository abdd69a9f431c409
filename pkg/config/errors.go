package config

import "errors"

var (
	// ErrInvalidMode indicates that the mode is invalid.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrTLSConfigIncomplete indicates that TLS config is incomplete.
	ErrTLSConfigIncomplete = errors.New("TLS cert and key must be specified when TLS is enabled")
	// ErrTLSCertNotFound indicates that the TLS cert file was not found.
	ErrTLSCertNotFound = errors.New("TLS cert file not found")
	// ErrTLSKeyNotFound indicates that the TLS key file was not found.
	ErrTLSKeyNotFound = errors.New("TLS key file not found")
	// ErrNegativeDuration indicates a duration setting below zero.
	ErrNegativeDuration = errors.New("duration must be >= 0")
	// ErrMinIntervalExceedsTimeout indicates a min_interval longer than the fetch timeout.
	ErrMinIntervalExceedsTimeout = errors.New("min_interval must not exceed timeout")
	// ErrSourceURLRequired indicates an enabled source without a URL.
	ErrSourceURLRequired = errors.New("url must be specified for enabled sources")
	// ErrInvalidPolicy indicates an unknown fallback policy name.
	ErrInvalidPolicy = errors.New("invalid policy")
	// ErrFallbackValueRequired indicates a fallback policy without a positive fallback_value.
	ErrFallbackValueRequired = errors.New("fallback_value must be > 0 when a fallback policy is used")
	// ErrInvalidRetries indicates a retry count out of range.
	ErrInvalidRetries = errors.New("retries must be between 0 and 10")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
