package sources

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// APIKeyPlaceholder is replaced by the query-escaped API key in endpoint templates.
const APIKeyPlaceholder = "{api_key}"

// DefaultTimeout bounds a single fetch, retries included.
const DefaultTimeout = 8 * time.Second

// MissingKeyPolicy decides what a source does when no API key is configured.
type MissingKeyPolicy int

const (
	// MissingKeyAttempt calls the endpoint with an empty key.
	MissingKeyAttempt MissingKeyPolicy = iota
	// MissingKeySkip returns Unavailable without a network call.
	MissingKeySkip
	// MissingKeyFallback returns the static fallback value without a network call.
	MissingKeyFallback
)

func (p MissingKeyPolicy) String() string {
	switch p {
	case MissingKeySkip:
		return "skip"
	case MissingKeyFallback:
		return "fallback"
	default:
		return "attempt"
	}
}

// ParseMissingKeyPolicy parses "attempt", "skip" or "fallback".
func ParseMissingKeyPolicy(s string) (MissingKeyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "attempt", "":
		return MissingKeyAttempt, nil
	case "skip":
		return MissingKeySkip, nil
	case "fallback":
		return MissingKeyFallback, nil
	default:
		return MissingKeyAttempt, fmt.Errorf("%w: on_missing_key %q", ErrUnknownPolicy, s)
	}
}

// FailurePolicy decides what a source returns when a fetch or parse fails.
type FailurePolicy int

const (
	// FailureUnavailable surfaces the failure as an Unavailable quote.
	FailureUnavailable FailurePolicy = iota
	// FailureFallback substitutes the static fallback value.
	FailureFallback
)

func (p FailurePolicy) String() string {
	if p == FailureFallback {
		return "fallback"
	}
	return "unavailable"
}

// ParseFailurePolicy parses "unavailable" or "fallback".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unavailable", "":
		return FailureUnavailable, nil
	case "fallback":
		return FailureFallback, nil
	default:
		return FailureUnavailable, fmt.Errorf("%w: on_failure %q", ErrUnknownPolicy, s)
	}
}

// Settings is the static per-source configuration.
type Settings struct {
	Enabled       bool
	URL           string // may contain APIKeyPlaceholder
	APIKey        string
	Timeout       time.Duration
	Retries       int
	MinInterval   time.Duration
	OnMissingKey  MissingKeyPolicy
	OnFailure     FailurePolicy
	FallbackValue float64
}

// HasKey reports whether an API key is configured.
func (s Settings) HasKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Endpoint returns the request URL with the API key substituted.
func (s Settings) Endpoint() string {
	return strings.ReplaceAll(s.URL, APIKeyPlaceholder, url.QueryEscape(strings.TrimSpace(s.APIKey)))
}

// RedactedEndpoint returns the endpoint with the API key masked, for logs.
func (s Settings) RedactedEndpoint() string {
	if !s.HasKey() {
		return s.Endpoint()
	}
	return strings.ReplaceAll(s.URL, APIKeyPlaceholder, "REDACTED")
}

// Validate checks settings that would otherwise fail on every fetch.
func (s Settings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if s.Timeout < 0 || s.Retries < 0 || s.MinInterval < 0 {
		return fmt.Errorf("%w: timeout, retries and min_interval must be >= 0", ErrInvalidConfig)
	}
	if s.MinInterval > s.Timeout {
		return fmt.Errorf("%w: min_interval %s exceeds timeout %s", ErrInvalidConfig, s.MinInterval, s.Timeout)
	}
	needsFallback := s.OnMissingKey == MissingKeyFallback || s.OnFailure == FailureFallback
	if needsFallback && s.FallbackValue <= 0 {
		return fmt.Errorf("%w: fallback policy requires fallback_value > 0", ErrInvalidConfig)
	}
	return nil
}
