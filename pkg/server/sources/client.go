package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/StrathCole/btcratios/pkg/logging"
	"github.com/StrathCole/btcratios/pkg/metrics"
	"github.com/StrathCole/btcratios/pkg/version"
)

//go:generate mockgen -destination=mock_http_test.go -package=sources . HTTPDoer

const (
	maxBodyBytes          = 4 << 20
	defaultInitialBackoff = 250 * time.Millisecond
)

// Fetch outcomes reported to metrics.
const (
	outcomeLive        = "live"
	outcomeFallback    = "fallback"
	outcomeUnavailable = "unavailable"
	outcomeSkipped     = "skipped"
	outcomeDisabled    = "disabled"
	outcomeThrottled   = "throttled"
)

// HTTPDoer is the part of *http.Client the source client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches one asset's quote and applies that source's fallback policy.
// It is safe for concurrent use.
type Client struct {
	asset          Asset
	settings       Settings
	parse          ParseFunc
	http           HTTPDoer
	limiter        *rate.Limiter
	logger         *logging.Logger
	initialBackoff time.Duration
	health         healthState
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

// WithLogger sets the logger. The client adds an "asset" field.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = d
	}
}

// NewClient creates a client for asset that parses responses with parse.
func NewClient(asset Asset, settings Settings, parse ParseFunc, opts ...Option) (*Client, error) {
	if parse == nil {
		return nil, fmt.Errorf("%w: no parser for %s", ErrInvalidConfig, asset)
	}
	if settings.Timeout == 0 {
		settings.Timeout = DefaultTimeout
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", asset, err)
	}

	c := &Client{
		asset:          asset,
		settings:       settings,
		parse:          parse,
		logger:         logging.NewNoopLogger(),
		initialBackoff: defaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: settings.Timeout}
	}
	if settings.MinInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(settings.MinInterval), 1)
	}
	c.logger = c.logger.With("asset", string(asset))

	return c, nil
}

// Asset returns the asset this client fetches.
func (c *Client) Asset() Asset {
	return c.asset
}

// Settings returns the client's static configuration.
func (c *Client) Settings() Settings {
	return c.settings
}

// Health returns the result of the most recent fetch.
func (c *Client) Health() Health {
	return c.health.snapshot(c.asset)
}

// Fetch retrieves the current quote. It never fails: every error is resolved
// to Unavailable or the static fallback according to the source's policy.
func (c *Client) Fetch(ctx context.Context) Quote {
	start := time.Now()

	if !c.settings.Enabled {
		c.record(outcomeDisabled, start)
		return Unavailable()
	}

	if !c.settings.HasKey() {
		switch c.settings.OnMissingKey {
		case MissingKeySkip:
			c.logger.Debug("No API key configured, skipping source")
			c.record(outcomeSkipped, start)
			return Unavailable()
		case MissingKeyFallback:
			c.logger.Debug("No API key configured, using fallback value", "value", c.settings.FallbackValue)
			c.record(outcomeFallback, start)
			return Fallback(c.settings.FallbackValue)
		case MissingKeyAttempt:
		}
	}

	// Inside min_interval the last live value stands in for a new call.
	throttled := c.limiter != nil && !c.limiter.Allow()
	if throttled {
		if last, ok := c.health.last(); ok {
			c.logger.Debug("Within min interval, reusing last value", "value", last)
			c.record(outcomeThrottled, start)
			return Live(last)
		}
	}

	value, err := c.fetchValue(ctx, throttled)
	if err != nil {
		return c.resolveFailure(err, start)
	}

	c.health.markLive(time.Now(), value)
	c.record(outcomeLive, start)
	c.logger.Debug("Fetched quote", "value", value, "duration", time.Since(start).String())
	return Live(value)
}

func (c *Client) resolveFailure(err error, start time.Time) Quote {
	c.health.markFailed(err)
	metrics.RecordSourceFailure(string(c.asset), classify(err))

	if c.settings.OnFailure == FailureFallback {
		c.logger.Warn("Fetch failed, using fallback value",
			"error", err,
			"value", c.settings.FallbackValue)
		c.record(outcomeFallback, start)
		return Fallback(c.settings.FallbackValue)
	}

	c.logger.Warn("Fetch failed, quote unavailable", "error", err)
	c.record(outcomeUnavailable, start)
	return Unavailable()
}

func (c *Client) record(outcome string, start time.Time) {
	metrics.RecordSourceFetch(string(c.asset), outcome, time.Since(start))
}

// fetchValue performs the bounded, optionally retried round trip and parse.
// When wait is set it first waits for the limiter's next slot, which
// Validate keeps within the fetch timeout.
func (c *Client) fetchValue(ctx context.Context, wait bool) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	if wait {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("%w: rate limiter: %w", ErrNetworkFailure, err)
		}
	}

	return fetchWithRetries(ctx, c.settings.Retries, c.initialBackoff, c.logger, func(ctx context.Context) (float64, error) {
		body, err := c.get(ctx)
		if err != nil {
			return 0, err
		}
		return c.parse(body)
	})
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.settings.Endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, c.redact(err))
	}
	req.Header.Set("User-Agent", version.AgentString())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, c.redact(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, ErrRateLimitExceeded)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %w: %d", ErrNetworkFailure, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrNetworkFailure, err)
	}
	return body, nil
}

// redact masks the API key in URL errors, which embed the full request URL.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = c.settings.RedactedEndpoint()
	}
	return err
}

// classify maps an error to a metrics label.
func classify(err error) string {
	switch {
	case errors.Is(err, ErrNoNumericObservation):
		return "no_numeric_observation"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrNetworkFailure):
		return "network_failure"
	case errors.Is(err, ErrInvalidEndpoint):
		return "invalid_endpoint"
	default:
		return "other"
	}
}
