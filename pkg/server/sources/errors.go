// Package sources fetches and parses the upstream quotes combined into a snapshot.
package sources

import "errors"

var (
	// ErrNetworkFailure covers connection errors, timeouts and non-2xx responses.
	ErrNetworkFailure = errors.New("network failure")
	// ErrMalformedResponse indicates a body that is not JSON or lacks the expected field.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNoNumericObservation indicates that an observation scan found no usable value.
	ErrNoNumericObservation = errors.New("no numeric observation")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrRateLimitExceeded indicates that the upstream rejected the request with 429.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrNonPositiveValue indicates a value that parsed but is zero or negative.
	ErrNonPositiveValue = errors.New("value must be positive")
	// ErrInvalidEndpoint indicates that the configured endpoint could not form a request.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	// ErrInvalidConfig indicates that the source configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownAsset indicates that no parser is registered for the asset.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrUnknownPolicy indicates an unrecognised fallback policy name.
	ErrUnknownPolicy = errors.New("unknown policy")
)
