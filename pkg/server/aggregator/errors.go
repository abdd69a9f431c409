// Package aggregator combines source quotes into snapshots with derived ratios.
package aggregator

import "errors"

var (
	// ErrRefreshCanceled indicates that the caller abandoned a refresh before it completed.
	ErrRefreshCanceled = errors.New("refresh canceled")
	// ErrMissingSource indicates that no fetcher was supplied for an asset.
	ErrMissingSource = errors.New("missing source")
	// ErrDuplicateSource indicates that two fetchers were supplied for the same asset.
	ErrDuplicateSource = errors.New("duplicate source")
)
