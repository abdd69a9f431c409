package aggregator

import (
	"context"

	"github.com/StrathCole/btcratios/pkg/logging"
	"github.com/StrathCole/btcratios/pkg/server/sources"
)

// Fetcher produces the current quote for one asset. Implementations must not
// fail: unavailable data is reported through the returned Quote.
type Fetcher interface {
	Asset() sources.Asset
	Fetch(ctx context.Context) sources.Quote
}

// Renderer receives every completed snapshot exactly once.
type Renderer interface {
	Render(snapshot Snapshot)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(snapshot Snapshot)

// Render calls f(snapshot).
func (f RendererFunc) Render(snapshot Snapshot) {
	f(snapshot)
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRenderer registers the callback that receives completed snapshots.
func WithRenderer(r Renderer) Option {
	return func(a *Aggregator) {
		a.renderer = r
	}
}
