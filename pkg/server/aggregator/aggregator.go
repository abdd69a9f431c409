package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/StrathCole/btcratios/pkg/logging"
	"github.com/StrathCole/btcratios/pkg/metrics"
	"github.com/StrathCole/btcratios/pkg/server/sources"
)

// Aggregator fetches all sources concurrently and derives the snapshot ratios.
// Refresh holds no state between calls apart from the in-flight guard.
type Aggregator struct {
	fetchers map[sources.Asset]Fetcher
	group    singleflight.Group
	renderer Renderer
	logger   *logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	current *flight
	flights uint64
}

// flight is one shared refresh. Its context outlives any single caller and is
// canceled once every waiter has left.
type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates an aggregator. Exactly one fetcher per tracked asset is required.
func New(fetchers []Fetcher, opts ...Option) (*Aggregator, error) {
	byAsset := make(map[sources.Asset]Fetcher, len(fetchers))
	for _, f := range fetchers {
		asset := f.Asset()
		if _, ok := byAsset[asset]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, asset)
		}
		byAsset[asset] = f
	}

	for _, asset := range sources.Assets() {
		if _, ok := byAsset[asset]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, asset)
		}
	}
	if len(byAsset) != len(sources.Assets()) {
		return nil, fmt.Errorf("%w: %d fetchers for %d assets", sources.ErrUnknownAsset, len(byAsset), len(sources.Assets()))
	}

	a := &Aggregator{
		fetchers: byAsset,
		logger:   logging.NewNoopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Refresh fetches every source and returns a new snapshot. Calls made while a
// refresh is in flight join it and receive the same snapshot. The only error
// is ErrRefreshCanceled, returned when ctx ends before the snapshot is complete.
// A caller leaving does not cancel the refresh for the others; only when every
// waiter has left are the fetches canceled, and then nothing is rendered.
func (a *Aggregator) Refresh(ctx context.Context) (Snapshot, error) {
	a.mu.Lock()
	f := a.current
	if f == nil {
		a.flights++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{key: strconv.FormatUint(a.flights, 10), ctx: fctx, cancel: cancel}
		a.current = f
	}
	f.waiters++
	// Started under the lock so a caller that sees f always finds its call registered.
	ch := a.group.DoChan(f.key, func() (interface{}, error) {
		defer a.detach(f)
		return a.refresh(f.ctx)
	})
	a.mu.Unlock()

	select {
	case res := <-ch:
		a.leave(f)
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		if res.Shared {
			a.logger.Debug("Joined in-flight refresh")
		}
		return res.Val.(Snapshot), nil
	case <-ctx.Done():
		a.leave(f)
		return Snapshot{}, fmt.Errorf("%w: %w", ErrRefreshCanceled, ctx.Err())
	}
}

// detach stops new callers from joining f once its refresh has returned.
func (a *Aggregator) detach(f *flight) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == f {
		a.current = nil
	}
}

// leave drops one waiter and cancels the flight when none remain.
func (a *Aggregator) leave(f *flight) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if a.current == f {
		a.current = nil
	}
}

func (a *Aggregator) refresh(ctx context.Context) (Snapshot, error) {
	start := time.Now()

	assets := sources.Assets()
	quotes := make([]sources.Quote, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	for i, asset := range assets {
		fetcher := a.fetchers[asset]
		g.Go(func() error {
			quotes[i] = fetcher.Fetch(gctx)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		metrics.RecordRefresh("canceled", time.Since(start))
		a.logger.Warn("Refresh abandoned", "error", err)
		return Snapshot{}, fmt.Errorf("%w: %w", ErrRefreshCanceled, err)
	}

	snapshot := Assemble(quotes[0], quotes[1], quotes[2], quotes[3])
	snapshot.ID = uuid.New()
	snapshot.FetchedAt = a.now().UTC()

	for name, ratio := range snapshot.Ratios() {
		metrics.RecordRatio(name, ratio.OK())
	}
	metrics.RecordRefresh("complete", time.Since(start))

	a.logger.Info("Refresh complete",
		"snapshot", snapshot.ID.String(),
		"duration", time.Since(start).String(),
		"bitcoin", snapshot.Bitcoin.String(),
		"gold", snapshot.Gold.String(),
		"equity_index", snapshot.EquityIndex.String(),
		"median_home", snapshot.MedianHome.String(),
	)

	if a.renderer != nil {
		a.renderer.Render(snapshot)
	}

	return snapshot, nil
}

// Health reports per-source fetch health for fetchers that track it.
func (a *Aggregator) Health() []sources.Health {
	out := make([]sources.Health, 0, len(a.fetchers))
	for _, asset := range sources.Assets() {
		if h, ok := a.fetchers[asset].(interface{ Health() sources.Health }); ok {
			out = append(out, h.Health())
		}
	}
	return out
}
