package sources

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[Asset]ParseFunc)
	mu       sync.RWMutex
)

// Register associates a response parser with an asset.
func Register(asset Asset, parse ParseFunc) {
	mu.Lock()
	defer mu.Unlock()
	registry[asset] = parse
}

// Parser returns the parser registered for an asset.
func Parser(asset Asset) (ParseFunc, error) {
	mu.RLock()
	defer mu.RUnlock()

	parse, ok := registry[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return parse, nil
}

// Create builds a client for an asset using its registered parser.
func Create(asset Asset, settings Settings, opts ...Option) (*Client, error) {
	parse, err := Parser(asset)
	if err != nil {
		return nil, err
	}
	return NewClient(asset, settings, parse, opts...)
}

// List returns all registered assets.
func List() []Asset {
	mu.RLock()
	defer mu.RUnlock()

	assets := make([]Asset, 0, len(registry))
	for asset := range registry {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}
