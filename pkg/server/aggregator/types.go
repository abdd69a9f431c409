package aggregator

import (
	"time"

	"github.com/google/uuid"

	"github.com/StrathCole/btcratios/pkg/server/sources"
)

// Ratio names used in logs and metrics.
const (
	RatioBTCToGold         = "btc_to_gold"
	RatioBTCToEquityShares = "btc_to_equity_shares"
	RatioBTCToMedianHome   = "btc_to_median_home"
)

// Snapshot is the complete result of one refresh. It is a plain value: copies
// share nothing and nothing mutates it after Refresh returns.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	FetchedAt time.Time `json:"fetched_at"`

	Bitcoin     sources.Quote `json:"bitcoin"`
	Gold        sources.Quote `json:"gold"`
	EquityIndex sources.Quote `json:"equity_index"`
	MedianHome  sources.Quote `json:"median_home"`

	BTCToGold         sources.Quote `json:"btc_to_gold"`
	BTCToEquityShares sources.Quote `json:"btc_to_equity_shares"`
	BTCToMedianHome   sources.Quote `json:"btc_to_median_home"`
}

// Quote returns the snapshot's quote for an asset.
func (s Snapshot) Quote(asset sources.Asset) sources.Quote {
	switch asset {
	case sources.AssetBitcoin:
		return s.Bitcoin
	case sources.AssetGold:
		return s.Gold
	case sources.AssetEquityIndex:
		return s.EquityIndex
	case sources.AssetMedianHome:
		return s.MedianHome
	default:
		return sources.Unavailable()
	}
}

// Ratios returns the derived ratios keyed by name.
func (s Snapshot) Ratios() map[string]sources.Quote {
	return map[string]sources.Quote{
		RatioBTCToGold:         s.BTCToGold,
		RatioBTCToEquityShares: s.BTCToEquityShares,
		RatioBTCToMedianHome:   s.BTCToMedianHome,
	}
}
