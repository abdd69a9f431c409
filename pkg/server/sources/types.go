package sources

import (
	"encoding/json"
	"fmt"
)

// Asset identifies one of the tracked quotes.
type Asset string

const (
	AssetBitcoin     Asset = "bitcoin"
	AssetGold        Asset = "gold"
	AssetEquityIndex Asset = "equity_index"
	AssetMedianHome  Asset = "median_home"
)

// Assets returns every tracked asset in display order.
func Assets() []Asset {
	return []Asset{AssetBitcoin, AssetGold, AssetEquityIndex, AssetMedianHome}
}

// Status tells whether a Quote carries a usable value.
// The zero value is StatusUnavailable.
type Status int

const (
	StatusUnavailable Status = iota
	StatusOK
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "unavailable"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Origin records where an available value came from.
type Origin int

const (
	OriginNone Origin = iota
	OriginLive
	OriginFallback
)

func (o Origin) String() string {
	switch o {
	case OriginLive:
		return "live"
	case OriginFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Quote is a single USD value with an explicit validity status.
// Value is meaningless unless Status is StatusOK.
type Quote struct {
	Value  float64
	Status Status
	Origin Origin
}

// Live returns an available quote read from an upstream service.
func Live(value float64) Quote {
	return Quote{Value: value, Status: StatusOK, Origin: OriginLive}
}

// Fallback returns an available quote taken from a static estimate.
func Fallback(value float64) Quote {
	return Quote{Value: value, Status: StatusOK, Origin: OriginFallback}
}

// Unavailable returns a quote that must not be used in calculations.
func Unavailable() Quote {
	return Quote{}
}

// OK reports whether the quote may be used.
func (q Quote) OK() bool {
	return q.Status == StatusOK
}

// Estimated reports whether an available quote is a static fallback.
func (q Quote) Estimated() bool {
	return q.OK() && q.Origin == OriginFallback
}

func (q Quote) String() string {
	if !q.OK() {
		return "unavailable"
	}
	if q.Estimated() {
		return fmt.Sprintf("%g (estimated)", q.Value)
	}
	return fmt.Sprintf("%g", q.Value)
}

type quoteJSON struct {
	Value  *float64 `json:"value"`
	Status Status   `json:"status"`
	Origin string   `json:"origin,omitempty"`
}

// MarshalJSON renders unavailable quotes with a null value instead of omitting them.
func (q Quote) MarshalJSON() ([]byte, error) {
	out := quoteJSON{Status: q.Status}
	if q.OK() {
		v := q.Value
		out.Value = &v
		out.Origin = q.Origin.String()
	}
	return json.Marshal(out)
}
