package aggregator

import (
	"math"

	"github.com/StrathCole/btcratios/pkg/server/sources"
)

// Ratio divides numerator by denominator. The result is Unavailable unless both
// quotes are available, the denominator is positive and the quotient is finite.
// A ratio involving a fallback value is itself marked as a fallback.
func Ratio(numerator, denominator sources.Quote) sources.Quote {
	if !numerator.OK() || !denominator.OK() {
		return sources.Unavailable()
	}
	if !(denominator.Value > 0) {
		return sources.Unavailable()
	}

	v := numerator.Value / denominator.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sources.Unavailable()
	}

	if numerator.Estimated() || denominator.Estimated() {
		return sources.Fallback(v)
	}
	return sources.Live(v)
}

// Assemble builds a snapshot from the four quotes and derives every ratio.
// Bitcoin is the numerator of all ratios, so an unavailable Bitcoin quote
// leaves every ratio unavailable.
func Assemble(bitcoin, gold, equityIndex, medianHome sources.Quote) Snapshot {
	return Snapshot{
		Bitcoin:           bitcoin,
		Gold:              gold,
		EquityIndex:       equityIndex,
		MedianHome:        medianHome,
		BTCToGold:         Ratio(bitcoin, gold),
		BTCToEquityShares: Ratio(bitcoin, equityIndex),
		BTCToMedianHome:   Ratio(bitcoin, medianHome),
	}
}
