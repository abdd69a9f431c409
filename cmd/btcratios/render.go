package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/btcratios/pkg/server/aggregator"
	"github.com/StrathCole/btcratios/pkg/server/sources"
)

const unavailableText = "Data unavailable"

// textRenderer prints a snapshot in the widget's display format.
type textRenderer struct {
	out io.Writer
}

func (r textRenderer) Render(s aggregator.Snapshot) {
	_, _ = io.WriteString(r.out, formatSnapshot(s))
}

// jsonRenderer prints a snapshot as indented JSON.
type jsonRenderer struct {
	out io.Writer
}

func (r jsonRenderer) Render(s aggregator.Snapshot) {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(s)
}

func formatSnapshot(s aggregator.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "BTC: %s\n", price(s.Bitcoin))
	fmt.Fprintf(&b, "Gold: %s\n", price(s.Gold))
	fmt.Fprintf(&b, "S&P 500: %s\n", price(s.EquityIndex))
	fmt.Fprintf(&b, "Median home: %s\n", price(s.MedianHome))
	fmt.Fprintf(&b, "1 BTC = %s\n", ratio(s.BTCToGold, "Gold oz"))
	fmt.Fprintf(&b, "1 BTC = %s\n", ratio(s.BTCToEquityShares, "S&P 500 shares"))
	fmt.Fprintf(&b, "1 BTC = %s\n", ratio(s.BTCToMedianHome, "Median homes"))
	return b.String()
}

func price(q sources.Quote) string {
	if !q.OK() {
		return unavailableText
	}
	return estimated(q, "$"+grouped(decimal.NewFromFloat(q.Value).StringFixed(2)))
}

func ratio(q sources.Quote, unit string) string {
	if !q.OK() {
		return unavailableText
	}
	return estimated(q, decimal.NewFromFloat(q.Value).StringFixed(2)+" "+unit)
}

func estimated(q sources.Quote, text string) string {
	if q.Estimated() {
		return text + " (est.)"
	}
	return text
}

// grouped inserts thousands separators into a fixed-point string.
func grouped(fixed string) string {
	intPart, frac, _ := strings.Cut(fixed, ".")
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := sign + b.String()
	if frac != "" {
		out += "." + frac
	}
	return out
}
