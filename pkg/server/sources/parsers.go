package sources

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseFunc extracts one USD value from an upstream response body.
type ParseFunc func(body []byte) (float64, error)

const (
	timeSeriesKey = "Time Series (Daily)"
	closeKey      = "4. close"
)

// ParseBitcoin reads {"USD": <number>}.
func ParseBitcoin(body []byte) (float64, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return 0, err
	}
	return numeric(doc.Get("USD"), "USD")
}

// ParseGold reads {"metals": {"gold": <number>}}.
func ParseGold(body []byte) (float64, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return 0, err
	}
	return numeric(doc.Get("metals.gold"), "metals.gold")
}

// ParseEquityIndex accepts a quote object ({"price": n}, optionally as the
// first element of an array) or a daily time series, in which case the close
// of the first entry in upstream order is used.
func ParseEquityIndex(body []byte) (float64, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return 0, err
	}

	if doc.IsArray() {
		items := doc.Array()
		if len(items) == 0 {
			return 0, fmt.Errorf("%w: empty quote array", ErrMalformedResponse)
		}
		return numeric(items[0].Get("price"), "price")
	}

	if price := doc.Get("price"); price.Exists() {
		return numeric(price, "price")
	}

	series := member(doc, timeSeriesKey)
	if !series.IsObject() {
		return 0, fmt.Errorf("%w: neither %q nor %q present", ErrMalformedResponse, "price", timeSeriesKey)
	}

	var (
		first gjson.Result
		found bool
	)
	series.ForEach(func(_, day gjson.Result) bool {
		first, found = day, true
		return false
	})
	if !found {
		return 0, fmt.Errorf("%w: %q is empty", ErrMalformedResponse, timeSeriesKey)
	}

	return numeric(member(first, closeKey), closeKey)
}

// ParseMedianHome scans {"observations": [{"value": "..."}]} from the newest
// entry backwards and returns the first value that parses as a positive number.
func ParseMedianHome(body []byte) (float64, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return 0, err
	}

	observations := doc.Get("observations")
	if !observations.IsArray() {
		return 0, fmt.Errorf("%w: missing %q array", ErrMalformedResponse, "observations")
	}

	items := observations.Array()
	for i := len(items) - 1; i >= 0; i-- {
		raw := items[i].Get("value")
		if !raw.Exists() || isSentinel(raw) {
			continue
		}
		value, err := numeric(raw, "value")
		if err != nil {
			continue
		}
		return value, nil
	}

	return 0, fmt.Errorf("%w: scanned %d observations", ErrNoNumericObservation, len(items))
}
