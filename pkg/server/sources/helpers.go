package sources

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// parseDocument validates the body and returns its root value.
func parseDocument(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}
	return gjson.ParseBytes(body), nil
}

// member looks up an object key literally, bypassing gjson path syntax.
// Needed for keys such as "Time Series (Daily)" and "4. close".
func member(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	if !obj.IsObject() {
		return out
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
			return false
		}
		return true
	})
	return out
}

// numeric converts a JSON number or numeric string into a positive float.
// NaN, Inf and anything else decimal cannot represent is rejected.
func numeric(r gjson.Result, field string) (float64, error) {
	if !r.Exists() {
		return 0, fmt.Errorf("%w: missing %q", ErrMalformedResponse, field)
	}

	var raw string
	switch r.Type {
	case gjson.Number:
		raw = r.Raw
	case gjson.String:
		raw = strings.TrimSpace(r.Str)
	default:
		return 0, fmt.Errorf("%w: %q is %s, not a number", ErrMalformedResponse, field, r.Type)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedResponse, field, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: %w: %q = %s", ErrMalformedResponse, ErrNonPositiveValue, field, d.String())
	}

	return d.InexactFloat64(), nil
}

// isSentinel reports placeholder observation values such as FRED's ".".
func isSentinel(r gjson.Result) bool {
	if r.Type != gjson.String {
		return false
	}
	s := strings.TrimSpace(r.Str)
	return s == "" || s == "."
}
