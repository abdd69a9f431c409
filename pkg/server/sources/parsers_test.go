package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBitcoin(t *testing.T) {
	v, err := ParseBitcoin([]byte(`{"USD": 60123.45}`))
	require.NoError(t, err)
	assert.InDelta(t, 60123.45, v, 1e-9)

	v, err = ParseBitcoin([]byte(`{"USD": "61000"}`))
	require.NoError(t, err)
	assert.InDelta(t, 61000.0, v, 1e-9)
}

func TestParseBitcoin_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>rate limited</html>`},
		{"missing field", `{"EUR": 55000}`},
		{"error envelope", `{"Response":"Error","Message":"fsym is a required param."}`},
		{"null value", `{"USD": null}`},
		{"zero value", `{"USD": 0}`},
		{"negative value", `{"USD": -1}`},
		{"nan string", `{"USD": "NaN"}`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBitcoin([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParseGold(t *testing.T) {
	body := `{"status":"success","currency":"USD","unit":"toz","metals":{"gold":2034.5,"silver":23.1}}`

	v, err := ParseGold([]byte(body))
	require.NoError(t, err)
	assert.InDelta(t, 2034.5, v, 1e-9)

	_, err = ParseGold([]byte(`{"status":"failure","error_code":1101}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = ParseGold([]byte(`{"metals":{"silver":23.1}}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseEquityIndex_QuoteShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected float64
	}{
		{"object", `{"symbol":"^GSPC","price":5012.34}`, 5012.34},
		{"single element array", `[{"symbol":"^GSPC","name":"S&P 500","price":4999.5}]`, 4999.5},
		{"first element wins", `[{"price":5000},{"price":1}]`, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseEquityIndex([]byte(tt.body))
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, v, 1e-9)
		})
	}
}

func TestParseEquityIndex_TimeSeriesUsesFirstEntry(t *testing.T) {
	body := `{"Time Series (Daily)": {"2024-01-02": {"4. close":"470.12"}, "2024-01-01": {"4. close":"468.00"}}}`

	v, err := ParseEquityIndex([]byte(body))
	require.NoError(t, err)
	assert.InDelta(t, 470.12, v, 1e-9)
}

func TestParseEquityIndex_TimeSeriesKeepsUpstreamOrder(t *testing.T) {
	// Older date first: the first entry is used even though it is not the latest key.
	body := `{
		"Meta Data": {"2. Symbol": "SPY"},
		"Time Series (Daily)": {
			"2024-01-01": {"1. open":"467.00","4. close":"468.00"},
			"2024-01-02": {"1. open":"469.00","4. close":"470.12"}
		}
	}`

	v, err := ParseEquityIndex([]byte(body))
	require.NoError(t, err)
	assert.InDelta(t, 468.00, v, 1e-9)
}

func TestParseEquityIndex_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty array", `[]`},
		{"array without price", `[{"symbol":"^GSPC"}]`},
		{"no known shape", `{"Error Message":"Invalid API call"}`},
		{"empty series", `{"Time Series (Daily)": {}}`},
		{"series without close", `{"Time Series (Daily)": {"2024-01-02": {"1. open":"470.00"}}}`},
		{"non numeric close", `{"Time Series (Daily)": {"2024-01-02": {"4. close":"n/a"}}}`},
		{"truncated", `{"price": 50`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEquityIndex([]byte(tt.body))
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParseMedianHome_ScansFromMostRecent(t *testing.T) {
	body := `{"observations":[{"value":"."},{"value":""},{"value":"450000"},{"value":"460000"}]}`

	v, err := ParseMedianHome([]byte(body))
	require.NoError(t, err)
	assert.InDelta(t, 460000.0, v, 1e-9)
}

func TestParseMedianHome_SkipsSentinelsAtTail(t *testing.T) {
	body := `{"observations":[
		{"date":"2023-07-01","value":"431000"},
		{"date":"2023-10-01","value":"417700"},
		{"date":"2024-01-01","value":"garbage"},
		{"date":"2024-04-01","value":""},
		{"date":"2024-07-01","value":"."}
	]}`

	v, err := ParseMedianHome([]byte(body))
	require.NoError(t, err)
	assert.InDelta(t, 417700.0, v, 1e-9)
}

func TestParseMedianHome_NoNumericObservation(t *testing.T) {
	_, err := ParseMedianHome([]byte(`{"observations":[{"value":"."},{"value":""}]}`))
	assert.ErrorIs(t, err, ErrNoNumericObservation)

	_, err = ParseMedianHome([]byte(`{"observations":[]}`))
	assert.ErrorIs(t, err, ErrNoNumericObservation)
}

func TestParseMedianHome_Malformed(t *testing.T) {
	_, err := ParseMedianHome([]byte(`{"error_code":400,"error_message":"Bad Request. The value for variable api_key is not registered."}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = ParseMedianHome([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRegistry(t *testing.T) {
	assert.ElementsMatch(t, Assets(), List())

	for _, asset := range Assets() {
		parse, err := Parser(asset)
		require.NoError(t, err)
		require.NotNil(t, parse)
	}

	_, err := Parser(Asset("silver"))
	assert.ErrorIs(t, err, ErrUnknownAsset)
}
