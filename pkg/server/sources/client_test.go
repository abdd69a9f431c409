package sources

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func enabled(url string) Settings {
	return Settings{Enabled: true, URL: url, Timeout: 2 * time.Second}
}

func TestClient_LiveQuote(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{"USD": 60000}`)

	client, err := Create(AssetBitcoin, enabled(srv.URL))
	require.NoError(t, err)

	q := client.Fetch(context.Background())
	assert.True(t, q.OK())
	assert.Equal(t, OriginLive, q.Origin)
	assert.InDelta(t, 60000.0, q.Value, 1e-9)
	assert.EqualValues(t, 1, calls.Load())

	health := client.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.LastUpdate.IsZero())
}

func TestClient_FailureIsUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"USD": 60000}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`},
		{"rate limited", http.StatusTooManyRequests, ``},
		{"malformed", http.StatusOK, `{"Response":"Error"}`},
		{"not json", http.StatusOK, `<html></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newUpstream(t, tt.status, tt.body)

			client, err := Create(AssetBitcoin, enabled(srv.URL))
			require.NoError(t, err)

			q := client.Fetch(context.Background())
			assert.False(t, q.OK())
			assert.Equal(t, Unavailable(), q)
			assert.False(t, client.Health().Healthy)
			assert.NotEmpty(t, client.Health().LastError)
		})
	}
}

func TestClient_FailureFallbackPolicy(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusForbidden, `{}`)

	settings := enabled(srv.URL)
	settings.OnFailure = FailureFallback
	settings.FallbackValue = 5000

	client, err := Create(AssetEquityIndex, settings)
	require.NoError(t, err)

	q := client.Fetch(context.Background())
	assert.True(t, q.OK())
	assert.True(t, q.Estimated())
	assert.InDelta(t, 5000.0, q.Value, 1e-9)
}

func TestClient_GoldWithoutKeyUsesFallbackWithoutNetwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := NewMockHTTPDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Times(0)

	client, err := Create(AssetGold, Settings{
		Enabled:       true,
		URL:           "https://api.metals.dev/v1/latest?api_key={api_key}&currency=USD&unit_to_oz=true",
		OnMissingKey:  MissingKeyFallback,
		OnFailure:     FailureUnavailable,
		FallbackValue: 2000,
	}, WithHTTPClient(doer))
	require.NoError(t, err)

	q := client.Fetch(context.Background())
	assert.Equal(t, StatusOK, q.Status)
	assert.Equal(t, OriginFallback, q.Origin)
	assert.InDelta(t, 2000.0, q.Value, 1e-9)
}

func TestClient_GoldWithKeyFailureIsUnavailable(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{"status":"failure","error_message":"invalid api key"}`)

	client, err := Create(AssetGold, Settings{
		Enabled:       true,
		URL:           srv.URL + "?api_key={api_key}",
		APIKey:        "secret",
		OnMissingKey:  MissingKeyFallback,
		OnFailure:     FailureUnavailable,
		FallbackValue: 2000,
	})
	require.NoError(t, err)

	q := client.Fetch(context.Background())
	assert.False(t, q.OK())
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_MissingKeySkip(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := NewMockHTTPDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Times(0)

	client, err := Create(AssetEquityIndex, Settings{
		Enabled:      true,
		URL:          "https://example.invalid/quote?apikey={api_key}",
		OnMissingKey: MissingKeySkip,
	}, WithHTTPClient(doer))
	require.NoError(t, err)

	assert.False(t, client.Fetch(context.Background()).OK())
}

func TestClient_MissingKeyAttemptSendsEmptyKey(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"observations":[{"value":"412300"}]}`)
	}))
	defer srv.Close()

	client, err := Create(AssetMedianHome, enabled(srv.URL+"/fred/series/observations?series_id=MSPUS&api_key={api_key}&file_type=json"))
	require.NoError(t, err)

	q := client.Fetch(context.Background())
	require.True(t, q.OK())
	assert.InDelta(t, 412300.0, q.Value, 1e-9)
	assert.Equal(t, "series_id=MSPUS&api_key=&file_type=json", gotQuery)
}

func TestClient_SubstitutesEscapedKeyAndSetsHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := NewMockHTTPDoer(ctrl)

	doer.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "a b&c", req.URL.Query().Get("api_key"))
			assert.Equal(t, http.MethodGet, req.Method)
			assert.True(t, strings.HasPrefix(req.Header.Get("User-Agent"), "btcratios/"))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"metals":{"gold":2345.6}}`)),
			}, nil
		}).
		Times(1)

	client, err := Create(AssetGold, Settings{
		Enabled: true,
		URL:     "https://api.metals.dev/v1/latest?api_key={api_key}",
		APIKey:  "a b&c",
	}, WithHTTPClient(doer))
	require.NoError(t, err)

	q := client.Fetch(context.Background())
	assert.InDelta(t, 2345.6, q.Value, 1e-9)
}

func TestClient_TransportErrorDoesNotLeakKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := NewMockHTTPDoer(ctrl)
	doer.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: errors.New("connection refused")}
		})

	client, err := Create(AssetGold, Settings{
		Enabled: true,
		URL:     "https://api.metals.dev/v1/latest?api_key={api_key}",
		APIKey:  "topsecret",
	}, WithHTTPClient(doer))
	require.NoError(t, err)

	q := client.Fetch(context.Background())
	assert.False(t, q.OK())
	assert.NotContains(t, client.Health().LastError, "topsecret")
	assert.Contains(t, client.Health().LastError, "REDACTED")
}

func TestClient_Disabled(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{"USD": 60000}`)

	settings := enabled(srv.URL)
	settings.Enabled = false
	client, err := Create(AssetBitcoin, settings)
	require.NoError(t, err)

	assert.False(t, client.Fetch(context.Background()).OK())
	assert.EqualValues(t, 0, calls.Load())
}

func TestClient_TimeoutResolvesToPolicy(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	settings := enabled(srv.URL)
	settings.Timeout = 100 * time.Millisecond
	settings.OnFailure = FailureFallback
	settings.FallbackValue = 400000

	client, err := Create(AssetMedianHome, settings)
	require.NoError(t, err)

	start := time.Now()
	q := client.Fetch(context.Background())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, q.Estimated())
	assert.InDelta(t, 400000.0, q.Value, 1e-9)
}

func TestClient_RetriesNetworkFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"USD": 59000}`)
	}))
	defer srv.Close()

	settings := enabled(srv.URL)
	settings.Retries = 2

	client, err := Create(AssetBitcoin, settings, WithInitialBackoff(time.Millisecond))
	require.NoError(t, err)

	q := client.Fetch(context.Background())
	require.True(t, q.OK())
	assert.InDelta(t, 59000.0, q.Value, 1e-9)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_DoesNotRetryMalformedResponses(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{"EUR": 1}`)

	settings := enabled(srv.URL)
	settings.Retries = 3

	client, err := Create(AssetBitcoin, settings, WithInitialBackoff(time.Millisecond))
	require.NoError(t, err)

	assert.False(t, client.Fetch(context.Background()).OK())
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_MinIntervalReusesLastValue(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{"observations": [{"value": "420000"}]}`)

	settings := enabled(srv.URL)
	settings.Timeout = 8 * time.Second
	settings.MinInterval = time.Minute / 8

	client, err := Create(AssetMedianHome, settings)
	require.NoError(t, err)

	start := time.Now()
	first := client.Fetch(context.Background())
	second := client.Fetch(context.Background())

	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.Equal(t, first, second)
	assert.Less(t, time.Since(start), time.Second)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_MinIntervalWaitsWithoutLastValue(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"USD": 60000}`)
	}))
	t.Cleanup(srv.Close)

	settings := enabled(srv.URL)
	settings.MinInterval = 150 * time.Millisecond

	client, err := Create(AssetBitcoin, settings)
	require.NoError(t, err)

	start := time.Now()
	require.False(t, client.Fetch(context.Background()).OK())
	second := client.Fetch(context.Background())

	assert.True(t, second.OK())
	assert.Equal(t, OriginLive, second.Origin)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_CanceledContext(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, `{"USD": 60000}`)

	client, err := Create(AssetBitcoin, enabled(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, client.Fetch(ctx).OK())
}

func TestNewClient_InvalidSettings(t *testing.T) {
	_, err := NewClient(AssetGold, Settings{Enabled: true}, ParseGold)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewClient(AssetGold, Settings{
		Enabled:      true,
		URL:          "https://example.invalid",
		OnMissingKey: MissingKeyFallback,
	}, ParseGold)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	tooSparse := enabled("https://example.invalid")
	tooSparse.MinInterval = time.Minute
	_, err = NewClient(AssetGold, tooSparse, ParseGold)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewClient(AssetGold, enabled("https://example.invalid"), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Create(Asset("silver"), enabled("https://example.invalid"))
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestClient_InvalidEndpoint(t *testing.T) {
	client, err := Create(AssetBitcoin, enabled("http://[::1]:namedport/price"))
	require.NoError(t, err)

	assert.False(t, client.Fetch(context.Background()).OK())
	assert.False(t, client.Health().Healthy)
}

func TestClient_InvalidEndpointDoesNotLeakKey(t *testing.T) {
	settings := enabled("http://[::1]:namedport/price?key={api_key}")
	settings.APIKey = "super-secret"

	client, err := Create(AssetGold, settings)
	require.NoError(t, err)

	assert.False(t, client.Fetch(context.Background()).OK())

	health := client.Health()
	require.NotEmpty(t, health.LastError)
	assert.NotContains(t, health.LastError, "super-secret")
	assert.Contains(t, health.LastError, "REDACTED")
}
