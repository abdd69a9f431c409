// Package api serves aggregated snapshots over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/StrathCole/btcratios/pkg/logging"
	"github.com/StrathCole/btcratios/pkg/metrics"
	"github.com/StrathCole/btcratios/pkg/server/aggregator"
	"github.com/StrathCole/btcratios/pkg/server/sources"
)

// Refresher produces snapshots on demand.
type Refresher interface {
	Refresh(ctx context.Context) (aggregator.Snapshot, error)
	Health() []sources.Health
}

// Options configures the HTTP API server.
type Options struct {
	Addr            string
	CertFile        string
	KeyFile         string
	CacheTTL        time.Duration
	RefreshInterval time.Duration // 0 disables background refresh
	RefreshTimeout  time.Duration
}

// Server represents the HTTP API server.
type Server struct {
	opts      Options
	refresher Refresher
	server    *http.Server
	logger    *logging.Logger

	mu     sync.RWMutex
	latest aggregator.Snapshot
	cached bool
}

// NewServer creates a new HTTP API server.
func NewServer(opts Options, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Server{
		opts:   opts,
		logger: logger,
	}
}

// SetRefresher sets the snapshot source. It must be called before Start.
func (s *Server) SetRefresher(r Refresher) {
	s.refresher = r
}

// Render stores a completed snapshot so requests within the cache TTL reuse it.
func (s *Server) Render(snapshot aggregator.Snapshot) {
	s.store(snapshot)
}

// Latest returns the most recent snapshot, if any.
func (s *Server) Latest() (aggregator.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.cached
}

func (s *Server) store(snapshot aggregator.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached && snapshot.FetchedAt.Before(s.latest.FetchedAt) {
		return
	}
	s.latest = snapshot
	s.cached = true
}

func (s *Server) fresh() (aggregator.Snapshot, bool) {
	snapshot, ok := s.Latest()
	if !ok || time.Since(snapshot.FetchedAt) >= s.opts.CacheTTL {
		return aggregator.Snapshot{}, false
	}
	return snapshot, true
}

// Handler returns the HTTP routes served by the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)
	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	if s.refresher == nil {
		return fmt.Errorf("%w", ErrNoRefresher)
	}

	s.server = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.opts.Addr, "tls", s.opts.CertFile != "")

	var err error
	if s.opts.CertFile != "" {
		err = s.server.ListenAndServeTLS(s.opts.CertFile, s.opts.KeyFile)
	} else {
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// RunRefreshLoop refreshes on every interval tick until ctx ends.
// It returns immediately when the interval is zero.
func (s *Server) RunRefreshLoop(ctx context.Context) {
	if s.opts.RefreshInterval <= 0 || s.refresher == nil {
		return
	}

	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	s.logger.Info("Background refresh enabled", "interval", s.opts.RefreshInterval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("Background refresh failed", "error", err)
			}
		}
	}
}

func (s *Server) refresh(ctx context.Context) (aggregator.Snapshot, error) {
	if s.opts.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RefreshTimeout)
		defer cancel()
	}

	snapshot, err := s.refresher.Refresh(ctx)
	if err != nil {
		return aggregator.Snapshot{}, err
	}
	s.store(snapshot)
	return snapshot, nil
}

// healthResponse is the /health body.
type healthResponse struct {
	Status  string           `json:"status"`
	Sources []sources.Health `json:"sources,omitempty"`
	Latest  *time.Time       `json:"latest_snapshot,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	resp := healthResponse{Status: "ok"}
	if s.refresher != nil {
		resp.Sources = s.refresher.Health()
	}
	if latest, ok := s.Latest(); ok {
		resp.Latest = &latest.FetchedAt
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if snapshot, ok := s.fresh(); ok {
		start := time.Now()
		s.sendJSON(w, http.StatusOK, snapshot)
		metrics.RecordHTTPRequest("/v1/snapshot", "200", time.Since(start))
		return
	}
	s.serveRefresh(w, r, "/v1/snapshot")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.serveRefresh(w, r, "/v1/refresh")
}

func (s *Server) serveRefresh(w http.ResponseWriter, r *http.Request, endpoint string) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest(endpoint, strconv.Itoa(status), time.Since(start))
	}()

	if s.refresher == nil {
		status = http.StatusServiceUnavailable
		http.Error(w, ErrNoRefresher.Error(), status)
		return
	}

	snapshot, err := s.refresh(r.Context())
	if err != nil {
		status = http.StatusServiceUnavailable
		s.logger.Warn("Refresh did not complete", "endpoint", endpoint, "error", err)
		http.Error(w, "Snapshot unavailable", status)
		return
	}

	s.sendJSON(w, status, snapshot)
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
