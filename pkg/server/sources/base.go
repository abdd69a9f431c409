package sources

import (
	"sync"
	"time"
)

// Health is a point-in-time view of a source's recent fetch results.
type Health struct {
	Asset      Asset     `json:"asset"`
	Healthy    bool      `json:"healthy"`
	LastUpdate time.Time `json:"last_update,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// healthState tracks the outcome of the most recent fetch.
// It is written by Fetch and read by status endpoints, never by ratio math.
type healthState struct {
	mu         sync.RWMutex
	healthy    bool
	lastUpdate time.Time
	lastValue  float64
	lastError  string
}

func (h *healthState) markLive(t time.Time, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = true
	h.lastUpdate = t
	h.lastValue = value
	h.lastError = ""
}

// last returns the most recent live value, if any fetch has succeeded.
func (h *healthState) last() (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastValue, !h.lastUpdate.IsZero()
}

func (h *healthState) markFailed(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = false
	if err != nil {
		h.lastError = err.Error()
	}
}

func (h *healthState) snapshot(asset Asset) Health {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Health{
		Asset:      asset,
		Healthy:    h.healthy,
		LastUpdate: h.lastUpdate,
		LastError:  h.lastError,
	}
}
