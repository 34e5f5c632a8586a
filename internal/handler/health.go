package handler

import (
	"net/http"
	"time"
)

// StatsProvider reports component counters for the health endpoint
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// HealthHandler answers liveness probes for the authority process
type HealthHandler struct {
	startTime time.Time
	version   string
	stats     map[string]StatsProvider
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		version:   version,
		stats:     make(map[string]StatsProvider),
	}
}

// Register adds a component whose counters are reported under name
func (h *HealthHandler) Register(name string, provider StatsProvider) {
	h.stats[name] = provider
}

// ServeHTTP reports liveness, uptime and the registered counters
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
	}
	for name, provider := range h.stats {
		response[name] = provider.GetStats()
	}

	writeJSON(w, http.StatusOK, response)
}
