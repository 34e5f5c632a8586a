package repository

import (
	"github.com/mir00r/lb-dashboard/internal/domain"
)

// MergeResult summarizes one reconciliation pass
type MergeResult struct {
	Created int
	Updated int
	Dropped int
}

// BackendRegistry holds every backend the dashboard has seen.
//
// Storage is arena-style: backends live in an append-only slice of stable
// handles and the address index points into it, so a *domain.Backend held by
// an in-flight request stays valid across every merge. The registry is owned
// by the UI goroutine and is not safe for concurrent use.
type BackendRegistry struct {
	backends  []*domain.Backend
	index     map[string]int
	viewport  domain.Viewport
	adoptNew  bool
	relayouts int
}

// NewBackendRegistry creates an empty registry laid out against vp. When
// adoptNew is false, addresses first seen after seeding are dropped.
func NewBackendRegistry(vp domain.Viewport, adoptNew bool) *BackendRegistry {
	return &BackendRegistry{
		index:    make(map[string]int),
		viewport: vp,
		adoptNew: adoptNew,
	}
}

// Seed populates an empty registry wholesale from the first snapshot
func (r *BackendRegistry) Seed(snapshot []domain.BackendMetric) MergeResult {
	return r.apply(snapshot, true)
}

// Merge reconciles a snapshot into the registry. Existing backends get their
// health fields overwritten; connection counts and positions are untouched.
// Nothing is ever removed.
func (r *BackendRegistry) Merge(snapshot []domain.BackendMetric) MergeResult {
	return r.apply(snapshot, r.adoptNew)
}

func (r *BackendRegistry) apply(snapshot []domain.BackendMetric, create bool) MergeResult {
	var result MergeResult
	before := len(r.backends)

	for _, metric := range snapshot {
		if idx, exists := r.index[metric.Address]; exists {
			r.backends[idx].ApplyHealth(metric)
			result.Updated++
			continue
		}
		if !create {
			result.Dropped++
			continue
		}
		r.index[metric.Address] = len(r.backends)
		r.backends = append(r.backends, domain.NewBackend(metric))
		result.Created++
	}

	if len(r.backends) != before {
		r.relayout()
	}
	return result
}

// relayout recomputes every position from ordinal index and viewport
func (r *BackendRegistry) relayout() {
	n := len(r.backends)
	for i, backend := range r.backends {
		backend.Position = domain.LayoutFor(i, n, r.viewport)
	}
	r.relayouts++
}

// Get returns the backend registered under address
func (r *BackendRegistry) Get(address string) (*domain.Backend, bool) {
	idx, exists := r.index[address]
	if !exists {
		return nil, false
	}
	return r.backends[idx], true
}

// GetAll returns every backend in registry order
func (r *BackendRegistry) GetAll() []*domain.Backend {
	backends := make([]*domain.Backend, len(r.backends))
	copy(backends, r.backends)
	return backends
}

// GetAlive returns alive backends in registry order
func (r *BackendRegistry) GetAlive() []*domain.Backend {
	var alive []*domain.Backend
	for _, backend := range r.backends {
		if backend.IsAlive() {
			alive = append(alive, backend)
		}
	}
	return alive
}

// Count returns the total number of backends
func (r *BackendRegistry) Count() int {
	return len(r.backends)
}

// IsEmpty reports whether no backend has been seen yet
func (r *BackendRegistry) IsEmpty() bool {
	return len(r.backends) == 0
}

// Viewport returns the canvas the registry lays out against
func (r *BackendRegistry) Viewport() domain.Viewport {
	return r.viewport
}

// GetStats returns registry statistics
func (r *BackendRegistry) GetStats() map[string]interface{} {
	alive := 0
	var conns int64
	for _, backend := range r.backends {
		if backend.IsAlive() {
			alive++
		}
		conns += backend.GetActiveConnections()
	}

	return map[string]interface{}{
		"total_backends":     len(r.backends),
		"alive_backends":     alive,
		"down_backends":      len(r.backends) - alive,
		"active_connections": conns,
		"relayouts":          r.relayouts,
	}
}
