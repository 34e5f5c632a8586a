// Package authority is a local stand-in for the real load-balancing
// service. It keeps a simulated backend pool, routes synthetic traffic with
// an adaptive policy and exposes the metrics and status documents the
// dashboard polls.
package authority

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mir00r/lb-dashboard/internal/domain"
)

const (
	minLatency = 5.0
	maxLatency = 150.0
)

// Pool is a set of simulated backends. All access, including to the shared
// random source, goes through mu.
type Pool struct {
	mu          sync.Mutex
	backends    []*domain.Backend
	rng         *rand.Rand
	failureRate float64
}

// NewPool creates a pool with every address alive
func NewPool(addresses []string, failureRate float64, rng *rand.Rand) *Pool {
	p := &Pool{
		rng:         rng,
		failureRate: failureRate,
	}
	for _, address := range addresses {
		p.backends = append(p.backends, domain.NewBackend(domain.BackendMetric{
			Address: address,
			Alive:   true,
			Latency: minLatency + rng.Float64()*20,
		}))
	}
	return p
}

// withLock runs fn with exclusive access to the backends and the random source
func (p *Pool) withLock(fn func(backends []*domain.Backend)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.backends)
}

// Metrics returns the metrics feed document
func (p *Pool) Metrics() []domain.BackendMetric {
	p.mu.Lock()
	defer p.mu.Unlock()

	metrics := make([]domain.BackendMetric, 0, len(p.backends))
	for _, b := range p.backends {
		metrics = append(metrics, domain.BackendMetric{
			Address:    b.Address,
			Alive:      b.Alive,
			Latency:    b.Latency,
			ErrorCount: b.ErrorCount,
		})
	}
	return metrics
}

// Statuses returns the backend table of the status feed
func (p *Pool) Statuses() []domain.BackendStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]domain.BackendStatus, 0, len(p.backends))
	for _, b := range p.backends {
		statuses = append(statuses, domain.BackendStatus{
			Address:     b.Address,
			Alive:       b.Alive,
			ActiveConns: b.GetActiveConnections(),
			Latency:     b.Latency,
			ErrorCount:  b.ErrorCount,
		})
	}
	return statuses
}

// HoldFor returns how long a request on backend keeps its connection open,
// scaled from the backend's current latency in milliseconds
func (p *Pool) HoldFor(backend *domain.Backend, factor float64) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(backend.Latency*factor) * time.Millisecond
}

// Release ends one request on backend. The request fails with the pool's
// failure rate, which is what drives the adaptive router's error rule.
func (p *Pool) Release(backend *domain.Backend) (failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	backend.DecrementConnections()
	if p.rng.Float64() < p.failureRate {
		backend.ErrorCount++
		return true
	}
	return false
}

// Drift moves every backend's health one step: latency random walk, error
// counts decay by half, and an occasional outage or recovery
func (p *Pool) Drift() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range p.backends {
		b.Latency = math.Max(minLatency, math.Min(maxLatency, b.Latency+(p.rng.Float64()-0.5)*20))
		b.ErrorCount /= 2

		if p.rng.Float64() < p.failureRate/2 {
			b.Alive = !b.Alive
			if b.Alive {
				b.ErrorCount = 0
			}
		}
	}
}

// Size returns the number of backends
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.backends)
}
