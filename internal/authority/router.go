package authority

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/errors"
	"github.com/mir00r/lb-dashboard/internal/service"
)

// Adaptive thresholds
const (
	errorRateThreshold   = 0.3
	concurrencyThreshold = 3
)

// Reasons recorded with each decision
const (
	ReasonNormal          = "normal_conditions"
	ReasonHighConcurrency = "high_concurrency"
)

// poolStats summarizes the alive part of the pool at decision time
type poolStats struct {
	alive      []*domain.Backend
	totalConns int64
	maxConns   int64
	errors     int64
}

func (s poolStats) errorRate() float64 {
	return float64(s.errors) / float64(s.totalConns+1)
}

// AdaptiveRouter switches algorithm per request from pool conditions and
// keeps a bounded log of its decisions
type AdaptiveRouter struct {
	pool         *Pool
	roundRobin   service.LoadBalancingStrategy
	leastConns   service.LoadBalancingStrategy
	random       service.LoadBalancingStrategy
	maxDecisions int
	now          func() time.Time

	mu          sync.Mutex
	currentAlgo domain.Algorithm
	reason      string
	lastPicked  string
	decisions   []domain.DecisionLogEntry
	lastTime    time.Time
}

// NewAdaptiveRouter creates a router over pool. rng must be the pool's
// random source; it is only used under the pool lock.
func NewAdaptiveRouter(pool *Pool, rng *rand.Rand, maxDecisions int) *AdaptiveRouter {
	return &AdaptiveRouter{
		pool:         pool,
		roundRobin:   service.NewRoundRobinStrategy(),
		leastConns:   service.NewLeastConnectionsStrategy(),
		random:       service.NewRandomStrategy(rng),
		maxDecisions: maxDecisions,
		now:          time.Now,
		currentAlgo:  domain.AlgorithmRoundRobin,
		reason:       ReasonNormal,
	}
}

// Route picks a backend for one request and opens a connection on it. The
// caller must hand the backend back through Pool.Release.
func (r *AdaptiveRouter) Route() (*domain.Backend, error) {
	var (
		selected *domain.Backend
		algo     domain.Algorithm
		reason   string
	)

	r.pool.withLock(func(backends []*domain.Backend) {
		stats := collect(backends)
		if len(stats.alive) == 0 {
			return
		}

		var strategy service.LoadBalancingStrategy
		strategy, algo, reason = r.choose(stats)
		selected = strategy.SelectBackend(stats.alive)
		selected.IncrementConnections()
	})

	if selected == nil {
		return nil, errors.NewNoAliveBackendsError()
	}

	r.record(algo, reason, selected.Address)
	return selected, nil
}

func collect(backends []*domain.Backend) poolStats {
	var stats poolStats
	for _, b := range backends {
		if !b.IsAlive() {
			continue
		}
		conns := b.GetActiveConnections()
		stats.alive = append(stats.alive, b)
		stats.totalConns += conns
		stats.errors += b.ErrorCount
		if conns > stats.maxConns {
			stats.maxConns = conns
		}
	}
	return stats
}

func (r *AdaptiveRouter) choose(stats poolStats) (service.LoadBalancingStrategy, domain.Algorithm, string) {
	if rate := stats.errorRate(); rate > errorRateThreshold {
		return r.random, domain.AlgorithmRandom, fmt.Sprintf("high_error_rate(%.2f)", rate)
	}
	if stats.maxConns > concurrencyThreshold {
		return r.leastConns, domain.AlgorithmLeastConnections, ReasonHighConcurrency
	}
	return r.roundRobin, domain.AlgorithmRoundRobin, ReasonNormal
}

// record appends a decision. Decision times are kept strictly increasing so
// a watermark-based reader never loses one to a timestamp tie.
func (r *AdaptiveRouter) record(algo domain.Algorithm, reason, backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !now.After(r.lastTime) {
		now = r.lastTime.Add(time.Nanosecond)
	}
	r.lastTime = now

	r.currentAlgo = algo
	r.reason = reason
	r.lastPicked = backend
	r.decisions = append(r.decisions, domain.DecisionLogEntry{
		Time:    now,
		Algo:    string(algo),
		Backend: backend,
		Reason:  reason,
	})
	if len(r.decisions) > r.maxDecisions {
		r.decisions = append([]domain.DecisionLogEntry(nil), r.decisions[len(r.decisions)-r.maxDecisions:]...)
	}
}

// Status returns the status feed document
func (r *AdaptiveRouter) Status() domain.StatusReport {
	backends := r.pool.Statuses()

	r.mu.Lock()
	defer r.mu.Unlock()

	decisions := make([]domain.DecisionLogEntry, len(r.decisions))
	copy(decisions, r.decisions)

	return domain.StatusReport{
		CurrentAlgo:     string(r.currentAlgo),
		AdaptiveReason:  r.reason,
		SelectedBackend: r.lastPicked,
		Backends:        backends,
		DecisionLog:     decisions,
	}
}

// GetStats returns router counters
func (r *AdaptiveRouter) GetStats() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]interface{}{
		"current_algo": r.currentAlgo,
		"reason":       r.reason,
		"decisions":    len(r.decisions),
	}
}
