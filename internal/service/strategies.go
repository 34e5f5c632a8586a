package service

import (
	"math/rand"

	"github.com/mir00r/lb-dashboard/internal/domain"
)

// LoadBalancingStrategy picks a target among alive backends. Implementations
// return nil only when given an empty slice.
type LoadBalancingStrategy interface {
	SelectBackend(alive []*domain.Backend) *domain.Backend
	Name() string
}

// BypassStrategy pins every request to the first alive backend, even when it
// is overloaded
type BypassStrategy struct{}

// NewBypassStrategy creates a new bypass strategy
func NewBypassStrategy() *BypassStrategy {
	return &BypassStrategy{}
}

func (s *BypassStrategy) SelectBackend(alive []*domain.Backend) *domain.Backend {
	if len(alive) == 0 {
		return nil
	}
	return alive[0]
}

func (s *BypassStrategy) Name() string {
	return string(domain.AlgorithmNone)
}

// RoundRobinStrategy cycles through alive backends with a counter that is
// never reset. A change in the alive set's size can skip a backend once.
type RoundRobinStrategy struct {
	counter uint64
}

// NewRoundRobinStrategy creates a new round-robin strategy
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{}
}

func (s *RoundRobinStrategy) SelectBackend(alive []*domain.Backend) *domain.Backend {
	if len(alive) == 0 {
		return nil
	}
	selected := alive[s.counter%uint64(len(alive))]
	s.counter++
	return selected
}

func (s *RoundRobinStrategy) Name() string {
	return string(domain.AlgorithmRoundRobin)
}

// Counter returns the number of round-robin selections made so far
func (s *RoundRobinStrategy) Counter() uint64 {
	return s.counter
}

// LeastConnectionsStrategy routes to the backend with the fewest active
// connections. Ties go to the first one found scanning left to right.
type LeastConnectionsStrategy struct{}

// NewLeastConnectionsStrategy creates a new least connections strategy
func NewLeastConnectionsStrategy() *LeastConnectionsStrategy {
	return &LeastConnectionsStrategy{}
}

func (s *LeastConnectionsStrategy) SelectBackend(alive []*domain.Backend) *domain.Backend {
	if len(alive) == 0 {
		return nil
	}
	selected := alive[0]
	for _, backend := range alive[1:] {
		if backend.GetActiveConnections() < selected.GetActiveConnections() {
			selected = backend
		}
	}
	return selected
}

func (s *LeastConnectionsStrategy) Name() string {
	return string(domain.AlgorithmLeastConnections)
}

// RandomStrategy picks uniformly among alive backends
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy creates a random strategy drawing from rng
func NewRandomStrategy(rng *rand.Rand) *RandomStrategy {
	return &RandomStrategy{rng: rng}
}

func (s *RandomStrategy) SelectBackend(alive []*domain.Backend) *domain.Backend {
	if len(alive) == 0 {
		return nil
	}
	return alive[s.rng.Intn(len(alive))]
}

func (s *RandomStrategy) Name() string {
	return string(domain.AlgorithmRandom)
}

// BackendSource is anything that can list backends in a stable order
type BackendSource interface {
	GetAll() []*domain.Backend
}

// RoutingSimulator chooses the target of a simulated request. It never
// affects real routing.
type RoutingSimulator struct {
	strategies map[domain.Algorithm]LoadBalancingStrategy
	filter     domain.BackendFilter

	selections map[domain.Algorithm]int64
	empty      int64
}

// NewRoutingSimulator creates a simulator with one long-lived instance of each
// strategy, so round-robin state survives algorithm switches
func NewRoutingSimulator(rng *rand.Rand) *RoutingSimulator {
	return &RoutingSimulator{
		strategies: map[domain.Algorithm]LoadBalancingStrategy{
			domain.AlgorithmNone:             NewBypassStrategy(),
			domain.AlgorithmRoundRobin:       NewRoundRobinStrategy(),
			domain.AlgorithmLeastConnections: NewLeastConnectionsStrategy(),
			domain.AlgorithmRandom:           NewRandomStrategy(rng),
		},
		filter:     &domain.AliveBackendFilter{},
		selections: make(map[domain.Algorithm]int64),
	}
}

// Select returns the target for algo, or nil when no backend is alive.
// Unrecognized algorithms silently behave as random.
func (rs *RoutingSimulator) Select(algo domain.Algorithm, source BackendSource) *domain.Backend {
	alive := rs.filter.Filter(source.GetAll())
	if len(alive) == 0 {
		rs.empty++
		return nil
	}

	effective := algo.Effective()
	selected := rs.strategies[effective].SelectBackend(alive)
	rs.selections[effective]++
	return selected
}

// Strategy returns the strategy that runs for algo
func (rs *RoutingSimulator) Strategy(algo domain.Algorithm) LoadBalancingStrategy {
	return rs.strategies[algo.Effective()]
}

// GetStats returns selection counters per algorithm
func (rs *RoutingSimulator) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"empty_selections": rs.empty,
	}
	for algo, count := range rs.selections {
		stats[string(algo)+"_selections"] = count
	}
	return stats
}
