package service

import (
	"math/rand"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/repository"
)

// SimulationOptions configures a Simulation
type SimulationOptions struct {
	Viewport         domain.Viewport
	Algorithm        domain.Algorithm
	AdoptNewBackends bool
	Step             float64
	Damping          float64
	Seed             int64
}

// Simulation is the single owned context every component operates on: the
// registry, the in-flight requests, the routing state and the selected
// algorithm. It is mutated only from the UI goroutine.
type Simulation struct {
	Registry *repository.BackendRegistry
	Router   *RoutingSimulator
	Animator *RequestAnimator

	algorithm domain.Algorithm
	rng       *rand.Rand
}

// NewSimulation creates an empty simulation
func NewSimulation(opts SimulationOptions) *Simulation {
	rng := rand.New(rand.NewSource(opts.Seed))
	algo := opts.Algorithm
	if algo == "" {
		algo = domain.AlgorithmRoundRobin
	}

	return &Simulation{
		Registry:  repository.NewBackendRegistry(opts.Viewport, opts.AdoptNewBackends),
		Router:    NewRoutingSimulator(rng),
		Animator:  NewRequestAnimator(opts.Step, opts.Damping),
		algorithm: algo,
		rng:       rng,
	}
}

// Algorithm returns the selected token as chosen, not coerced
func (s *Simulation) Algorithm() domain.Algorithm {
	return s.algorithm
}

// SetAlgorithm switches the selected token. Any string is accepted.
func (s *Simulation) SetAlgorithm(algo domain.Algorithm) {
	s.algorithm = algo
}

// Viewport returns the virtual canvas size
func (s *Simulation) Viewport() domain.Viewport {
	return s.Registry.Viewport()
}

// Origin returns where new requests start under the current algorithm
func (s *Simulation) Origin() domain.Vec2 {
	return domain.OriginPoint(s.Viewport(), s.algorithm.IsBypass())
}

// Dispatch selects a backend and spawns one request toward it. It returns
// nil without spawning when no backend is alive.
func (s *Simulation) Dispatch() *domain.SimulatedRequest {
	backend := s.Router.Select(s.algorithm, s.Registry)
	if backend == nil {
		return nil
	}
	return s.Animator.Spawn(s.Origin(), backend)
}

// Chance reports true with probability p
func (s *Simulation) Chance(p float64) bool {
	return s.rng.Float64() < p
}
