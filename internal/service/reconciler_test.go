package service

import (
	"fmt"
	"testing"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulation(algo domain.Algorithm) *Simulation {
	return NewSimulation(SimulationOptions{
		Viewport:         domain.Viewport{Width: 900, Height: 500},
		Algorithm:        algo,
		AdoptNewBackends: true,
		Seed:             1,
	})
}

func TestReconcilerSeedsThenMerges(t *testing.T) {
	sim := newTestSimulation(domain.AlgorithmRoundRobin)
	reconciler := NewPollingReconciler(sim, 1, logger.NewDiscard())

	first := reconciler.Apply([]domain.BackendMetric{
		{Address: "a", Alive: true, Latency: 5, ErrorCount: 0},
	}, nil)

	assert.True(t, first.Seeded)
	assert.Equal(t, 1, first.Merge.Created)
	require.NotNil(t, first.Spawned, "probability 1 must dispatch")
	assert.Equal(t, "a", first.Spawned.Backend.Address)

	second := reconciler.Apply([]domain.BackendMetric{
		{Address: "a", Alive: true, Latency: 9, ErrorCount: 1},
	}, nil)

	assert.False(t, second.Seeded)
	assert.Equal(t, 1, second.Merge.Updated)

	a, _ := sim.Registry.Get("a")
	assert.Equal(t, int64(2), a.GetActiveConnections(), "merge must not reset connections")
	assert.Equal(t, 9.0, a.Latency)
}

func TestReconcilerFailureKeepsStateAndSpawnsNothing(t *testing.T) {
	sim := newTestSimulation(domain.AlgorithmRoundRobin)
	reconciler := NewPollingReconciler(sim, 1, logger.NewDiscard())
	reconciler.Apply([]domain.BackendMetric{{Address: "a", Alive: true, Latency: 5}}, nil)
	inFlight := sim.Animator.Count()

	result := reconciler.Apply(nil, fmt.Errorf("connection refused"))

	assert.Error(t, result.Err)
	assert.Nil(t, result.Spawned)
	assert.Equal(t, inFlight, sim.Animator.Count())

	a, ok := sim.Registry.Get("a")
	require.True(t, ok, "stale state must be retained")
	assert.True(t, a.Alive)
	assert.Equal(t, 5.0, a.Latency)
	assert.Equal(t, int64(1), reconciler.GetStats()["failures"])
}

func TestReconcilerSkipsTrafficWithNoAliveBackends(t *testing.T) {
	sim := newTestSimulation(domain.AlgorithmLeastConnections)
	reconciler := NewPollingReconciler(sim, 1, logger.NewDiscard())

	result := reconciler.Apply([]domain.BackendMetric{
		{Address: "a", Alive: false},
		{Address: "b", Alive: false},
	}, nil)

	assert.NoError(t, result.Err)
	assert.Nil(t, result.Spawned)
	assert.Equal(t, 0, sim.Animator.Count())
}

func TestReconcilerSpawnProbability(t *testing.T) {
	sim := newTestSimulation(domain.AlgorithmRandom)
	reconciler := NewPollingReconciler(sim, 0.65, logger.NewDiscard())
	snapshot := []domain.BackendMetric{{Address: "a", Alive: true}}

	spawned := 0
	for i := 0; i < 1000; i++ {
		if reconciler.Apply(snapshot, nil).Spawned != nil {
			spawned++
		}
	}

	assert.InDelta(t, 650, spawned, 60)
}

func TestReconcilerLeastConnectionsScenario(t *testing.T) {
	sim := newTestSimulation(domain.AlgorithmLeastConnections)
	reconciler := NewPollingReconciler(sim, 1, logger.NewDiscard())
	sim.Registry.Seed([]domain.BackendMetric{{Address: "a", Alive: true}, {Address: "b", Alive: true}})

	a, _ := sim.Registry.Get("a")
	b, _ := sim.Registry.Get("b")
	a.IncrementConnections()
	a.IncrementConnections()
	b.IncrementConnections()

	result := reconciler.Apply([]domain.BackendMetric{{Address: "a", Alive: true}, {Address: "b", Alive: true}}, nil)

	require.NotNil(t, result.Spawned)
	assert.Same(t, b, result.Spawned.Backend)
	assert.Equal(t, int64(2), b.GetActiveConnections())

	for sim.Animator.Count() > 0 {
		sim.Animator.Advance()
		sim.Animator.Reap()
	}
	assert.Equal(t, int64(1), b.GetActiveConnections())
	assert.Equal(t, int64(2), a.GetActiveConnections())
}

func TestSimulationBypassOrigin(t *testing.T) {
	sim := newTestSimulation(domain.AlgorithmNone)
	sim.Registry.Seed([]domain.BackendMetric{{Address: "a", Alive: true}})

	req := sim.Dispatch()
	require.NotNil(t, req)
	assert.Equal(t, domain.Vec2{X: domain.BypassOriginX, Y: 250}, req.Origin)

	sim.SetAlgorithm("anything")
	assert.Equal(t, domain.Algorithm("anything"), sim.Algorithm())
	req = sim.Dispatch()
	require.NotNil(t, req)
	assert.Equal(t, domain.Vec2{X: domain.OriginX + domain.OriginNodeWidth, Y: 250}, req.Origin)
}
