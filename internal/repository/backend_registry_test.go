package repository

import (
	"testing"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testViewport = domain.Viewport{Width: 900, Height: 500}

func TestSeedCreatesBackendWithZeroConnections(t *testing.T) {
	t.Parallel()

	registry := NewBackendRegistry(testViewport, true)
	result := registry.Seed([]domain.BackendMetric{
		{Address: "a", Alive: true, Latency: 5, ErrorCount: 0},
	})

	assert.Equal(t, MergeResult{Created: 1}, result)
	require.Equal(t, 1, registry.Count())

	backend, ok := registry.Get("a")
	require.True(t, ok)
	assert.True(t, backend.Alive)
	assert.Equal(t, 5.0, backend.Latency)
	assert.Equal(t, int64(0), backend.GetActiveConnections())
	assert.Equal(t, domain.LayoutFor(0, 1, testViewport), backend.Position)
	assert.Equal(t, 250.0, backend.Position.Anchor.Y)
}

func TestMergeNeverTouchesConnectionsOrPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		snapshots [][]domain.BackendMetric
	}{
		{
			name: "health flips",
			snapshots: [][]domain.BackendMetric{
				{{Address: "a", Alive: false, Latency: 90, ErrorCount: 4}},
				{{Address: "a", Alive: true, Latency: 1, ErrorCount: 0}},
			},
		},
		{
			name: "empty snapshot",
			snapshots: [][]domain.BackendMetric{
				{},
			},
		},
		{
			name: "backend missing from later snapshot",
			snapshots: [][]domain.BackendMetric{
				{{Address: "b", Alive: true}},
				{},
			},
		},
		{
			name: "duplicate addresses in one snapshot",
			snapshots: [][]domain.BackendMetric{
				{{Address: "a", Alive: false}, {Address: "a", Alive: true, ErrorCount: 9}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewBackendRegistry(testViewport, true)
			registry.Seed([]domain.BackendMetric{
				{Address: "a", Alive: true},
				{Address: "b", Alive: true},
			})

			a, _ := registry.Get("a")
			b, _ := registry.Get("b")
			a.IncrementConnections()
			a.IncrementConnections()
			b.IncrementConnections()
			posA, posB := a.Position, b.Position

			for _, snapshot := range tt.snapshots {
				registry.Merge(snapshot)
			}

			assert.Equal(t, int64(2), a.GetActiveConnections())
			assert.Equal(t, int64(1), b.GetActiveConnections())
			assert.Equal(t, posA, a.Position)
			assert.Equal(t, posB, b.Position)
			assert.Equal(t, 2, registry.Count(), "merge must never delete")
		})
	}
}

func TestMergeOverwritesHealthFields(t *testing.T) {
	t.Parallel()

	registry := NewBackendRegistry(testViewport, true)
	registry.Seed([]domain.BackendMetric{{Address: "a", Alive: true, Latency: 5}})
	before, _ := registry.Get("a")

	result := registry.Merge([]domain.BackendMetric{{Address: "a", Alive: false, Latency: 42, ErrorCount: 7}})

	after, _ := registry.Get("a")
	assert.Same(t, before, after, "backend identity must be stable across merges")
	assert.Equal(t, MergeResult{Updated: 1}, result)
	assert.False(t, after.Alive)
	assert.Equal(t, 42.0, after.Latency)
	assert.Equal(t, int64(7), after.ErrorCount)
}

func TestMergeAdoptsNewBackendAndRelayouts(t *testing.T) {
	t.Parallel()

	registry := NewBackendRegistry(testViewport, true)
	registry.Seed([]domain.BackendMetric{{Address: "a", Alive: true}})
	a, _ := registry.Get("a")
	single := a.Position

	result := registry.Merge([]domain.BackendMetric{
		{Address: "a", Alive: true},
		{Address: "b", Alive: true},
	})

	assert.Equal(t, MergeResult{Created: 1, Updated: 1}, result)
	assert.NotEqual(t, single, a.Position, "cardinality change must relayout")
	assert.Equal(t, domain.LayoutFor(0, 2, testViewport), a.Position)

	b, ok := registry.Get("b")
	require.True(t, ok)
	assert.Equal(t, domain.LayoutFor(1, 2, testViewport), b.Position)
}

func TestMergeWithoutAdoptionDropsUnknownAddresses(t *testing.T) {
	t.Parallel()

	registry := NewBackendRegistry(testViewport, false)
	registry.Seed([]domain.BackendMetric{{Address: "a", Alive: true}})

	result := registry.Merge([]domain.BackendMetric{
		{Address: "a", Alive: false},
		{Address: "ghost", Alive: true},
	})

	assert.Equal(t, MergeResult{Updated: 1, Dropped: 1}, result)
	_, ok := registry.Get("ghost")
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Count())
}

func TestGetAlivePreservesRegistryOrder(t *testing.T) {
	t.Parallel()

	registry := NewBackendRegistry(testViewport, true)
	registry.Seed([]domain.BackendMetric{
		{Address: "a", Alive: true},
		{Address: "b", Alive: false},
		{Address: "c", Alive: true},
	})

	var addresses []string
	for _, backend := range registry.GetAlive() {
		addresses = append(addresses, backend.Address)
	}
	assert.Equal(t, []string{"a", "c"}, addresses)

	stats := registry.GetStats()
	assert.Equal(t, 3, stats["total_backends"])
	assert.Equal(t, 2, stats["alive_backends"])
	assert.Equal(t, 1, stats["down_backends"])
}
