package service

import (
	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/repository"
	"github.com/mir00r/lb-dashboard/pkg/logger"
	"github.com/sirupsen/logrus"
)

// DefaultSpawnProbability is the chance that a successful poll dispatches
// one simulated request
const DefaultSpawnProbability = 0.65

// ReconcileResult describes what one metrics tick did
type ReconcileResult struct {
	Seeded  bool
	Merge   repository.MergeResult
	Spawned *domain.SimulatedRequest
	Err     error
}

// PollingReconciler folds metrics feed results into the simulation and is
// the only driver of synthetic traffic
type PollingReconciler struct {
	sim              *Simulation
	spawnProbability float64
	logger           *logger.Logger

	ticks    int64
	failures int64
	spawned  int64
}

// NewPollingReconciler creates a reconciler. A non-positive probability
// falls back to DefaultSpawnProbability.
func NewPollingReconciler(sim *Simulation, spawnProbability float64, log *logger.Logger) *PollingReconciler {
	if spawnProbability <= 0 || spawnProbability > 1 {
		spawnProbability = DefaultSpawnProbability
	}
	return &PollingReconciler{
		sim:              sim,
		spawnProbability: spawnProbability,
		logger:           log,
	}
}

// Apply handles the outcome of one metrics fetch. A failed fetch leaves the
// registry untouched and spawns nothing; the next tick is the retry.
func (r *PollingReconciler) Apply(snapshot []domain.BackendMetric, fetchErr error) ReconcileResult {
	r.ticks++

	if fetchErr != nil {
		r.failures++
		r.logger.WithError(fetchErr).WithField("backends", r.sim.Registry.Count()).
			Warn("Metrics fetch failed, keeping previous backend state")
		return ReconcileResult{Err: fetchErr}
	}

	var result ReconcileResult
	if r.sim.Registry.IsEmpty() {
		result.Seeded = true
		result.Merge = r.sim.Registry.Seed(snapshot)
	} else {
		result.Merge = r.sim.Registry.Merge(snapshot)
	}

	if result.Merge.Created > 0 || result.Merge.Dropped > 0 {
		r.logger.WithFields(logrus.Fields{
			"created": result.Merge.Created,
			"updated": result.Merge.Updated,
			"dropped": result.Merge.Dropped,
			"seeded":  result.Seeded,
		}).Info("Backend set changed")
	}

	if r.sim.Chance(r.spawnProbability) {
		result.Spawned = r.sim.Dispatch()
		if result.Spawned != nil {
			r.spawned++
			r.logger.WithFields(logrus.Fields{
				"request_id": result.Spawned.ID,
				"backend":    result.Spawned.Backend.Address,
				"algorithm":  r.sim.Algorithm(),
			}).Debug("Dispatched simulated request")
		}
	}

	return result
}

// GetStats returns reconciliation counters
func (r *PollingReconciler) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"ticks":             r.ticks,
		"failures":          r.failures,
		"spawned":           r.spawned,
		"spawn_probability": r.spawnProbability,
	}
}
