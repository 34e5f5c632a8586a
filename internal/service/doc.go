/*
Package service implements the dashboard's simulation logic.

Nothing in this package locks. A Simulation is owned by a single goroutine
(the terminal UI's update loop) and every type here is mutated from there.

Key Components:

Routing:
RoutingSimulator holds one LoadBalancingStrategy per algorithm and picks a
target among the alive backends of a registry. Round-robin keeps its counter
across calls and across changes to the alive set.

	router := service.NewRoutingSimulator(rng)
	backend := router.Select(domain.AlgorithmLeastConnections, registry)

Animation:
RequestAnimator owns in-flight simulated requests. Spawning a request opens a
connection on its backend; reaping an arrived request closes it exactly once.

	animator := service.NewRequestAnimator(service.DefaultStep, service.DefaultDamping)
	animator.Spawn(origin, backend)
	animator.Advance()
	arrived := animator.Reap()

Polling:
PollingReconciler applies one metrics snapshot per tick: seed or merge the
registry, then spawn a request with a fixed probability. DecisionLogStream
applies one status report per tick, renders only decisions newer than its
watermark, and reports each failure period once.

	reconciler := service.NewPollingReconciler(sim, service.DefaultSpawnProbability, log)
	reconciler.Apply(metrics, err)
*/
package service
