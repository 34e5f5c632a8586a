/*
Package domain contains the entities shared by every layer of the dashboard.

The dashboard never routes real traffic. It mirrors the state published by an
external load-balancing authority and animates simulated requests on top of it.

Key Components:

Backend Entity:
Backend is the local mirror of one upstream server. Health fields (Alive,
Latency, ErrorCount) are owned by the authority and copied in by
reconciliation. The active connection count is owned by the animation
lifecycle and is never written by reconciliation.

	backend := domain.NewBackend(domain.BackendMetric{Address: "10.0.0.1:9001", Alive: true})
	backend.IncrementConnections()
	backend.DecrementConnections() // floored at zero

Algorithms:
Algorithm is the user-selected routing token. Unknown tokens are accepted and
behave like random selection:

	algo := domain.ParseAlgorithm("leastconnections")
	algo.Effective() // AlgorithmLeastConnections

Feed Contracts:
BackendMetric, StatusReport and DecisionLogEntry mirror the JSON documents
served by the authority's metrics and status feeds.

Simulated Requests:
SimulatedRequest is one animated unit of traffic. It holds a reference to its
target backend; the backend must outlive the request, which holds because
backends are never removed.
*/
package domain
