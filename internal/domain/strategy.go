package domain

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Algorithm is the routing token chosen in the dashboard's selector
type Algorithm string

const (
	// AlgorithmNone pins all traffic to the first alive backend
	AlgorithmNone Algorithm = "none"
	// AlgorithmRoundRobin cycles through alive backends
	AlgorithmRoundRobin Algorithm = "roundrobin"
	// AlgorithmLeastConnections routes to the alive backend with fewest connections
	AlgorithmLeastConnections Algorithm = "leastconnections"
	// AlgorithmRandom picks uniformly among alive backends
	AlgorithmRandom Algorithm = "random"
)

// Algorithms lists the selector tokens in display order
var Algorithms = []Algorithm{
	AlgorithmNone,
	AlgorithmRoundRobin,
	AlgorithmLeastConnections,
	AlgorithmRandom,
}

// ParseAlgorithm normalizes a token. Any string is accepted.
func ParseAlgorithm(token string) Algorithm {
	return Algorithm(strings.ToLower(strings.TrimSpace(token)))
}

// Effective returns the algorithm that will actually run. Unrecognized
// tokens fall back to random.
func (a Algorithm) Effective() Algorithm {
	switch a {
	case AlgorithmNone, AlgorithmRoundRobin, AlgorithmLeastConnections, AlgorithmRandom:
		return a
	default:
		return AlgorithmRandom
	}
}

// maxSuggestDistance bounds how far a typo may be from a known token
const maxSuggestDistance = 3

// Suggest returns the known token closest to an unrecognized one, or "" when
// a is known or nothing is close. It never changes how a behaves.
func (a Algorithm) Suggest() Algorithm {
	if a.Effective() == a {
		return ""
	}
	var (
		best     Algorithm
		bestDist = maxSuggestDistance + 1
	)
	for _, candidate := range Algorithms {
		if d := levenshtein.ComputeDistance(string(a), string(candidate)); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// IsBypass reports whether the balancer is bypassed
func (a Algorithm) IsBypass() bool {
	return a == AlgorithmNone
}

// Next returns the token after a in the selector, wrapping around
func (a Algorithm) Next() Algorithm {
	return a.shift(1)
}

// Prev returns the token before a in the selector, wrapping around
func (a Algorithm) Prev() Algorithm {
	return a.shift(-1)
}

func (a Algorithm) shift(delta int) Algorithm {
	idx := -1
	for i, candidate := range Algorithms {
		if candidate == a {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Algorithms[0]
	}
	n := len(Algorithms)
	return Algorithms[((idx+delta)%n+n)%n]
}

func (a Algorithm) String() string {
	return string(a)
}

// BackendFilter narrows a backend list
type BackendFilter interface {
	Filter(backends []*Backend) []*Backend
	Name() string
}

// AliveBackendFilter keeps alive backends, preserving order
type AliveBackendFilter struct{}

func (f *AliveBackendFilter) Filter(backends []*Backend) []*Backend {
	var alive []*Backend
	for _, backend := range backends {
		if backend.IsAlive() {
			alive = append(alive, backend)
		}
	}
	return alive
}

func (f *AliveBackendFilter) Name() string {
	return "alive_backends"
}
