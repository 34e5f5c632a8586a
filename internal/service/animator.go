package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/mir00r/lb-dashboard/internal/domain"
)

// Default motion constants, in canvas units per frame
const (
	DefaultStep    = 7.0
	DefaultDamping = 0.12
)

// RequestAnimator owns the in-flight simulated requests.
//
// Motion is frame-based rather than wall-clock based: x advances by a fixed
// step per tick, so arrival is exact and bounded, while y approaches the
// target exponentially. Reap is the only place that decrements a backend's
// connection count for an animated request.
type RequestAnimator struct {
	step     float64
	damping  float64
	inFlight []*domain.SimulatedRequest
	now      func() time.Time

	spawned int64
	reaped  int64
}

// NewRequestAnimator creates an animator with the given per-tick step and
// vertical damping factor
func NewRequestAnimator(step, damping float64) *RequestAnimator {
	if step <= 0 {
		step = DefaultStep
	}
	if damping <= 0 || damping > 1 {
		damping = DefaultDamping
	}
	return &RequestAnimator{
		step:    step,
		damping: damping,
		now:     time.Now,
	}
}

// Spawn creates a request from origin toward backend's anchor and counts it
// as one active connection on that backend
func (a *RequestAnimator) Spawn(origin domain.Vec2, backend *domain.Backend) *domain.SimulatedRequest {
	if backend == nil {
		return nil
	}

	req := &domain.SimulatedRequest{
		ID:       uuid.NewString(),
		Position: origin,
		Origin:   origin,
		Target:   backend.Position.Anchor,
		Backend:  backend,
		Born:     a.now(),
	}
	backend.IncrementConnections()
	a.inFlight = append(a.inFlight, req)
	a.spawned++
	return req
}

// Advance moves every in-flight request by one tick
func (a *RequestAnimator) Advance() {
	for _, req := range a.inFlight {
		req.Position.X += a.step
		req.Position.Y += (req.Target.Y - req.Position.Y) * a.damping
		req.Ticks++
	}
}

// Reap removes and returns every request that reached its target column,
// releasing one connection on each request's backend
func (a *RequestAnimator) Reap() []*domain.SimulatedRequest {
	var arrived []*domain.SimulatedRequest
	remaining := a.inFlight[:0]

	for _, req := range a.inFlight {
		if req.Arrived() {
			arrived = append(arrived, req)
			continue
		}
		remaining = append(remaining, req)
	}

	// clear the tail so reaped requests are not retained by the backing array
	for i := len(remaining); i < len(a.inFlight); i++ {
		a.inFlight[i] = nil
	}
	a.inFlight = remaining

	for _, req := range arrived {
		req.Backend.DecrementConnections()
	}
	a.reaped += int64(len(arrived))
	return arrived
}

// InFlight returns the requests still travelling
func (a *RequestAnimator) InFlight() []*domain.SimulatedRequest {
	requests := make([]*domain.SimulatedRequest, len(a.inFlight))
	copy(requests, a.inFlight)
	return requests
}

// Count returns the number of requests still travelling
func (a *RequestAnimator) Count() int {
	return len(a.inFlight)
}

// GetStats returns lifecycle counters
func (a *RequestAnimator) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"spawned":   a.spawned,
		"reaped":    a.reaped,
		"in_flight": len(a.inFlight),
		"step":      a.step,
		"damping":   a.damping,
	}
}
