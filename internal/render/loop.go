// Package render draws the simulation one frame at a time.
package render

import (
	"fmt"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/errors"
	"github.com/mir00r/lb-dashboard/internal/service"
	"github.com/mir00r/lb-dashboard/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Surface is a drawing target. Any method may fail or panic; the loop
// contains both to the entity being drawn.
type Surface interface {
	Clear() error
	DrawGrid() error
	DrawOrigin(bypassed bool) error
	DrawBackend(backend *domain.Backend) error
	DrawRequest(req *domain.SimulatedRequest) error
}

// FrameResult describes one frame
type FrameResult struct {
	Frame    int64
	Reaped   []*domain.SimulatedRequest
	Failures []error
}

// Loop is the render step. It never reschedules itself; the caller re-arms
// it, which is how tests step frames by hand.
type Loop struct {
	sim      *service.Simulation
	surface  Surface
	showGrid bool
	logger   *logger.Logger

	frames   int64
	failures int64
}

// NewLoop creates a render loop drawing sim onto surface
func NewLoop(sim *service.Simulation, surface Surface, showGrid bool, log *logger.Logger) *Loop {
	return &Loop{
		sim:      sim,
		surface:  surface,
		showGrid: showGrid,
		logger:   log,
	}
}

// Frame draws one frame: clear, chrome, backends, then advance and draw the
// in-flight requests, then reap. Advance and reap run even when drawing fails.
func (l *Loop) Frame() FrameResult {
	l.frames++
	result := FrameResult{Frame: l.frames}
	record := func(err error) {
		if err != nil {
			result.Failures = append(result.Failures, err)
		}
	}

	record(l.draw("surface", l.surface.Clear))
	if l.showGrid {
		record(l.draw("grid", l.surface.DrawGrid))
	}

	bypassed := l.sim.Algorithm().IsBypass()
	record(l.draw("origin", func() error { return l.surface.DrawOrigin(bypassed) }))

	for _, backend := range l.sim.Registry.GetAll() {
		backend := backend
		record(l.draw("backend "+backend.Address, func() error { return l.surface.DrawBackend(backend) }))
	}

	l.sim.Animator.Advance()
	for _, req := range l.sim.Animator.InFlight() {
		req := req
		record(l.draw("request "+req.ID, func() error { return l.surface.DrawRequest(req) }))
	}

	result.Reaped = l.sim.Animator.Reap()

	l.failures += int64(len(result.Failures))
	return result
}

// draw runs fn, turning a returned error or a panic into a DRAW_FAILED error
func (l *Loop) draw(entity string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewError(errors.ErrCodeDrawFailed, "render", fmt.Sprintf("panic drawing %s: %v", entity, r)).
				WithMetadata("entity", entity)
		}
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"entity": entity,
				"frame":  l.frames,
			}).WithError(err).Warn("Draw failed")
		}
	}()

	if drawErr := fn(); drawErr != nil {
		return errors.WrapError(drawErr, errors.ErrCodeDrawFailed, "render", "failed to draw "+entity).
			WithMetadata("entity", entity)
	}
	return nil
}

// GetStats returns frame counters
func (l *Loop) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"frames":        l.frames,
		"draw_failures": l.failures,
	}
}
