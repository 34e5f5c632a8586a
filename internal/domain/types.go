package domain

import (
	"time"
)

// Vec2 is a point on the virtual canvas
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Viewport is the size of the virtual canvas all layout is computed against
type Viewport struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Layout holds the derived drawing coordinates of a backend card
type Layout struct {
	// Card is the top-left corner of the backend card
	Card Vec2 `json:"card"`
	// Anchor is where simulated requests land
	Anchor Vec2 `json:"anchor"`
}

// Card geometry on the virtual canvas
const (
	BackendColumnX    = 600.0
	BackendCardWidth  = 180.0
	BackendCardHeight = 70.0
	anchorOffsetX     = 70.0
	anchorOffsetY     = 30.0

	OriginX          = 50.0
	OriginNodeWidth  = 90.0
	OriginNodeHeight = 70.0
	BypassOriginX    = -10.0
)

// LayoutFor computes the card and anchor for the backend at ordinal index
// out of count backends. It depends only on its arguments.
func LayoutFor(index, count int, vp Viewport) Layout {
	y := (vp.Height/float64(count+1))*float64(index+1) - anchorOffsetY
	return Layout{
		Card:   Vec2{X: BackendColumnX, Y: y},
		Anchor: Vec2{X: BackendColumnX + anchorOffsetX, Y: y + anchorOffsetY},
	}
}

// OriginPoint returns where simulated requests start. Bypassed traffic enters
// from the left edge instead of the balancer node.
func OriginPoint(vp Viewport, bypass bool) Vec2 {
	if bypass {
		return Vec2{X: BypassOriginX, Y: vp.Height / 2}
	}
	return Vec2{X: OriginX + OriginNodeWidth, Y: vp.Height / 2}
}

// Backend mirrors one upstream server known to the dashboard
type Backend struct {
	Address    string  `json:"Address"`
	Alive      bool    `json:"Alive"`
	Latency    float64 `json:"Latency"`
	ErrorCount int64   `json:"ErrorCount"`
	Position   Layout  `json:"-"`

	// Owned by the animation lifecycle, never by reconciliation
	activeConns int64
}

// NewBackend creates a Backend from its first authoritative sighting
func NewBackend(m BackendMetric) *Backend {
	return &Backend{
		Address:    m.Address,
		Alive:      m.Alive,
		Latency:    m.Latency,
		ErrorCount: m.ErrorCount,
	}
}

// ApplyHealth overwrites the authoritative fields only
func (b *Backend) ApplyHealth(m BackendMetric) {
	b.Alive = m.Alive
	b.Latency = m.Latency
	b.ErrorCount = m.ErrorCount
}

// IncrementConnections increments the active connection count
func (b *Backend) IncrementConnections() {
	b.activeConns++
}

// DecrementConnections decrements the active connection count, floored at zero
func (b *Backend) DecrementConnections() {
	if b.activeConns > 0 {
		b.activeConns--
	}
}

// GetActiveConnections returns the current number of active connections
func (b *Backend) GetActiveConnections() int64 {
	return b.activeConns
}

// IsAlive reports whether the authority considers the backend alive
func (b *Backend) IsAlive() bool {
	return b.Alive
}

// SimulatedRequest is one animated unit of traffic
type SimulatedRequest struct {
	ID       string
	Position Vec2
	Origin   Vec2
	Target   Vec2
	Backend  *Backend
	Ticks    int
	Born     time.Time
}

// Arrived reports whether the request reached its target column
func (r *SimulatedRequest) Arrived() bool {
	return r.Position.X >= r.Target.X
}
