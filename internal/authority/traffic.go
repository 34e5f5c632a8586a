package authority

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mir00r/lb-dashboard/internal/errors"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

// holdFactor stretches a backend's latency into how long a synthetic request
// keeps its connection open, so concurrency actually builds up
const holdFactor = 20

// TrafficOptions configures synthetic load
type TrafficOptions struct {
	RPS           float64
	Burst         int
	DriftInterval time.Duration
}

// TrafficGenerator routes paced synthetic requests through the router and
// moves the pool's health over time
type TrafficGenerator struct {
	pool    *Pool
	router  *AdaptiveRouter
	limiter *rate.Limiter
	drift   time.Duration
	logger  *logger.Logger

	wg sync.WaitGroup

	mu       sync.Mutex
	routed   int64
	failed   int64
	rejected int64
}

// NewTrafficGenerator creates a generator
func NewTrafficGenerator(pool *Pool, router *AdaptiveRouter, opts TrafficOptions, log *logger.Logger) *TrafficGenerator {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.DriftInterval <= 0 {
		opts.DriftInterval = time.Second
	}
	return &TrafficGenerator{
		pool:    pool,
		router:  router,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		drift:   opts.DriftInterval,
		logger:  log,
	}
}

// Run generates traffic until ctx is done and waits for in-flight requests
// to be released
func (g *TrafficGenerator) Run(ctx context.Context) {
	g.logger.WithFields(map[string]interface{}{
		"rps":      float64(g.limiter.Limit()),
		"burst":    g.limiter.Burst(),
		"backends": g.pool.Size(),
	}).Info("Traffic generator started")

	g.wg.Add(1)
	go g.driftLoop(ctx)

	for {
		if err := g.limiter.Wait(ctx); err != nil {
			break
		}
		g.Send(ctx)
	}

	g.wg.Wait()
	g.logger.WithFields(g.GetStats()).Info("Traffic generator stopped")
}

// Send routes one request and holds it on the chosen backend in the
// background. It returns false when no backend could take it.
func (g *TrafficGenerator) Send(ctx context.Context) bool {
	backend, err := g.router.Route()
	if err != nil {
		g.count(&g.rejected)
		if errors.GetErrorCode(err) == errors.ErrCodeNoAliveBackends {
			g.logger.Debug("No alive backends, request dropped")
		}
		return false
	}
	g.count(&g.routed)

	hold := g.pool.HoldFor(backend, holdFactor)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		timer := time.NewTimer(hold)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}

		if g.pool.Release(backend) {
			g.count(&g.failed)
			g.logger.BackendLogger(backend.Address).Debug("Synthetic request failed")
		}
	}()
	return true
}

func (g *TrafficGenerator) driftLoop(ctx context.Context) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.drift)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.pool.Drift()
		}
	}
}

func (g *TrafficGenerator) count(counter *int64) {
	g.mu.Lock()
	*counter++
	g.mu.Unlock()
}

// GetStats returns generator counters
func (g *TrafficGenerator) GetStats() map[string]interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return map[string]interface{}{
		"routed":   g.routed,
		"failed":   g.failed,
		"rejected": g.rejected,
	}
}
