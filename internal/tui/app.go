// Package tui hosts the dashboard's single-goroutine event loop.
//
// Every mutation of the simulation happens inside Update. The render frame,
// the metrics poll and the status poll are self re-arming tea.Tick timers;
// fetches run as commands that only do I/O and hand their result back as a
// message, so a slow feed never blocks drawing or the other poll.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mir00r/lb-dashboard/internal/config"
	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/render"
	"github.com/mir00r/lb-dashboard/internal/service"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

// Fetcher is the transport side of both polls
type Fetcher interface {
	FetchMetrics(ctx context.Context) ([]domain.BackendMetric, error)
	FetchStatus(ctx context.Context) (*domain.StatusReport, error)
}

type (
	frameMsg       time.Time
	metricsTickMsg time.Time
	statusTickMsg  time.Time
)

type metricsMsg struct {
	metrics []domain.BackendMetric
	err     error
}

type statusMsg struct {
	report *domain.StatusReport
	err    error
}

const (
	panelWidth = 48
	minCols    = 30
	minRows    = 10
)

// App is the bubbletea model
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	feed   Fetcher
	logger *logger.Logger

	sim        *service.Simulation
	loop       *render.Loop
	canvas     *render.Canvas
	reconciler *service.PollingReconciler
	decisions  *service.DecisionLogStream

	width, height  int
	paused         bool
	metricsPending bool
	statusPending  bool
	lastFrame      render.FrameResult
	lastMetricsErr error
}

// New wires a dashboard from cfg. The initial algorithm token is taken as is.
func New(ctx context.Context, cfg *config.Config, feed Fetcher, log *logger.Logger) *App {
	ctx, cancel := context.WithCancel(ctx)

	algo := domain.ParseAlgorithm(cfg.Simulation.Algorithm)
	if algo.Effective() != algo {
		log.WithFields(map[string]interface{}{
			"algorithm":      algo,
			"did_you_mean":   algo.Suggest(),
			"effective_algo": algo.Effective(),
		}).Warn("Unknown algorithm token, routing as random")
	}

	sim := service.NewSimulation(service.SimulationOptions{
		Viewport:         cfg.Viewport(),
		Algorithm:        algo,
		AdoptNewBackends: cfg.Simulation.AdoptNewBackends,
		Step:             cfg.Animation.Step,
		Damping:          cfg.Animation.Damping,
		Seed:             seedFor(cfg.Simulation.Seed),
	})
	canvas := render.NewCanvas(cfg.Viewport(), 80, 24, render.DefaultTheme())

	return &App{
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		feed:       feed,
		logger:     log,
		sim:        sim,
		canvas:     canvas,
		loop:       render.NewLoop(sim, canvas, cfg.Canvas.ShowGrid, log.RenderLogger()),
		reconciler: service.NewPollingReconciler(sim, cfg.Simulation.SpawnProbability, log.PollerLogger(cfg.Feeds.MetricsURL)),
		decisions:  service.NewDecisionLogStream(cfg.DecisionLog.MaxLines, log.DecisionLogLogger(cfg.Feeds.StatusURL)),
	}
}

func seedFor(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// Simulation exposes the owned simulation context
func (a *App) Simulation() *service.Simulation {
	return a.sim
}

// Init starts the three timers and fires the first fetches immediately
func (a *App) Init() tea.Cmd {
	a.metricsPending = true
	a.statusPending = true
	return tea.Batch(
		a.frameTick(),
		a.metricsTick(),
		a.statusTick(),
		a.fetchMetrics(),
		a.fetchStatus(),
	)
}

// Update applies one message to the simulation
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if !a.paused {
			a.lastFrame = a.loop.Frame()
		}
		return a, a.frameTick()

	case metricsTickMsg:
		cmds := []tea.Cmd{a.metricsTick()}
		if !a.metricsPending {
			a.metricsPending = true
			cmds = append(cmds, a.fetchMetrics())
		}
		return a, tea.Batch(cmds...)

	case metricsMsg:
		a.metricsPending = false
		a.lastMetricsErr = msg.err
		a.reconciler.Apply(msg.metrics, msg.err)
		return a, nil

	case statusTickMsg:
		cmds := []tea.Cmd{a.statusTick()}
		if !a.statusPending {
			a.statusPending = true
			cmds = append(cmds, a.fetchStatus())
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.statusPending = false
		a.decisions.Apply(msg.report, msg.err)
		return a, nil

	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.canvas.Resize(a.canvasSize())
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		a.cancel()
		return a, tea.Quit
	case "tab":
		a.selectAlgorithm(a.sim.Algorithm().Next())
	case "shift+tab":
		a.selectAlgorithm(a.sim.Algorithm().Prev())
	case "1", "2", "3", "4":
		a.selectAlgorithm(domain.Algorithms[msg.String()[0]-'1'])
	case " ", "space":
		a.paused = !a.paused
		a.logger.WithField("paused", a.paused).Info("Render loop toggled")
	}
	return a, nil
}

func (a *App) selectAlgorithm(algo domain.Algorithm) {
	a.sim.SetAlgorithm(algo)
	a.logger.WithField("algorithm", algo).Info("Algorithm selected")
}

func (a *App) canvasSize() (int, int) {
	cols := a.width - panelWidth - 4
	rows := a.height - 4
	if cols < minCols {
		cols = minCols
	}
	if rows < minRows {
		rows = minRows
	}
	return cols, rows
}

func (a *App) frameTick() tea.Cmd {
	return tea.Tick(a.cfg.Animation.FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (a *App) metricsTick() tea.Cmd {
	return tea.Tick(a.cfg.Feeds.Interval, func(t time.Time) tea.Msg {
		return metricsTickMsg(t)
	})
}

func (a *App) statusTick() tea.Cmd {
	return tea.Tick(a.cfg.Feeds.Interval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// fetchMetrics captures only the context and the fetcher; the simulation is
// never touched off the update goroutine
func (a *App) fetchMetrics() tea.Cmd {
	ctx, feed := a.ctx, a.feed
	return func() tea.Msg {
		metrics, err := feed.FetchMetrics(ctx)
		return metricsMsg{metrics: metrics, err: err}
	}
}

func (a *App) fetchStatus() tea.Cmd {
	ctx, feed := a.ctx, a.feed
	return func() tea.Msg {
		report, err := feed.FetchStatus(ctx)
		return statusMsg{report: report, err: err}
	}
}

// Stats collects the counters of every owned component
func (a *App) Stats() map[string]interface{} {
	return map[string]interface{}{
		"registry":     a.sim.Registry.GetStats(),
		"router":       a.sim.Router.GetStats(),
		"animator":     a.sim.Animator.GetStats(),
		"reconciler":   a.reconciler.GetStats(),
		"decision_log": a.decisions.GetStats(),
		"render":       a.loop.GetStats(),
	}
}
