package tui

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mir00r/lb-dashboard/internal/config"
	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/service"
	"github.com/mir00r/lb-dashboard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	metrics    []domain.BackendMetric
	metricsErr error
	report     *domain.StatusReport
	statusErr  error
	calls      int
}

func (f *fakeFetcher) FetchMetrics(ctx context.Context) ([]domain.BackendMetric, error) {
	f.calls++
	return f.metrics, f.metricsErr
}

func (f *fakeFetcher) FetchStatus(ctx context.Context) (*domain.StatusReport, error) {
	f.calls++
	return f.report, f.statusErr
}

func newTestApp(feed Fetcher) *App {
	cfg := config.DefaultConfig()
	cfg.Simulation.Seed = 1
	cfg.Simulation.SpawnProbability = 1
	return New(context.Background(), cfg, feed, logger.NewDiscard())
}

func TestMetricsMessageSeedsAndSpawns(t *testing.T) {
	app := newTestApp(&fakeFetcher{})

	app.Update(metricsMsg{metrics: []domain.BackendMetric{
		{Address: "a", Alive: true, Latency: 5},
		{Address: "b", Alive: true, Latency: 7},
	}})

	assert.Equal(t, 2, app.Simulation().Registry.Count())
	assert.Equal(t, 1, app.Simulation().Animator.Count())
}

func TestFetchCommandDeliversMessage(t *testing.T) {
	feed := &fakeFetcher{metrics: []domain.BackendMetric{{Address: "a", Alive: true}}}
	app := newTestApp(feed)

	msg := app.fetchMetrics()()

	got, ok := msg.(metricsMsg)
	require.True(t, ok)
	assert.Len(t, got.metrics, 1)
	assert.Equal(t, 0, app.Simulation().Registry.Count(), "fetch must not mutate the simulation")

	app.Update(got)
	assert.Equal(t, 1, app.Simulation().Registry.Count())
}

func TestTickSkipsFetchWhilePending(t *testing.T) {
	app := newTestApp(&fakeFetcher{})
	app.Init()
	require.True(t, app.metricsPending)

	_, cmd := app.Update(metricsTickMsg(time.Now()))
	assert.NotNil(t, cmd, "tick must always re-arm")
	assert.True(t, app.metricsPending)

	app.Update(metricsMsg{err: fmt.Errorf("down")})
	assert.False(t, app.metricsPending)
	assert.Error(t, app.lastMetricsErr)

	app.Update(metricsTickMsg(time.Now()))
	assert.True(t, app.metricsPending)
}

func TestFrameMessageAdvancesUnlessPaused(t *testing.T) {
	app := newTestApp(&fakeFetcher{})
	app.Update(metricsMsg{metrics: []domain.BackendMetric{{Address: "a", Alive: true}}})
	req := app.Simulation().Animator.InFlight()[0]
	startX := req.Position.X

	_, cmd := app.Update(frameMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Greater(t, req.Position.X, startX)
	moved := req.Position.X

	app.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.True(t, app.paused)
	_, cmd = app.Update(frameMsg(time.Now()))
	assert.NotNil(t, cmd, "paused frames still re-arm")
	assert.Equal(t, moved, req.Position.X)
}

func TestAlgorithmKeys(t *testing.T) {
	app := newTestApp(&fakeFetcher{})
	require.Equal(t, domain.AlgorithmRoundRobin, app.Simulation().Algorithm())

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.AlgorithmLeastConnections, app.Simulation().Algorithm())

	app.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	app.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, domain.AlgorithmNone, app.Simulation().Algorithm())

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'4'}})
	assert.Equal(t, domain.AlgorithmRandom, app.Simulation().Algorithm())
}

func TestUnknownInitialAlgorithmIsKept(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Simulation.Algorithm = "Weighted"
	app := New(context.Background(), cfg, &fakeFetcher{}, logger.NewDiscard())

	assert.Equal(t, domain.Algorithm("weighted"), app.Simulation().Algorithm())
	assert.Contains(t, app.algorithmSelector(), "weighted→random")
}

func TestQuitCancelsContext(t *testing.T) {
	app := newTestApp(&fakeFetcher{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Error(t, app.ctx.Err())
}

func TestStatusFailureClearsPanel(t *testing.T) {
	app := newTestApp(&fakeFetcher{})
	app.Update(statusMsg{report: &domain.StatusReport{
		CurrentAlgo:     "leastconnections",
		AdaptiveReason:  "high_concurrency",
		SelectedBackend: "localhost:9002",
		DecisionLog: []domain.DecisionLogEntry{
			{Time: time.Now(), Algo: "leastconnections", Backend: "localhost:9002", Reason: "high_concurrency"},
		},
	}})
	app.Update(tea.WindowSizeMsg{Width: 160, Height: 40})

	view := app.View()
	assert.Contains(t, view, "high_concurrency")
	assert.Contains(t, view, "localhost:9002")

	app.Update(statusMsg{err: fmt.Errorf("refused")})
	app.Update(statusMsg{err: fmt.Errorf("refused")})

	view = app.View()
	assert.NotContains(t, view, "high_concurrency")
	assert.Contains(t, view, "ERROR: Cannot reach backend")

	errors := 0
	for _, line := range app.decisions.Lines() {
		if line.Error {
			errors++
		}
	}
	assert.Equal(t, 1, errors)
	assert.Equal(t, service.Placeholder, app.decisions.Panel().Algorithm)
}

func TestWindowResizeSizesCanvas(t *testing.T) {
	app := newTestApp(&fakeFetcher{})

	app.Update(tea.WindowSizeMsg{Width: 150, Height: 40})
	cols, rows := app.canvas.Size()
	assert.Equal(t, 150-panelWidth-4, cols)
	assert.Equal(t, 36, rows)

	app.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	cols, rows = app.canvas.Size()
	assert.Equal(t, minCols, cols)
	assert.Equal(t, minRows, rows)
}
