package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/service"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	upStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	downStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	frameStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
	panelStyle    = lipgloss.NewStyle().Width(panelWidth).PaddingLeft(1)
)

// View renders the canvas beside the decision panel
func (a *App) View() string {
	canvas := frameStyle.Render(a.canvas.Render())
	panel := panelStyle.Render(a.panelView())
	body := lipgloss.JoinHorizontal(lipgloss.Top, canvas, panel)
	return lipgloss.JoinVertical(lipgloss.Left, body, a.footerView())
}

func (a *App) panelView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Simulation"))
	b.WriteString("\n")
	b.WriteString(a.algorithmSelector())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("in flight"), valueStyle.Render(fmt.Sprint(a.sim.Animator.Count())))
	if a.lastMetricsErr != nil {
		b.WriteString(errorStyle.Render("metrics feed unreachable"))
		b.WriteString("\n")
	}

	panel := a.decisions.Panel()
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Authority"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("algorithm"), valueStyle.Render(panel.Algorithm))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("reason   "), valueStyle.Render(panel.Reason))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("selected "), valueStyle.Render(panel.Selected))
	b.WriteString("\n")
	b.WriteString(backendTable(panel.Backends))

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Decisions"))
	b.WriteString("\n")
	for _, line := range a.visibleLines() {
		if line.Error {
			b.WriteString(errorStyle.Render(line.Text))
		} else {
			b.WriteString(line.Text)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (a *App) algorithmSelector() string {
	current := a.sim.Algorithm()
	parts := make([]string, 0, len(domain.Algorithms)+1)
	known := false
	for i, algo := range domain.Algorithms {
		label := fmt.Sprintf("%d:%s", i+1, algo)
		if algo == current {
			known = true
			parts = append(parts, selectedStyle.Render("["+label+"]"))
			continue
		}
		parts = append(parts, label)
	}
	if !known {
		parts = append(parts, selectedStyle.Render(fmt.Sprintf("[%s→%s]", current, current.Effective())))
	}
	return strings.Join(parts, " ")
}

func backendTable(rows []domain.BackendStatus) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-20s %-5s %5s %7s %5s", "backend", "alive", "conns", "latency", "errs")))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString(fmt.Sprintf("%-20s %-5s %5s %7s %5s\n",
			service.Placeholder, service.Placeholder, service.Placeholder, service.Placeholder, service.Placeholder))
		return b.String()
	}
	for _, row := range rows {
		alive := upStyle.Render(fmt.Sprintf("%-5s", "yes"))
		if !row.Alive {
			alive = downStyle.Render(fmt.Sprintf("%-5s", "no"))
		}
		fmt.Fprintf(&b, "%-20s %s %5d %7.1f %5d\n", truncate(row.Address, 20), alive, row.ActiveConns, row.Latency, row.ErrorCount)
	}
	return b.String()
}

// visibleLines returns the newest log lines that fit under the panel
func (a *App) visibleLines() []service.LogLine {
	lines := a.decisions.Lines()
	room := a.height - 20
	if room < 5 {
		room = 5
	}
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	return lines
}

func (a *App) footerView() string {
	state := "running"
	if a.paused {
		state = "paused"
	}
	help := "tab/shift+tab cycle · 1-4 select · space pause · q quit"
	return footerStyle.Render(fmt.Sprintf("%s · frame %d · %s", state, a.lastFrame.Frame, help))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
