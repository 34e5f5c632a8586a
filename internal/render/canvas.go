package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mir00r/lb-dashboard/internal/domain"
)

type styleID uint8

const (
	styleBlank styleID = iota
	styleGrid
	styleOrigin
	styleOriginDim
	styleBackendUp
	styleBackendDown
	styleLabel
	styleRequest
	styleCount
)

// Theme holds the styles a Canvas paints with
type Theme struct {
	Grid        lipgloss.Style
	Origin      lipgloss.Style
	OriginDim   lipgloss.Style
	BackendUp   lipgloss.Style
	BackendDown lipgloss.Style
	Label       lipgloss.Style
	Request     lipgloss.Style
}

// DefaultTheme returns the dashboard palette
func DefaultTheme() Theme {
	return Theme{
		Grid:        lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		Origin:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		OriginDim:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		BackendUp:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		BackendDown: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Label:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Request:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	}
}

type cell struct {
	r     rune
	style styleID
}

// Canvas is a terminal cell buffer that maps the virtual canvas onto
// cols x rows character cells
type Canvas struct {
	cols, rows int
	viewport   domain.Viewport
	cells      []cell
	styles     [styleCount]lipgloss.Style
}

// NewCanvas creates a canvas of cols x rows cells over vp
func NewCanvas(vp domain.Viewport, cols, rows int, theme Theme) *Canvas {
	c := &Canvas{viewport: vp}
	c.styles[styleBlank] = lipgloss.NewStyle()
	c.styles[styleGrid] = theme.Grid
	c.styles[styleOrigin] = theme.Origin
	c.styles[styleOriginDim] = theme.OriginDim
	c.styles[styleBackendUp] = theme.BackendUp
	c.styles[styleBackendDown] = theme.BackendDown
	c.styles[styleLabel] = theme.Label
	c.styles[styleRequest] = theme.Request
	c.Resize(cols, rows)
	return c
}

// Resize changes the cell dimensions and clears the buffer
func (c *Canvas) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	c.cols, c.rows = cols, rows
	c.cells = make([]cell, cols*rows)
	c.Clear()
}

// Size returns the cell dimensions
func (c *Canvas) Size() (cols, rows int) {
	return c.cols, c.rows
}

// Clear blanks every cell
func (c *Canvas) Clear() error {
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
	return nil
}

// DrawGrid draws a dotted background every 50 virtual units
func (c *Canvas) DrawGrid() error {
	const spacing = 50.0
	for y := spacing; y < c.viewport.Height; y += spacing {
		for x := spacing; x < c.viewport.Width; x += spacing {
			col, row := c.toCell(domain.Vec2{X: x, Y: y})
			c.set(col, row, '·', styleGrid)
		}
	}
	return nil
}

// DrawOrigin draws the balancer node, dimmed and relabelled when bypassed
func (c *Canvas) DrawOrigin(bypassed bool) error {
	top := domain.Vec2{X: domain.OriginX, Y: c.viewport.Height/2 - domain.OriginNodeHeight/2}
	bottom := domain.Vec2{X: domain.OriginX + domain.OriginNodeWidth, Y: top.Y + domain.OriginNodeHeight}

	style, label := styleOrigin, "LB"
	if bypassed {
		style, label = styleOriginDim, "BYPASSED"
	}
	c.box(top, bottom, style)

	col, row := c.toCell(domain.Vec2{X: domain.OriginX, Y: c.viewport.Height / 2})
	c.text(col+1, row, label, style)
	return nil
}

// DrawBackend draws one backend card with its metrics
func (c *Canvas) DrawBackend(backend *domain.Backend) error {
	if backend == nil {
		return fmt.Errorf("nil backend")
	}

	card := backend.Position.Card
	style := styleBackendUp
	status := "UP"
	if !backend.Alive {
		style = styleBackendDown
		status = "DOWN"
	}
	c.box(card, domain.Vec2{X: card.X + domain.BackendCardWidth, Y: card.Y + domain.BackendCardHeight}, style)

	col, row := c.toCell(card)
	c.text(col+1, row+1, fmt.Sprintf("%s %s", backend.Address, status), style)
	c.text(col+1, row+2, fmt.Sprintf("conns %d lat %.0f err %d",
		backend.GetActiveConnections(), backend.Latency, backend.ErrorCount), styleLabel)
	return nil
}

// DrawRequest draws one in-flight request
func (c *Canvas) DrawRequest(req *domain.SimulatedRequest) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	col, row := c.toCell(req.Position)
	c.set(col, row, '●', styleRequest)
	return nil
}

// Render returns the buffer as styled terminal text
func (c *Canvas) Render() string {
	var out strings.Builder
	var run []rune

	for row := 0; row < c.rows; row++ {
		if row > 0 {
			out.WriteByte('\n')
		}
		current := c.cells[row*c.cols].style
		run = run[:0]
		for col := 0; col < c.cols; col++ {
			cl := c.cells[row*c.cols+col]
			if cl.style != current {
				out.WriteString(c.styles[current].Render(string(run)))
				run = run[:0]
				current = cl.style
			}
			run = append(run, cl.r)
		}
		out.WriteString(c.styles[current].Render(string(run)))
	}
	return out.String()
}

// Plain returns the buffer without styling
func (c *Canvas) Plain() string {
	var out strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			out.WriteByte('\n')
		}
		for col := 0; col < c.cols; col++ {
			out.WriteRune(c.cells[row*c.cols+col].r)
		}
	}
	return out.String()
}

func (c *Canvas) toCell(p domain.Vec2) (int, int) {
	col := int(math.Floor(p.X / c.viewport.Width * float64(c.cols)))
	row := int(math.Floor(p.Y / c.viewport.Height * float64(c.rows)))
	return col, row
}

func (c *Canvas) set(col, row int, r rune, style styleID) {
	if col < 0 || col >= c.cols || row < 0 || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col] = cell{r: r, style: style}
}

func (c *Canvas) text(col, row int, s string, style styleID) {
	for i, r := range []rune(s) {
		c.set(col+i, row, r, style)
	}
}

func (c *Canvas) box(topLeft, bottomRight domain.Vec2, style styleID) {
	x0, y0 := c.toCell(topLeft)
	x1, y1 := c.toCell(bottomRight)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, '─', style)
		c.set(x, y1, '─', style)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, '│', style)
		c.set(x1, y, '│', style)
	}
	c.set(x0, y0, '┌', style)
	c.set(x1, y0, '┐', style)
	c.set(x0, y1, '└', style)
	c.set(x1, y1, '┘', style)
}
