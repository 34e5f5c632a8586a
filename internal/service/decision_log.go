package service

import (
	"fmt"
	"time"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

// Placeholder is shown in every panel field while the status feed is down
const Placeholder = "-"

const logTimeFormat = "15:04:05"

// LogLine is one rendered line of the decision log surface
type LogLine struct {
	Time  time.Time
	Text  string
	Error bool
}

// DecisionPanel is the status summary shown next to the log
type DecisionPanel struct {
	Algorithm string
	Reason    string
	Selected  string
	Backends  []domain.BackendStatus
}

func placeholderPanel() DecisionPanel {
	return DecisionPanel{
		Algorithm: Placeholder,
		Reason:    Placeholder,
		Selected:  Placeholder,
	}
}

// DecisionLogStream renders the authoritative decision log append-only.
//
// An entry is rendered only when its time is strictly after the watermark,
// which then advances to it, so refetching an overlapping window never
// duplicates output. It shares no state with the animation pipeline.
type DecisionLogStream struct {
	watermark time.Time
	failing   bool
	lines     []LogLine
	maxLines  int
	panel     DecisionPanel
	now       func() time.Time
	logger    *logger.Logger

	rendered int64
	skipped  int64
	episodes int64
}

// NewDecisionLogStream creates a stream keeping at most maxLines rendered
// lines for display. Zero keeps everything.
func NewDecisionLogStream(maxLines int, log *logger.Logger) *DecisionLogStream {
	return &DecisionLogStream{
		maxLines: maxLines,
		panel:    placeholderPanel(),
		now:      time.Now,
		logger:   log,
	}
}

// Apply handles the outcome of one status fetch and returns the lines it
// rendered
func (s *DecisionLogStream) Apply(report *domain.StatusReport, fetchErr error) []LogLine {
	if fetchErr != nil || report == nil {
		return s.fail(fetchErr)
	}

	if s.failing {
		s.logger.Info("Status feed recovered")
	}
	s.failing = false
	s.panel = DecisionPanel{
		Algorithm: orPlaceholder(report.CurrentAlgo),
		Reason:    orPlaceholder(report.AdaptiveReason),
		Selected:  orPlaceholder(report.SelectedBackend),
		Backends:  append([]domain.BackendStatus(nil), report.Backends...),
	}

	var fresh []LogLine
	for _, entry := range report.DecisionLog {
		if !entry.Time.After(s.watermark) {
			s.skipped++
			continue
		}
		s.watermark = entry.Time
		fresh = append(fresh, LogLine{Time: entry.Time, Text: FormatEntry(entry)})
	}
	s.append(fresh)
	s.rendered += int64(len(fresh))
	return fresh
}

func (s *DecisionLogStream) fail(fetchErr error) []LogLine {
	if fetchErr == nil {
		fetchErr = fmt.Errorf("empty status report")
	}
	s.logger.WithError(fetchErr).Warn("Status fetch failed")
	s.panel = placeholderPanel()

	if s.failing {
		return nil
	}
	s.failing = true
	s.episodes++

	now := s.now()
	line := LogLine{
		Time:  now,
		Text:  fmt.Sprintf("[%s] ERROR: Cannot reach backend", now.Format(logTimeFormat)),
		Error: true,
	}
	s.append([]LogLine{line})
	return []LogLine{line}
}

func (s *DecisionLogStream) append(lines []LogLine) {
	s.lines = append(s.lines, lines...)
	if s.maxLines > 0 && len(s.lines) > s.maxLines {
		s.lines = append([]LogLine(nil), s.lines[len(s.lines)-s.maxLines:]...)
	}
}

// FormatEntry renders one decision the way the log surface shows it
func FormatEntry(entry domain.DecisionLogEntry) string {
	return fmt.Sprintf("[%s] %s → %s (%s)",
		entry.Time.Format(logTimeFormat), entry.Algo, entry.Backend, entry.Reason)
}

func orPlaceholder(value string) string {
	if value == "" {
		return Placeholder
	}
	return value
}

// Lines returns the rendered lines currently kept for display, oldest first
func (s *DecisionLogStream) Lines() []LogLine {
	lines := make([]LogLine, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// Panel returns the current status summary
func (s *DecisionLogStream) Panel() DecisionPanel {
	return s.panel
}

// Watermark returns the time of the newest rendered entry
func (s *DecisionLogStream) Watermark() time.Time {
	return s.watermark
}

// Failing reports whether the stream is inside a failure episode
func (s *DecisionLogStream) Failing() bool {
	return s.failing
}

// GetStats returns stream counters
func (s *DecisionLogStream) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"rendered":        s.rendered,
		"skipped":         s.skipped,
		"failure_periods": s.episodes,
		"failing":         s.failing,
		"watermark":       s.watermark,
	}
}
