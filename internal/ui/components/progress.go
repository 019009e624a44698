package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders playback position against track duration
type ProgressBar struct {
	Width       int
	PositionMs  int
	DurationMs  int
	BarChar     string
	EmptyChar   string
	ShowTime    bool
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		ShowTime:    true,
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetProgress sets position and duration in milliseconds
func (p *ProgressBar) SetProgress(positionMs, durationMs int) {
	p.PositionMs = max(positionMs, 0)
	p.DurationMs = max(durationMs, 0)
}

// Fraction returns the played share of the track in 0..1
func (p ProgressBar) Fraction() float64 {
	if p.DurationMs <= 0 {
		return 0
	}
	return min(float64(p.PositionMs)/float64(p.DurationMs), 1)
}

// View renders the bar followed by "MM:SS/MM:SS"
func (p ProgressBar) View() string {
	barWidth := p.Width
	if p.ShowTime {
		barWidth -= 12
	}
	barWidth = max(barWidth, 10)

	filled := int(float64(barWidth) * p.Fraction())

	var sb strings.Builder
	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, barWidth-filled)))

	if p.ShowTime {
		sb.WriteString(" ")
		sb.WriteString(FormatMillis(p.PositionMs))
		sb.WriteString("/")
		sb.WriteString(FormatMillis(p.DurationMs))
	}
	return sb.String()
}

// FormatMillis formats milliseconds as MM:SS
func FormatMillis(ms int) string {
	seconds := max(ms, 0) / 1000
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
