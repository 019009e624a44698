package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/spotify_streamer/api"
	"github.com/jscyril/spotify_streamer/internal/ui/components"
)

// PlayerView shows the current track, its progress and the queue position
type PlayerView struct {
	Width       int
	Height      int
	State       api.PlaybackState
	Artist      string
	QueueIndex  int
	QueueLen    int
	Shuffled    bool
	ErrorCode   int
	ProgressBar components.ProgressBar

	TitleStyle    lipgloss.Style
	ArtistStyle   lipgloss.Style
	AlbumStyle    lipgloss.Style
	StatusStyle   lipgloss.Style
	ErrorStyle    lipgloss.Style
	ControlsStyle lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewPlayerView creates a new player view
func NewPlayerView(width, height int) PlayerView {
	return PlayerView{
		Width:       width,
		Height:      height,
		ProgressBar: components.NewProgressBar(width - 8),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		AlbumStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		ErrorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
	}
}

// SetWidth resizes the view and its progress bar
func (v *PlayerView) SetWidth(width int) {
	v.Width = width
	v.ProgressBar.Width = width - 8
}

// SetState replaces the snapshot. A pending seek is shown as the position.
func (v *PlayerView) SetState(state api.PlaybackState) {
	v.State = state
	position := state.PositionMs
	if state.PendingSeek != nil {
		position = *state.PendingSeek
	}
	v.ProgressBar.SetProgress(position, state.DurationMs)
	if state.State != api.StateError {
		v.ErrorCode = 0
	}
}

// SetProgress moves the bar without touching the rest of the snapshot
func (v *PlayerView) SetProgress(positionMs int) {
	v.State.PositionMs = positionMs
	v.ProgressBar.SetProgress(positionMs, v.State.DurationMs)
}

func statusIcon(s api.PlayState) string {
	switch s {
	case api.StatePlaying:
		return "▶"
	case api.StatePaused:
		return "⏸"
	case api.StatePreparing, api.StateSeeking:
		return "…"
	case api.StateError:
		return "✖"
	default:
		return "⏹"
	}
}

// View renders the player panel
func (v PlayerView) View() string {
	var sb strings.Builder

	if v.State.CurrentTrack == nil {
		sb.WriteString(v.TitleStyle.Render("♪ Nothing playing"))
		sb.WriteString("\n")
		sb.WriteString(v.ControlsStyle.Render("Search an artist and press Enter on a track"))
		return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
	}

	track := v.State.CurrentTrack
	artist := track.Artist
	if artist == "" {
		artist = v.Artist
	}

	sb.WriteString(v.StatusStyle.Render(statusIcon(v.State.State) + " "))
	sb.WriteString(v.TitleStyle.Render(components.Truncate(track.Name, v.Width-12)))
	if v.QueueLen > 0 {
		sb.WriteString(v.ControlsStyle.Render(fmt.Sprintf("  %d/%d", v.QueueIndex+1, v.QueueLen)))
	}
	if v.Shuffled {
		sb.WriteString(v.ControlsStyle.Render("  shuffle"))
	}
	sb.WriteString("\n")
	sb.WriteString(v.ArtistStyle.Render(artist))
	if track.Album != "" {
		sb.WriteString(v.AlbumStyle.Render(" · " + track.Album))
	}
	sb.WriteString("\n")
	sb.WriteString(v.ProgressBar.View())

	switch {
	case v.State.State == api.StateError:
		sb.WriteString("\n")
		sb.WriteString(v.ErrorStyle.Render(fmt.Sprintf("Playback failed (code %d)", v.ErrorCode)))
	case v.State.State == api.StateSeeking || v.State.PendingSeek != nil:
		sb.WriteString("\n")
		sb.WriteString(v.StatusStyle.Render("Seeking to " + components.FormatMillis(v.ProgressBar.PositionMs)))
	}

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
