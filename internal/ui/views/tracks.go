package views

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/spotify_streamer/api"
	"github.com/jscyril/spotify_streamer/internal/ui/components"
)

// TrackChosenMsg is sent when Enter is pressed on a track
type TrackChosenMsg struct {
	Tracks []api.Track
	Index  int
}

// TracksView lists an artist's top tracks, or the play queue
type TracksView struct {
	Width       int
	Height      int
	List        components.List[api.Track]
	Artist      string
	PlayingID   string
	Loading     bool
	BorderStyle lipgloss.Style
}

// NewTracksView creates the track list view
func NewTracksView(width, height int) TracksView {
	v := TracksView{
		Width:  width,
		Height: height,
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
	}
	v.List = components.NewList(height-4, width-6, func(t api.Track) string {
		return trackLine(t, "")
	})
	v.List.Title = "Tracks"
	v.List.Empty = "Pick an artist to see their top tracks"
	return v
}

func trackLine(t api.Track, playingID string) string {
	marker := "  "
	if playingID != "" && t.ID == playingID {
		marker = "♪ "
	}
	line := marker + t.Name
	if t.Album != "" {
		line += " · " + t.Album
	}
	if t.DurationMs > 0 {
		line += "  " + components.FormatMillis(t.DurationMs)
	}
	return line
}

// SetSize resizes the view
func (v *TracksView) SetSize(width, height int) {
	v.Width, v.Height = width, height
	v.List.Width, v.List.Height = width-6, height-4
}

// SetTracks shows a track listing under title
func (v *TracksView) SetTracks(title string, tracks []api.Track) {
	v.Loading = false
	v.Artist = title
	v.List.Title = title
	v.List.SetItems(tracks)
	if len(tracks) == 0 {
		v.List.Empty = "No playable tracks"
	}
}

// SetPlaying marks the track that is loaded in the player
func (v *TracksView) SetPlaying(id string) {
	v.PlayingID = id
}

// Update handles navigation and selection
func (v TracksView) Update(msg tea.Msg) (TracksView, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	if key.String() == "enter" {
		if len(v.List.Items) == 0 {
			return v, nil
		}
		tracks := append([]api.Track(nil), v.List.Items...)
		index := v.List.Selected
		return v, func() tea.Msg { return TrackChosenMsg{Tracks: tracks, Index: index} }
	}

	v.List, _ = v.List.Update(key)
	return v, nil
}

// View renders the view
func (v TracksView) View() string {
	var sb strings.Builder
	if v.Loading {
		sb.WriteString("Loading tracks...")
	} else {
		playing := v.PlayingID
		v.List.Render = func(t api.Track) string { return trackLine(t, playing) }
		sb.WriteString(v.List.View())
	}

	sb.WriteString("\n\n")
	help := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sb.WriteString(help.Render("[Enter] Play  [↑↓] Navigate"))

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
