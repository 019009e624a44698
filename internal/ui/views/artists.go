package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/spotify_streamer/api"
	"github.com/jscyril/spotify_streamer/internal/ui/components"
)

// SearchMsg asks for an artist search
type SearchMsg struct {
	Query string
}

// ArtistChosenMsg is sent when Enter is pressed on an artist
type ArtistChosenMsg struct {
	Artist api.Artist
}

// FileChosenMsg is sent when a file is picked in the file browser. Files
// lists the playable files of the same directory, Path included.
type FileChosenMsg struct {
	Path  string
	Files []string
}

// ArtistsView searches the catalog for artists and can browse local files
type ArtistsView struct {
	Width       int
	Height      int
	List        components.List[api.Artist]
	SearchBar   components.SearchInput
	FileBrowser components.FileBrowser
	BrowseRoot  string
	Searching   bool
	Browsing    bool
	Loading     bool
	LastQuery   string
	BorderStyle lipgloss.Style
}

func renderArtist(a api.Artist) string {
	if a.Popularity > 0 {
		return fmt.Sprintf("%s  (%d)", a.Name, a.Popularity)
	}
	return a.Name
}

// NewArtistsView creates the artist search view, starting in search mode
func NewArtistsView(width, height int) ArtistsView {
	list := components.NewList(height-6, width-6, renderArtist)
	list.Title = "Artists"
	list.Empty = "Press / and type an artist name"

	search := components.NewSearchInput(width - 6)
	search.Focus()

	return ArtistsView{
		Width:     width,
		Height:    height,
		List:      list,
		SearchBar: search,
		Searching: true,
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
	}
}

// SetSize resizes the view
func (v *ArtistsView) SetSize(width, height int) {
	v.Width, v.Height = width, height
	v.List.Width, v.List.Height = width-6, height-6
	v.SearchBar.Width = width - 6
	v.FileBrowser.Width, v.FileBrowser.Height = width, height
}

// SetArtists shows a search result
func (v *ArtistsView) SetArtists(query string, artists []api.Artist) {
	v.Loading = false
	v.LastQuery = query
	v.List.SetItems(artists)
	if len(artists) == 0 {
		v.List.Empty = fmt.Sprintf("No artists found for %q", query)
	}
}

// Capturing reports whether keys should go to this view before global bindings
func (v ArtistsView) Capturing() bool {
	return v.Searching || v.Browsing
}

// Update handles keys for the search bar, the list and the file browser
func (v ArtistsView) Update(msg tea.Msg) (ArtistsView, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	switch {
	case v.Browsing:
		return v.updateBrowsing(key)

	case v.Searching:
		switch key.String() {
		case "esc":
			v.Searching = false
			v.SearchBar.Blur()
		case "enter":
			v.Searching = false
			v.SearchBar.Blur()
			query := strings.TrimSpace(v.SearchBar.Value())
			if query == "" {
				return v, nil
			}
			v.Loading = true
			return v, func() tea.Msg { return SearchMsg{Query: query} }
		default:
			v.SearchBar, _ = v.SearchBar.Update(key)
		}
		return v, nil
	}

	switch key.String() {
	case "/":
		v.Searching = true
		v.SearchBar.Focus()
	case "a":
		v.Browsing = true
		v.FileBrowser = components.NewFileBrowser(v.BrowseRoot, v.Width, v.Height)
	case "enter":
		if artist, ok := v.List.SelectedItem(); ok {
			return v, func() tea.Msg { return ArtistChosenMsg{Artist: artist} }
		}
	default:
		v.List, _ = v.List.Update(key)
	}
	return v, nil
}

func (v ArtistsView) updateBrowsing(key tea.KeyMsg) (ArtistsView, tea.Cmd) {
	switch key.String() {
	case "esc":
		v.Browsing = false
	case "enter":
		path := v.FileBrowser.EnterSelected()
		if path == "" {
			return v, nil
		}
		v.Browsing = false
		files := v.FileBrowser.Files()
		return v, func() tea.Msg { return FileChosenMsg{Path: path, Files: files} }
	default:
		v.FileBrowser, _ = v.FileBrowser.Update(key)
	}
	return v, nil
}

// View renders the view
func (v ArtistsView) View() string {
	if v.Browsing {
		return v.FileBrowser.View()
	}

	var sb strings.Builder
	sb.WriteString(v.SearchBar.View())
	sb.WriteString("\n")

	if v.Loading {
		sb.WriteString("Searching...")
	} else {
		sb.WriteString(v.List.View())
	}

	sb.WriteString("\n\n")
	help := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if v.Searching {
		sb.WriteString(help.Render("[Enter] Search  [Esc] Cancel"))
	} else {
		sb.WriteString(help.Render("[/] Search  [Enter] Top tracks  [a] Open file  [↑↓] Navigate"))
	}

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
