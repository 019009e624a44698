package ui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/spotify_streamer/api"
	"github.com/jscyril/spotify_streamer/internal/catalog"
	"github.com/jscyril/spotify_streamer/internal/library"
	"github.com/jscyril/spotify_streamer/internal/playlist"
	"github.com/jscyril/spotify_streamer/internal/ui/views"
	"github.com/samber/lo"
)

// ViewType represents the current active view
type ViewType int

const (
	ViewArtists ViewType = iota
	ViewTracks
)

const seekStepMs = 10000

// Player is the playback surface the UI drives
type Player interface {
	Play(track api.Track)
	TogglePlay()
	Seek(positionMs int)
	State() api.PlaybackState
}

// FileReader turns a local file into a library entry
type FileReader interface {
	Read(filePath string) (*library.Entry, error)
}

// Options wires the UI to the rest of the application
type Options struct {
	Player     Player
	Catalog    catalog.Client
	Queue      *playlist.Queue
	Events     <-chan api.Event
	Files      FileReader
	BrowseRoot string
	Logger     *slog.Logger
}

// Model is the main bubbletea model
type Model struct {
	width  int
	height int

	activeView ViewType

	playerView  views.PlayerView
	artistsView views.ArtistsView
	tracksView  views.TracksView

	player  Player
	catalog catalog.Client
	queue   *playlist.Queue
	events  <-chan api.Event
	files   FileReader
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	err    error

	tabStyle       lipgloss.Style
	activeTabStyle lipgloss.Style
	errorStyle     lipgloss.Style
}

// EventMsg carries one controller event into the update loop
type EventMsg struct {
	Event api.Event
}

type eventsClosedMsg struct{}

type artistsMsg struct {
	query   string
	artists []api.Artist
}

type tracksMsg struct {
	artist api.Artist
	tracks []api.Track
}

type filesMsg struct {
	dir    string
	tracks []api.Track
	index  int
	err    error
}

// NewModel creates a new application model
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Queue == nil {
		opts.Queue = playlist.NewQueue()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := Model{
		width:      80,
		height:     24,
		activeView: ViewArtists,
		player:     opts.Player,
		catalog:    opts.Catalog,
		queue:      opts.Queue,
		events:     opts.Events,
		files:      opts.Files,
		logger:     opts.Logger,
		ctx:        ctx,
		cancel:     cancel,
		tabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("240")),
		activeTabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
	}

	m.playerView = views.NewPlayerView(m.width, 6)
	m.artistsView = views.NewArtistsView(m.width, m.height-9)
	m.artistsView.BrowseRoot = opts.BrowseRoot
	m.tracksView = views.NewTracksView(m.width, m.height-9)
	if m.player != nil {
		m.playerView.SetState(m.player.State())
	}
	return m
}

// Init starts listening for controller events
func (m Model) Init() tea.Cmd {
	return m.listenForEvents()
}

// listenForEvents waits for the next controller event
func (m Model) listenForEvents() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case e, ok := <-events:
			if !ok {
				return eventsClosedMsg{}
			}
			return EventMsg{Event: e}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) searchArtists(query string) tea.Cmd {
	ctx, client := m.ctx, m.catalog
	return func() tea.Msg {
		return artistsMsg{query: query, artists: client.SearchArtists(ctx, query)}
	}
}

func (m Model) topTracks(artist api.Artist) tea.Cmd {
	ctx, client := m.ctx, m.catalog
	return func() tea.Msg {
		return tracksMsg{artist: artist, tracks: client.TopTracks(ctx, artist.ID)}
	}
}

func (m Model) readFiles(chosen string, paths []string) tea.Cmd {
	reader, logger := m.files, m.logger
	return func() tea.Msg {
		msg := filesMsg{dir: filepath.Dir(chosen)}
		for _, p := range paths {
			entry, err := reader.Read(p)
			if err != nil {
				logger.Warn("read file", "path", p, "error", err)
				if p == chosen {
					msg.err = err
				}
				continue
			}
			if p == chosen {
				msg.index = len(msg.tracks)
			}
			msg.tracks = append(msg.tracks, entry.Track)
		}
		return msg
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewSizes()
		return m, nil

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, m.listenForEvents()

	case eventsClosedMsg:
		return m, nil

	case views.SearchMsg:
		m.err = nil
		return m, m.searchArtists(msg.Query)

	case artistsMsg:
		m.artistsView.SetArtists(msg.query, msg.artists)
		return m, nil

	case views.ArtistChosenMsg:
		m.activeView = ViewTracks
		m.tracksView.Loading = true
		return m, m.topTracks(msg.Artist)

	case tracksMsg:
		m.tracksView.SetTracks(msg.artist.Name, msg.tracks)
		m.playerView.Artist = msg.artist.Name
		return m, nil

	case views.TrackChosenMsg:
		m.queue.Set(msg.Tracks, msg.Index)
		m.playCurrent()
		return m, nil

	case views.FileChosenMsg:
		if m.files == nil {
			return m, nil
		}
		return m, m.readFiles(msg.Path, msg.Files)

	case filesMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if len(msg.tracks) == 0 {
			return m, nil
		}
		m.tracksView.SetTracks(msg.dir, msg.tracks)
		m.activeView = ViewTracks
		m.queue.Set(msg.tracks, msg.index)
		m.tracksView.List.Select(msg.index)
		m.playCurrent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	// The search bar and file browser take every key except ctrl+c
	if m.activeView == ViewArtists && m.artistsView.Capturing() {
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.artistsView, cmd = m.artistsView.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit

	case "1":
		m.activeView = ViewArtists
	case "2":
		m.activeView = ViewTracks
	case "tab":
		m.activeView = (m.activeView + 1) % 2

	case " ":
		m.player.TogglePlay()

	case "n":
		if _, err := m.queue.Next(); err == nil {
			m.playCurrent()
		}
	case "p":
		if _, err := m.queue.Previous(); err == nil {
			m.playCurrent()
		}

	case "right", "l":
		m.seekBy(seekStepMs)
	case "left", "h":
		m.seekBy(-seekStepMs)

	case "S":
		if m.queue.IsShuffled() {
			m.queue.Unshuffle()
		} else {
			m.queue.Shuffle()
		}
		m.syncQueue()

	case "Q":
		m.tracksView.SetTracks("Queue", m.queue.All())
		m.tracksView.List.Select(m.queue.Index())
		m.activeView = ViewTracks

	default:
		var cmd tea.Cmd
		switch m.activeView {
		case ViewArtists:
			m.artistsView, cmd = m.artistsView.Update(msg)
		case ViewTracks:
			m.tracksView, cmd = m.tracksView.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// handleEvent applies a controller event to the views. A finished track
// advances the queue unless it was the last one.
func (m *Model) handleEvent(e api.Event) {
	switch e.Type {
	case api.EventProgress:
		m.playerView.SetProgress(e.PositionMs)
		return
	case api.EventStarted:
		m.tracksView.SetPlaying(e.Track.ID)
	case api.EventError:
		m.logger.Warn("playback error", "code", e.Code)
	case api.EventFinished:
		if m.queue.Len() > 0 && m.queue.Index() < m.queue.Len()-1 {
			if _, err := m.queue.Next(); err == nil {
				m.playCurrent()
			}
		}
	}

	m.playerView.SetState(m.player.State())
	if e.Type == api.EventError {
		m.playerView.ErrorCode = e.Code
	}
	m.syncQueue()
}

func (m *Model) playCurrent() {
	track, ok := m.queue.Current()
	if !ok {
		return
	}
	m.player.Play(track)
	m.playerView.SetState(m.player.State())
	m.syncQueue()
}

func (m *Model) seekBy(deltaMs int) {
	state := m.player.State()
	if state.CurrentTrack == nil {
		return
	}
	target := state.PositionMs
	if state.PendingSeek != nil {
		target = *state.PendingSeek
	}
	target = max(target+deltaMs, 0)
	if state.DurationMs > 0 {
		target = min(target, state.DurationMs)
	}
	m.player.Seek(target)
	m.playerView.SetState(m.player.State())
}

func (m *Model) syncQueue() {
	m.playerView.QueueLen = m.queue.Len()
	m.playerView.QueueIndex = m.queue.Index()
	m.playerView.Shuffled = m.queue.IsShuffled()
}

// updateViewSizes updates view dimensions
func (m *Model) updateViewSizes() {
	m.playerView.SetWidth(m.width)
	m.artistsView.SetSize(m.width, m.height-9)
	m.tracksView.SetSize(m.width, m.height-9)
}

// View renders the UI
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.renderTabs())
	sb.WriteString("\n")
	sb.WriteString(m.playerView.View())
	sb.WriteString("\n")

	switch m.activeView {
	case ViewArtists:
		sb.WriteString(m.artistsView.View())
	case ViewTracks:
		sb.WriteString(m.tracksView.View())
	}

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(m.errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	sb.WriteString("\n")
	sb.WriteString(m.tabStyle.Render("[Space] Play/Pause  [←/→] Seek  [n/p] Next/Prev  [S] Shuffle  [Q] Queue  [q] Quit"))
	return sb.String()
}

// renderTabs renders the tab bar
func (m Model) renderTabs() string {
	tabs := []string{"[1] Artists", "[2] Tracks"}
	rendered := lo.Map(tabs, func(tab string, i int) string {
		if ViewType(i) == m.activeView {
			return m.activeTabStyle.Render(tab)
		}
		return m.tabStyle.Render(tab)
	})
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Run starts the bubbletea program and blocks until it exits or ctx is done
func Run(ctx context.Context, opts Options) error {
	model := NewModel(opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	model.cancel()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
