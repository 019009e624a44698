package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jscyril/spotify_streamer/api"
	"github.com/jscyril/spotify_streamer/internal/library"
	"github.com/jscyril/spotify_streamer/internal/playback"
	"github.com/jscyril/spotify_streamer/internal/playlist"
	"github.com/jscyril/spotify_streamer/internal/session"
	"github.com/jscyril/spotify_streamer/internal/ui"
	"github.com/jscyril/spotify_streamer/internal/ui/components"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
	"github.com/jscyril/spotify_streamer/pkg/events"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type TUIParams struct {
	Config string `short:"c" optional:"true" help:"Path to the config file (JSON or YAML)."`
	Resume bool   `short:"r" optional:"true" help:"Resume the last session on start."`
}

type SearchParams struct {
	Artist string `pos:"true" required:"true" help:"Artist name to search for."`
	Config string `short:"c" optional:"true" help:"Path to the config file (JSON or YAML)."`
}

type TopParams struct {
	ArtistID string `pos:"true" required:"true" help:"Artist ID as printed by search."`
	Config   string `short:"c" optional:"true" help:"Path to the config file (JSON or YAML)."`
}

type PlayParams struct {
	Source string `pos:"true" required:"true" help:"URL or local file to play."`
	Seek   int    `short:"s" optional:"true" help:"Start position in milliseconds." default:"0"`
	Config string `short:"c" optional:"true" help:"Path to the config file (JSON or YAML)."`
}

type ResumeParams struct {
	Config string `short:"c" optional:"true" help:"Path to the config file (JSON or YAML)."`
}

type ScanParams struct {
	Dir    string `pos:"true" optional:"true" help:"Directory to scan. Defaults to the configured music directories."`
	Config string `short:"c" optional:"true" help:"Path to the config file (JSON or YAML)."`
}

func exit(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamer: %v\n", err)
		os.Exit(1)
	}
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func tuiCmd() *cobra.Command {
	return boa.CmdT[TUIParams]{
		Use:         "tui",
		Short:       "Start the terminal UI (default)",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *TUIParams, cmd *cobra.Command, args []string) {
			exit(runTUI(baseContext(cmd), params))
		},
	}.ToCobra()
}

func searchCmd() *cobra.Command {
	return boa.CmdT[SearchParams]{
		Use:         "search",
		Short:       "Search the catalog for artists",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *SearchParams, cmd *cobra.Command, args []string) {
			exit(runSearch(baseContext(cmd), params, os.Stdout))
		},
	}.ToCobra()
}

func topCmd() *cobra.Command {
	return boa.CmdT[TopParams]{
		Use:         "top",
		Short:       "List the top tracks of an artist",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *TopParams, cmd *cobra.Command, args []string) {
			exit(runTop(baseContext(cmd), params, os.Stdout))
		},
	}.ToCobra()
}

func playCmd() *cobra.Command {
	return boa.CmdT[PlayParams]{
		Use:   "play",
		Short: "Play a URL or file without the UI",
		Long: `Play a single URL or local file, printing playback events until the
track finishes. Press Ctrl+C to stop.`,
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *PlayParams, cmd *cobra.Command, args []string) {
			exit(runPlay(baseContext(cmd), params, os.Stdout))
		},
	}.ToCobra()
}

func resumeCmd() *cobra.Command {
	return boa.CmdT[ResumeParams]{
		Use:         "resume",
		Short:       "Resume the last session without the UI",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *ResumeParams, cmd *cobra.Command, args []string) {
			exit(runResume(baseContext(cmd), params, os.Stdout))
		},
	}.ToCobra()
}

func scanCmd() *cobra.Command {
	return boa.CmdT[ScanParams]{
		Use:         "scan",
		Short:       "Scan music directories into the local library",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *ScanParams, cmd *cobra.Command, args []string) {
			exit(runScan(baseContext(cmd), params, os.Stdout))
		},
	}.ToCobra()
}

func runTUI(ctx context.Context, params *TUIParams) error {
	a, err := setup(params.Config, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := a.catalog(ctx)
	if err != nil {
		return err
	}
	store, err := a.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl, bus, err := a.player(ctx)
	if err != nil {
		return err
	}

	queue := playlist.NewQueue()
	recorder := session.NewRecorder(store, queue, a.logger)
	recorderEvents := bus.SubscribeAll()
	uiEvents := bus.SubscribeAll()

	if params.Resume {
		if s, err := session.Resume(ctx, store, ctrl, queue); err != nil {
			a.logger.Info("nothing to resume", "error", err)
		} else {
			a.logger.Info("resumed session", "id", s.ID, "track", s.Track.Name, "position_ms", s.PositionMs)
		}
	}

	browseRoot := ""
	if dirs := a.cfg.Library.MusicDirectories; len(dirs) > 0 {
		browseRoot = dirs[0]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return recorder.Run(gctx, recorderEvents)
	})
	g.Go(func() error {
		defer shutdown(ctrl, bus)
		return ui.Run(gctx, ui.Options{
			Player:     ctrl,
			Catalog:    client,
			Queue:      queue,
			Events:     uiEvents,
			Files:      library.NewMetadataReader(),
			BrowseRoot: browseRoot,
			Logger:     a.logger,
		})
	})
	return g.Wait()
}

// shutdown disposes the controller, then closes the bus so subscribers drain
func shutdown(ctrl *playback.Controller, bus *events.Bus) {
	ctrl.Dispose()
	bus.Close()
}

func runSearch(ctx context.Context, params *SearchParams, out io.Writer) error {
	a, err := setup(params.Config, false)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.catalog(ctx)
	if err != nil {
		return err
	}

	artists := client.SearchArtists(ctx, params.Artist)
	if len(artists) == 0 {
		return fmt.Errorf("no artists found for %q", params.Artist)
	}

	rows := make([][]string, 0, len(artists))
	for _, artist := range artists {
		rows = append(rows, []string{artist.ID, artist.Name, strconv.Itoa(artist.Popularity)})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "ARTIST", "POPULARITY"}, rows))
	return nil
}

func runTop(ctx context.Context, params *TopParams, out io.Writer) error {
	a, err := setup(params.Config, false)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.catalog(ctx)
	if err != nil {
		return err
	}

	tracks := client.TopTracks(ctx, params.ArtistID)
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks found for artist %s", params.ArtistID)
	}

	rows := make([][]string, 0, len(tracks))
	for i, t := range tracks {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			components.Truncate(t.Name, 40),
			components.Truncate(t.Album, 30),
			components.FormatMillis(t.DurationMs),
			strconv.Itoa(t.Popularity),
			t.SourceURL,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "TRACK", "ALBUM", "LENGTH", "POPULARITY", "SOURCE"}, rows))
	return nil
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func runPlay(ctx context.Context, params *PlayParams, out io.Writer) error {
	track, err := trackFor(params.Source)
	if err != nil {
		return err
	}
	return runHeadless(ctx, params.Config, out, func(_ context.Context, _ session.Store, ctrl *playback.Controller, queue *playlist.Queue) error {
		queue.Set([]api.Track{track}, 0)
		ctrl.Play(track)
		if params.Seek > 0 {
			ctrl.Seek(params.Seek)
		}
		return nil
	})
}

func runResume(ctx context.Context, params *ResumeParams, out io.Writer) error {
	return runHeadless(ctx, params.Config, out, func(ctx context.Context, store session.Store, ctrl *playback.Controller, queue *playlist.Queue) error {
		s, err := session.Resume(ctx, store, ctrl, queue)
		if errors.Is(err, playerrors.ErrSessionNotFound) {
			return errors.New("no saved session to resume")
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "resuming %s at %s\n", s.Track.Name, components.FormatMillis(s.PositionMs))
		return nil
	})
}

type startFunc func(ctx context.Context, store session.Store, ctrl *playback.Controller, queue *playlist.Queue) error

// runHeadless plays without the UI, printing events until the track
// finishes, fails or ctx is cancelled. The session is recorded as in the UI.
func runHeadless(ctx context.Context, configPath string, out io.Writer, start startFunc) error {
	a, err := setup(configPath, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := a.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl, bus, err := a.player(ctx)
	if err != nil {
		return err
	}

	queue := playlist.NewQueue()
	recorder := session.NewRecorder(store, queue, a.logger)
	recorderEvents := bus.SubscribeAll()
	printed := bus.SubscribeAll()

	if err := start(ctx, store, ctrl, queue); err != nil {
		shutdown(ctrl, bus)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return recorder.Run(gctx, recorderEvents)
	})
	g.Go(func() error {
		defer shutdown(ctrl, bus)
		return followEvents(gctx, out, printed)
	})
	return g.Wait()
}

// followEvents prints events until Finished (nil), Error (an error carrying
// the code) or cancellation (nil).
func followEvents(ctx context.Context, out io.Writer, events <-chan api.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Fprintln(out, formatEvent(e))
			switch e.Type {
			case api.EventFinished:
				return nil
			case api.EventError:
				return fmt.Errorf("playback failed (code %d)", e.Code)
			}
		}
	}
}

func formatEvent(e api.Event) string {
	switch e.Type {
	case api.EventStarted:
		name := e.Track.Name
		if e.Track.Artist != "" {
			name = e.Track.Artist + " - " + name
		}
		return fmt.Sprintf("started   %s [%s]", name, components.FormatMillis(e.DurationMs))
	case api.EventProgress:
		return "progress  " + components.FormatMillis(e.PositionMs)
	case api.EventError:
		return fmt.Sprintf("error     code %d", e.Code)
	default:
		return e.Type.String()
	}
}

// trackFor builds a track for a local file (reading its tags) or a URL
func trackFor(source string) (api.Track, error) {
	if _, err := os.Stat(source); err == nil {
		entry, err := library.NewMetadataReader().Read(source)
		if err != nil {
			return api.Track{}, err
		}
		return entry.Track, nil
	}

	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" {
		return api.Track{}, fmt.Errorf("%s: %w", source, playerrors.ErrSourceUnavailable)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = u.Host
	}
	return api.Track{ID: source, Name: name, SourceURL: source}, nil
}

func runScan(ctx context.Context, params *ScanParams, out io.Writer) error {
	a, err := setup(params.Config, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirs := a.cfg.Library.MusicDirectories
	if params.Dir != "" {
		dirs = []string{params.Dir}
	}
	if len(dirs) == 0 {
		return errors.New("no directory given and no music_directories configured")
	}

	lib, err := library.LoadLibrary(a.cfg.LibraryPath(), a.cfg.Library.Workers)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	if err := a.scan(ctx, lib, dirs); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d tracks, %d artists, %d albums in %s\n",
		lib.TotalTracks, len(lib.GetArtists()), len(lib.GetAlbums()), a.cfg.LibraryPath())
	return nil
}
