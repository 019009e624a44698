package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jscyril/spotify_streamer/internal/audio"
	"github.com/jscyril/spotify_streamer/internal/catalog"
	"github.com/jscyril/spotify_streamer/internal/config"
	"github.com/jscyril/spotify_streamer/internal/library"
	"github.com/jscyril/spotify_streamer/internal/logging"
	"github.com/jscyril/spotify_streamer/internal/playback"
	"github.com/jscyril/spotify_streamer/internal/session"
	"github.com/jscyril/spotify_streamer/pkg/events"
)

// app holds what every subcommand needs: settings, a logger and the
// resources to release on exit.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// setup loads .env and the config file, then builds the logger. With
// logToFile the log goes to <data_dir>/streamer.log so it does not draw
// over the terminal UI.
func setup(configPath string, logToFile bool) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	if configPath == "" {
		configPath = config.GetConfigPath()
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	a := &app{cfg: cfg}
	if logToFile {
		logger, closer, err := logging.OpenFile(cfg.Logging, filepath.Join(cfg.DataDir, "streamer.log"))
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
	} else {
		a.logger = logging.New(cfg.Logging, os.Stderr)
	}
	slog.SetDefault(a.logger)
	a.logger.Debug("config loaded", "path", configPath, "session_backend", cfg.Session.Backend)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
}

// loadLibrary loads the persisted library index, scanning the configured
// directories when it is empty.
func (a *app) loadLibrary(ctx context.Context) (*library.Library, error) {
	lib, err := library.LoadLibrary(a.cfg.LibraryPath(), a.cfg.Library.Workers)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	if lib.TotalTracks > 0 || len(a.cfg.Library.MusicDirectories) == 0 {
		return lib, nil
	}

	if err := a.scan(ctx, lib, a.cfg.Library.MusicDirectories); err != nil {
		return nil, err
	}
	return lib, nil
}

func (a *app) scan(ctx context.Context, lib *library.Library, dirs []string) error {
	a.logger.Info("scanning music directories", "dirs", dirs)
	start := time.Now()
	if err := lib.Scan(ctx, dirs); err != nil {
		return fmt.Errorf("scan library: %w", err)
	}
	for _, err := range lib.ScanErrors() {
		a.logger.Debug("skipped file", "error", err)
	}
	a.logger.Info("scan complete", "tracks", lib.TotalTracks, "skipped", len(lib.ScanErrors()), "took", time.Since(start))

	if err := lib.Save(a.cfg.LibraryPath()); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	return nil
}

// catalog returns the web catalog when a token is configured, else a
// catalog over the local library.
func (a *app) catalog(ctx context.Context) (catalog.Client, error) {
	if a.cfg.Catalog.Token != "" {
		return catalog.NewHTTP(catalog.HTTPConfig{
			BaseURL:   a.cfg.Catalog.BaseURL,
			Token:     a.cfg.Catalog.Token,
			Country:   a.cfg.Catalog.Country,
			Timeout:   a.cfg.CatalogTimeout(),
			MaxTracks: a.cfg.Catalog.MaxTracks,
		}, a.logger), nil
	}

	a.logger.Info("no catalog token set, using the local library")
	lib, err := a.loadLibrary(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewLocal(lib, a.cfg.Catalog.MaxTracks), nil
}

// store opens the configured session store
func (a *app) store(ctx context.Context) (session.Store, error) {
	switch a.cfg.Session.Backend {
	case config.BackendPostgres:
		store, err := session.NewPostgresStore(ctx, a.cfg.Session.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return session.NewFileStore(a.cfg.SessionPath()), nil
	}
}

// player builds the controller with the bus attached as its listener
func (a *app) player(ctx context.Context) (*playback.Controller, *events.Bus, error) {
	factory := audio.Factory(
		audio.WithLogger(a.logger),
		audio.WithBuffer(time.Duration(a.cfg.Playback.BufferMs)*time.Millisecond),
		audio.WithVolume(a.cfg.Playback.Volume),
	)

	ctrl, err := playback.New(ctx, factory,
		playback.WithLogger(a.logger),
		playback.WithSampleInterval(a.cfg.SampleInterval()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create player: %w", err)
	}

	bus := events.NewBus()
	ctrl.SetListener(bus)
	return ctrl, bus, nil
}
