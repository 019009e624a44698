package library

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/jscyril/spotify_streamer/internal/audio"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Scanner scans directories concurrently using a worker pool
type Scanner struct {
	workers    int
	metaReader *MetadataReader
}

// NewScanner creates a new file scanner
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = 4 // Default worker count
	}
	return &Scanner{
		workers:    workers,
		metaReader: NewMetadataReader(),
	}
}

// Scan walks paths and reads every supported file on a pool of workers.
// Both channels are closed once the walk and all workers are done. Scan
// errors beyond the error buffer are dropped.
func (s *Scanner) Scan(ctx context.Context, paths []string) (<-chan *Entry, <-chan error) {
	entries := make(chan *Entry, 100)
	errs := make(chan error, 10)
	files := make(chan string, 100)

	report := func(path string, err error) {
		select {
		case errs <- &playerrors.ScanError{Path: path, Err: err}:
		default:
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	// File discovery
	g.Go(func() error {
		defer close(files)
		for _, path := range paths {
			err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					report(p, err)
					return nil
				}
				if d.IsDir() || !audio.IsSupported(p) {
					return nil
				}
				select {
				case files <- p:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if errors.Is(err, context.Canceled) {
				return err
			}
			if err != nil {
				report(path, err)
			}
		}
		return nil
	})

	for range s.workers {
		g.Go(func() error {
			for filePath := range files {
				entry, err := s.metaReader.Read(filePath)
				if err != nil {
					report(filePath, err)
					continue
				}
				select {
				case entries <- entry:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(entries)
		close(errs)
	}()

	return entries, errs
}

// ScanFile scans a single file and returns an Entry
func (s *Scanner) ScanFile(filePath string) (*Entry, error) {
	if !audio.IsSupported(filePath) {
		return nil, playerrors.ErrInvalidFormat
	}
	return s.metaReader.Read(filePath)
}
