package library

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jscyril/spotify_streamer/api"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
	"github.com/samber/lo"
)

// Library represents the local music collection
type Library struct {
	Tracks      map[string]*Entry `json:"tracks"`
	ScanPaths   []string          `json:"scan_paths"`
	LastScanned time.Time         `json:"last_scanned"`
	TotalTracks int               `json:"total_tracks"`

	// Secondary indices for efficient queries
	artistIndex map[string][]string
	albumIndex  map[string][]string
	genreIndex  map[string][]string

	mu         sync.RWMutex
	scanner    *Scanner
	scanErrors []error
}

// NewLibrary creates a new empty library scanning with the given number of workers
func NewLibrary(workers int) *Library {
	return &Library{
		Tracks:      make(map[string]*Entry),
		artistIndex: make(map[string][]string),
		albumIndex:  make(map[string][]string),
		genreIndex:  make(map[string][]string),
		scanner:     NewScanner(workers),
	}
}

// AddTrack adds an entry to the library and updates indices
func (l *Library) AddTrack(entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.Tracks[entry.ID]; ok {
		l.unindex(old)
	}
	l.Tracks[entry.ID] = entry
	l.TotalTracks = len(l.Tracks)
	l.index(entry)
}

func (l *Library) index(entry *Entry) {
	if entry.Artist != "" {
		l.artistIndex[entry.Artist] = append(l.artistIndex[entry.Artist], entry.ID)
	}
	if entry.Album != "" {
		l.albumIndex[entry.Album] = append(l.albumIndex[entry.Album], entry.ID)
	}
	if entry.Genre != "" {
		l.genreIndex[entry.Genre] = append(l.genreIndex[entry.Genre], entry.ID)
	}
}

func (l *Library) unindex(entry *Entry) {
	removeFromIndex(l.artistIndex, entry.Artist, entry.ID)
	removeFromIndex(l.albumIndex, entry.Album, entry.ID)
	removeFromIndex(l.genreIndex, entry.Genre, entry.ID)
}

// GetTrack returns an entry by ID
func (l *Library) GetTrack(id string) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, exists := l.Tracks[id]
	if !exists {
		return nil, playerrors.ErrTrackNotFound
	}
	return entry, nil
}

// GetAllTracks returns all entries sorted by artist, album and track number
func (l *Library) GetAllTracks() []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := lo.Values(l.Tracks)
	sortEntries(entries)
	return entries
}

// GetTracksByArtist returns all entries by a specific artist
func (l *Library) GetTracksByArtist(artist string) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lookup(l.artistIndex[artist])
}

// GetTracksByAlbum returns all entries from a specific album
func (l *Library) GetTracksByAlbum(album string) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lookup(l.albumIndex[album])
}

// GetTracksByGenre returns all entries of a specific genre
func (l *Library) GetTracksByGenre(genre string) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lookup(l.genreIndex[genre])
}

func (l *Library) lookup(ids []string) []*Entry {
	if len(ids) == 0 {
		return nil
	}
	entries := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := l.Tracks[id]; ok {
			entries = append(entries, entry)
		}
	}
	sortEntries(entries)
	return entries
}

// GetArtists returns all unique artists
func (l *Library) GetArtists() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	artists := lo.Keys(l.artistIndex)
	sort.Strings(artists)
	return artists
}

// ArtistTrackCounts returns the number of entries per artist
func (l *Library) ArtistTrackCounts() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return lo.MapValues(l.artistIndex, func(ids []string, _ string) int {
		return len(ids)
	})
}

// GetAlbums returns all unique albums
func (l *Library) GetAlbums() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	albums := lo.Keys(l.albumIndex)
	sort.Strings(albums)
	return albums
}

// Search searches entries by query string (matches title, artist and album).
// Title matches sort first.
func (l *Library) Search(query string) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	query = strings.ToLower(query)
	titleMatch := func(e *Entry) bool {
		return strings.Contains(strings.ToLower(e.Name), query)
	}

	results := lo.Filter(lo.Values(l.Tracks), func(e *Entry, _ int) bool {
		return titleMatch(e) ||
			strings.Contains(strings.ToLower(e.Artist), query) ||
			strings.Contains(strings.ToLower(e.Album), query)
	})

	sortEntries(results)
	sort.SliceStable(results, func(i, j int) bool {
		return titleMatch(results[i]) && !titleMatch(results[j])
	})
	return results
}

// RemoveTrack removes an entry from the library
func (l *Library) RemoveTrack(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.Tracks[id]
	if !exists {
		return playerrors.ErrTrackNotFound
	}

	l.unindex(entry)
	delete(l.Tracks, id)
	l.TotalTracks = len(l.Tracks)
	return nil
}

// removeFromIndex removes a track ID from an index
func removeFromIndex(index map[string][]string, key, trackID string) {
	if key == "" {
		return
	}

	ids := index[key]
	for i, id := range ids {
		if id == trackID {
			index[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	// Remove empty keys
	if len(index[key]) == 0 {
		delete(index, key)
	}
}

// Scan scans paths and adds every readable file to the library. Per-file
// failures are kept for ScanErrors; only cancellation fails the scan.
func (l *Library) Scan(ctx context.Context, paths []string) error {
	entries, errs := l.scanner.Scan(ctx, paths)

	var scanErrors []error
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for err := range errs {
			scanErrors = append(scanErrors, err)
		}
	}()

	added := 0
	for entry := range entries {
		l.AddTrack(entry)
		added++
	}
	<-collected

	l.mu.Lock()
	l.ScanPaths = paths
	l.LastScanned = time.Now()
	l.scanErrors = scanErrors
	l.mu.Unlock()

	slog.Debug("library scan finished", "paths", paths, "added", added, "errors", len(scanErrors))
	return ctx.Err()
}

// ScanErrors returns the per-file failures of the last scan
func (l *Library) ScanErrors() []error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]error(nil), l.scanErrors...)
}

// Clear removes all entries from the library
func (l *Library) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Tracks = make(map[string]*Entry)
	l.artistIndex = make(map[string][]string)
	l.albumIndex = make(map[string][]string)
	l.genreIndex = make(map[string][]string)
	l.TotalTracks = 0
}

// Save persists the library to a JSON file
func (l *Library) Save(path string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write library file: %w", err)
	}

	return nil
}

// LoadLibrary loads a library from a JSON file (or returns empty if not exists)
func LoadLibrary(path string, workers int) (*Library, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewLibrary(workers), nil // First run, return empty library
	}
	if err != nil {
		return nil, fmt.Errorf("read library file: %w", err)
	}

	lib := NewLibrary(workers)
	if err := json.Unmarshal(data, lib); err != nil {
		return nil, fmt.Errorf("unmarshal library: %w", err)
	}
	if lib.Tracks == nil {
		lib.Tracks = make(map[string]*Entry)
	}

	lib.rebuildIndices()
	return lib, nil
}

// rebuildIndices rebuilds the secondary indices from the tracks map
func (l *Library) rebuildIndices() {
	entries := lo.Values(l.Tracks)
	sortEntries(entries)

	ids := func(group []*Entry) []string {
		return lo.Map(group, func(e *Entry, _ int) string { return e.ID })
	}
	nonEmpty := func(key string, _ []*Entry) bool { return key != "" }

	l.artistIndex = lo.MapValues(lo.PickBy(lo.GroupBy(entries, func(e *Entry) string { return e.Artist }), nonEmpty),
		func(g []*Entry, _ string) []string { return ids(g) })
	l.albumIndex = lo.MapValues(lo.PickBy(lo.GroupBy(entries, func(e *Entry) string { return e.Album }), nonEmpty),
		func(g []*Entry, _ string) []string { return ids(g) })
	l.genreIndex = lo.MapValues(lo.PickBy(lo.GroupBy(entries, func(e *Entry) string { return e.Genre }), nonEmpty),
		func(g []*Entry, _ string) []string { return ids(g) })

	l.TotalTracks = len(l.Tracks)
}

// AddFile adds a single file from any location to the library
func (l *Library) AddFile(filePath string) (*Entry, error) {
	entry, err := l.scanner.ScanFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	l.AddTrack(entry)
	return entry, nil
}

// Tracks converts entries to playable tracks
func Tracks(entries []*Entry) []api.Track {
	return lo.Map(entries, func(e *Entry, _ int) api.Track { return e.Track })
}

func sortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Album != b.Album {
			return a.Album < b.Album
		}
		if a.TrackNum != b.TrackNum {
			return a.TrackNum < b.TrackNum
		}
		return a.Name < b.Name
	})
}
