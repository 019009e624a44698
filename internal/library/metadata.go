package library

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/jscyril/spotify_streamer/api"
)

// Entry is a scanned local file. The embedded Track is what gets played;
// the rest is only used for browsing.
type Entry struct {
	api.Track
	Genre    string    `json:"genre,omitempty"`
	Year     int       `json:"year,omitempty"`
	TrackNum int       `json:"track_num,omitempty"`
	Path     string    `json:"path"`
	AddedAt  time.Time `json:"added_at"`
}

// MetadataReader extracts metadata from audio files
type MetadataReader struct{}

// NewMetadataReader creates a new metadata reader
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{}
}

// Read extracts metadata from an audio file and returns an Entry
func (r *MetadataReader) Read(filePath string) (*Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}

	entry := &Entry{
		Track: api.Track{
			ID:        generateTrackID(abs),
			Name:      titleFromPath(abs),
			SourceURL: "file://" + filepath.ToSlash(abs),
		},
		Path:    abs,
		AddedAt: time.Now(),
	}

	// Files without tags keep the filename as title
	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return entry, nil
	}

	entry.Name = getOrDefault(metadata.Title(), entry.Name)
	entry.Artist = getOrDefault(metadata.Artist(), "Unknown Artist")
	entry.Album = getOrDefault(metadata.Album(), "Unknown Album")
	entry.Genre = metadata.Genre()
	entry.Year = metadata.Year()
	entry.TrackNum, _ = metadata.Track()

	return entry, nil
}

// ReadCoverArt extracts cover art from an audio file
func (r *MetadataReader) ReadCoverArt(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	if picture := metadata.Picture(); picture != nil {
		return picture.Data, nil
	}

	return nil, nil
}

// generateTrackID creates a unique ID for a track based on its file path
func generateTrackID(filePath string) string {
	hash := md5.Sum([]byte(filePath))
	return fmt.Sprintf("track-%x", hash[:8])
}

func titleFromPath(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// getOrDefault returns the value if non-empty, otherwise returns the default
func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
