package catalog

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"strings"

	"github.com/jscyril/spotify_streamer/api"
	"github.com/jscyril/spotify_streamer/internal/library"
	"github.com/samber/lo"
)

// LocalCatalog serves artists and tracks from a scanned local library
type LocalCatalog struct {
	lib       *library.Library
	maxTracks int
}

// Ensure LocalCatalog implements Client at compile time
var _ Client = (*LocalCatalog)(nil)

func NewLocal(lib *library.Library, maxTracks int) *LocalCatalog {
	if maxTracks <= 0 {
		maxTracks = DefaultMaxTracks
	}
	return &LocalCatalog{lib: lib, maxTracks: maxTracks}
}

// artistID gives a library artist a stable identifier
func artistID(name string) string {
	hash := md5.Sum([]byte(strings.ToLower(name)))
	return fmt.Sprintf("artist-%x", hash[:8])
}

// SearchArtists matches artist names containing name, case-insensitively.
// Popularity is the artist's track count.
func (c *LocalCatalog) SearchArtists(_ context.Context, name string) []api.Artist {
	query := strings.ToLower(strings.TrimSpace(name))
	counts := c.lib.ArtistTrackCounts()

	matches := lo.Filter(c.lib.GetArtists(), func(artist string, _ int) bool {
		return strings.Contains(strings.ToLower(artist), query)
	})
	artists := lo.Map(matches, func(artist string, _ int) api.Artist {
		return api.Artist{ID: artistID(artist), Name: artist, Popularity: counts[artist]}
	})
	return rankArtists(artists)
}

// TopTracks returns an artist's tracks ordered by title
func (c *LocalCatalog) TopTracks(_ context.Context, id string) []api.Track {
	artist, ok := lo.Find(c.lib.GetArtists(), func(a string) bool {
		return artistID(a) == id
	})
	if !ok {
		return []api.Track{}
	}

	tracks := library.Tracks(c.lib.GetTracksByArtist(artist))
	sort.SliceStable(tracks, func(i, j int) bool {
		return strings.ToLower(tracks[i].Name) < strings.ToLower(tracks[j].Name)
	})
	if len(tracks) > c.maxTracks {
		tracks = tracks[:c.maxTracks]
	}
	return tracks
}
