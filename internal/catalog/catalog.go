// Package catalog resolves artists to ranked track lists, either from a
// Spotify-style web API or from the local library.
package catalog

import (
	"context"

	"github.com/jscyril/spotify_streamer/api"
)

// DefaultMaxTracks caps top-track results
const DefaultMaxTracks = 10

// Client looks up artists and their top tracks. Failures are logged and
// yield an empty list; there is no retry.
type Client interface {
	SearchArtists(ctx context.Context, name string) []api.Artist
	TopTracks(ctx context.Context, artistID string) []api.Track
}
