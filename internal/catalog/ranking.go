package catalog

import (
	"sort"

	"github.com/jscyril/spotify_streamer/api"
)

// imageMatcher reports whether candidate should be preferred over current
type imageMatcher func(candidate, current api.Image) bool

func area(img api.Image) int {
	return img.Width * img.Height
}

// smaller keeps the image with the fewest pixels
func smaller(candidate, current api.Image) bool {
	return area(candidate) < area(current)
}

// larger keeps the image with the most pixels
func larger(candidate, current api.Image) bool {
	return area(candidate) > area(current)
}

func isThumbnail(img api.Image) bool {
	return img.Width == 200 && img.Height == 200
}

// thumbnail prefers an exact 200x200 image, else the smallest. Among several
// 200x200 images the last one wins.
func thumbnail(candidate, current api.Image) bool {
	if isThumbnail(candidate) {
		return true
	}
	if isThumbnail(current) {
		return false
	}
	return smaller(candidate, current)
}

// bestImage returns the URL of the image the matcher prefers, or "" when
// there are none.
func bestImage(images []api.Image, prefer imageMatcher) string {
	if len(images) == 0 {
		return ""
	}
	best := images[0]
	for _, img := range images[1:] {
		if prefer(img, best) {
			best = img
		}
	}
	return best.URL
}

func byPopularity[T any](items []T, popularity func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		return popularity(items[i]) > popularity(items[j])
	})
}

// rankArtists orders artists by popularity, most popular first
func rankArtists(artists []api.Artist) []api.Artist {
	byPopularity(artists, func(a api.Artist) int { return a.Popularity })
	return artists
}

// rankTracks orders tracks by popularity and keeps at most limit of them
func rankTracks(tracks []api.Track, limit int) []api.Track {
	byPopularity(tracks, func(t api.Track) int { return t.Popularity })
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks
}
