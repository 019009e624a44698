package catalog

import (
	"testing"

	"github.com/jscyril/spotify_streamer/api"
)

func TestBestImage(t *testing.T) {
	img := func(url string, w, h int) api.Image { return api.Image{URL: url, Width: w, Height: h} }

	tests := []struct {
		name   string
		images []api.Image
		prefer imageMatcher
		want   string
	}{
		{"none", nil, smaller, ""},
		{"smallest", []api.Image{img("a", 640, 640), img("b", 64, 64), img("c", 300, 300)}, smaller, "b"},
		{"largest", []api.Image{img("a", 300, 300), img("b", 640, 640), img("c", 64, 64)}, larger, "b"},
		{"thumbnail exact", []api.Image{img("a", 640, 640), img("b", 200, 200), img("c", 64, 64)}, thumbnail, "b"},
		{"thumbnail first", []api.Image{img("a", 200, 200), img("b", 64, 64)}, thumbnail, "a"},
		{"thumbnail several exact keeps last", []api.Image{img("a", 200, 200), img("b", 64, 64), img("c", 200, 200)}, thumbnail, "c"},
		{"thumbnail fallback smallest", []api.Image{img("a", 640, 640), img("b", 300, 300)}, thumbnail, "b"},
		{"tie keeps first", []api.Image{img("a", 64, 64), img("b", 64, 64)}, smaller, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestImage(tt.images, tt.prefer); got != tt.want {
				t.Errorf("bestImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRankTracks(t *testing.T) {
	tracks := []api.Track{
		{ID: "a", Popularity: 10},
		{ID: "b", Popularity: 90},
		{ID: "c", Popularity: 10},
		{ID: "d", Popularity: 50},
	}

	got := rankTracks(tracks, 3)
	want := []string{"b", "d", "a"}
	if len(got) != len(want) {
		t.Fatalf("got %d tracks, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("rank[%d] = %s, want %s", i, got[i].ID, id)
		}
	}

	if got := rankTracks([]api.Track{{ID: "x"}}, 10); len(got) != 1 {
		t.Errorf("short list should not be padded: %v", got)
	}
}

func TestRankArtists(t *testing.T) {
	got := rankArtists([]api.Artist{{ID: "a", Popularity: 1}, {ID: "b", Popularity: 2}})
	if got[0].ID != "b" {
		t.Errorf("rankArtists()[0] = %s, want b", got[0].ID)
	}
}
