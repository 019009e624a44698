package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_SearchArtists(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("path = %s, want /v1/search", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"artists":{"items":[
			{"id":"a1","name":"Low","popularity":20,"images":[
				{"url":"big","width":640,"height":640},
				{"url":"small","width":64,"height":64},
				{"url":"mid","width":300,"height":300}]},
			{"id":"a2","name":"Lower","popularity":80,"images":[]}
		]}}`))
	}))
	defer server.Close()

	c := NewHTTP(HTTPConfig{BaseURL: server.URL, Token: "secret"}, nil)
	artists := c.SearchArtists(context.Background(), "low")

	if len(artists) != 2 {
		t.Fatalf("got %d artists, want 2", len(artists))
	}
	if artists[0].ID != "a2" || artists[1].ID != "a1" {
		t.Errorf("artists not ordered by popularity: %s, %s", artists[0].ID, artists[1].ID)
	}
	if artists[1].ImageURL != "small" {
		t.Errorf("artist image = %q, want the smallest", artists[1].ImageURL)
	}
	if artists[0].ImageURL != "" {
		t.Errorf("artist without images got %q", artists[0].ImageURL)
	}
	if !strings.Contains(gotQuery, "q=low") || !strings.Contains(gotQuery, "type=artist") {
		t.Errorf("query = %s", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestHTTPClient_TopTracks(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"tracks":[`)
	for i := range 12 {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id":"t%d","name":"Song %d","popularity":%d,"duration_ms":%d,
			"preview_url":"https://p.test/%d.mp3",
			"album":{"name":"Album","images":[
				{"url":"large","width":640,"height":640},
				{"url":"thumb","width":200,"height":200},
				{"url":"tiny","width":64,"height":64}]},
			"artists":[{"name":"A"},{"name":"B"}]}`, i, i, i*5, 30000, i)
	}
	b.WriteString(`]}`)

	var gotPath, gotCountry string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCountry = r.URL.Query().Get("country")
		w.Write([]byte(b.String()))
	}))
	defer server.Close()

	c := NewHTTP(HTTPConfig{BaseURL: server.URL + "/", Country: "SE"}, nil)
	tracks := c.TopTracks(context.Background(), "artist-1")

	if gotPath != "/v1/artists/artist-1/top-tracks" {
		t.Errorf("path = %s", gotPath)
	}
	if gotCountry != "SE" {
		t.Errorf("country = %s, want SE", gotCountry)
	}
	if len(tracks) != 10 {
		t.Fatalf("got %d tracks, want cap of 10", len(tracks))
	}
	if tracks[0].ID != "t11" || tracks[9].ID != "t2" {
		t.Errorf("tracks not ranked by popularity: first %s last %s", tracks[0].ID, tracks[9].ID)
	}

	first := tracks[0]
	if first.ImageURL != "thumb" {
		t.Errorf("small artwork = %q, want the 200x200 image", first.ImageURL)
	}
	if first.LargeImageURL != "large" {
		t.Errorf("large artwork = %q, want the largest image", first.LargeImageURL)
	}
	if first.Artist != "A, B" || first.Album != "Album" || first.DurationMs != 30000 {
		t.Errorf("track fields = %+v", first)
	}
	if first.SourceURL != "https://p.test/11.mp3" {
		t.Errorf("SourceURL = %q", first.SourceURL)
	}
}

func TestHTTPClient_FailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"artists":`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer server.Close()

			c := NewHTTP(HTTPConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)

			artists := c.SearchArtists(context.Background(), "x")
			if artists == nil || len(artists) != 0 {
				t.Errorf("SearchArtists() = %v, want empty list", artists)
			}
			tracks := c.TopTracks(context.Background(), "x")
			if tracks == nil || len(tracks) != 0 {
				t.Errorf("TopTracks() = %v, want empty list", tracks)
			}
			if n := calls.Load(); n != 2 {
				t.Errorf("server saw %d requests, want 2 (no retry)", n)
			}
		})
	}
}

func TestHTTPClient_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewHTTP(HTTPConfig{BaseURL: url}, nil)
	if got := c.SearchArtists(context.Background(), "x"); len(got) != 0 {
		t.Errorf("SearchArtists() = %v, want empty", got)
	}
}

func TestNewHTTP_Defaults(t *testing.T) {
	c := NewHTTP(HTTPConfig{}, nil)

	if c.cfg.BaseURL != "https://api.spotify.com" {
		t.Errorf("BaseURL = %s", c.cfg.BaseURL)
	}
	if c.cfg.Country != "US" {
		t.Errorf("Country = %s", c.cfg.Country)
	}
	if c.cfg.MaxTracks != DefaultMaxTracks {
		t.Errorf("MaxTracks = %d", c.cfg.MaxTracks)
	}
	if c.client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", c.client.Timeout)
	}
}
