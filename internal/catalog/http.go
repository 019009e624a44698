package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jscyril/spotify_streamer/api"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type HTTPConfig struct {
	BaseURL   string
	Token     string
	Country   string
	Timeout   time.Duration
	MaxTracks int
}

// HTTPClient queries a Spotify-style web API
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
	logger *slog.Logger
}

// Ensure HTTPClient implements Client at compile time
var _ Client = (*HTTPClient)(nil)

func NewHTTP(cfg HTTPConfig, logger *slog.Logger) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.spotify.com"
	}
	if cfg.Country == "" {
		cfg.Country = "US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxTracks <= 0 {
		cfg.MaxTracks = DefaultMaxTracks
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type imageJSON struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type artistJSON struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Popularity int         `json:"popularity"`
	Images     []imageJSON `json:"images"`
}

type searchResponse struct {
	Artists struct {
		Items []artistJSON `json:"items"`
	} `json:"artists"`
}

type trackJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Popularity int    `json:"popularity"`
	DurationMs int    `json:"duration_ms"`
	PreviewURL string `json:"preview_url"`
	Album      struct {
		Name   string      `json:"name"`
		Images []imageJSON `json:"images"`
	} `json:"album"`
	Artists []artistRefJSON `json:"artists"`
}

type artistRefJSON struct {
	Name string `json:"name"`
}

type topTracksResponse struct {
	Tracks []trackJSON `json:"tracks"`
}

func images(in []imageJSON) []api.Image {
	return lo.Map(in, func(img imageJSON, _ int) api.Image {
		return api.Image{URL: img.URL, Width: img.Width, Height: img.Height}
	})
}

// SearchArtists finds artists by name, most popular first. Artist artwork is
// the smallest image available.
func (c *HTTPClient) SearchArtists(ctx context.Context, name string) []api.Artist {
	query := url.Values{"q": {name}, "type": {"artist"}}

	var resp searchResponse
	if err := c.get(ctx, "/v1/search", query, &resp); err != nil {
		c.logger.Warn("requesting artist failed", "artist", name, "error", errors.Wrapf(err, "search %q", name))
		return []api.Artist{}
	}
	c.logger.Debug("requesting artist succeeded", "artist", name, "results", len(resp.Artists.Items))

	artists := lo.Map(resp.Artists.Items, func(a artistJSON, _ int) api.Artist {
		return api.Artist{
			ID:         a.ID,
			Name:       a.Name,
			ImageURL:   bestImage(images(a.Images), smaller),
			Popularity: a.Popularity,
		}
	})
	return rankArtists(artists)
}

// TopTracks returns an artist's most popular tracks, capped at MaxTracks.
func (c *HTTPClient) TopTracks(ctx context.Context, artistID string) []api.Track {
	endpoint := "/v1/artists/" + url.PathEscape(artistID) + "/top-tracks"
	query := url.Values{"country": {c.cfg.Country}}

	var resp topTracksResponse
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		c.logger.Warn("requesting tracks failed", "artist_id", artistID, "error", errors.Wrapf(err, "top tracks for %s", artistID))
		return []api.Track{}
	}
	c.logger.Debug("requesting tracks succeeded", "artist_id", artistID, "results", len(resp.Tracks))

	tracks := lo.Map(resp.Tracks, func(t trackJSON, _ int) api.Track {
		albumImages := images(t.Album.Images)
		artists := lo.Map(t.Artists, func(a artistRefJSON, _ int) string { return a.Name })
		return api.Track{
			ID:            t.ID,
			Name:          t.Name,
			Album:         t.Album.Name,
			Artist:        strings.Join(artists, ", "),
			SourceURL:     t.PreviewURL,
			ImageURL:      bestImage(albumImages, thumbnail),
			LargeImageURL: bestImage(albumImages, larger),
			DurationMs:    t.DurationMs,
			Popularity:    t.Popularity,
		}
	})
	return rankTracks(tracks, c.cfg.MaxTracks)
}

// get performs a single GET and decodes the JSON body into out.
func (c *HTTPClient) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &playerrors.CatalogError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &playerrors.CatalogError{Endpoint: endpoint, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &playerrors.CatalogError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &playerrors.CatalogError{Endpoint: endpoint, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &playerrors.CatalogError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("parse json: %w", err)}
	}
	return nil
}
