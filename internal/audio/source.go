package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
)

// maxSourceBytes bounds a fetched source; previews and local tracks are far
// below this.
const maxSourceBytes = 256 << 20

// fetchSource reads a whole source into memory. Remote sources are fetched
// over HTTP, everything else is treated as a local path or file:// URL.
func fetchSource(ctx context.Context, client *http.Client, source string) ([]byte, string, error) {
	if source == "" {
		return nil, "", fmt.Errorf("%w: empty source", playerrors.ErrSourceUnavailable)
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchHTTP(ctx, client, source)
	}

	path := source
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", playerrors.ErrSourceUnavailable, err)
		}
		path = u.Path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", playerrors.ErrSourceUnavailable, err)
	}
	return data, "", nil
}

func fetchHTTP(ctx context.Context, client *http.Client, source string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", playerrors.ErrSourceUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", playerrors.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: status %d", playerrors.ErrSourceUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", playerrors.ErrSourceUnavailable, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
