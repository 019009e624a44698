package audio

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
)

// SupportedFormats returns list of supported audio formats
func SupportedFormats() []string {
	return []string{".mp3", ".wav", ".flac"}
}

// IsSupported checks if a file format is supported
func IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

var contentTypes = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
}

// formatOf picks the decoder extension for a source. The URL path wins; the
// response content type is the fallback for extensionless stream URLs.
func formatOf(source, contentType string) string {
	p := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		p = u.Path
	}
	if ext := strings.ToLower(path.Ext(p)); IsSupported("x" + ext) {
		return ext
	}
	if contentType != "" {
		if media, _, err := mime.ParseMediaType(contentType); err == nil {
			if ext, ok := contentTypes[media]; ok {
				return ext
			}
		}
	}
	return strings.ToLower(path.Ext(p))
}

// nopCloser adds a no-op Close to an in-memory reader
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

// DecodeAudio decodes an audio stream based on its extension
func DecodeAudio(r io.ReadSeekCloser, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(ext) {
	case ".mp3":
		return mp3.Decode(r)
	case ".wav":
		return wav.Decode(r)
	case ".flac":
		return flac.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", playerrors.ErrInvalidFormat, ext)
	}
}

// decodeBytes decodes an in-memory source
func decodeBytes(data []byte, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	if !IsSupported("x" + ext) {
		return nil, beep.Format{}, fmt.Errorf("%w: %q", playerrors.ErrInvalidFormat, ext)
	}
	streamer, format, err := DecodeAudio(nopCloser{bytes.NewReader(data)}, ext)
	if err != nil {
		return nil, beep.Format{}, playerrors.NewPlayerError("decode", "", playerrors.CodeDecode, err)
	}
	return streamer, format, nil
}
