package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrTrackNotFound     = errors.New("track not found")
	ErrInvalidFormat     = errors.New("unsupported audio format")
	ErrPlaybackFailed    = errors.New("playback failed")
	ErrNotPrepared       = errors.New("player not prepared")
	ErrNotPlaying        = errors.New("not currently playing")
	ErrReleased          = errors.New("player released")
	ErrEmptyQueue        = errors.New("playback queue is empty")
	ErrSessionNotFound   = errors.New("no saved session")
	ErrSourceUnavailable = errors.New("source unavailable")
)

// Diagnostic codes carried by error events
const (
	CodeUnknown           = 1
	CodeSourceUnavailable = 2
	CodeUnsupportedFormat = 3
	CodeDecode            = 4
	CodeOutput            = 5
	CodeSeek              = 6
)

// PlayerError wraps errors with additional context
type PlayerError struct {
	Op    string // Operation that failed
	Track string // Track ID if applicable
	Code  int    // Diagnostic code, 0 means derive from Err
	Err   error  // Underlying error
}

func (e *PlayerError) Error() string {
	if e.Track != "" {
		return fmt.Sprintf("%s failed for track %s: %v", e.Op, e.Track, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

// NewPlayerError creates a new PlayerError
func NewPlayerError(op, track string, code int, err error) *PlayerError {
	return &PlayerError{Op: op, Track: track, Code: code, Err: err}
}

// CodeOf maps an error to the diagnostic code reported to listeners.
func CodeOf(err error) int {
	if err == nil {
		return 0
	}

	var pe *PlayerError
	if errors.As(err, &pe) && pe.Code != 0 {
		return pe.Code
	}

	switch {
	case errors.Is(err, ErrSourceUnavailable):
		return CodeSourceUnavailable
	case errors.Is(err, ErrInvalidFormat):
		return CodeUnsupportedFormat
	default:
		return CodeUnknown
	}
}

// ScanError represents an error during library scanning
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// CatalogError describes a failed catalog request
type CatalogError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *CatalogError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog %s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Endpoint, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
