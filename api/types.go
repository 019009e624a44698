package api

import "time"

// Track is an immutable playable item. Tracks are passed by value.
type Track struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Album         string `json:"album"`
	Artist        string `json:"artist"`
	SourceURL     string `json:"source_url"`
	ImageURL      string `json:"image_url"`
	LargeImageURL string `json:"large_image_url"`
	DurationMs    int    `json:"duration_ms"`
	Popularity    int    `json:"popularity"`
}

// SameAs reports whether t and other identify the same track.
// Tracks without an ID are compared by source URL.
func (t Track) SameAs(other Track) bool {
	if t.ID != "" || other.ID != "" {
		return t.ID == other.ID
	}
	return t.SourceURL != "" && t.SourceURL == other.SourceURL
}

// Duration returns the track duration as a time.Duration
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

type Artist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	Popularity int    `json:"popularity"`
}

// Image is an artwork variant as reported by the catalog
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PlayState is the controller's state machine position
type PlayState int

const (
	StateIdle PlayState = iota
	StatePreparing
	StatePlaying
	StatePaused
	StateSeeking
	StateFinished
	StateError
)

func (s PlayState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PlaybackState is a read-only snapshot of the controller session
type PlaybackState struct {
	State        PlayState
	CurrentTrack *Track
	PendingSeek  *int
	PositionMs   int
	DurationMs   int
}

// EventType identifies a listener callback
type EventType int

const (
	EventStarted EventType = iota
	EventPaused
	EventResumed
	EventProgress
	EventFinished
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventProgress:
		return "progress"
	case EventFinished:
		return "finished"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the value form of a listener callback, used by channel subscribers
type Event struct {
	Type       EventType
	Track      Track
	DurationMs int
	PositionMs int
	Code       int
}

// Listener receives playback events. At most one listener is attached to a
// controller at a time.
type Listener interface {
	OnStarted(track Track, durationMs int)
	OnPaused()
	OnResumed()
	OnProgress(positionMs int)
	OnFinished()
	OnError(code int)
}

// Deliver invokes the callback on l that corresponds to e.
func Deliver(l Listener, e Event) {
	switch e.Type {
	case EventStarted:
		l.OnStarted(e.Track, e.DurationMs)
	case EventPaused:
		l.OnPaused()
	case EventResumed:
		l.OnResumed()
	case EventProgress:
		l.OnProgress(e.PositionMs)
	case EventFinished:
		l.OnFinished()
	case EventError:
		l.OnError(e.Code)
	}
}
