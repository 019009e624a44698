// Package session persists the last playback position so a later run can
// resume where the previous one stopped.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jscyril/spotify_streamer/api"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
)

// Session is the resumable part of a playback session
type Session struct {
	ID          uuid.UUID   `json:"id"`
	Track       api.Track   `json:"track"`
	PositionMs  int         `json:"position_ms"`
	QueueTracks []api.Track `json:"queue_tracks,omitempty"`
	QueueIndex  int         `json:"queue_index"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Store keeps the most recent session. Load returns ErrSessionNotFound when
// nothing has been saved yet.
type Store interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (Session, error)
	Close() error
}

// Player is the controller surface needed to resume
type Player interface {
	Play(track api.Track)
	Seek(positionMs int)
}

// QueueRestorer is the queue surface needed to resume
type QueueRestorer interface {
	Set(tracks []api.Track, index int)
}

// Resume loads the saved session, restores the queue when one was saved and
// starts the saved track. A non-zero position is applied as a seek while the
// track is still preparing.
func Resume(ctx context.Context, store Store, player Player, queue QueueRestorer) (Session, error) {
	s, err := store.Load(ctx)
	if err != nil {
		return Session{}, err
	}
	if s.Track.SourceURL == "" {
		return Session{}, playerrors.ErrTrackNotFound
	}

	if queue != nil && len(s.QueueTracks) > 0 {
		queue.Set(s.QueueTracks, s.QueueIndex)
	}

	player.Play(s.Track)
	if s.PositionMs > 0 {
		player.Seek(s.PositionMs)
	}
	return s, nil
}
