package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jscyril/spotify_streamer/api"
)

// QueueSource is the queue surface the recorder snapshots
type QueueSource interface {
	All() []api.Track
	Index() int
}

// Recorder follows playback events and keeps the resumable session current.
// It saves on pause and finish, and whenever Flush is called.
type Recorder struct {
	store  Store
	queue  QueueSource
	logger *slog.Logger

	mu      sync.Mutex
	session Session
	active  bool // a track has started since creation
	dirty   bool
}

// NewRecorder creates a recorder. queue may be nil.
func NewRecorder(store Store, queue QueueSource, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, queue: queue, logger: logger}
}

// Run consumes events until the channel is closed or ctx is done. The
// pending session is flushed before returning.
func (r *Recorder) Run(ctx context.Context, events <-chan api.Event) error {
	defer func() {
		// ctx may already be cancelled; the final save gets its own deadline
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.Flush(flushCtx); err != nil {
			r.logger.Warn("final session flush", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if r.Observe(e) {
				if err := r.Flush(ctx); err != nil {
					r.logger.Warn("save session", "error", err)
				}
			}
		}
	}
}

// Observe applies one event to the session and reports whether it should be
// saved right away.
func (r *Recorder) Observe(e api.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Type {
	case api.EventStarted:
		if !r.active || !r.session.Track.SameAs(e.Track) {
			r.session = Session{ID: uuid.New(), Track: e.Track}
			r.active = true
		}
		if e.DurationMs > 0 {
			r.session.Track.DurationMs = e.DurationMs
		}
		r.snapshotQueueLocked()
		r.dirty = true
		return false

	case api.EventProgress:
		if !r.active {
			return false
		}
		r.session.PositionMs = e.PositionMs
		r.dirty = true
		return false

	case api.EventPaused:
		return r.active && r.dirty

	case api.EventFinished:
		if !r.active {
			return false
		}
		// A finished track resumes from the start
		r.session.PositionMs = 0
		r.dirty = true
		return true
	}
	return false
}

func (r *Recorder) snapshotQueueLocked() {
	if r.queue == nil {
		return
	}
	r.session.QueueTracks = r.queue.All()
	r.session.QueueIndex = r.queue.Index()
}

// Current returns the session as last observed
func (r *Recorder) Current() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, r.active
}

// Flush saves the session if it changed since the last save
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	if !r.active || !r.dirty {
		r.mu.Unlock()
		return nil
	}
	s := r.session
	s.UpdatedAt = time.Now()
	r.dirty = false
	r.mu.Unlock()

	if err := r.store.Save(ctx, s); err != nil {
		r.mu.Lock()
		r.dirty = true
		r.mu.Unlock()
		return err
	}
	r.logger.Debug("session saved", "id", s.ID, "track", s.Track.ID, "position_ms", s.PositionMs)
	return nil
}
