package playlist

import (
	"math/rand/v2"
	"sync"

	"github.com/jscyril/spotify_streamer/api"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
)

// Queue is the ordered list of tracks the user steps through. Next and
// Previous wrap around at either end.
type Queue struct {
	tracks   []api.Track
	index    int
	original []api.Track // order before shuffle
	mu       sync.RWMutex
}

// NewQueue creates a new empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Add adds tracks to the end of the queue
func (q *Queue) Add(tracks ...api.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = append(q.tracks, tracks...)
	if q.original != nil {
		q.original = append(q.original, tracks...)
	}
}

// Set replaces the entire queue and selects index. An out of range index
// selects the first track.
func (q *Queue) Set(tracks []api.Track, index int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = append([]api.Track(nil), tracks...)
	q.original = nil
	q.index = 0
	if index >= 0 && index < len(q.tracks) {
		q.index = index
	}
}

// Clear removes all tracks from the queue
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = nil
	q.original = nil
	q.index = 0
}

// Current returns the current track
func (q *Queue) Current() (api.Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.tracks) == 0 {
		return api.Track{}, false
	}
	return q.tracks[q.index], true
}

// Next moves to the next track, wrapping to the first, and returns it
func (q *Queue) Next() (api.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return api.Track{}, playerrors.ErrEmptyQueue
	}
	q.index = (q.index + 1) % len(q.tracks)
	return q.tracks[q.index], nil
}

// Previous moves to the previous track, wrapping to the last, and returns it
func (q *Queue) Previous() (api.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return api.Track{}, playerrors.ErrEmptyQueue
	}
	q.index--
	if q.index < 0 {
		q.index = len(q.tracks) - 1
	}
	return q.tracks[q.index], nil
}

// JumpTo jumps to a specific index
func (q *Queue) JumpTo(index int) (api.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return api.Track{}, playerrors.ErrTrackNotFound
	}
	q.index = index
	return q.tracks[index], nil
}

// Remove removes a track at the specified index
func (q *Queue) Remove(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return playerrors.ErrTrackNotFound
	}

	removed := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	if q.original != nil {
		for i, t := range q.original {
			if t.SameAs(removed) {
				q.original = append(q.original[:i], q.original[i+1:]...)
				break
			}
		}
	}

	// Adjust current index if needed
	if q.index > index {
		q.index--
	} else if q.index >= len(q.tracks) {
		q.index = max(len(q.tracks)-1, 0)
	}
	return nil
}

// Shuffle shuffles the queue and moves the current track to the front
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) <= 1 {
		return
	}

	// Save original order if not already shuffled
	if q.original == nil {
		q.original = append([]api.Track(nil), q.tracks...)
	}

	current := q.tracks[q.index]
	rand.Shuffle(len(q.tracks), func(i, j int) {
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	})

	for i, track := range q.tracks {
		if track.SameAs(current) {
			q.tracks[0], q.tracks[i] = q.tracks[i], q.tracks[0]
			break
		}
	}
	q.index = 0
}

// Unshuffle restores original order, keeping the current track selected
func (q *Queue) Unshuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.original == nil {
		return
	}

	current := q.tracks[q.index]
	q.tracks = q.original
	q.original = nil

	for i, track := range q.tracks {
		if track.SameAs(current) {
			q.index = i
			break
		}
	}
}

// IsShuffled returns whether the queue is shuffled
func (q *Queue) IsShuffled() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.original != nil
}

// All returns a copy of all tracks in the queue
func (q *Queue) All() []api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]api.Track(nil), q.tracks...)
}

// Len returns the number of tracks in the queue
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Index returns the current index
func (q *Queue) Index() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index
}
