package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jscyril/spotify_streamer/api"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
)

// fakePrimitive records every call and lets the test fire signals.
type fakePrimitive struct {
	mu sync.Mutex

	loads      []string
	seeks      []int
	starts     int
	pauses     int
	stops      int
	released   bool
	playing    bool
	prepared   bool
	positionMs int
	durationMs int

	loadDone    []func(error)
	seekDone    []func(error)
	onCompleted func()
	onError     func(error)

	// starts counted at the moment each seek was issued
	startsAtSeek []int
}

func (f *fakePrimitive) Load(_ context.Context, url string, done func(err error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, url)
	f.loadDone = append(f.loadDone, done)
	f.prepared = false
	f.playing = false
	f.positionMs = 0
}

func (f *fakePrimitive) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.playing = true
	return nil
}

func (f *fakePrimitive) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	f.playing = false
	return nil
}

func (f *fakePrimitive) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if !f.playing {
		return playerrors.ErrNotPlaying
	}
	f.playing = false
	return nil
}

func (f *fakePrimitive) Seek(positionMs int, done func(err error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, positionMs)
	f.seekDone = append(f.seekDone, done)
	f.startsAtSeek = append(f.startsAtSeek, f.starts)
}

func (f *fakePrimitive) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakePrimitive) CurrentPositionMs() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.prepared {
		return 0, playerrors.ErrNotPrepared
	}
	return f.positionMs, nil
}

func (f *fakePrimitive) DurationMs() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.prepared {
		return 0, playerrors.ErrNotPrepared
	}
	return f.durationMs, nil
}

func (f *fakePrimitive) SetOnCompleted(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCompleted = fn
}

func (f *fakePrimitive) SetOnError(fn func(err error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onError = fn
}

func (f *fakePrimitive) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
	f.playing = false
	return nil
}

// prepare fires the done callback of the i-th load.
func (f *fakePrimitive) prepare(i int, durationMs int, err error) {
	f.mu.Lock()
	done := f.loadDone[i]
	if err == nil && i == len(f.loadDone)-1 {
		f.prepared = true
		f.durationMs = durationMs
	}
	f.mu.Unlock()
	done(err)
}

func (f *fakePrimitive) completeSeek(i int, err error) {
	f.mu.Lock()
	done := f.seekDone[i]
	if err == nil {
		f.positionMs = f.seeks[i]
	}
	f.mu.Unlock()
	done(err)
}

func (f *fakePrimitive) complete() {
	f.mu.Lock()
	fn := f.onCompleted
	f.playing = false
	f.mu.Unlock()
	fn()
}

func (f *fakePrimitive) fail(err error) {
	f.mu.Lock()
	fn := f.onError
	f.mu.Unlock()
	fn(err)
}

func (f *fakePrimitive) setPosition(ms int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionMs = ms
}

// fakeCalls is a point-in-time copy of what the controller asked for.
type fakeCalls struct {
	loads        []string
	seeks        []int
	starts       int
	pauses       int
	stops        int
	released     bool
	playing      bool
	startsAtSeek []int
}

func (f *fakePrimitive) snapshot() fakeCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeCalls{
		loads:        append([]string(nil), f.loads...),
		seeks:        append([]int(nil), f.seeks...),
		starts:       f.starts,
		pauses:       f.pauses,
		stops:        f.stops,
		released:     f.released,
		playing:      f.playing,
		startsAtSeek: append([]int(nil), f.startsAtSeek...),
	}
}

// fakeFactory hands out fakePrimitives and remembers them in order.
type fakeFactory struct {
	mu    sync.Mutex
	made  []*fakePrimitive
	err   error
	calls int
}

func (ff *fakeFactory) New() (Primitive, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ff.calls++
	if ff.err != nil {
		return nil, ff.err
	}
	p := &fakePrimitive{}
	ff.made = append(ff.made, p)
	return p, nil
}

func (ff *fakeFactory) current() *fakePrimitive {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.made[len(ff.made)-1]
}

func (ff *fakeFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.made)
}

// recorder is a Listener that keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []api.Event
}

func (r *recorder) add(e api.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnStarted(track api.Track, durationMs int) {
	r.add(api.Event{Type: api.EventStarted, Track: track, DurationMs: durationMs})
}
func (r *recorder) OnPaused()         { r.add(api.Event{Type: api.EventPaused}) }
func (r *recorder) OnResumed()        { r.add(api.Event{Type: api.EventResumed}) }
func (r *recorder) OnProgress(ms int) { r.add(api.Event{Type: api.EventProgress, PositionMs: ms}) }
func (r *recorder) OnFinished()       { r.add(api.Event{Type: api.EventFinished}) }
func (r *recorder) OnError(code int)  { r.add(api.Event{Type: api.EventError, Code: code}) }

func (r *recorder) all() []api.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Event(nil), r.events...)
}

// waitLen waits until at least n events have been delivered.
func (r *recorder) waitLen(t *testing.T, n int) []api.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := r.all(); len(events) >= n {
			return events
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %v", n, types(r.all()))
	return nil
}

// waitFor waits until an event of the given type has been delivered.
func (r *recorder) waitFor(t *testing.T, typ api.EventType) api.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range r.all() {
			if e.Type == typ {
				return e
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %v, got %v", typ, types(r.all()))
	return api.Event{}
}

func types(events []api.Event) []api.EventType {
	out := make([]api.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func countType(events []api.Event, typ api.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

var errBadSource = errors.New("unreachable host")

// newTestController builds a controller with a slow sampler so that progress
// events do not interleave with state assertions.
func newTestController(t *testing.T, opts ...Option) (*Controller, *fakeFactory, *recorder) {
	t.Helper()
	ff := &fakeFactory{}
	opts = append([]Option{WithSampleInterval(time.Hour)}, opts...)
	c, err := New(context.Background(), ff.New, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &recorder{}
	c.SetListener(rec)
	t.Cleanup(c.Dispose)
	return c, ff, rec
}

var (
	track1 = api.Track{ID: "t1", Name: "One", SourceURL: "http://example.test/one.mp3"}
	track2 = api.Track{ID: "t2", Name: "Two", SourceURL: "http://example.test/two.mp3"}
)
