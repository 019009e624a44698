package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jscyril/spotify_streamer/api"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
	"github.com/jscyril/spotify_streamer/pkg/events"
)

var (
	trackA = api.Track{ID: "a", Name: "A", SourceURL: "https://p.test/a.mp3"}
	trackB = api.Track{ID: "b", Name: "B", SourceURL: "https://p.test/b.mp3"}
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, playerrors.ErrSessionNotFound) {
		t.Fatalf("Load() on empty store error = %v, want ErrSessionNotFound", err)
	}

	want := Session{
		ID:          uuid.New(),
		Track:       trackA,
		PositionMs:  42000,
		QueueTracks: []api.Track{trackA, trackB},
		QueueIndex:  0,
		UpdatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ID != want.ID || got.Track != want.Track || got.PositionMs != want.PositionMs {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if len(got.QueueTracks) != 2 || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("queue/updated_at not preserved: %+v", got)
	}

	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := os.WriteFile(store.Path(), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(context.Background()); err == nil || errors.Is(err, playerrors.ErrSessionNotFound) {
		t.Errorf("Load() error = %v, want a decode error", err)
	}
}

type memStore struct {
	mu    sync.Mutex
	saved []Session
	err   error
}

func (m *memStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *memStore) Load(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return Session{}, playerrors.ErrSessionNotFound
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type fixedQueue struct{}

func (fixedQueue) All() []api.Track { return []api.Track{trackA, trackB} }
func (fixedQueue) Index() int       { return 1 }

func TestRecorder_Observe(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, fixedQueue{}, nil)

	if r.Observe(api.Event{Type: api.EventProgress, PositionMs: 5000}) {
		t.Error("progress before any start should not save")
	}
	if _, active := r.Current(); active {
		t.Error("recorder active before a track started")
	}

	r.Observe(api.Event{Type: api.EventStarted, Track: trackA, DurationMs: 180000})
	first, _ := r.Current()
	if first.Track.DurationMs != 180000 || first.QueueIndex != 1 || len(first.QueueTracks) != 2 {
		t.Errorf("session after start = %+v", first)
	}

	r.Observe(api.Event{Type: api.EventProgress, PositionMs: 7000})
	if !r.Observe(api.Event{Type: api.EventPaused}) {
		t.Error("pause with unsaved progress should request a save")
	}

	// Refresh of the same track keeps the session identity and position
	r.Observe(api.Event{Type: api.EventStarted, Track: trackA, DurationMs: 180000})
	same, _ := r.Current()
	if same.ID != first.ID || same.PositionMs != 7000 {
		t.Errorf("same track restarted the session: %+v", same)
	}

	r.Observe(api.Event{Type: api.EventStarted, Track: trackB})
	next, _ := r.Current()
	if next.ID == first.ID || next.PositionMs != 0 || next.Track.ID != "b" {
		t.Errorf("new track should start a new session: %+v", next)
	}

	r.Observe(api.Event{Type: api.EventProgress, PositionMs: 9000})
	if !r.Observe(api.Event{Type: api.EventFinished}) {
		t.Error("finish should request a save")
	}
	if s, _ := r.Current(); s.PositionMs != 0 {
		t.Errorf("finished track position = %d, want 0", s.PositionMs)
	}
}

func TestRecorder_Flush(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, nil, nil)
	ctx := context.Background()

	if err := r.Flush(ctx); err != nil || store.count() != 0 {
		t.Fatalf("Flush with nothing observed saved %d sessions, err %v", store.count(), err)
	}

	r.Observe(api.Event{Type: api.EventStarted, Track: trackA})
	r.Observe(api.Event{Type: api.EventProgress, PositionMs: 3000})
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("second Flush() error = %v", err)
	}
	if store.count() != 1 {
		t.Errorf("saved %d sessions, want 1 (unchanged session is not re-saved)", store.count())
	}
	saved, _ := store.Load(ctx)
	if saved.PositionMs != 3000 || saved.UpdatedAt.IsZero() {
		t.Errorf("saved session = %+v", saved)
	}
}

func TestRecorder_FlushRetriesAfterError(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	r := NewRecorder(store, nil, nil)
	r.Observe(api.Event{Type: api.EventStarted, Track: trackA})

	if err := r.Flush(context.Background()); err == nil {
		t.Fatal("Flush() should surface the store error")
	}

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	if err := r.Flush(context.Background()); err != nil || store.count() != 1 {
		t.Errorf("retry flush saved %d sessions, err %v", store.count(), err)
	}
}

func TestRecorder_RunWithBus(t *testing.T) {
	store := &memStore{}
	bus := events.NewBus()
	r := NewRecorder(store, nil, nil)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), bus.SubscribeAll()) }()

	bus.OnStarted(trackA, 1000)
	bus.OnProgress(2000)
	bus.OnPaused()

	deadline := time.Now().Add(2 * time.Second)
	for store.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pause did not save the session")
		}
		time.Sleep(time.Millisecond)
	}

	bus.OnResumed()
	bus.OnProgress(4000)
	bus.Close()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	saved, _ := store.Load(context.Background())
	if saved.PositionMs != 4000 {
		t.Errorf("final flush position = %d, want 4000", saved.PositionMs)
	}
}

type fakePlayer struct {
	calls []string
	track api.Track
	seek  int
}

func (p *fakePlayer) Play(track api.Track) {
	p.calls = append(p.calls, "play")
	p.track = track
}

func (p *fakePlayer) Seek(ms int) {
	p.calls = append(p.calls, "seek")
	p.seek = ms
}

type fakeQueue struct {
	tracks []api.Track
	index  int
}

func (q *fakeQueue) Set(tracks []api.Track, index int) {
	q.tracks, q.index = tracks, index
}

func TestResume(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()
	saved := Session{ID: uuid.New(), Track: trackB, PositionMs: 61000, QueueTracks: []api.Track{trackA, trackB}, QueueIndex: 1}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatal(err)
	}

	player := &fakePlayer{}
	queue := &fakeQueue{}
	s, err := Resume(ctx, store, player, queue)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if s.ID != saved.ID {
		t.Errorf("Resume() session = %v", s.ID)
	}
	if len(player.calls) != 2 || player.calls[0] != "play" || player.calls[1] != "seek" {
		t.Errorf("player calls = %v, want [play seek]", player.calls)
	}
	if player.track.ID != "b" || player.seek != 61000 {
		t.Errorf("resumed %s at %d", player.track.ID, player.seek)
	}
	if len(queue.tracks) != 2 || queue.index != 1 {
		t.Errorf("queue restored to %v at %d", queue.tracks, queue.index)
	}
}

func TestResume_NoPosition(t *testing.T) {
	store := &memStore{saved: []Session{{ID: uuid.New(), Track: trackA}}}
	player := &fakePlayer{}

	if _, err := Resume(context.Background(), store, player, nil); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if len(player.calls) != 1 {
		t.Errorf("player calls = %v, want only play", player.calls)
	}
}

func TestResume_Errors(t *testing.T) {
	player := &fakePlayer{}

	if _, err := Resume(context.Background(), &memStore{}, player, nil); !errors.Is(err, playerrors.ErrSessionNotFound) {
		t.Errorf("empty store error = %v", err)
	}

	broken := &memStore{saved: []Session{{ID: uuid.New()}}}
	if _, err := Resume(context.Background(), broken, player, nil); !errors.Is(err, playerrors.ErrTrackNotFound) {
		t.Errorf("session without source error = %v", err)
	}
	if len(player.calls) != 0 {
		t.Errorf("failed resume reached the player: %v", player.calls)
	}
}
