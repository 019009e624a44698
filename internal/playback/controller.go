package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jscyril/spotify_streamer/api"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
)

const DefaultSampleInterval = 80 * time.Millisecond

// Controller drives a single Primitive through the playback state machine.
//
// Every command and every primitive signal runs under mu, so at most one
// transition is in flight. Asynchronous operations capture the generation at
// issue time; a signal whose generation no longer matches is discarded.
type Controller struct {
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	factory Factory
	prim    Primitive
	emitter *emitter
	sampler *Sampler
	logger  *slog.Logger

	track       *api.Track
	state       api.PlayState
	pendingSeek *int
	reseek      bool // pendingSeek was replaced while a seek was in flight
	positionMs  int
	durationMs  int

	generation uint64 // bumped for every async load or seek
	loadGen    uint64 // bumped for every load; guards completion and error hooks
	epoch      uint64 // bumped whenever playback (re)starts at a new position
	disposed   bool
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSampleInterval sets the progress polling cadence
func WithSampleInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.sampler.interval = d
		}
	}
}

// New creates a controller owning one primitive built by factory. The
// controller stays alive until Dispose is called or ctx is cancelled.
func New(ctx context.Context, factory Factory, opts ...Option) (*Controller, error) {
	prim, err := factory()
	if err != nil {
		return nil, playerrors.NewPlayerError("create_primitive", "", playerrors.CodeOutput, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		ctx:     ctx,
		cancel:  cancel,
		factory: factory,
		prim:    prim,
		emitter: newEmitter(),
		logger:  slog.Default(),
		state:   api.StateIdle,
	}
	c.sampler = newSampler(c, DefaultSampleInterval)

	for _, opt := range opts {
		opt(c)
	}

	c.sampler.start(ctx)
	go func() {
		<-ctx.Done()
		c.Dispose()
	}()

	return c, nil
}

// SetListener attaches l as the single listener, replacing any previous one.
// A nil listener detaches.
func (c *Controller) SetListener(l api.Listener) {
	c.emitter.setListener(l)
}

// State returns a snapshot of the session
func (c *Controller) State() api.PlaybackState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := api.PlaybackState{
		State:      c.state,
		PositionMs: c.positionMs,
		DurationMs: c.durationMs,
	}
	if c.track != nil {
		track := *c.track
		snap.CurrentTrack = &track
	}
	if c.pendingSeek != nil {
		target := *c.pendingSeek
		snap.PendingSeek = &target
	}
	return snap
}

// CurrentTrack returns the loaded track, if any
func (c *Controller) CurrentTrack() (api.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.track == nil {
		return api.Track{}, false
	}
	return *c.track, true
}

// Play loads track, or refreshes listeners when track is already current.
func (c *Controller) Play(track api.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}

	if c.track != nil && c.track.SameAs(track) {
		switch c.state {
		case api.StatePlaying, api.StatePaused:
			c.refreshLocked()
			return
		case api.StatePreparing, api.StateSeeking:
			c.logger.Debug("play ignored, track already loading", "track", track.ID, "state", c.state)
			return
		}
	}

	c.loadLocked(track, nil)
}

// TogglePlay pauses while playing and resumes while paused. Any other state
// is left untouched.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}

	switch c.state {
	case api.StatePlaying:
		if err := c.prim.Pause(); err != nil {
			c.failLocked("pause", err)
			return
		}
		c.state = api.StatePaused
		c.emitter.emit(api.Event{Type: api.EventPaused})

	case api.StatePaused:
		if err := c.prim.Start(); err != nil {
			c.failLocked("resume", err)
			return
		}
		c.state = api.StatePlaying
		c.emitter.emit(api.Event{Type: api.EventResumed})

	default:
		c.logger.Debug("toggle ignored", "state", c.state)
	}
}

// Seek moves playback to positionMs. Negative positions are ignored.
func (c *Controller) Seek(positionMs int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	if positionMs < 0 {
		c.logger.Debug("seek ignored, negative position", "position_ms", positionMs)
		return
	}

	switch c.state {
	case api.StatePlaying, api.StatePaused:
		if c.prim.IsPlaying() {
			// Seeking while the sink is running can land on unbuffered data;
			// playback always resumes after the seek completes.
			if err := c.prim.Pause(); err != nil && !errors.Is(err, playerrors.ErrNotPlaying) {
				c.failLocked("pause", err)
				return
			}
		}
		c.issueSeekLocked(positionMs)

	case api.StatePreparing:
		c.pendingSeek = &positionMs

	case api.StateSeeking:
		c.pendingSeek = &positionMs
		c.reseek = true

	case api.StateFinished:
		c.loadLocked(*c.track, &positionMs)

	default:
		c.logger.Debug("seek ignored", "state", c.state)
	}
}

// Dispose stops and releases the primitive and the sampler. It is safe to
// call from any state and more than once.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.generation++
	c.loadGen++
	prim := c.prim
	c.prim = nil
	c.track = nil
	c.pendingSeek = nil
	c.reseek = false
	c.state = api.StateIdle
	c.mu.Unlock()

	c.cancel()
	c.sampler.stop()

	if prim != nil {
		if err := prim.Stop(); err != nil && !errors.Is(err, playerrors.ErrNotPlaying) {
			c.logger.Debug("stop on dispose", "error", err)
		}
		if err := prim.Release(); err != nil {
			c.logger.Warn("release primitive", "error", err)
		}
	}

	c.emitter.close()
}

func (c *Controller) loadLocked(track api.Track, pendingSeek *int) {
	if c.prim == nil {
		prim, err := c.factory()
		if err != nil {
			t := track
			c.track = &t
			c.state = api.StateError
			c.logger.Error("recreate primitive", "error", err)
			c.emitter.emit(api.Event{Type: api.EventError, Code: playerrors.CodeOutput})
			return
		}
		c.prim = prim
	}

	if err := c.prim.Stop(); err != nil && !errors.Is(err, playerrors.ErrNotPlaying) {
		c.logger.Warn("stop before load", "error", err)
	}

	c.generation++
	c.loadGen++
	gen, loadGen := c.generation, c.loadGen

	t := track
	c.track = &t
	c.state = api.StatePreparing
	c.pendingSeek = pendingSeek
	c.reseek = false
	c.positionMs = 0
	c.durationMs = 0

	c.prim.SetOnCompleted(func() { c.handleCompleted(loadGen) })
	c.prim.SetOnError(func(err error) { c.handleError(loadGen, err) })
	c.prim.Load(c.ctx, track.SourceURL, func(err error) { c.handlePrepared(gen, err) })

	c.logger.Debug("loading track", "track", track.ID, "url", track.SourceURL, "generation", gen)
}

func (c *Controller) handlePrepared(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || gen != c.generation || c.state != api.StatePreparing {
		c.logger.Debug("discarding stale prepared signal", "generation", gen, "current", c.generation)
		return
	}
	if err != nil {
		c.failLocked("load", err)
		return
	}

	c.updateDurationLocked()

	if c.pendingSeek != nil {
		c.issueSeekLocked(*c.pendingSeek)
		return
	}
	c.startLocked()
}

func (c *Controller) handleSeekComplete(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || gen != c.generation || c.state != api.StateSeeking {
		c.logger.Debug("discarding stale seek signal", "generation", gen, "current", c.generation)
		return
	}
	if err != nil {
		c.failLocked("seek", playerrors.NewPlayerError("seek", c.track.ID, playerrors.CodeSeek, err))
		return
	}

	if c.reseek && c.pendingSeek != nil {
		c.issueSeekLocked(*c.pendingSeek)
		return
	}

	c.pendingSeek = nil
	c.updateDurationLocked()
	c.startLocked()
}

func (c *Controller) handleCompleted(loadGen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || loadGen != c.loadGen || c.state != api.StatePlaying {
		c.logger.Debug("ignoring completion", "state", c.state)
		return
	}

	c.state = api.StateFinished
	if c.durationMs > 0 {
		c.positionMs = c.durationMs
	}
	c.emitter.emit(api.Event{Type: api.EventFinished})
}

func (c *Controller) handleError(loadGen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || loadGen != c.loadGen {
		c.logger.Debug("discarding stale error signal", "error", err)
		return
	}
	c.failLocked("playback", err)
}

// issueSeekLocked dispatches an asynchronous seek and enters Seeking. The
// target stays recorded as pendingSeek until the seek completes.
func (c *Controller) issueSeekLocked(positionMs int) {
	c.generation++
	gen := c.generation

	target := positionMs
	c.pendingSeek = &target
	c.reseek = false
	c.state = api.StateSeeking

	c.prim.Seek(positionMs, func(err error) { c.handleSeekComplete(gen, err) })
}

func (c *Controller) startLocked() {
	if err := c.prim.Start(); err != nil {
		c.failLocked("start", err)
		return
	}

	c.state = api.StatePlaying
	c.epoch++
	if pos, err := c.prim.CurrentPositionMs(); err == nil {
		c.positionMs = pos
	}
	c.emitter.emit(api.Event{Type: api.EventStarted, Track: *c.track, DurationMs: c.durationMs})
}

func (c *Controller) refreshLocked() {
	if pos, err := c.prim.CurrentPositionMs(); err == nil {
		c.positionMs = pos
	}

	c.emitter.emit(api.Event{Type: api.EventStarted, Track: *c.track, DurationMs: c.durationMs})
	c.emitter.emit(api.Event{Type: api.EventProgress, PositionMs: c.positionMs})
	if c.prim.IsPlaying() {
		c.emitter.emit(api.Event{Type: api.EventResumed})
	} else {
		c.emitter.emit(api.Event{Type: api.EventPaused})
	}
}

func (c *Controller) updateDurationLocked() {
	if d, err := c.prim.DurationMs(); err == nil && d > 0 {
		c.durationMs = d
	} else if c.durationMs == 0 && c.track.DurationMs > 0 {
		c.durationMs = c.track.DurationMs
	}
}

// failLocked converts a primitive failure into the Error state and replaces
// the primitive so the next Play starts clean.
func (c *Controller) failLocked(op string, err error) {
	code := playerrors.CodeOf(err)
	trackID := ""
	if c.track != nil {
		trackID = c.track.ID
	}
	c.logger.Warn("playback failure", "op", op, "track", trackID, "code", code, "error", err)

	c.generation++
	c.loadGen++
	c.state = api.StateError
	c.pendingSeek = nil
	c.reseek = false

	if c.prim != nil {
		if rerr := c.prim.Release(); rerr != nil {
			c.logger.Debug("release failed primitive", "error", rerr)
		}
	}
	prim, ferr := c.factory()
	if ferr != nil {
		c.logger.Error("recreate primitive", "error", ferr)
		prim = nil
	}
	c.prim = prim

	c.emitter.emit(api.Event{Type: api.EventError, Code: code})
}

// samplePosition is the sampler's read-only view of the session.
func (c *Controller) samplePosition() (epoch uint64, positionMs int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.disposed || c.state != api.StatePlaying || c.prim == nil {
		return 0, 0, false
	}
	pos, err := c.prim.CurrentPositionMs()
	if err != nil {
		return 0, 0, false
	}
	return c.epoch, pos, true
}

// reportProgress emits a sampled position if playback is still in the same
// playing stretch the sample was taken in.
func (c *Controller) reportProgress(epoch uint64, positionMs int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || c.state != api.StatePlaying || epoch != c.epoch {
		return
	}
	c.positionMs = positionMs
	c.emitter.emit(api.Event{Type: api.EventProgress, PositionMs: positionMs})
}
