package audio

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/jscyril/spotify_streamer/internal/playback"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
)

// Ensure Engine implements the playback primitive at compile time
var _ playback.Primitive = (*Engine)(nil)

// outputRate is the fixed speaker rate; sources are resampled to it.
const outputRate = beep.SampleRate(44100)

// The speaker is process-wide, so its initialisation is too.
var (
	speakerMu    sync.Mutex
	speakerReady bool
)

func initSpeaker(buffer time.Duration) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerReady {
		return nil
	}
	if err := speaker.Init(outputRate, outputRate.N(buffer)); err != nil {
		return err
	}
	speakerReady = true
	return nil
}

// Engine plays one source at a time through the speaker. A loaded source is
// queued on the speaker paused; Start and Pause flip the control.
type Engine struct {
	mu     sync.Mutex
	client *http.Client
	logger *slog.Logger
	buffer time.Duration
	volume float64

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	playing  bool
	released bool

	seq        uint64 // bumped per load; callbacks from older loads are ignored
	cancelLoad context.CancelFunc

	onCompleted func()
	onError     func(err error)
}

// Option configures an Engine
type Option func(*Engine)

// WithHTTPClient sets the client used for remote sources
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBuffer sets the speaker buffer length
func WithBuffer(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.buffer = d
		}
	}
}

// WithVolume sets the output level (0.0 to 1.0)
func WithVolume(level float64) Option {
	return func(e *Engine) {
		if level >= 0 && level <= 1 {
			e.volume = level
		}
	}
}

// NewEngine creates an engine with nothing loaded
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		client: http.DefaultClient,
		logger: slog.Default(),
		buffer: 100 * time.Millisecond,
		volume: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factory returns a playback.Factory building engines with opts
func Factory(opts ...Option) playback.Factory {
	return func() (playback.Primitive, error) {
		return NewEngine(opts...), nil
	}
}

// Load fetches and decodes source in the background and queues it paused.
func (e *Engine) Load(ctx context.Context, source string, done func(err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		go done(playerrors.ErrReleased)
		return
	}

	e.stopLocked()
	if e.cancelLoad != nil {
		e.cancelLoad()
	}
	e.seq++
	seq := e.seq
	ctx, cancel := context.WithCancel(ctx)
	e.cancelLoad = cancel

	go func() {
		err := e.load(ctx, seq, source)
		cancel()
		done(err)
	}()
}

func (e *Engine) load(ctx context.Context, seq uint64, source string) error {
	data, contentType, err := fetchSource(ctx, e.client, source)
	if err != nil {
		return err
	}

	streamer, format, err := decodeBytes(data, formatOf(source, contentType))
	if err != nil {
		return err
	}

	if err := initSpeaker(e.buffer); err != nil {
		streamer.Close()
		return playerrors.NewPlayerError("speaker_init", "", playerrors.CodeOutput, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if seq != e.seq || e.released {
		streamer.Close()
		return context.Canceled
	}

	e.streamer = streamer
	e.format = format
	e.ctrl = &beep.Ctrl{
		Streamer: beep.Resample(4, format.SampleRate, outputRate, streamer),
		Paused:   true,
	}
	volume := &effects.Volume{
		Streamer: e.ctrl,
		Base:     2,
		Volume:   e.volume*2 - 2,
		Silent:   e.volume == 0,
	}

	speaker.Play(beep.Seq(volume, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker locked
		go e.finished(seq)
	})))

	e.logger.Debug("source prepared", "source", source, "sample_rate", int(format.SampleRate), "samples", streamer.Len())
	return nil
}

// finished reports the end of the stream, or its failure, to the hooks.
func (e *Engine) finished(seq uint64) {
	e.mu.Lock()
	if seq != e.seq || e.released || e.streamer == nil {
		e.mu.Unlock()
		return
	}
	e.playing = false
	streamErr := e.streamer.Err()
	onCompleted, onError := e.onCompleted, e.onError
	e.mu.Unlock()

	if streamErr != nil {
		if onError != nil {
			onError(playerrors.NewPlayerError("stream", "", playerrors.CodeDecode, streamErr))
		}
		return
	}
	if onCompleted != nil {
		onCompleted()
	}
}

// Start resumes output of the loaded source
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return playerrors.ErrReleased
	}
	if e.ctrl == nil {
		return playerrors.ErrNotPrepared
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	e.playing = true
	return nil
}

// Pause holds output at the current position
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil || !e.playing {
		return playerrors.ErrNotPlaying
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.playing = false
	return nil
}

// Stop drops the loaded source
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return playerrors.ErrNotPlaying
	}
	e.seq++
	e.stopLocked()
	return nil
}

// stopLocked clears the speaker and closes the source (must be called with lock held).
func (e *Engine) stopLocked() {
	if e.streamer == nil {
		return
	}
	speaker.Clear()
	if err := e.streamer.Close(); err != nil {
		e.logger.Debug("close source", "error", err)
	}
	e.streamer = nil
	e.ctrl = nil
	e.playing = false
}

// Seek moves the source to positionMs in the background. Positions past the
// end are clipped to the end.
func (e *Engine) Seek(positionMs int, done func(err error)) {
	e.mu.Lock()
	if e.streamer == nil {
		e.mu.Unlock()
		go done(playerrors.ErrNotPrepared)
		return
	}
	seq := e.seq
	e.mu.Unlock()

	go func() {
		done(e.seek(seq, positionMs))
	}()
}

func (e *Engine) seek(seq uint64, positionMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if seq != e.seq || e.streamer == nil {
		return context.Canceled
	}

	n := e.format.SampleRate.N(time.Duration(positionMs) * time.Millisecond)
	n = min(max(n, 0), e.streamer.Len())

	speaker.Lock()
	err := e.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seek to %dms: %w", positionMs, err)
	}
	return nil
}

// IsPlaying reports whether output is running
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// CurrentPositionMs returns the playback position of the loaded source
func (e *Engine) CurrentPositionMs() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0, playerrors.ErrNotPrepared
	}
	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()
	return int(e.format.SampleRate.D(pos) / time.Millisecond), nil
}

// DurationMs returns the length of the loaded source
func (e *Engine) DurationMs() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0, playerrors.ErrNotPrepared
	}
	return int(e.format.SampleRate.D(e.streamer.Len()) / time.Millisecond), nil
}

func (e *Engine) SetOnCompleted(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCompleted = fn
}

func (e *Engine) SetOnError(fn func(err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = fn
}

// Release stops playback and cancels any load in flight. The engine cannot
// be reused afterwards.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return nil
	}
	e.released = true
	e.seq++
	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}
	e.stopLocked()
	return nil
}
