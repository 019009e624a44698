package playback

import "context"

// Primitive is the opaque audio engine driven by the Controller.
//
// Load and Seek are asynchronous: they return immediately and invoke done
// exactly once, from another goroutine and never before the call has
// returned. Hooks must likewise not run on the caller's goroutine, since the
// controller invokes the primitive while holding its lock. Completion and playback-time
// failures are reported through the hooks installed with SetOnCompleted and
// SetOnError. Stop returns ErrNotPlaying when nothing is loaded.
type Primitive interface {
	Load(ctx context.Context, url string, done func(err error))
	Start() error
	Pause() error
	Stop() error
	Seek(positionMs int, done func(err error))
	IsPlaying() bool
	CurrentPositionMs() (int, error)
	DurationMs() (int, error)
	SetOnCompleted(fn func())
	SetOnError(fn func(err error))
	Release() error
}

// Factory creates a fresh Primitive. The controller calls it at construction
// and again after a primitive failure, once the failed instance is released.
type Factory func() (Primitive, error)
