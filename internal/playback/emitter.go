package playback

import (
	"sync"

	"github.com/jscyril/spotify_streamer/api"
)

// emitter delivers events to the current listener in the order they were
// queued, from a single goroutine. Queueing never blocks.
type emitter struct {
	mu       sync.Mutex
	listener api.Listener
	queue    []api.Event
	closed   bool
	// set while a listener callback runs
	dispatching bool

	wake chan struct{}
	done chan struct{}
}

func newEmitter() *emitter {
	e := &emitter{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *emitter) setListener(l api.Listener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

func (e *emitter) emit(ev api.Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, ev)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// close stops accepting events, delivers what is already queued and waits
// for the dispatcher to exit. Called from inside a listener callback it
// returns without waiting, since the dispatcher is the caller.
func (e *emitter) close() {
	e.mu.Lock()
	wait := !e.dispatching
	if e.closed {
		e.mu.Unlock()
		if wait {
			<-e.done
		}
		return
	}
	e.closed = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	if wait {
		<-e.done
	}
}

func (e *emitter) run() {
	defer close(e.done)

	for range e.wake {
		for {
			e.mu.Lock()
			if len(e.queue) == 0 {
				closed := e.closed
				e.mu.Unlock()
				if closed {
					return
				}
				break
			}
			ev := e.queue[0]
			e.queue = e.queue[1:]
			listener := e.listener
			e.dispatching = listener != nil
			e.mu.Unlock()

			if listener != nil {
				api.Deliver(listener, ev)
				e.mu.Lock()
				e.dispatching = false
				e.mu.Unlock()
			}
		}
	}
}
