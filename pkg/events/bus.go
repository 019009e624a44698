package events

import (
	"sync"

	"github.com/jscyril/spotify_streamer/api"
)

var allTypes = []api.EventType{
	api.EventStarted,
	api.EventPaused,
	api.EventResumed,
	api.EventProgress,
	api.EventFinished,
	api.EventError,
}

// Bus republishes listener callbacks as api.Event values on subscriber
// channels. It is attached to a controller as its single listener.
//
// Publish never blocks. Progress events are dropped for a subscriber whose
// buffer is full; state events are kept in an overflow backlog and handed
// over in order once the subscriber catches up.
type Bus struct {
	subscribers map[api.EventType][]*subscription
	mu          sync.Mutex
	closed      bool
}

type subscription struct {
	ch       chan api.Event
	overflow []api.Event
	flushing bool
	flushed  chan struct{}
	stop     chan struct{}
}

var _ api.Listener = (*Bus)(nil)

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[api.EventType][]*subscription),
	}
}

func (b *Bus) subscribe(size int, eventTypes ...api.EventType) <-chan api.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		ch:   make(chan api.Event, size),
		stop: make(chan struct{}),
	}
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], sub)
	}
	return sub.ch
}

// Subscribe returns a channel for receiving events of the specified type
func (b *Bus) Subscribe(eventType api.EventType) <-chan api.Event {
	return b.subscribe(10, eventType)
}

// SubscribeAll returns a channel for receiving all event types
func (b *Bus) SubscribeAll() <-chan api.Event {
	return b.subscribe(32, allTypes...)
}

// Publish broadcasts an event to all subscribers of that event type
func (b *Bus) Publish(event api.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers[event.Type] {
		b.deliverLocked(sub, event)
	}
}

func (b *Bus) deliverLocked(sub *subscription, event api.Event) {
	if len(sub.overflow) == 0 {
		select {
		case sub.ch <- event:
			return
		default:
		}
	}
	if event.Type == api.EventProgress {
		return
	}
	sub.overflow = append(sub.overflow, event)
	if !sub.flushing {
		sub.flushing = true
		sub.flushed = make(chan struct{})
		go b.flush(sub, sub.flushed)
	}
}

// flush hands the backlog of sub over in order, blocking on the subscriber
// instead of the publisher.
func (b *Bus) flush(sub *subscription, done chan struct{}) {
	defer close(done)

	for {
		b.mu.Lock()
		if len(sub.overflow) == 0 {
			sub.flushing = false
			b.mu.Unlock()
			return
		}
		event := sub.overflow[0]
		b.mu.Unlock()

		select {
		case sub.ch <- event:
		case <-sub.stop:
			return
		}

		b.mu.Lock()
		sub.overflow = sub.overflow[1:]
		b.mu.Unlock()
	}
}

// release stops the flusher of sub, if any, and closes its channel. Must be
// called without holding b.mu.
func release(sub *subscription, flushed chan struct{}) {
	close(sub.stop)
	if flushed != nil {
		<-flushed
	}
	close(sub.ch)
}

func (b *Bus) OnStarted(track api.Track, durationMs int) {
	b.Publish(api.Event{Type: api.EventStarted, Track: track, DurationMs: durationMs})
}

func (b *Bus) OnPaused() {
	b.Publish(api.Event{Type: api.EventPaused})
}

func (b *Bus) OnResumed() {
	b.Publish(api.Event{Type: api.EventResumed})
}

func (b *Bus) OnProgress(positionMs int) {
	b.Publish(api.Event{Type: api.EventProgress, PositionMs: positionMs})
}

func (b *Bus) OnFinished() {
	b.Publish(api.Event{Type: api.EventFinished})
}

func (b *Bus) OnError(code int) {
	b.Publish(api.Event{Type: api.EventError, Code: code})
}

// Unsubscribe removes a subscriber channel and closes it
func (b *Bus) Unsubscribe(ch <-chan api.Event) {
	b.mu.Lock()
	var found *subscription
	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub.ch == ch {
				found = sub
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	var flushed chan struct{}
	if found != nil && found.flushing {
		flushed = found.flushed
	}
	b.mu.Unlock()

	if found != nil {
		release(found, flushed)
	}
}

// Close closes all subscriber channels. Backlogged events not yet handed
// over are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true

	// A SubscribeAll channel is listed under every type
	seen := make(map[*subscription]chan struct{})
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			if _, ok := seen[sub]; ok {
				continue
			}
			var flushed chan struct{}
			if sub.flushing {
				flushed = sub.flushed
			}
			seen[sub] = flushed
		}
	}
	b.subscribers = make(map[api.EventType][]*subscription)
	b.mu.Unlock()

	for sub, flushed := range seen {
		release(sub, flushed)
	}
}
