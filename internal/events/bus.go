// Package events fans model events out to registered observers. Events carry
// no payload; observers re-query current state after each notification.
package events

import (
	"log"
	"sync"

	"github.com/lemon-codes/netradio/internal/models"
)

// Observer receives model events. Implementations must treat the callback as
// notification-only: publishing happens synchronously on the mutating
// goroutine, so observers must not re-enter catalog or session mutation from
// the callback.
type Observer interface {
	HandleModelEvent(models.Event)
}

// ObserverFunc adapts a plain function to the Observer interface. Each call
// returns a distinct observer; keep the returned value to unsubscribe later.
// Observers must be comparable (the bus deduplicates registrations), which is
// why this wraps the function in a pointer rather than a func type.
func ObserverFunc(fn func(models.Event)) Observer {
	return &funcObserver{fn: fn}
}

type funcObserver struct {
	fn func(models.Event)
}

func (o *funcObserver) HandleModelEvent(e models.Event) { o.fn(e) }

// Dispatch is an Observer that routes each event kind to its own handler and
// ignores kinds with no entry, so observers only implement what they need.
type Dispatch struct {
	handlers map[models.Event]func()
}

// NewDispatch returns an empty dispatch table.
func NewDispatch() *Dispatch {
	return &Dispatch{handlers: make(map[models.Event]func())}
}

// On sets the handler for an event kind and returns the dispatch for chaining.
func (d *Dispatch) On(e models.Event, h func()) *Dispatch {
	d.handlers[e] = h
	return d
}

func (d *Dispatch) HandleModelEvent(e models.Event) {
	if h, ok := d.handlers[e]; ok {
		h()
	}
}

// Bus delivers each published event to every current subscriber. Safe for
// concurrent use; publishing may happen from the control goroutine or from
// the tag-event consumer.
type Bus struct {
	logger *log.Logger

	mu        sync.Mutex
	observers []Observer
}

// NewBus returns an empty bus.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers an observer. A given observer instance is registered at
// most once; re-subscribing is a no-op.
func (b *Bus) Subscribe(o Observer) {
	if o == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.observers {
		if existing == o {
			return
		}
	}
	b.observers = append(b.observers, o)
}

// Unsubscribe removes a previously registered observer. Removing an unknown
// observer is a no-op.
func (b *Bus) Unsubscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.observers {
		if existing == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to all current subscribers, synchronously with
// respect to the publisher. A panicking subscriber does not prevent delivery
// to the remaining subscribers.
func (b *Bus) Publish(e models.Event) {
	b.mu.Lock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.Unlock()

	for _, o := range observers {
		b.notify(o, e)
	}
}

func (b *Bus) notify(o Observer, e models.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("observer panicked handling %s: %v", e, r)
		}
	}()
	o.HandleModelEvent(e)
}
