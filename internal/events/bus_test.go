package events

import (
	"io"
	"log"
	"testing"

	"github.com/lemon-codes/netradio/internal/models"
)

func newTestBus() *Bus {
	return NewBus(log.New(io.Discard, "", 0))
}

type recordingObserver struct {
	received []models.Event
}

func (o *recordingObserver) HandleModelEvent(e models.Event) {
	o.received = append(o.received, e)
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := newTestBus()
	a := &recordingObserver{}
	b := &recordingObserver{}
	bus.Subscribe(a)
	bus.Subscribe(b)

	bus.Publish(models.StationAdded)

	if len(a.received) != 1 || a.received[0] != models.StationAdded {
		t.Fatalf("observer a received %v", a.received)
	}
	if len(b.received) != 1 || b.received[0] != models.StationAdded {
		t.Fatalf("observer b received %v", b.received)
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	bus := newTestBus()
	o := &recordingObserver{}
	bus.Subscribe(o)
	bus.Subscribe(o)

	bus.Publish(models.VolumeChanged)

	if len(o.received) != 1 {
		t.Fatalf("expected a single delivery for a doubly-subscribed observer, got %d", len(o.received))
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := newTestBus()
	o := &recordingObserver{}
	bus.Subscribe(o)
	bus.Unsubscribe(o)
	bus.Unsubscribe(o) // removing twice is a no-op

	bus.Publish(models.StationRemoved)

	if len(o.received) != 0 {
		t.Fatalf("expected no deliveries after unsubscribe, got %v", o.received)
	}
}

func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	bus := newTestBus()
	bus.Subscribe(ObserverFunc(func(models.Event) { panic("observer bug") }))
	survivor := &recordingObserver{}
	bus.Subscribe(survivor)

	bus.Publish(models.PlaybackStarted)

	if len(survivor.received) != 1 {
		t.Fatalf("expected delivery to continue past a panicking observer, got %v", survivor.received)
	}
}

func TestDispatchRoutesOnlyConfiguredEvents(t *testing.T) {
	bus := newTestBus()

	var started, stopped int
	bus.Subscribe(NewDispatch().
		On(models.PlaybackStarted, func() { started++ }).
		On(models.PlaybackStopped, func() { stopped++ }))

	bus.Publish(models.PlaybackStarted)
	bus.Publish(models.TagUpdate)
	bus.Publish(models.PlaybackStarted)

	if started != 2 || stopped != 0 {
		t.Fatalf("expected started=2 stopped=0, got %d and %d", started, stopped)
	}
}
