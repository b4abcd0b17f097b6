// Package player owns playback: a single-source session with its state
// machine and tag-event correlation, and the Radio façade that external
// callers and observers interact with.
package player

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/lemon-codes/netradio/internal/backend"
	"github.com/lemon-codes/netradio/internal/catalog"
	"github.com/lemon-codes/netradio/internal/events"
	"github.com/lemon-codes/netradio/internal/metadata"
	"github.com/lemon-codes/netradio/internal/models"
)

// State is the playback session state.
type State int

const (
	// StateIdle means no source has been selected yet.
	StateIdle State = iota
	// StateStopped means a source is set but not rendering.
	StateStopped
	// StatePlaying means the source is rendering.
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Session owns exactly one active audio backend at a time. It consumes the
// backend's asynchronous events on its own goroutine, republishes them as
// observable metadata, and correlates genre/bitrate values back into the
// catalog entry for the current station, guarding against stale events left
// in flight from a station just switched away from.
type Session struct {
	catalog *catalog.Catalog
	factory backend.Factory
	meta    *metadata.Observable
	bus     *events.Bus
	logger  *log.Logger

	mu      sync.Mutex
	state   State
	current *models.Station
	backend backend.Backend
	volume  int

	wg sync.WaitGroup
}

// NewSession creates a session in the idle state at full volume.
func NewSession(cat *catalog.Catalog, factory backend.Factory, bus *events.Bus, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		catalog: cat,
		factory: factory,
		meta:    metadata.NewObservable(),
		bus:     bus,
		logger:  logger,
		volume:  models.MaxVolume,
	}
}

// SelectStation makes the given catalog entry the current station. Any
// existing backend is torn down, the observable metadata is reset, and the
// session moves to the stopped state; playback does not start until Play.
func (s *Session) SelectStation(id int) error {
	station, ok := s.catalog.Get(id)
	if !ok {
		return fmt.Errorf("%w: id %d", models.ErrNotFound, id)
	}

	fresh, err := s.factory(station.URI)
	if err != nil {
		return err
	}
	if err := fresh.SetSource(station.URI); err != nil {
		fresh.Close()
		return err
	}

	s.mu.Lock()
	old := s.backend
	s.backend = fresh
	s.current = &station
	s.state = StateStopped
	fresh.SetVolume(float64(s.volume) / float64(models.MaxVolume))
	s.mu.Unlock()

	if old != nil {
		old.Stop()
		old.Close()
	}

	// The new URI goes in before the reset so events still draining from the
	// previous source fail the stream-URI guard throughout the window.
	s.meta.SetStreamURI(station.URI)
	s.meta.Reset()

	s.wg.Add(1)
	go s.consume(fresh)

	return nil
}

// Play starts rendering the current station and records the playback on the
// catalog entry. It reports whether a playback actually started: playing
// while already playing is a no-op, playing with no station selected is an
// error.
func (s *Session) Play() (bool, error) {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return false, fmt.Errorf("%w: no station selected", models.ErrIllegalState)
	case StatePlaying:
		s.mu.Unlock()
		return false, nil
	}
	b := s.backend
	id := s.current.ID
	s.mu.Unlock()

	// Connecting can block on the network, so the mutex is released while the
	// backend starts; Stop, SetVolume, and the tag consumer stay responsive.
	if err := b.Play(); err != nil {
		return false, err
	}

	s.mu.Lock()
	stale := s.backend != b
	if stale || s.state == StatePlaying {
		s.mu.Unlock()
		if stale {
			b.Stop()
		}
		return false, nil
	}
	s.state = StatePlaying
	s.mu.Unlock()

	if _, err := s.catalog.MarkPlayed(id); err != nil {
		s.logger.Printf("mark played failed for station %d: %v", id, err)
	}
	return true, nil
}

// Stop halts rendering and resets the observable metadata. It reports whether
// anything was stopped; stopping a session that is not playing is a no-op.
func (s *Session) Stop() bool {
	s.mu.Lock()
	b := s.backend
	wasPlaying := s.state == StatePlaying
	if wasPlaying {
		s.state = StateStopped
	}
	s.mu.Unlock()

	if b != nil {
		b.Stop() // also aborts a connect still in flight
	}
	if !wasPlaying {
		return false
	}
	s.meta.Reset()
	return true
}

// SetVolume sets the playback volume for the active backend and remembers it
// for the next source. Levels outside [MinVolume, MaxVolume] are rejected.
func (s *Session) SetVolume(level int) error {
	if level < models.MinVolume || level > models.MaxVolume {
		return fmt.Errorf("%w: volume %d out of range [%d, %d]",
			models.ErrInvalidArgument, level, models.MinVolume, models.MaxVolume)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = level
	if s.backend != nil {
		s.backend.SetVolume(float64(level) / float64(models.MaxVolume))
	}
	return nil
}

// Volume returns the current volume level.
func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentStation returns a snapshot of the selected station, if any. The
// snapshot was taken at selection time; re-query the catalog for live fields.
func (s *Session) CurrentStation() (models.Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return models.Station{}, false
	}
	return *s.current, true
}

// Metadata returns the session's observable stream metadata.
func (s *Session) Metadata() *metadata.Observable {
	return s.meta
}

// Shutdown stops playback, tears down the backend, and waits for the event
// consumers to drain. The session returns to idle; playing again requires a
// fresh station selection.
func (s *Session) Shutdown() {
	s.mu.Lock()
	b := s.backend
	s.backend = nil
	s.current = nil
	s.state = StateIdle
	s.mu.Unlock()

	if b != nil {
		b.Stop()
		b.Close()
	}
	s.wg.Wait()
}

// consume drains one backend's event channel until the backend is closed.
// Each selected backend gets its own consumer; stale consumers exit as their
// channel closes, and the URI guard discards whatever they still deliver.
func (s *Session) consume(b backend.Backend) {
	defer s.wg.Done()

	for ev := range b.Events() {
		switch ev.Kind {
		case backend.TagEvent:
			s.handleTag(ev)
		case backend.EndOfStream:
			s.handleStreamEnd(b, ev, nil)
		case backend.StreamError:
			s.handleStreamEnd(b, ev, ev.Err)
		}
	}
}

// handleTag translates a backend tag event to a canonical metadata field and
// publishes the field change. Genre and bitrate are additionally pushed into
// the catalog entry for the current station, but only while that station is
// selected, playing, and the event's stream URI matches the station's source;
// stale tag data from a previous source must never land on the new station.
func (s *Session) handleTag(ev backend.Event) {
	field, ok := metadata.CanonicalField(ev.Key)
	if !ok {
		return
	}

	s.mu.Lock()
	correlate := s.current != nil && s.current.URI == ev.URI && s.state == StatePlaying
	var currentID int
	if correlate {
		currentID = s.current.ID
	}
	s.mu.Unlock()

	if s.meta.StreamURI() == ev.URI {
		s.meta.Set(field, ev.Value)
	}

	if correlate {
		switch field {
		case metadata.FieldGenre:
			if _, err := s.catalog.SetGenre(currentID, ev.Value); err != nil {
				s.logger.Printf("genre update failed for station %d: %v", currentID, err)
			}
		case metadata.FieldBitrate:
			if kbps, err := strconv.Atoi(ev.Value); err == nil {
				if _, err := s.catalog.SetBitrate(currentID, kbps); err != nil {
					s.logger.Printf("bitrate update failed for station %d: %v", currentID, err)
				}
			}
		}
	}

	s.bus.Publish(models.TagUpdate)
}

// handleStreamEnd reacts to end-of-stream or a backend error: the backend is
// stopped and the session left in the stopped state. No automatic reconnect;
// retry policy belongs to the caller.
func (s *Session) handleStreamEnd(b backend.Backend, ev backend.Event, cause error) {
	s.mu.Lock()
	stale := s.backend != b || s.current == nil || s.current.URI != ev.URI
	if stale || s.state != StatePlaying {
		s.mu.Unlock()
		if cause != nil {
			s.logger.Printf("stream error from %s: %v", ev.URI, cause)
		}
		return
	}
	b.Stop()
	s.state = StateStopped
	s.mu.Unlock()

	if cause != nil {
		s.logger.Printf("stream error from %s, playback stopped: %v", ev.URI, cause)
	} else {
		s.logger.Printf("end of stream from %s", ev.URI)
	}

	s.meta.Reset()
	s.bus.Publish(models.PlaybackStopped)
}
