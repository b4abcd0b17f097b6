package player

import (
	"fmt"
	"log"
	"sync"

	"github.com/lemon-codes/netradio/internal/catalog"
	"github.com/lemon-codes/netradio/internal/events"
	"github.com/lemon-codes/netradio/internal/metadata"
	"github.com/lemon-codes/netradio/internal/models"
)

// Radio is the façade external callers drive. It forwards to the catalog and
// the playback session, publishes exactly one model event after each
// successful mutation, and holds the cross-observer state that belongs to no
// single surface: the latest search results and the highlighted station.
type Radio struct {
	catalog *catalog.Catalog
	session *Session
	bus     *events.Bus
	logger  *log.Logger

	mu            sync.Mutex
	searchResults []models.Station
	highlighted   int
}

// NewRadio wires a façade over the given components.
func NewRadio(cat *catalog.Catalog, session *Session, bus *events.Bus, logger *log.Logger) *Radio {
	if logger == nil {
		logger = log.Default()
	}
	return &Radio{
		catalog:     cat,
		session:     session,
		bus:         bus,
		logger:      logger,
		highlighted: -1,
	}
}

// Station returns a snapshot of one station.
func (r *Radio) Station(id int) (models.Station, bool) {
	return r.catalog.Get(id)
}

// AllStations returns a snapshot of every station.
func (r *Radio) AllStations() []models.Station {
	return r.catalog.All()
}

// AddStation adds a station and returns its assigned id. The id comes back
// alongside the error too: a persistence failure leaves the station present in
// memory, and callers should be able to reach it.
func (r *Radio) AddStation(name, uri string) (int, error) {
	id, err := r.catalog.Add(name, uri)
	if err != nil {
		return id, err
	}
	r.bus.Publish(models.StationAdded)
	return id, nil
}

// RemoveStation removes a station, reporting whether it existed.
func (r *Radio) RemoveStation(id int) (bool, error) {
	removed, err := r.catalog.Remove(id)
	if err != nil {
		return removed, err
	}
	if removed {
		r.bus.Publish(models.StationRemoved)
	}
	return removed, nil
}

// SetFavourite updates a station's favourite flag.
func (r *Radio) SetFavourite(id int, favourite bool) error {
	changed, err := r.catalog.SetFavourite(id, favourite)
	if err != nil {
		return err
	}
	if changed {
		r.bus.Publish(models.StationEdited)
	}
	return nil
}

// SetGenre updates a station's genre.
func (r *Radio) SetGenre(id int, genre string) error {
	changed, err := r.catalog.SetGenre(id, genre)
	if err != nil {
		return err
	}
	if changed {
		r.bus.Publish(models.StationEdited)
	}
	return nil
}

// SetBitrate updates a station's reported bitrate.
func (r *Radio) SetBitrate(id int, bitrate int) error {
	changed, err := r.catalog.SetBitrate(id, bitrate)
	if err != nil {
		return err
	}
	if changed {
		r.bus.Publish(models.StationEdited)
	}
	return nil
}

// FindStations searches the catalog, remembers the results for observers, and
// announces them.
func (r *Radio) FindStations(term string) []models.Station {
	results := r.catalog.Find(term)

	r.mu.Lock()
	r.searchResults = results
	r.mu.Unlock()

	r.bus.Publish(models.SearchResultsReady)
	return results
}

// SearchResults returns the results of the most recent FindStations call.
func (r *Radio) SearchResults() []models.Station {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]models.Station, len(r.searchResults))
	copy(results, r.searchResults)
	return results
}

// SetHighlighted marks a station as highlighted across observer surfaces.
func (r *Radio) SetHighlighted(id int) error {
	if _, ok := r.catalog.Get(id); !ok {
		return fmt.Errorf("%w: id %d", models.ErrNotFound, id)
	}

	r.mu.Lock()
	r.highlighted = id
	r.mu.Unlock()

	r.bus.Publish(models.StationHighlighted)
	return nil
}

// Highlighted returns the highlighted station, if one is set and still
// exists.
func (r *Radio) Highlighted() (models.Station, bool) {
	r.mu.Lock()
	id := r.highlighted
	r.mu.Unlock()

	if id < 0 {
		return models.Station{}, false
	}
	return r.catalog.Get(id)
}

// SelectStation makes a station current and readies it for playback.
func (r *Radio) SelectStation(id int) error {
	if err := r.session.SelectStation(id); err != nil {
		return err
	}
	r.bus.Publish(models.StationChanged)
	return nil
}

// Play starts playback of the current station.
func (r *Radio) Play() error {
	started, err := r.session.Play()
	if err != nil {
		return err
	}
	if started {
		r.bus.Publish(models.PlaybackStarted)
	}
	return nil
}

// Stop halts playback.
func (r *Radio) Stop() {
	if r.session.Stop() {
		r.bus.Publish(models.PlaybackStopped)
	}
}

// SetVolume adjusts the playback volume (0-100 inclusive).
func (r *Radio) SetVolume(level int) error {
	if err := r.session.SetVolume(level); err != nil {
		return err
	}
	r.bus.Publish(models.VolumeChanged)
	return nil
}

// Volume returns the current volume level.
func (r *Radio) Volume() int {
	return r.session.Volume()
}

// State returns the playback state.
func (r *Radio) State() State {
	return r.session.State()
}

// CurrentStation returns the selected station, if any.
func (r *Radio) CurrentStation() (models.Station, bool) {
	return r.session.CurrentStation()
}

// Metadata returns the observable stream metadata.
func (r *Radio) Metadata() *metadata.Observable {
	return r.session.Metadata()
}

// ReloadStations refreshes the catalog from its store, publishing a station
// edit only when the reload actually changed something. Wired to the stations
// file watcher so edits made outside the process reach observers.
func (r *Radio) ReloadStations() {
	changed, err := r.catalog.Reload()
	if err != nil {
		r.logger.Printf("stations reload failed: %v", err)
		return
	}
	if changed {
		r.bus.Publish(models.StationEdited)
	}
}

// Shutdown stops playback, persists the catalog, and notifies observers.
func (r *Radio) Shutdown() error {
	r.Stop()
	r.session.Shutdown()

	err := r.catalog.Shutdown()
	r.bus.Publish(models.Shutdown)
	return err
}
