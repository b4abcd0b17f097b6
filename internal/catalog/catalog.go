// Package catalog holds the authoritative, persisted set of stations. The
// catalog is the sole owner of station records; accessors return snapshot
// copies and every mutation goes through a named operation that enforces the
// invariants and controls persistence.
package catalog

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lemon-codes/netradio/internal/models"
	"github.com/lemon-codes/netradio/internal/store"
)

// Catalog is safe for concurrent use. Mutations persist a full snapshot to the
// store before returning; writes are serialized in mutation order by the
// catalog mutex, so an older snapshot can never overwrite a newer one.
type Catalog struct {
	store  store.StationStore
	logger *log.Logger

	mu       sync.Mutex
	stations map[int]models.Station
}

// New loads previously stored stations into a new catalog. A failing load is
// logged and degrades to an empty catalog rather than failing construction.
func New(st store.StationStore, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}

	c := &Catalog{
		store:    st,
		logger:   logger,
		stations: make(map[int]models.Station),
	}

	loaded, err := st.Load()
	if err != nil {
		logger.Printf("station load failed, starting with empty catalog: %v", err)
		return c
	}
	for _, s := range loaded {
		c.stations[s.ID] = s
	}
	return c
}

// Get returns a snapshot of the station with the given id.
func (c *Catalog) Get(id int) (models.Station, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stations[id]
	if !ok {
		return models.Station{}, false
	}
	return clone(s), true
}

// All returns a snapshot of every station, ordered by id.
func (c *Catalog) All() []models.Station {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Add inserts a new station and persists the catalog. The station is assigned
// the lowest unused non-negative id; ids freed by Remove are reused. The
// linear probe from zero is O(n) per insert, acceptable while catalogs stay
// small, and kept because the on-disk format relies on small stable ids.
func (c *Catalog) Add(name, uri string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%w: empty station name", models.ErrInvalidArgument)
	}
	if strings.TrimSpace(uri) == "" {
		return 0, fmt.Errorf("%w: empty station uri", models.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := 0
	for {
		if _, taken := c.stations[id]; !taken {
			break
		}
		id++
	}

	c.stations[id] = models.Station{
		ID:      id,
		Name:    name,
		URI:     uri,
		Bitrate: models.UnknownBitrate,
	}
	return id, c.persistLocked()
}

// Remove deletes the station with the given id and persists the catalog. It
// reports whether a station existed; removing an unknown id is not an error.
func (c *Catalog) Remove(id int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.stations[id]; !ok {
		return false, nil
	}
	delete(c.stations, id)
	return true, c.persistLocked()
}

// SetFavourite updates a station's favourite flag. It reports whether the
// value changed; unchanged values and unknown ids skip persistence entirely.
func (c *Catalog) SetFavourite(id int, favourite bool) (bool, error) {
	return c.update(id, func(s *models.Station) bool {
		if s.Favourite == favourite {
			return false
		}
		s.Favourite = favourite
		return true
	})
}

// SetGenre updates a station's genre. Unchanged values and unknown ids are
// no-ops; tag-driven updates repeat the same value every few seconds and must
// not hit the disk each time.
func (c *Catalog) SetGenre(id int, genre string) (bool, error) {
	return c.update(id, func(s *models.Station) bool {
		if s.Genre == genre {
			return false
		}
		s.Genre = genre
		return true
	})
}

// SetBitrate updates a station's reported bitrate. Values below -1 are
// normalized to unknown.
func (c *Catalog) SetBitrate(id int, bitrate int) (bool, error) {
	if bitrate < models.UnknownBitrate {
		bitrate = models.UnknownBitrate
	}
	return c.update(id, func(s *models.Station) bool {
		if s.Bitrate == bitrate {
			return false
		}
		s.Bitrate = bitrate
		return true
	})
}

// MarkPlayed records a playback start: play count is incremented and the last
// played time set to now. Unknown ids are a no-op.
func (c *Catalog) MarkPlayed(id int) (bool, error) {
	now := time.Now()
	return c.update(id, func(s *models.Station) bool {
		s.PlayCount++
		s.LastPlayed = &now
		return true
	})
}

// Find returns all stations whose name or URI contains the term,
// case-insensitively. An empty term matches everything.
func (c *Catalog) Find(term string) []models.Station {
	term = strings.ToLower(term)

	c.mu.Lock()
	defer c.mu.Unlock()

	var results []models.Station
	for _, s := range c.stations {
		if strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.URI), term) {
			results = append(results, clone(s))
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// Reload replaces the in-memory stations with the store's current contents.
// It reports whether anything actually changed, allowing callers to skip
// notifications for reloads triggered by the catalog's own saves.
func (c *Catalog) Reload() (bool, error) {
	loaded, err := c.store.Load()
	if err != nil {
		return false, fmt.Errorf("reload stations: %w", err)
	}

	fresh := make(map[int]models.Station, len(loaded))
	for _, s := range loaded {
		fresh[s.ID] = s
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if equal(c.stations, fresh) {
		return false, nil
	}
	c.stations = fresh
	return true, nil
}

// Shutdown forces a final persist of the current state.
func (c *Catalog) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

func (c *Catalog) update(id int, apply func(*models.Station) bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stations[id]
	if !ok {
		return false, nil
	}
	if !apply(&s) {
		return false, nil
	}
	c.stations[id] = s
	return true, c.persistLocked()
}

// persistLocked writes a full-catalog snapshot. A failing save is logged and
// returned, but the in-memory mutation that triggered it is not rolled back.
func (c *Catalog) persistLocked() error {
	if err := c.store.Save(c.snapshotLocked()); err != nil {
		c.logger.Printf("station save failed: %v", err)
		return fmt.Errorf("persist stations: %w", err)
	}
	return nil
}

func (c *Catalog) snapshotLocked() []models.Station {
	result := make([]models.Station, 0, len(c.stations))
	for _, s := range c.stations {
		result = append(result, clone(s))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// clone deep-copies a station so callers cannot reach catalog-owned state
// through the LastPlayed pointer.
func clone(s models.Station) models.Station {
	if s.LastPlayed != nil {
		t := *s.LastPlayed
		s.LastPlayed = &t
	}
	return s
}

func equal(a, b map[int]models.Station) bool {
	if len(a) != len(b) {
		return false
	}
	for id, sa := range a {
		sb, ok := b[id]
		if !ok {
			return false
		}
		if sa.Name != sb.Name || sa.URI != sb.URI || sa.Genre != sb.Genre ||
			sa.Bitrate != sb.Bitrate || sa.PlayCount != sb.PlayCount ||
			sa.Favourite != sb.Favourite {
			return false
		}
		switch {
		case sa.LastPlayed == nil && sb.LastPlayed == nil:
		case sa.LastPlayed == nil || sb.LastPlayed == nil:
			return false
		case !sa.LastPlayed.Equal(*sb.LastPlayed):
			return false
		}
	}
	return true
}
