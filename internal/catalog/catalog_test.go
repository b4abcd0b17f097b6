package catalog

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/lemon-codes/netradio/internal/models"
)

// memStore keeps records in memory and counts Save calls so tests can assert
// persistence behaviour.
type memStore struct {
	records   []models.Station
	saveCalls int
	loadErr   error
	saveErr   error
}

func (s *memStore) Load() ([]models.Station, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	records := make([]models.Station, len(s.records))
	copy(records, s.records)
	return records, nil
}

func (s *memStore) Save(stations []models.Station) error {
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = make([]models.Station, len(stations))
	copy(s.records, stations)
	return nil
}

func newTestCatalog(t *testing.T, st *memStore) *Catalog {
	t.Helper()
	return New(st, log.New(io.Discard, "", 0))
}

func TestAddAssignsDefaultsAndPersists(t *testing.T) {
	st := &memStore{}
	cat := newTestCatalog(t, st)

	id, err := cat.Add("Clyde1", "http://stream-al.planetradio.co.uk/clyde1.mp3")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, ok := cat.Get(id)
	if !ok {
		t.Fatalf("expected station %d to exist", id)
	}
	if got.Name != "Clyde1" || got.URI != "http://stream-al.planetradio.co.uk/clyde1.mp3" {
		t.Fatalf("unexpected station fields: %+v", got)
	}
	if got.Favourite || got.PlayCount != 0 || got.Bitrate != models.UnknownBitrate || got.LastPlayed != nil {
		t.Fatalf("expected default fields, got %+v", got)
	}
	if st.saveCalls != 1 {
		t.Fatalf("expected 1 save after add, got %d", st.saveCalls)
	}
}

func TestAddRejectsEmptyNameOrURI(t *testing.T) {
	cat := newTestCatalog(t, &memStore{})

	if _, err := cat.Add("", "http://x"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty name, got %v", err)
	}
	if _, err := cat.Add("Name", "  "); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank uri, got %v", err)
	}
	if got := len(cat.All()); got != 0 {
		t.Fatalf("expected empty catalog, got %d stations", got)
	}
}

func TestAddReusesLowestFreeID(t *testing.T) {
	cat := newTestCatalog(t, &memStore{})

	idA, _ := cat.Add("A", "http://a")
	idB, _ := cat.Add("B", "http://b")
	if idA != 0 || idB != 1 {
		t.Fatalf("expected ids 0 and 1, got %d and %d", idA, idB)
	}

	if removed, _ := cat.Remove(idA); !removed {
		t.Fatalf("expected Remove(%d) to report true", idA)
	}

	idC, _ := cat.Add("C", "http://c")
	if idC != 0 {
		t.Fatalf("expected freed id 0 to be reused, got %d", idC)
	}
}

func TestRemoveUnknownIDIsNoop(t *testing.T) {
	st := &memStore{}
	cat := newTestCatalog(t, st)

	removed, err := cat.Remove(42)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed {
		t.Fatalf("expected Remove of unknown id to report false")
	}
	if st.saveCalls != 0 {
		t.Fatalf("expected no save for a no-op remove, got %d", st.saveCalls)
	}
}

func TestSettersSkipPersistenceWhenUnchanged(t *testing.T) {
	st := &memStore{}
	cat := newTestCatalog(t, st)
	id, _ := cat.Add("A", "http://a")

	base := st.saveCalls
	if changed, _ := cat.SetFavourite(id, true); !changed {
		t.Fatalf("expected first SetFavourite to change")
	}
	if changed, _ := cat.SetFavourite(id, true); changed {
		t.Fatalf("expected repeated SetFavourite to be a no-op")
	}
	if got := st.saveCalls - base; got != 1 {
		t.Fatalf("expected exactly 1 save for repeated SetFavourite, got %d", got)
	}

	base = st.saveCalls
	cat.SetGenre(id, "rock")
	cat.SetGenre(id, "rock")
	if got := st.saveCalls - base; got != 1 {
		t.Fatalf("expected exactly 1 save for repeated SetGenre, got %d", got)
	}

	base = st.saveCalls
	cat.SetBitrate(id, 128)
	cat.SetBitrate(id, 128)
	if got := st.saveCalls - base; got != 1 {
		t.Fatalf("expected exactly 1 save for repeated SetBitrate, got %d", got)
	}
}

func TestSettersIgnoreUnknownID(t *testing.T) {
	st := &memStore{}
	cat := newTestCatalog(t, st)

	if changed, err := cat.SetFavourite(9, true); changed || err != nil {
		t.Fatalf("expected silent no-op, got changed=%v err=%v", changed, err)
	}
	if changed, err := cat.SetGenre(9, "rock"); changed || err != nil {
		t.Fatalf("expected silent no-op, got changed=%v err=%v", changed, err)
	}
	if changed, err := cat.MarkPlayed(9); changed || err != nil {
		t.Fatalf("expected silent no-op, got changed=%v err=%v", changed, err)
	}
	if st.saveCalls != 0 {
		t.Fatalf("expected no saves, got %d", st.saveCalls)
	}
}

func TestMarkPlayedIncrementsAndTimestamps(t *testing.T) {
	cat := newTestCatalog(t, &memStore{})
	id, _ := cat.Add("A", "http://a")

	cat.MarkPlayed(id)
	cat.MarkPlayed(id)

	got, _ := cat.Get(id)
	if got.PlayCount != 2 {
		t.Fatalf("expected play count 2, got %d", got.PlayCount)
	}
	if got.LastPlayed == nil {
		t.Fatalf("expected last played to be set")
	}
}

func TestFindMatchesNameAndURICaseInsensitively(t *testing.T) {
	cat := newTestCatalog(t, &memStore{})
	cat.Add("Clyde1", "http://X")
	cat.Add("Capital FM", "http://media-ice.musicradio.com/Capital")
	cat.Add("StartFM", "http://eteris.startfm.lt/startfm.ogg")

	results := cat.Find("CLYDE")
	if len(results) != 1 || results[0].Name != "Clyde1" {
		t.Fatalf("expected Clyde1, got %+v", results)
	}

	results = cat.Find("musicradio")
	if len(results) != 1 || results[0].Name != "Capital FM" {
		t.Fatalf("expected uri match for Capital FM, got %+v", results)
	}

	if got := len(cat.Find("")); got != 3 {
		t.Fatalf("expected empty term to match all 3 stations, got %d", got)
	}

	if got := len(cat.Find("no-such-station")); got != 0 {
		t.Fatalf("expected no matches, got %d", got)
	}
}

func TestLoadFailureDegradesToEmptyCatalog(t *testing.T) {
	st := &memStore{loadErr: errors.New("disk on fire")}
	cat := newTestCatalog(t, st)

	if got := len(cat.All()); got != 0 {
		t.Fatalf("expected empty catalog after failed load, got %d stations", got)
	}

	// The catalog keeps operating in memory.
	if _, err := cat.Add("A", "http://a"); err != nil {
		t.Fatalf("Add after failed load: %v", err)
	}
}

func TestSaveFailureKeepsInMemoryMutation(t *testing.T) {
	st := &memStore{saveErr: errors.New("disk full")}
	cat := newTestCatalog(t, st)

	id, err := cat.Add("A", "http://a")
	if err == nil {
		t.Fatalf("expected persistence error to surface")
	}
	if _, ok := cat.Get(id); !ok {
		t.Fatalf("expected in-memory mutation to survive a failed save")
	}
}

func TestShutdownRoundTrip(t *testing.T) {
	st := &memStore{}
	cat := newTestCatalog(t, st)
	cat.Add("A", "http://a")
	id, _ := cat.Add("B", "http://b")
	cat.SetFavourite(id, true)
	cat.SetGenre(id, "jazz")
	cat.MarkPlayed(id)

	if err := cat.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	before := cat.All()
	fresh := newTestCatalog(t, st)
	after := fresh.All()

	if len(before) != len(after) {
		t.Fatalf("expected %d stations after reload, got %d", len(before), len(after))
	}
	for i := range before {
		a, b := before[i], after[i]
		if a.ID != b.ID || a.Name != b.Name || a.URI != b.URI || a.Genre != b.Genre ||
			a.Favourite != b.Favourite || a.PlayCount != b.PlayCount {
			t.Fatalf("station %d mismatch after reload: %+v vs %+v", a.ID, a, b)
		}
	}
}

func TestSnapshotsAreDefensiveCopies(t *testing.T) {
	cat := newTestCatalog(t, &memStore{})
	id, _ := cat.Add("A", "http://a")
	cat.MarkPlayed(id)

	all := cat.All()
	all[0].Name = "mutated"
	*all[0].LastPlayed = all[0].LastPlayed.AddDate(10, 0, 0)

	got, _ := cat.Get(id)
	if got.Name == "mutated" {
		t.Fatalf("expected All to return a defensive copy")
	}
	year := got.LastPlayed.Year()
	if year > 2100 {
		t.Fatalf("expected LastPlayed to be deep-copied")
	}
}

func TestReloadReportsChanges(t *testing.T) {
	st := &memStore{}
	cat := newTestCatalog(t, st)
	cat.Add("A", "http://a")

	// Reloading the catalog's own snapshot changes nothing.
	changed, err := cat.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if changed {
		t.Fatalf("expected reload of identical data to report no change")
	}

	st.records[0].Genre = "edited elsewhere"
	changed, err = cat.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !changed {
		t.Fatalf("expected reload of modified data to report a change")
	}
	got, _ := cat.Get(0)
	if got.Genre != "edited elsewhere" {
		t.Fatalf("expected reloaded genre, got %q", got.Genre)
	}
}
