package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lemon-codes/netradio/internal/models"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := OpenSQLite(filepath.Join(t.TempDir(), "stations.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
	return st
}

func TestSQLiteLoadEmptyDatabase(t *testing.T) {
	st := openTestDB(t)

	stations, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stations) != 0 {
		t.Fatalf("expected no stations, got %d", len(stations))
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	st := openTestDB(t)

	played := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	want := []models.Station{
		{ID: 0, Name: "Capital FM", URI: "http://media-ice.musicradio.com/Capital", Genre: "chart", PlayCount: 3, Bitrate: 192, Favourite: true, LastPlayed: &played},
		{ID: 1, Name: "BBC Radio 1", URI: "http://bbcmedia.ic.llnwd.net/stream/bbcmedia_radio1_mf_p", Bitrate: models.UnknownBitrate},
	}

	if err := st.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d stations, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if g.ID != w.ID || g.Name != w.Name || g.URI != w.URI || g.Genre != w.Genre ||
			g.PlayCount != w.PlayCount || g.Bitrate != w.Bitrate || g.Favourite != w.Favourite {
			t.Fatalf("station %d mismatch: %+v vs %+v", w.ID, w, g)
		}
	}
	if got[0].LastPlayed == nil || !got[0].LastPlayed.Equal(played) {
		t.Fatalf("expected last played %v, got %v", played, got[0].LastPlayed)
	}
	if got[1].LastPlayed != nil {
		t.Fatalf("expected nil last played, got %v", got[1].LastPlayed)
	}
}

func TestSQLiteSaveReplacesPreviousContents(t *testing.T) {
	st := openTestDB(t)

	if err := st.Save([]models.Station{{ID: 0, Name: "A", URI: "http://a", Bitrate: -1}}); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := st.Save([]models.Station{{ID: 5, Name: "B", URI: "http://b", Bitrate: -1}}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].ID != 5 {
		t.Fatalf("expected only the second snapshot, got %+v", got)
	}
}
