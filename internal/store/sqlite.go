package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lemon-codes/netradio/internal/models"
)

// SQLiteStore persists station records in a SQLite database. It holds the same
// full-snapshot contract as the CSV store: Save rewrites the whole table in
// one transaction.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens or creates the database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stations (
			id          INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			uri         TEXT NOT NULL,
			genre       TEXT NOT NULL DEFAULT '',
			play_count  INTEGER NOT NULL DEFAULT 0,
			bitrate     INTEGER NOT NULL DEFAULT -1,
			favourite   INTEGER NOT NULL DEFAULT 0,
			last_played TEXT
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create stations table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads all station records.
func (s *SQLiteStore) Load() ([]models.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, name, uri, genre, play_count, bitrate, favourite, last_played
		FROM stations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var st models.Station
		var favourite int
		var lastPlayed sql.NullString
		if err := rows.Scan(&st.ID, &st.Name, &st.URI, &st.Genre,
			&st.PlayCount, &st.Bitrate, &favourite, &lastPlayed); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		st.Favourite = favourite != 0
		if lastPlayed.Valid && lastPlayed.String != "" {
			t, err := time.Parse(time.RFC3339, lastPlayed.String)
			if err != nil {
				return nil, fmt.Errorf("station %d: invalid last played %q", st.ID, lastPlayed.String)
			}
			st.LastPlayed = &t
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}
	return stations, nil
}

// Save replaces the table contents with the given records.
func (s *SQLiteStore) Save(stations []models.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM stations`); err != nil {
		return fmt.Errorf("clear stations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO stations (id, name, uri, genre, play_count, bitrate, favourite, last_played)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		favourite := 0
		if st.Favourite {
			favourite = 1
		}
		var lastPlayed any
		if st.LastPlayed != nil {
			lastPlayed = st.LastPlayed.Format(time.RFC3339)
		}
		if _, err := stmt.Exec(st.ID, st.Name, st.URI, st.Genre,
			st.PlayCount, st.Bitrate, favourite, lastPlayed); err != nil {
			return fmt.Errorf("insert station %d: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
