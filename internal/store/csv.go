package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lemon-codes/netradio/internal/models"
)

var csvHeader = []string{"ID", "Name", "URI", "Genre", "PlayCount", "Bitrate", "Favourite", "LastPlayed"}

// CSVStore persists station records as a single CSV file with a header row.
// The column set and the reuse of low station ids are part of the on-disk
// compatibility contract; do not change either without a migration.
type CSVStore struct {
	path string
}

// NewCSV creates a store backed by the given file path. The file is created
// lazily on the first Save; a missing file loads as an empty catalog.
func NewCSV(path string) *CSVStore {
	return &CSVStore{path: filepath.Clean(path)}
}

// Path returns the file the store reads and writes.
func (s *CSVStore) Path() string {
	return s.path
}

// Load reads all station records. A missing file is not an error.
func (s *CSVStore) Load() ([]models.Station, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open stations file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse stations file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	stations := make([]models.Station, 0, len(rows)-1)
	for i, row := range rows[1:] {
		st, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("stations file row %d: %w", i+2, err)
		}
		stations = append(stations, st)
	}
	return stations, nil
}

// Save replaces the file contents with the given records. The write goes to a
// temporary file in the same directory followed by a rename, so readers never
// observe a half-written snapshot.
func (s *CSVStore) Save(stations []models.Station) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create stations dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stations-*.csv")
	if err != nil {
		return fmt.Errorf("create temp stations file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write stations header: %w", err)
	}
	for _, st := range stations {
		if err := writer.Write(encodeRow(st)); err != nil {
			tmp.Close()
			return fmt.Errorf("write station %d: %w", st.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush stations file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp stations file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace stations file: %w", err)
	}
	return nil
}

func encodeRow(st models.Station) []string {
	lastPlayed := ""
	if st.LastPlayed != nil {
		lastPlayed = st.LastPlayed.Format(time.RFC3339)
	}
	return []string{
		strconv.Itoa(st.ID),
		st.Name,
		st.URI,
		st.Genre,
		strconv.Itoa(st.PlayCount),
		strconv.Itoa(st.Bitrate),
		strconv.FormatBool(st.Favourite),
		lastPlayed,
	}
}

func decodeRow(row []string) (models.Station, error) {
	if len(row) != len(csvHeader) {
		return models.Station{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}

	id, err := strconv.Atoi(row[0])
	if err != nil || id < 0 {
		return models.Station{}, fmt.Errorf("invalid id %q", row[0])
	}
	if row[1] == "" || row[2] == "" {
		return models.Station{}, errors.New("empty name or uri")
	}
	playCount, err := strconv.Atoi(row[4])
	if err != nil || playCount < 0 {
		return models.Station{}, fmt.Errorf("invalid play count %q", row[4])
	}
	bitrate, err := strconv.Atoi(row[5])
	if err != nil || bitrate < models.UnknownBitrate {
		return models.Station{}, fmt.Errorf("invalid bitrate %q", row[5])
	}
	favourite, err := strconv.ParseBool(row[6])
	if err != nil {
		return models.Station{}, fmt.Errorf("invalid favourite flag %q", row[6])
	}

	var lastPlayed *time.Time
	if row[7] != "" {
		t, err := time.Parse(time.RFC3339, row[7])
		if err != nil {
			return models.Station{}, fmt.Errorf("invalid last played %q", row[7])
		}
		lastPlayed = &t
	}

	return models.Station{
		ID:         id,
		Name:       row[1],
		URI:        row[2],
		Genre:      row[3],
		PlayCount:  playCount,
		Bitrate:    bitrate,
		Favourite:  favourite,
		LastPlayed: lastPlayed,
	}, nil
}
