// Package store provides durable persistence for station records. The catalog
// consumes the StationStore interface; the concrete encoding (CSV file or
// SQLite database) is selected at wiring time.
package store

import "github.com/lemon-codes/netradio/internal/models"

// StationStore loads and saves the full set of station records. Save replaces
// the previous contents with a complete snapshot; partial updates are not
// supported.
type StationStore interface {
	Load() ([]models.Station, error)
	Save([]models.Station) error
}
