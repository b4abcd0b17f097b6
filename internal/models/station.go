package models

import "time"

// Volume bounds accepted by the player, inclusive.
const (
	MinVolume = 0
	MaxVolume = 100
)

// UnknownBitrate marks a station whose bitrate has not been reported yet.
const UnknownBitrate = -1

// Station is a read-only snapshot of a catalog entry. Callers never hold a
// mutable handle; all mutation goes through the catalog, which enforces the
// invariants (unique non-negative id, non-empty name and URI, bitrate >= -1,
// play count >= 0).
type Station struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	URI        string     `json:"uri"`
	Genre      string     `json:"genre,omitempty"`
	Bitrate    int        `json:"bitrate"`
	PlayCount  int        `json:"play_count"`
	LastPlayed *time.Time `json:"last_played,omitempty"`
	Favourite  bool       `json:"favourite"`
}
