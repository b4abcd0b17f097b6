package models

// Event identifies a change in player or catalog state. Events carry no
// payload; subscribers re-query current state after receiving one.
type Event int

const (
	PlaybackStarted Event = iota
	PlaybackStopped
	StationChanged
	StationAdded
	StationRemoved
	StationEdited
	SearchResultsReady
	TagUpdate
	VolumeChanged
	Shutdown
	StationHighlighted
)

var eventNames = map[Event]string{
	PlaybackStarted:    "playback-started",
	PlaybackStopped:    "playback-stopped",
	StationChanged:     "station-changed",
	StationAdded:       "station-added",
	StationRemoved:     "station-removed",
	StationEdited:      "station-edited",
	SearchResultsReady: "search-results-ready",
	TagUpdate:          "tag-update",
	VolumeChanged:      "volume-changed",
	Shutdown:           "shutdown",
	StationHighlighted: "station-highlighted",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}
