package models

import "errors"

// Sentinel errors shared by the catalog and the playback session. Operations
// wrap these with context; callers discriminate with errors.Is.
var (
	// ErrInvalidArgument covers empty names/URIs, malformed source
	// addresses, and volume levels outside [MinVolume, MaxVolume].
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned by operations referencing an unknown
	// station id where "nothing to do" is not acceptable.
	ErrNotFound = errors.New("station not found")

	// ErrIllegalState is returned when an operation is not valid in the
	// session's current state, such as play with no station selected.
	ErrIllegalState = errors.New("illegal state")
)
