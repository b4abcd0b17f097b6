// Package backend defines the audio backend boundary consumed by the playback
// session, plus the built-in implementations: an ICY/Shoutcast HTTP stream
// reader and a local-file prober. Backends deliver tag, end-of-stream, and
// error signals asynchronously over a bounded event channel; audio decoding
// and device output are out of scope.
package backend

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/lemon-codes/netradio/internal/models"
)

// EventKind discriminates backend events.
type EventKind int

const (
	// TagEvent carries one key/value pair describing the stream.
	TagEvent EventKind = iota
	// EndOfStream signals that the source has no more data.
	EndOfStream
	// StreamError signals a backend failure; Err holds the cause.
	StreamError
)

// Event is an asynchronous notification from a backend. URI identifies the
// source that produced the event so consumers can discard stale events left
// in flight from a source they have switched away from.
type Event struct {
	Kind  EventKind
	URI   string
	Key   string
	Value string
	Err   error
}

// Backend renders a single audio source. Implementations are not reusable
// across sources: the session tears one down and creates a fresh instance on
// every station change.
type Backend interface {
	// SetSource points the backend at an audio source. Malformed
	// addresses are rejected with models.ErrInvalidArgument.
	SetSource(uri string) error
	Play() error
	Stop()
	IsPlaying() bool
	// SetVolume accepts 0.0 through 1.0 and applies immediately.
	SetVolume(level float64)
	// Events returns the backend's event channel. The channel is closed
	// by Close after any in-flight delivery has finished.
	Events() <-chan Event
	Close()
}

// Factory creates a backend suitable for the given source address. The
// session calls it on every station change.
type Factory func(uri string) (Backend, error)

// DefaultFactory selects a backend by URI scheme: http/https sources get the
// ICY stream backend, file URIs and bare paths get the local-file backend.
func DefaultFactory(logger *log.Logger) Factory {
	return func(uri string) (Backend, error) {
		if strings.TrimSpace(uri) == "" {
			return nil, fmt.Errorf("%w: empty source uri", models.ErrInvalidArgument)
		}

		parsed, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed source uri %q", models.ErrInvalidArgument, uri)
		}

		switch parsed.Scheme {
		case "http", "https":
			return NewICY(logger), nil
		case "file", "":
			return NewFile(logger), nil
		default:
			return nil, fmt.Errorf("%w: unsupported source scheme %q", models.ErrInvalidArgument, parsed.Scheme)
		}
	}
}
