package backend

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/lemon-codes/netradio/internal/metadata"
	"github.com/lemon-codes/netradio/internal/models"
)

// File renders a local audio file. Embedded tags and the derived MP3 bitrate
// are surfaced through the same tag-event pipeline as network streams, so the
// session treats both source kinds identically.
type File struct {
	logger *log.Logger
	events chan Event

	mu      sync.Mutex
	uri     string
	path    string
	playing bool
	volume  float64

	closeOnce sync.Once
}

// NewFile returns a backend with no source set.
func NewFile(logger *log.Logger) *File {
	if logger == nil {
		logger = log.Default()
	}
	return &File{
		logger: logger,
		events: make(chan Event, icyEventBuffer),
		volume: 1.0,
	}
}

// SetSource accepts a file:// URI or a bare filesystem path to an existing
// regular file.
func (b *File) SetSource(uri string) error {
	path := uri
	if parsed, err := url.Parse(uri); err == nil && parsed.Scheme == "file" {
		path = parsed.Path
		if parsed.Host != "" && parsed.Host != "localhost" {
			return fmt.Errorf("%w: file uri %q names a remote host", models.ErrInvalidArgument, uri)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: source file %q: %v", models.ErrInvalidArgument, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: source %q is a directory", models.ErrInvalidArgument, path)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.uri = uri
	b.path = path
	return nil
}

// Play probes the file and emits its tags.
func (b *File) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.playing {
		return nil
	}
	if b.path == "" {
		return fmt.Errorf("%w: no source set", models.ErrIllegalState)
	}

	tags, err := metadata.ProbeFile(b.path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", b.path, err)
	}

	b.emit(Event{Kind: TagEvent, URI: b.uri, Key: "title", Value: tags.Title})
	if tags.Artist != "" {
		b.emit(Event{Kind: TagEvent, URI: b.uri, Key: "organisation", Value: tags.Artist})
	}
	if tags.Genre != "" {
		b.emit(Event{Kind: TagEvent, URI: b.uri, Key: "genre", Value: tags.Genre})
	}
	if tags.Encoder != "" {
		b.emit(Event{Kind: TagEvent, URI: b.uri, Key: "encoder", Value: tags.Encoder})
	}
	if tags.BitrateKbps > 0 {
		b.emit(Event{Kind: TagEvent, URI: b.uri, Key: "bitrate", Value: strconv.Itoa(tags.BitrateKbps)})
	}
	if ext := strings.TrimPrefix(filepath.Ext(b.path), "."); ext != "" {
		b.emit(Event{Kind: TagEvent, URI: b.uri, Key: "container-format", Value: strings.ToLower(ext)})
	}

	b.playing = true
	return nil
}

// Stop ends playback. Safe to call when not playing.
func (b *File) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
}

// IsPlaying reports whether the file is the active source.
func (b *File) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

// SetVolume records the playback volume for the render stage.
func (b *File) SetVolume(level float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = level
}

// Events returns the backend's event channel.
func (b *File) Events() <-chan Event {
	return b.events
}

// Close stops playback and closes the event channel.
func (b *File) Close() {
	b.Stop()
	b.closeOnce.Do(func() { close(b.events) })
}

func (b *File) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Printf("dropping backend event %v for %s: consumer not keeping up", ev.Kind, ev.URI)
	}
}
