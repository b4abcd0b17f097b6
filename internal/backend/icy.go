package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lemon-codes/netradio/internal/models"
)

// ICY streams an HTTP audio source and surfaces stream metadata as tag
// events. Greeting headers (icy-name, icy-genre, icy-br, icy-url,
// icy-description) are translated on connect; in-band metadata blocks
// announced via icy-metaint provide title updates while playing. The audio
// payload itself is discarded: decoding is delegated elsewhere.
type ICY struct {
	logger *log.Logger
	client *http.Client
	events chan Event

	mu      sync.Mutex
	uri     string
	playing bool
	volume  float64
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	closeOnce sync.Once
}

const (
	icyEventBuffer   = 32
	icyDialTimeout   = 10 * time.Second
	icyHeaderTimeout = 15 * time.Second
)

// NewICY returns a backend with no source set.
func NewICY(logger *log.Logger) *ICY {
	if logger == nil {
		logger = log.Default()
	}
	return &ICY{
		logger: logger,
		client: &http.Client{
			Transport: &http.Transport{
				DisableCompression:    true,
				DialContext:           (&net.Dialer{Timeout: icyDialTimeout}).DialContext,
				TLSHandshakeTimeout:   icyDialTimeout,
				ResponseHeaderTimeout: icyHeaderTimeout,
			},
			Timeout: 0, // the body streams for the life of the playback
		},
		events: make(chan Event, icyEventBuffer),
		volume: 1.0,
	}
}

// SetSource validates and records the stream address. The connection is not
// opened until Play.
func (b *ICY) SetSource(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%w: malformed source uri %q", models.ErrInvalidArgument, uri)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: expected http(s) uri, got %q", models.ErrInvalidArgument, uri)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: source uri %q has no host", models.ErrInvalidArgument, uri)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.uri = uri
	return nil
}

// Play connects to the stream and starts the pump goroutine. The connect
// happens outside the mutex; Stop and Close stay responsive during it and
// abort it through the request context.
func (b *ICY) Play() error {
	b.mu.Lock()
	if b.playing || b.cancel != nil {
		b.mu.Unlock()
		return nil
	}
	if b.uri == "" {
		b.mu.Unlock()
		return fmt.Errorf("%w: no source set", models.ErrIllegalState)
	}
	uri := b.uri
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.mu.Unlock()

	resp, err := b.connect(ctx, uri)
	if err != nil {
		b.mu.Lock()
		b.cancel = nil
		b.mu.Unlock()
		cancel()
		return err
	}

	b.mu.Lock()
	if ctx.Err() != nil { // stopped while connecting
		b.mu.Unlock()
		resp.Body.Close()
		return fmt.Errorf("connect %s: %w", uri, ctx.Err())
	}
	b.playing = true
	b.wg.Add(1)
	b.mu.Unlock()

	b.emitHeaderTags(resp, uri)

	metaInt, _ := strconv.Atoi(resp.Header.Get("Icy-Metaint"))
	go b.pump(ctx, resp.Body, metaInt)

	return nil
}

func (b *ICY) connect(ctx context.Context, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	req.Header.Set("Icy-MetaData", "1")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("connect %s: unexpected status %d", uri, resp.StatusCode)
	}
	return resp, nil
}

// Stop closes the stream connection. Safe to call when not playing.
func (b *ICY) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *ICY) stopLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.playing = false
}

// IsPlaying reports whether the stream is currently being read.
func (b *ICY) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

// SetVolume records the playback volume for the render stage.
func (b *ICY) SetVolume(level float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = level
}

// Events returns the backend's event channel.
func (b *ICY) Events() <-chan Event {
	return b.events
}

// Close stops the stream and closes the event channel once in-flight
// deliveries have finished. Safe to call more than once.
func (b *ICY) Close() {
	b.mu.Lock()
	b.stopLocked()
	b.mu.Unlock()

	b.closeOnce.Do(func() {
		b.wg.Wait()
		close(b.events)
	})
}

// emitHeaderTags translates the ICY greeting headers into tag events.
func (b *ICY) emitHeaderTags(resp *http.Response, uri string) {
	headerTags := []struct {
		header, key string
	}{
		{"Icy-Name", "organisation"},
		{"Icy-Genre", "genre"},
		{"Icy-Url", "homepage"},
		{"Icy-Description", "extended-comment"},
		{"Content-Type", "container-format"},
	}
	for _, ht := range headerTags {
		if v := strings.TrimSpace(resp.Header.Get(ht.header)); v != "" {
			b.emit(Event{Kind: TagEvent, URI: uri, Key: ht.key, Value: v})
		}
	}
	if br := strings.TrimSpace(resp.Header.Get("Icy-Br")); br != "" {
		b.emit(Event{Kind: TagEvent, URI: uri, Key: "bitrate", Value: br})
	}
}

// pump reads the stream, extracting metadata blocks every metaInt audio bytes
// when the server announced in-band metadata, and discarding the audio.
func (b *ICY) pump(ctx context.Context, body io.ReadCloser, metaInt int) {
	defer b.wg.Done()
	defer body.Close()

	b.mu.Lock()
	uri := b.uri
	b.mu.Unlock()

	reader := bufio.NewReaderSize(body, 32*1024)
	for {
		var err error
		if metaInt > 0 {
			err = b.nextMetadataBlock(reader, metaInt, uri)
		} else {
			_, err = io.CopyN(io.Discard, reader, 8192)
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return // stopped by the consumer; not a stream condition
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			b.emit(Event{Kind: EndOfStream, URI: uri})
		} else {
			b.emit(Event{Kind: StreamError, URI: uri, Err: err})
		}
		return
	}
}

// nextMetadataBlock skips one audio segment, then reads and parses the
// metadata block that follows it. Zero-length blocks mean "no update" and
// produce no events.
func (b *ICY) nextMetadataBlock(reader *bufio.Reader, metaInt int, uri string) error {
	if _, err := io.CopyN(io.Discard, reader, int64(metaInt)); err != nil {
		return err
	}

	length, err := reader.ReadByte()
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}

	block := make([]byte, int(length)*16)
	if _, err := io.ReadFull(reader, block); err != nil {
		return err
	}

	fields := parseMetadataBlock(string(block))
	if len(fields) == 0 {
		return nil
	}

	// A block without StreamTitle means the title has expired; reset it
	// rather than leaving the previous track name stale.
	b.emit(Event{Kind: TagEvent, URI: uri, Key: "title", Value: fields["StreamTitle"]})
	if streamURL := fields["StreamUrl"]; streamURL != "" {
		b.emit(Event{Kind: TagEvent, URI: uri, Key: "homepage", Value: streamURL})
	}
	return nil
}

// parseMetadataBlock decodes the "key='value';" pairs of an ICY metadata
// block, ignoring the NUL padding at the end. Splitting on the closing
// quote-semicolon pair keeps semicolons inside quoted values intact.
func parseMetadataBlock(block string) map[string]string {
	block = strings.TrimRight(block, "\x00")
	fields := make(map[string]string)
	for _, part := range strings.Split(block, "';") {
		key, value, ok := strings.Cut(part, "='")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSuffix(value, "'")
		if key != "" {
			fields[key] = value
		}
	}
	return fields
}

// emit delivers an event without blocking the pump; if the consumer has
// fallen this far behind, the newest event is dropped and logged.
func (b *ICY) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Printf("dropping backend event %v for %s: consumer not keeping up", ev.Kind, ev.URI)
	}
}
