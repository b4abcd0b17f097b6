package backend

import (
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lemon-codes/netradio/internal/models"
)

func TestICYSetSourceRejectsBadURIs(t *testing.T) {
	b := NewICY(log.New(io.Discard, "", 0))
	defer b.Close()

	for _, uri := range []string{"not a uri at all\x7f", "ftp://example.com/stream", "http://"} {
		if err := b.SetSource(uri); !errors.Is(err, models.ErrInvalidArgument) {
			t.Fatalf("SetSource(%q) = %v; want ErrInvalidArgument", uri, err)
		}
	}
}

func TestICYPlayWithoutSource(t *testing.T) {
	b := NewICY(log.New(io.Discard, "", 0))
	defer b.Close()

	if err := b.Play(); !errors.Is(err, models.ErrIllegalState) {
		t.Fatalf("Play without source = %v; want ErrIllegalState", err)
	}
}

func TestICYPlayRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	b := NewICY(log.New(io.Discard, "", 0))
	defer b.Close()

	if err := b.SetSource(srv.URL); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := b.Play(); err == nil {
		t.Fatalf("expected Play to fail for status 404")
	}
	if b.IsPlaying() {
		t.Fatalf("expected backend not to be playing after failed connect")
	}
}

func TestICYPlayEmitsHeaderAndTitleEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Icy-MetaData") != "1" {
			t.Errorf("expected Icy-MetaData request header, got %q", r.Header.Get("Icy-MetaData"))
		}
		w.Header().Set("Icy-Name", "Test FM")
		w.Header().Set("Icy-Genre", "jazz")
		w.Header().Set("Icy-Br", "128")
		w.Header().Set("Icy-Metaint", "16")
		w.WriteHeader(http.StatusOK)

		w.Write(make([]byte, 16)) // audio segment
		w.Write(icyMetadataBlock(t, "StreamTitle='Night; and Day';"))
		// handler returns: the stream ends
	}))
	defer srv.Close()

	b := NewICY(log.New(io.Discard, "", 0))
	if err := b.SetSource(srv.URL); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !b.IsPlaying() {
		t.Fatalf("expected backend to be playing")
	}

	tags := make(map[string]string)
	sawEnd := false
	deadline := time.After(5 * time.Second)
	for !sawEnd {
		select {
		case ev := <-b.Events():
			if ev.URI != srv.URL {
				t.Fatalf("event carries uri %q, want %q", ev.URI, srv.URL)
			}
			switch ev.Kind {
			case TagEvent:
				tags[ev.Key] = ev.Value
			case EndOfStream:
				sawEnd = true
			case StreamError:
				t.Fatalf("unexpected stream error: %v", ev.Err)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for end of stream; tags so far: %v", tags)
		}
	}
	b.Close()

	want := map[string]string{
		"organisation": "Test FM",
		"genre":        "jazz",
		"bitrate":      "128",
		"title":        "Night; and Day",
	}
	for key, value := range want {
		if tags[key] != value {
			t.Fatalf("tag %q = %q, want %q (all: %v)", key, tags[key], value, tags)
		}
	}
}

func TestICYCloseClosesEventChannel(t *testing.T) {
	b := NewICY(log.New(io.Discard, "", 0))
	b.Close()

	if _, open := <-b.Events(); open {
		t.Fatalf("expected event channel to be closed")
	}
}

func TestICYCloseIsIdempotent(t *testing.T) {
	b := NewICY(log.New(io.Discard, "", 0))
	b.Close()
	b.Close()

	if _, open := <-b.Events(); open {
		t.Fatalf("expected event channel to be closed")
	}
}

// hungListener accepts TCP connections and never sends a byte, simulating a
// server that takes the connection but leaves the client waiting for headers.
func hungListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		for _, conn := range conns {
			conn.Close()
		}
		mu.Unlock()
	})
	return ln
}

func TestICYStopAbortsHungConnect(t *testing.T) {
	ln := hungListener(t)

	b := NewICY(log.New(io.Discard, "", 0))
	defer b.Close()

	if err := b.SetSource("http://" + ln.Addr().String() + "/stream"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}

	playDone := make(chan error, 1)
	go func() { playDone <- b.Play() }()

	time.Sleep(50 * time.Millisecond) // let the connect reach the socket
	b.Stop()

	select {
	case err := <-playDone:
		if err == nil {
			t.Fatalf("expected Play to fail once the connect was aborted")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Play still blocked 2s after Stop")
	}
	if b.IsPlaying() {
		t.Fatalf("expected backend not to be playing")
	}
}

// icyMetadataBlock encodes one in-band metadata block: a length byte counting
// 16-byte chunks followed by the NUL-padded payload.
func icyMetadataBlock(t *testing.T, payload string) []byte {
	t.Helper()
	chunks := (len(payload) + 15) / 16
	if chunks > 255 {
		t.Fatalf("metadata payload too long: %d bytes", len(payload))
	}
	block := make([]byte, 1+chunks*16)
	block[0] = byte(chunks)
	copy(block[1:], payload)
	return block
}

func TestParseMetadataBlock(t *testing.T) {
	cases := []struct {
		name  string
		block string
		want  map[string]string
	}{
		{
			name:  "title only",
			block: "StreamTitle='Artist - Song';\x00\x00\x00",
			want:  map[string]string{"StreamTitle": "Artist - Song"},
		},
		{
			name:  "title and url",
			block: "StreamTitle='Song';StreamUrl='http://example.com';",
			want:  map[string]string{"StreamTitle": "Song", "StreamUrl": "http://example.com"},
		},
		{
			name:  "semicolon inside title",
			block: "StreamTitle='One; Two';",
			want:  map[string]string{"StreamTitle": "One; Two"},
		},
		{
			name:  "empty title",
			block: "StreamTitle='';",
			want:  map[string]string{"StreamTitle": ""},
		},
		{
			name:  "garbage",
			block: "\x00\x00\x00\x00",
			want:  map[string]string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseMetadataBlock(tc.block)
			if len(got) != len(tc.want) {
				t.Fatalf("parsed %v, want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Fatalf("field %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}
