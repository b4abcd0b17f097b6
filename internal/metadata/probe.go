package metadata

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// FileTags holds metadata probed from a local audio file.
type FileTags struct {
	Title       string
	Artist      string
	Genre       string
	Encoder     string
	BitrateKbps int // 0 when unknown
}

// ProbeFile reads embedded tags from a local audio file and, for MP3 files,
// derives the average bitrate from the frame durations. Files without tags
// fall back to the file name as title.
func ProbeFile(path string) (FileTags, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileTags{}, err
	}

	var tags FileTags
	if f, err := os.Open(path); err == nil {
		if meta, err := tag.ReadFrom(f); err == nil {
			tags.Title = strings.TrimSpace(meta.Title())
			tags.Artist = strings.TrimSpace(meta.Artist())
			tags.Genre = strings.TrimSpace(meta.Genre())
			if raw := meta.Raw(); raw != nil {
				if enc, ok := raw["TSSE"].(string); ok {
					tags.Encoder = strings.TrimSpace(enc)
				}
			}
		}
		f.Close()
	}

	if tags.Title == "" {
		tags.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if dur, err := computeMP3Duration(path); err == nil && dur > 0 {
			bitrate := int(math.Round((float64(info.Size()) * 8) / dur / 1000))
			if bitrate > 0 {
				tags.BitrateKbps = bitrate
			}
		}
	}

	return tags, nil
}

func computeMP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
