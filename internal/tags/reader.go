package tags

import (
	"context"
	"fmt"
	"strings"

	"headphones/internal/media/ffprobe"
)

// Reader reads metadata, using ffprobe for formats without a native parser
// and for MP3 files that carry no TLEN frame.
type Reader struct {
	// FFprobe is the ffprobe binary. Empty disables the fallback.
	FFprobe string
}

// Read returns the metadata of one audio file.
func (r Reader) Read(ctx context.Context, path string) (Info, error) {
	switch formatOf(path) {
	case "mp3":
		info, err := readID3(path)
		if err != nil {
			return Info{}, err
		}
		if info.Duration <= 0 && r.FFprobe != "" {
			if probed, err := r.probe(ctx, path); err == nil {
				info.Duration = probed.Duration
			}
		}
		return info, nil
	case "flac":
		return readFLAC(path)
	default:
		if r.FFprobe == "" {
			return Info{}, fmt.Errorf("read %s: %w", path, ErrUnsupported)
		}
		return r.probe(ctx, path)
	}
}

func (r Reader) probe(ctx context.Context, path string) (Info, error) {
	result, err := ffprobe.Inspect(ctx, r.FFprobe, path)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Artist:      result.Tag("artist"),
		AlbumArtist: result.Tag("album_artist"),
		Album:       result.Tag("album"),
		Title:       result.Tag("title"),
		Track:       parseNumber(result.Tag("track")),
		Disc:        parseNumber(result.Tag("disc")),
		Year:        yearOf(result.Tag("date")),
		Format:      formatOf(path),
	}
	info.Duration = result.Duration
	return info, nil
}

func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) >= 4 {
		return date[:4]
	}
	return date
}
