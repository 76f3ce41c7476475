package tags

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupported is returned when a format has no native tag writer.
var ErrUnsupported = errors.New("unsupported audio format")

// MediaFormats lists the audio extensions treated as album tracks.
var MediaFormats = []string{"mp3", "flac", "aac", "m4a", "ogg", "opus", "wma", "alac", "ape", "wav", "aiff", "aif"}

// LosslessFormats lists extensions of lossless encodings.
var LosslessFormats = []string{"flac", "alac", "ape", "wav", "aiff", "aif"}

// IsMedia reports whether path has an audio extension.
func IsMedia(path string) bool {
	return hasExt(path, MediaFormats)
}

// IsLossless reports whether path has a lossless audio extension.
func IsLossless(path string) bool {
	return hasExt(path, LosslessFormats)
}

func hasExt(path string, exts []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, candidate := range exts {
		if ext == candidate {
			return true
		}
	}
	return false
}

// Info is the metadata read from one audio file. Duration is zero when it
// could not be determined.
type Info struct {
	Artist      string
	AlbumArtist string
	Album       string
	Title       string
	Year        string
	Track       int
	Disc        int
	Duration    time.Duration
	Format      string
}

// Fields are the values written when correcting metadata. Empty strings and
// zero numbers leave the existing value alone.
type Fields struct {
	Artist      string
	AlbumArtist string
	Album       string
	Title       string
	Year        string
	Track       int
	Disc        int
}

// parseNumber reads "3" or "3/17" style position values.
func parseNumber(value string) int {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, '/'); idx >= 0 {
		value = value[:idx]
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
