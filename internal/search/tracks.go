package search

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/anacrolix/torrent/metainfo"

	"headphones/internal/tags"
)

// bonusWords mark releases that may carry extra tracks.
var bonusWords = []string{"deluxe", "edition", "japanese", "release"}

// CountTorrentTracks counts audio files listed in a .torrent payload. A
// single-file torrent reports 0 since its track count cannot be told.
func CountTorrentTracks(payload []byte) (int, error) {
	mi, err := metainfo.Load(bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("parse torrent: %w", err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return 0, fmt.Errorf("parse torrent info: %w", err)
	}
	if len(info.Files) == 0 {
		return 0, nil
	}
	count := 0
	for _, file := range info.Files {
		if tags.IsMedia(path.Join(file.Path...)) {
			count++
		}
	}
	return count, nil
}

// TorrentName returns the top-level name of a .torrent payload, which is
// the folder the download client creates.
func TorrentName(payload []byte) (string, error) {
	mi, err := metainfo.Load(bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("parse torrent: %w", err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return "", fmt.Errorf("parse torrent info: %w", err)
	}
	return info.Name, nil
}

// checkTrackCount applies the track count heuristic. An unknown count on
// either side passes.
func checkTrackCount(title string, got, expected int) (bool, string) {
	if got <= 0 || expected <= 0 {
		return true, "track_count_unknown"
	}
	switch {
	case got == expected:
		return true, "track_count_equal"
	case got > expected:
		if _, ok := containsAnyFold(title, bonusWords); ok {
			return true, "track_count_bonus_edition"
		}
		return false, "track_count_extra"
	default:
		return false, "track_count_missing"
	}
}

func isMagnet(url string) bool {
	return strings.HasPrefix(strings.ToLower(url), "magnet:")
}
