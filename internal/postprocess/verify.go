package postprocess

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"headphones/internal/logging"
	"headphones/internal/snatch"
	"headphones/internal/tags"
	"headphones/internal/textutil"
)

// Match names the verification test that accepted a folder.
type Match string

const (
	MatchNone     Match = ""
	MatchMetadata Match = "metadata"
	MatchFilename Match = "filename"
	MatchDuration Match = "duration"
)

// MaxDurationDelta is the largest accepted difference between the expected
// and downloaded album length.
const MaxDurationDelta = 240 * time.Second

// Download is the content of a download folder.
type Download struct {
	Dir string
	// Media lists audio files in walk order.
	Media []string
	// CueCount counts .cue sheets.
	CueCount int
	// Partial is set when an unfinished .part file is present.
	Partial bool
}

// ScanDownload walks dir and classifies its files.
func ScanDownload(dir string) (Download, error) {
	d := Download{Dir: dir}
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		name := strings.ToLower(entry.Name())
		switch {
		case tags.IsMedia(name):
			d.Media = append(d.Media, path)
		case strings.HasSuffix(name, ".cue"):
			d.CueCount++
		case strings.HasSuffix(name, ".part"):
			d.Partial = true
		}
		return nil
	})
	sort.Strings(d.Media)
	return d, err
}

// Verifier decides whether downloaded files belong to a release.
type Verifier struct {
	reader tags.Reader
	logger *slog.Logger
}

// NewVerifier builds a verifier reading tags with reader.
func NewVerifier(reader tags.Reader, logger *slog.Logger) *Verifier {
	return &Verifier{reader: reader, logger: logging.NewComponentLogger(logger, "verifier")}
}

// Verify runs the metadata, filename and duration tests in order and
// returns the first that passes, or MatchNone. A file that cannot be read is
// skipped by the test reading it.
func (v *Verifier) Verify(ctx context.Context, release snatch.Release, files []string) Match {
	logger := logging.WithContext(ctx, v.logger)
	infos := make(map[string]tags.Info, len(files))
	failed := make(map[string]bool)
	read := func(path string) (tags.Info, bool) {
		if info, ok := infos[path]; ok {
			return info, true
		}
		if failed[path] {
			return tags.Info{}, false
		}
		info, err := v.reader.Read(ctx, path)
		if err != nil {
			logger.Debug("tag read failed", logging.String("file", filepath.Base(path)), logging.Error(err))
			failed[path] = true
			return tags.Info{}, false
		}
		infos[path] = info
		return info, true
	}

	result := MatchNone
	switch {
	case v.metadataMatch(release, files, read):
		result = MatchMetadata
	case v.filenameMatch(release, files):
		result = MatchFilename
	case v.durationMatch(release, files, read, logger):
		result = MatchDuration
	}

	reason := string(result)
	if result == MatchNone {
		reason = "no_test_passed"
	}
	logging.Decision(logger, "folder verification decision", "folder_verification", result != MatchNone, reason,
		logging.String("artist", release.Album.ArtistName),
		logging.String("album", release.Album.Title),
		logging.Int("files", len(files)),
		logging.Int("tracks", len(release.Tracks)),
	)
	return result
}

func (v *Verifier) metadataMatch(release snatch.Release, files []string, read func(string) (tags.Info, bool)) bool {
	for _, path := range files {
		info, ok := read(path)
		if !ok || info.Album == "" {
			continue
		}
		if !textutil.EqualFold(info.Album, release.Album.Title) {
			continue
		}
		if textutil.EqualFold(info.Artist, release.Album.ArtistName) ||
			textutil.EqualFold(info.AlbumArtist, release.Album.ArtistName) {
			return true
		}
	}
	return false
}

func (v *Verifier) filenameMatch(release snatch.Release, files []string) bool {
	for _, path := range files {
		base := filepath.Base(path)
		name := textutil.FilenameKey(strings.TrimSuffix(base, filepath.Ext(base)))
		for _, track := range release.Tracks {
			title := textutil.FilenameKey(track.Title)
			if title == "" {
				continue
			}
			if strings.Contains(name, title) {
				return true
			}
		}
	}
	return false
}

func (v *Verifier) durationMatch(release snatch.Release, files []string, read func(string) (tags.Info, bool), logger *slog.Logger) bool {
	if len(files) == 0 || len(files) != len(release.Tracks) {
		return false
	}
	var expected time.Duration
	for _, track := range release.Tracks {
		if track.DurationMS <= 0 {
			return false
		}
		expected += time.Duration(track.DurationMS) * time.Millisecond
	}
	var downloaded time.Duration
	for _, path := range files {
		info, ok := read(path)
		if !ok || info.Duration <= 0 {
			return false
		}
		downloaded += info.Duration
	}
	delta := downloaded - expected
	if delta < 0 {
		delta = -delta
	}
	logger.Debug("album length compared",
		logging.Duration("expected", expected),
		logging.Duration("downloaded", downloaded),
		logging.Duration("delta", delta),
	)
	return delta < MaxDurationDelta
}
