package postprocess_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bogem/id3v2"

	"headphones/internal/notifications"
	"headphones/internal/postprocess"
	"headphones/internal/snatch"
	"headphones/internal/tags"
	"headphones/internal/testsupport"
)

func TestVerifyAbbeyRoadScenarios(t *testing.T) {
	wrong := testsupport.AbbeyRoad()
	wrong.Album.ArtistName = "Someone Else"
	wrong.Album.Title = "Another Album"
	for i := range wrong.Tracks {
		wrong.Tracks[i].DurationMS += 30000
	}

	tests := []struct {
		name        string
		release     func(h *harness) snatch.Release
		opts        testsupport.AlbumFolder
		wantOutcome postprocess.Outcome
		wantMatch   postprocess.Match
		wantSnatch  snatch.Status
	}{
		{
			name:        "tagged folder",
			release:     func(h *harness) snatch.Release { return h.release },
			wantOutcome: postprocess.OutcomeProcessed,
			wantMatch:   postprocess.MatchMetadata,
			wantSnatch:  snatch.StatusProcessed,
		},
		{
			name:        "stripped tags within duration",
			release:     func(h *harness) snatch.Release { return h.release },
			opts:        testsupport.AlbumFolder{StripTags: true, Names: numberedNames(17)},
			wantOutcome: postprocess.OutcomeProcessed,
			wantMatch:   postprocess.MatchDuration,
			wantSnatch:  snatch.StatusProcessed,
		},
		{
			name:        "wrong album",
			release:     func(*harness) snatch.Release { return wrong },
			opts:        testsupport.AlbumFolder{Names: numberedNames(17)},
			wantOutcome: postprocess.OutcomeUnprocessed,
			wantMatch:   postprocess.MatchNone,
			wantSnatch:  snatch.StatusUnprocessed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			dir := h.download(t, "Abbey Road", tt.release(h), tt.opts)

			result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{Kind: snatch.KindNZB})
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if result.Outcome != tt.wantOutcome || result.Match != tt.wantMatch {
				t.Fatalf("got outcome=%s match=%q, want %s %q", result.Outcome, result.Match, tt.wantOutcome, tt.wantMatch)
			}
			if got := h.snatchStatus(t); got != tt.wantSnatch {
				t.Fatalf("snatch status = %s, want %s", got, tt.wantSnatch)
			}

			if tt.wantOutcome == postprocess.OutcomeUnprocessed {
				if exists(dir) {
					t.Fatalf("expected %s to be renamed", dir)
				}
				if result.Folder != dir+" (Unprocessed)" || !exists(result.Folder) {
					t.Fatalf("unexpected renamed folder %q", result.Folder)
				}
				if h.albumStatus(t) == snatch.AlbumDownloaded {
					t.Fatal("album must not become Downloaded")
				}
				if h.notifier.last() != notifications.EventUnprocessed {
					t.Fatalf("expected unprocessed notification, got %v", h.notifier.events)
				}
				return
			}
			if h.albumStatus(t) != snatch.AlbumDownloaded {
				t.Fatalf("album status = %s, want Downloaded", h.albumStatus(t))
			}
			if h.notifier.last() != notifications.EventProcessed {
				t.Fatalf("expected processed notification, got %v", h.notifier.events)
			}
			tracks, err := h.store.Tracks(context.Background(), h.release.Album.ID)
			if err != nil {
				t.Fatalf("store.Tracks: %v", err)
			}
			if tracks[0].Location != dir {
				t.Fatalf("track location = %q, want %q", tracks[0].Location, dir)
			}
		})
	}
}

func TestVerifyFilenameMatch(t *testing.T) {
	h := newHarness(t)
	dir := h.download(t, "abbey", h.release, testsupport.AlbumFolder{StripTags: true, OmitDuration: true})

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Match != postprocess.MatchFilename {
		t.Fatalf("match = %q, want filename", result.Match)
	}
}

func TestVerifyDurationNeedsMatchingCount(t *testing.T) {
	h := newHarness(t)
	short := h.release
	short.Tracks = short.Tracks[:16]
	dir := h.download(t, "abbey", short, testsupport.AlbumFolder{StripTags: true, Names: numberedNames(16)})

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Outcome != postprocess.OutcomeUnprocessed {
		t.Fatalf("expected unprocessed when file count differs, got %s", result.Outcome)
	}
}

func TestVerifyUnprocessedSuffixes(t *testing.T) {
	h := newHarness(t)
	opts := testsupport.AlbumFolder{StripTags: true, OmitDuration: true, Names: numberedNames(17)}
	dir := h.download(t, "Mystery", h.release, opts)
	if err := os.MkdirAll(dir+" (Unprocessed)", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	want := dir + " (Unprocessed)[1]"
	if result.Folder != want || !exists(want) {
		t.Fatalf("folder = %q, want %q", result.Folder, want)
	}

	again, err := h.proc.Verify(context.Background(), h.release.Album.ID, want, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify again: %v", err)
	}
	if again.Folder != want || !exists(want) {
		t.Fatalf("already marked folder should stay put, got %q", again.Folder)
	}
}

func TestVerifyWaitsForPartialDownload(t *testing.T) {
	h := newHarness(t)
	dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{})
	testsupport.WriteFile(t, filepath.Join(dir, "18.mp3.part"), 10)

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Outcome != postprocess.OutcomeIncomplete {
		t.Fatalf("outcome = %s, want incomplete", result.Outcome)
	}
	if h.snatchStatus(t) != snatch.StatusSnatched {
		t.Fatalf("snatch status changed to %s", h.snatchStatus(t))
	}

	forced, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{Forced: true})
	if err != nil {
		t.Fatalf("forced Verify: %v", err)
	}
	if forced.Outcome != postprocess.OutcomeProcessed {
		t.Fatalf("forced outcome = %s, want processed", forced.Outcome)
	}
}

func TestVerifyUnknownAlbum(t *testing.T) {
	h := newHarness(t)
	_, err := h.proc.Verify(context.Background(), "missing", t.TempDir(), postprocess.Options{})
	if err == nil {
		t.Fatal("expected error for unknown album")
	}
}

func TestProcessRenameAndMove(t *testing.T) {
	h := newHarness(t,
		testsupport.WithOption("RENAME_FILES", true),
		testsupport.WithOption("MOVE_FILES", true),
		testsupport.WithOption("FOLDER_PERMISSIONS", "0750"),
		testsupport.WithOption("FILE_PERMISSIONS", "0640"),
	)
	dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{})
	testsupport.WriteFile(t, filepath.Join(dir, "release.nfo"), 20)

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	dest := filepath.Join(h.settings.PostProcess.DestinationDir, "The Beatles", "Abbey Road [1969]")
	if len(result.Destinations) != 1 || result.Destinations[0] != dest {
		t.Fatalf("destinations = %v, want [%s]", result.Destinations, dest)
	}
	if exists(dir) {
		t.Fatal("expected the download folder to be removed")
	}
	first := filepath.Join(dest, "01 The Beatles - Abbey Road [1969] - Come Together.mp3")
	info, err := os.Stat(first)
	if err != nil {
		t.Fatalf("expected renamed track: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("file mode = %v, want 0640", info.Mode().Perm())
	}
	if !exists(filepath.Join(dest, "release.nfo")) {
		t.Fatal("expected non-media files to move too")
	}
	dirInfo, err := os.Stat(dest)
	if err != nil || dirInfo.Mode().Perm() != 0o750 {
		t.Fatalf("folder mode = %v (err %v), want 0750", dirInfo.Mode().Perm(), err)
	}

	tracks, err := h.store.Tracks(context.Background(), h.release.Album.ID)
	if err != nil {
		t.Fatalf("store.Tracks: %v", err)
	}
	if tracks[0].Location != dest {
		t.Fatalf("track location = %q, want %q", tracks[0].Location, dest)
	}
	artist, err := h.store.Artist(context.Background(), h.release.Album.ArtistID)
	if err != nil || artist == nil {
		t.Fatalf("store.Artist: %v", err)
	}
	if artist.HaveTracks != 17 {
		t.Fatalf("have tracks = %d, want 17", artist.HaveTracks)
	}
}

func TestProcessMoveExistingFolder(t *testing.T) {
	for _, replace := range []bool{false, true} {
		h := newHarness(t,
			testsupport.WithOption("MOVE_FILES", true),
			testsupport.WithOption("REPLACE_EXISTING_FOLDERS", replace),
		)
		existing := filepath.Join(h.settings.PostProcess.DestinationDir, "The Beatles", "Abbey Road [1969]")
		testsupport.WriteFile(t, filepath.Join(existing, "old.txt"), 5)
		dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{})

		result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		want := existing + "[1]"
		if replace {
			want = existing
			if exists(filepath.Join(existing, "old.txt")) {
				t.Fatal("expected the existing folder to be replaced")
			}
		} else if !exists(filepath.Join(existing, "old.txt")) {
			t.Fatal("expected the existing folder to be kept")
		}
		if result.Destinations[0] != want {
			t.Fatalf("replace=%v destination = %s, want %s", replace, result.Destinations[0], want)
		}
	}
}

func TestProcessSplitsLosslessDestination(t *testing.T) {
	h := newHarness(t, testsupport.WithOption("MOVE_FILES", true))
	lossless := filepath.Join(h.base, "lossless")
	h.settings.PostProcess.LosslessDestinationDir = lossless
	h.proc = postprocess.NewProcessorWithDependencies(h.settings, h.store, nil, postprocess.Dependencies{
		Reader: &tags.Reader{}, Encoder: h.encoder, Art: h.art, Notifier: h.notifier,
	})
	dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{})
	testsupport.WriteFLAC(t, filepath.Join(dir, "bonus.flac"), testsupport.TrackTags{Title: "Bonus"})
	testsupport.WriteFile(t, filepath.Join(dir, "cover.txt"), 10)

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	lossyDest := filepath.Join(h.settings.PostProcess.DestinationDir, "The Beatles", "Abbey Road [1969]")
	losslessDest := filepath.Join(lossless, "The Beatles", "Abbey Road [1969]")
	if len(result.Destinations) != 2 || result.Destinations[0] != lossyDest || result.Destinations[1] != losslessDest {
		t.Fatalf("destinations = %v", result.Destinations)
	}
	if !exists(filepath.Join(losslessDest, "bonus.flac")) || exists(filepath.Join(lossyDest, "bonus.flac")) {
		t.Fatal("expected flac only in the lossless destination")
	}
	if !exists(filepath.Join(lossyDest, "01 - Come Together.mp3")) {
		t.Fatal("expected mp3 in the lossy destination")
	}
	if !exists(filepath.Join(lossyDest, "cover.txt")) || !exists(filepath.Join(losslessDest, "cover.txt")) {
		t.Fatal("expected other files in both destinations")
	}
}

func TestProcessMarksTracksInEveryDestination(t *testing.T) {
	h := newHarness(t, testsupport.WithOption("MOVE_FILES", true))
	lossless := filepath.Join(h.base, "lossless")
	h.settings.PostProcess.LosslessDestinationDir = lossless
	h.proc = postprocess.NewProcessorWithDependencies(h.settings, h.store, nil, postprocess.Dependencies{
		Reader: &tags.Reader{}, Encoder: h.encoder, Art: h.art, Notifier: h.notifier,
	})
	lossy := h.release
	lossy.Tracks = h.release.Tracks[:16]
	dir := h.download(t, "Abbey Road", lossy, testsupport.AlbumFolder{})
	testsupport.WriteFLAC(t, filepath.Join(dir, "17 - Her Majesty.flac"), testsupport.TrackTags{
		Artist: "The Beatles", Album: "Abbey Road", Title: "Her Majesty", Track: 17,
	})

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(result.Destinations) != 2 {
		t.Fatalf("destinations = %v", result.Destinations)
	}
	tracks, err := h.store.Tracks(context.Background(), h.release.Album.ID)
	if err != nil {
		t.Fatalf("store.Tracks: %v", err)
	}
	if tracks[0].Location != result.Destinations[0] {
		t.Fatalf("first track location = %q, want %q", tracks[0].Location, result.Destinations[0])
	}
	if tracks[16].Location != result.Destinations[1] {
		t.Fatalf("lossless track location = %q, want %q", tracks[16].Location, result.Destinations[1])
	}
	artist, err := h.store.Artist(context.Background(), h.release.Album.ArtistID)
	if err != nil || artist == nil {
		t.Fatalf("store.Artist: %v", err)
	}
	if artist.HaveTracks != 17 {
		t.Fatalf("have tracks = %d, want 17", artist.HaveTracks)
	}
}

func TestProcessKeepOriginalFolderCopies(t *testing.T) {
	h := newHarness(t,
		testsupport.WithOption("MOVE_FILES", true),
		testsupport.WithOption("KEEP_ORIGINAL_FOLDER", true),
		testsupport.WithOption("MUSIC_ENCODER", true),
		testsupport.WithOption("RENAME_FILES", true),
	)
	dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{})

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{Kind: snatch.KindNZB})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Outcome != postprocess.OutcomeProcessed {
		t.Fatalf("outcome = %s", result.Outcome)
	}
	original, err := postprocess.ScanDownload(dir)
	if err != nil {
		t.Fatalf("ScanDownload original: %v", err)
	}
	if len(original.Media) != 17 || !exists(filepath.Join(dir, "01 - Come Together.mp3")) {
		t.Fatalf("expected the download folder untouched, got %v", original.Media)
	}
	if exists(filepath.Join(dir, "headphones-modified")) {
		t.Fatal("expected the working copy to be moved away")
	}
	library, err := postprocess.ScanDownload(result.Destinations[0])
	if err != nil {
		t.Fatalf("ScanDownload library: %v", err)
	}
	if len(library.Media) != 17 {
		t.Fatalf("library holds %d tracks, want 17", len(library.Media))
	}
	if h.encoder.calls != 1 {
		t.Fatalf("encoder calls = %d, want 1", h.encoder.calls)
	}
}

func TestProcessMoveAbortsWhenDestinationUnavailable(t *testing.T) {
	h := newHarness(t, testsupport.WithOption("MOVE_FILES", true))
	blocker := filepath.Join(h.base, "blocker")
	testsupport.WriteFile(t, blocker, 1)
	h.settings.PostProcess.DestinationDir = blocker
	h.proc = postprocess.NewProcessorWithDependencies(h.settings, h.store, nil, postprocess.Dependencies{
		Reader: &tags.Reader{}, Encoder: h.encoder, Art: h.art, Notifier: h.notifier,
	})
	dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{})

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !exists(filepath.Join(dir, "01 - Come Together.mp3")) {
		t.Fatal("expected files to stay in the download folder")
	}
	if result.Outcome != postprocess.OutcomeProcessed || result.Destinations[0] != dir {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestProcessArtworkAndCleanup(t *testing.T) {
	h := newHarness(t,
		testsupport.WithOption("EMBED_ALBUM_ART", true),
		testsupport.WithOption("ADD_ALBUM_ART", true),
		testsupport.WithOption("CLEANUP_FILES", true),
		testsupport.WithOption("ALBUM_ART_FORMAT", "$Artist - $album"),
	)
	dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{})
	testsupport.Tree(t, dir, map[string]string{
		"release.nfo":    "ripped by nobody",
		"scans/back.png": "not really a png",
	})

	if _, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{}); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if exists(filepath.Join(dir, "release.nfo")) || exists(filepath.Join(dir, "scans", "back.png")) {
		t.Fatal("expected non-media files removed")
	}
	if !exists(filepath.Join(dir, "The Beatles - abbey road.jpg")) {
		t.Fatal("expected album art written after cleanup")
	}
	tag, err := id3v2.Open(filepath.Join(dir, "01 - Come Together.mp3"), id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open tag: %v", err)
	}
	defer tag.Close()
	if pics := tag.GetFrames(tag.CommonID("Attached picture")); len(pics) != 1 {
		t.Fatalf("expected one embedded picture, got %d", len(pics))
	}
	if h.art.calls != 1 {
		t.Fatalf("expected one art fetch, got %d", h.art.calls)
	}
}

func TestProcessCorrectsMetadataAndLyrics(t *testing.T) {
	h := newHarness(t,
		testsupport.WithOption("CORRECT_METADATA", true),
		testsupport.WithOption("EMBED_LYRICS", true),
	)
	dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{StripTags: true})

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Match != postprocess.MatchFilename {
		t.Fatalf("match = %q, want filename", result.Match)
	}
	path := filepath.Join(dir, "01 - Come Together.mp3")
	info, err := tags.Reader{}.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.Artist != "The Beatles" || info.Album != "Abbey Road" || info.Title != "Come Together" || info.Year != "1969" {
		t.Fatalf("unexpected corrected tags %+v", info)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open tag: %v", err)
	}
	defer tag.Close()
	frames := tag.GetFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
	if len(frames) != 1 {
		t.Fatalf("expected lyrics frame, got %d", len(frames))
	}
	uslt, ok := frames[0].(id3v2.UnsynchronisedLyricsFrame)
	if !ok || !strings.Contains(uslt.Lyrics, "flat-top") {
		t.Fatalf("unexpected lyrics frame %#v", frames[0])
	}
}

func TestProcessEncoderFailureAborts(t *testing.T) {
	h := newHarness(t, testsupport.WithOption("MUSIC_ENCODER", true))
	h.encoder.err = errors.New("ffmpeg exploded")
	dir := h.download(t, "Abbey Road", h.release, testsupport.AlbumFolder{})

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{})
	if err == nil {
		t.Fatal("expected encoder error")
	}
	if result.Outcome != postprocess.OutcomeAborted {
		t.Fatalf("outcome = %s, want aborted", result.Outcome)
	}
	if h.snatchStatus(t) != snatch.StatusSnatched {
		t.Fatalf("snatch status = %s, want Snatched", h.snatchStatus(t))
	}
}

func TestProcessKeepsTorrentForSeeding(t *testing.T) {
	h := newHarness(t,
		testsupport.WithOption("KEEP_TORRENT_FILES", true),
		testsupport.WithOption("MOVE_FILES", true),
	)
	dir := filepath.Join(h.settings.Torrent.DownloadDir, "Abbey Road")
	testsupport.WriteAlbumFolder(t, dir, h.release, testsupport.AlbumFolder{})
	testsupport.NewSnatch(t, h.store, h.release.Album.ID, "Abbey Road", snatch.KindTorrent)

	result, err := h.proc.Verify(context.Background(), h.release.Album.ID, dir, postprocess.Options{Kind: snatch.KindTorrent})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Outcome != postprocess.OutcomeProcessed {
		t.Fatalf("outcome = %s", result.Outcome)
	}
	if !exists(filepath.Join(dir, "01 - Come Together.mp3")) {
		t.Fatal("expected the seeding copy to stay untouched")
	}
	if exists(filepath.Join(dir, "headphones-modified")) {
		t.Fatal("expected the working copy to be moved away")
	}
	if !exists(filepath.Join(result.Destinations[0], "01 - Come Together.mp3")) {
		t.Fatal("expected files in the library")
	}
}

func TestNewProcessorDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settings := testsupport.Settings(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)
	if p := postprocess.NewProcessor(settings, store, nil); p == nil {
		t.Fatal("expected processor")
	}
}
