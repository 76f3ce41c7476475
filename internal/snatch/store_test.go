package snatch_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"headphones/internal/snatch"
	"headphones/internal/testsupport"
)

func TestCreateMarksAlbumSnatched(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	release := testsupport.AbbeyRoad()
	testsupport.SeedRelease(t, store, release)

	ctx := context.Background()
	rec := testsupport.NewSnatch(t, store, release.Album.ID, "The Beatles - Abbey Road", snatch.KindTorrent)
	if rec.ID == 0 || rec.Status != snatch.StatusSnatched {
		t.Fatalf("unexpected snatch: %#v", rec)
	}

	album, err := store.Album(ctx, release.Album.ID)
	if err != nil {
		t.Fatalf("Album: %v", err)
	}
	if album == nil || album.Status != snatch.AlbumSnatched {
		t.Fatalf("expected album Snatched, got %#v", album)
	}

	found, err := store.FindByFolder(ctx, "the beatles - abbey road")
	if err != nil {
		t.Fatalf("FindByFolder: %v", err)
	}
	if found == nil || found.ID != rec.ID {
		t.Fatalf("expected case-insensitive folder match, got %#v", found)
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Create(ctx, snatch.Snatch{AlbumID: "a", Kind: "magnet"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := store.Create(ctx, snatch.Snatch{Kind: snatch.KindNZB}); err == nil {
		t.Fatal("expected error for missing album id")
	}
}

func TestSetStatusAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	release := testsupport.AbbeyRoad()
	testsupport.SeedRelease(t, store, release)

	ctx := context.Background()
	testsupport.NewSnatch(t, store, release.Album.ID, "Abbey Road", snatch.KindNZB)
	testsupport.NewSnatch(t, store, "other-album", "Let It Be", snatch.KindNZB)

	if err := store.SetStatus(ctx, release.Album.ID, snatch.StatusProcessed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetStatus(ctx, "missing", snatch.StatusProcessed); err == nil {
		t.Fatal("expected error when no snatch matches")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[snatch.StatusProcessed] != 1 || stats[snatch.StatusSnatched] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	removed, err := store.Clear(ctx, snatch.StatusProcessed, snatch.StatusSnatched)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 cleared, got %d", removed)
	}
	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != snatch.StatusSnatched {
		t.Fatalf("snatched record should survive clear: %#v", remaining)
	}
}

func TestReleaseRoundTripAndHaveTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	release := testsupport.AbbeyRoad()
	testsupport.SeedRelease(t, store, release)

	ctx := context.Background()
	loaded, err := store.Release(ctx, release.Album.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if loaded == nil || len(loaded.Tracks) != 17 {
		t.Fatalf("expected 17 tracks, got %#v", loaded)
	}
	if loaded.Tracks[16].Title != "Her Majesty" || loaded.Tracks[16].DurationMS != 23000 {
		t.Fatalf("unexpected last track: %#v", loaded.Tracks[16])
	}
	if loaded.Album.Year() != "1969" {
		t.Fatalf("expected year 1969, got %q", loaded.Album.Year())
	}

	locations := map[string]string{}
	for i, track := range release.Tracks {
		locations[track.ID] = "/music/The Beatles/Abbey Road"
		if i == 16 {
			locations[track.ID] = "/lossless/The Beatles/Abbey Road"
		}
	}
	delete(locations, release.Tracks[0].ID)
	if err := store.MarkTracksHave(ctx, release.Album.ID, locations); err != nil {
		t.Fatalf("MarkTracksHave: %v", err)
	}
	artist, err := store.Artist(ctx, release.Album.ArtistID)
	if err != nil {
		t.Fatalf("Artist: %v", err)
	}
	if artist.HaveTracks != 16 || artist.TotalTracks != 17 {
		t.Fatalf("unexpected counters: have=%d total=%d", artist.HaveTracks, artist.TotalTracks)
	}
	marked, err := store.Tracks(ctx, release.Album.ID)
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if marked[0].Location != "" || marked[16].Location != "/lossless/The Beatles/Abbey Road" {
		t.Fatalf("unexpected locations %q and %q", marked[0].Location, marked[16].Location)
	}
	if artist.SortName != "Beatles, The" {
		t.Fatalf("unexpected sort name %q", artist.SortName)
	}

	missing, err := store.Release(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil release, got %#v, %v", missing, err)
	}
}

func TestUpsertAlbumKeepsStatusWhenUnset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	release := testsupport.AbbeyRoad()
	testsupport.SeedRelease(t, store, release)

	ctx := context.Background()
	if err := store.SetAlbumStatus(ctx, release.Album.ID, snatch.AlbumDownloaded); err != nil {
		t.Fatalf("SetAlbumStatus: %v", err)
	}
	refresh := release.Album
	refresh.Status = ""
	refresh.Title = "Abbey Road (Remastered)"
	if err := store.UpsertAlbum(ctx, refresh); err != nil {
		t.Fatalf("UpsertAlbum: %v", err)
	}
	album, err := store.FindAlbum(ctx, "the beatles", "abbey road (remastered)")
	if err != nil {
		t.Fatalf("FindAlbum: %v", err)
	}
	if album == nil || album.Status != snatch.AlbumDownloaded {
		t.Fatalf("expected status preserved, got %#v", album)
	}

	downloaded, err := store.AlbumsByStatus(ctx, snatch.AlbumDownloaded)
	if err != nil {
		t.Fatalf("AlbumsByStatus: %v", err)
	}
	if len(downloaded) != 1 {
		t.Fatalf("expected one downloaded album, got %d", len(downloaded))
	}
}

func TestSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, snatch.DatabaseName)

	store, err := snatch.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec(`PRAGMA user_version = 99`); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := snatch.OpenPath(path); !errors.Is(err, snatch.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenUpgradesOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), snatch.DatabaseName)
	store, err := snatch.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec(`DROP INDEX idx_snatched_url; PRAGMA user_version = 1`); err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	db.Close()

	store, err = snatch.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	store.Close()

	db, err = sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var version, indexes int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type='index' AND name='idx_snatched_url'`).Scan(&indexes); err != nil {
		t.Fatalf("count indexes: %v", err)
	}
	if version != 2 || indexes != 1 {
		t.Fatalf("expected version 2 with url index, got version %d indexes %d", version, indexes)
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := snatch.ParseStatus(" unprocessed ")
	if !ok || status != snatch.StatusUnprocessed {
		t.Fatalf("unexpected parse: %q %v", status, ok)
	}
	if _, ok := snatch.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to fail")
	}
	album, ok := snatch.ParseAlbumStatus("WANTED")
	if !ok || album != snatch.AlbumWanted {
		t.Fatalf("unexpected album status parse: %q %v", album, ok)
	}
}

func TestSortName(t *testing.T) {
	cases := map[string]string{
		"The Beatles": "Beatles, The",
		"Theatres":    "Theatres",
		" Radiohead ": "Radiohead",
	}
	for in, want := range cases {
		if got := snatch.SortName(in); got != want {
			t.Fatalf("SortName(%q) = %q, want %q", in, got, want)
		}
	}
}
