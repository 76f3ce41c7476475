package testsupport

import (
	"context"
	"testing"

	"headphones/internal/config"
	"headphones/internal/snatch"
)

// MustOpenStore opens a snatch.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *snatch.Store {
	t.Helper()

	store, err := snatch.Open(Settings(t, cfg))
	if err != nil {
		t.Fatalf("snatch.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRelease stores an artist, album and track list in the catalog.
func SeedRelease(t testing.TB, store *snatch.Store, release snatch.Release) {
	t.Helper()

	ctx := context.Background()
	artist := snatch.Artist{ID: release.Album.ArtistID, Name: release.Album.ArtistName}
	if err := store.UpsertArtist(ctx, artist); err != nil {
		t.Fatalf("store.UpsertArtist: %v", err)
	}
	if err := store.UpsertAlbum(ctx, release.Album); err != nil {
		t.Fatalf("store.UpsertAlbum: %v", err)
	}
	if err := store.ReplaceTracks(ctx, release.Album.ID, release.Tracks); err != nil {
		t.Fatalf("store.ReplaceTracks: %v", err)
	}
}

// NewSnatch records a snatch for tests using the provided store.
func NewSnatch(t testing.TB, store *snatch.Store, albumID, folder string, kind snatch.Kind) *snatch.Snatch {
	t.Helper()

	rec, err := store.Create(context.Background(), snatch.Snatch{
		AlbumID:    albumID,
		Title:      folder,
		Kind:       kind,
		FolderName: folder,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return rec
}
