package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"headphones/internal/snatch"
	"headphones/internal/testsupport"
)

const letItBeYAML = `artist:
  id: b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d
  name: The Beatles
album:
  id: 8a3f6b2e-let-it-be
  title: Let It Be
  release_date: "1970-05-08"
  type: Album
tracks:
  - title: Two of Us
    duration: 3m36s
  - title: Dig a Pony
    duration: 3m54s
---
artist:
  id: 0383dadf-2a4e-4d10-a46a-e9e041da8eb3
  name: Queen
album:
  id: 6defd963-fe91-4550-b18e-82c685603c2b
  title: A Night at the Opera
  status: Skipped
tracks:
  - title: Death on Two Legs
    number: 1
  - title: Lazing on a Sunday Afternoon
    number: 2
    disc: 1
`

func TestDecodeReleases(t *testing.T) {
	releases, err := decodeReleases(strings.NewReader(letItBeYAML))
	if err != nil {
		t.Fatalf("decodeReleases: %v", err)
	}
	if len(releases) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(releases))
	}
	first := releases[0]
	if first.Album.Status != snatch.AlbumWanted {
		t.Fatalf("expected default Wanted status, got %s", first.Album.Status)
	}
	if first.Album.Year() != "1970" {
		t.Fatalf("unexpected year %q", first.Album.Year())
	}
	if len(first.Tracks) != 2 || first.Tracks[1].Number != 2 || first.Tracks[1].Disc != 1 {
		t.Fatalf("unexpected tracks %+v", first.Tracks)
	}
	if first.Tracks[0].DurationMS != (3*time.Minute + 36*time.Second).Milliseconds() {
		t.Fatalf("unexpected duration %d", first.Tracks[0].DurationMS)
	}
	if first.Tracks[0].ID != "8a3f6b2e-let-it-be-1-01" {
		t.Fatalf("unexpected generated track id %q", first.Tracks[0].ID)
	}
	if releases[1].Album.Status != snatch.AlbumSkipped {
		t.Fatalf("expected Skipped status, got %s", releases[1].Album.Status)
	}
}

func TestDecodeReleasesRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"missing tracks": "artist: {id: a, name: A}\nalbum: {id: b, title: B}\n",
		"missing artist": "album: {id: b, title: B}\ntracks: [{title: T}]\n",
		"bad status":     "artist: {id: a, name: A}\nalbum: {id: b, title: B, status: Lost}\ntracks: [{title: T}]\n",
		"bad artwork":    "artist: {id: a, name: A}\nalbum: {id: b, title: B, artwork_url: 'not a url'}\ntracks: [{title: T}]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeReleases(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected %s to fail", name)
			}
		})
	}
}

func TestAlbumCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLIWithInput(t, []string{"album", "add", "-"}, env.configPath, strings.NewReader(letItBeYAML))
	if err != nil {
		t.Fatalf("album add: %v", err)
	}
	requireContains(t, out, "Added The Beatles - Let It Be (2 tracks, Wanted)")
	requireContains(t, out, "Added Queen - A Night at the Opera")

	out, _, err = runCLI(t, []string{"album", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("album list: %v", err)
	}
	requireContains(t, out, "Let It Be")
	if strings.Contains(out, "A Night at the Opera") {
		t.Fatalf("skipped album listed as wanted: %q", out)
	}

	out, _, err = runCLI(t, []string{"album", "want", "Queen - A Night at the Opera"}, env.configPath)
	if err != nil {
		t.Fatalf("album want: %v", err)
	}
	requireContains(t, out, "is now Wanted")

	out, _, err = runCLI(t, []string{"album", "skip", "8a3f6b2e-let-it-be"}, env.configPath)
	if err != nil {
		t.Fatalf("album skip: %v", err)
	}
	requireContains(t, out, "is now Skipped")

	store := testsupport.MustOpenStore(t, env.cfg)
	album, err := store.Album(context.Background(), "8a3f6b2e-let-it-be")
	if err != nil || album == nil {
		t.Fatalf("store.Album: %v %v", album, err)
	}
	if album.Status != snatch.AlbumSkipped {
		t.Fatalf("expected Skipped, got %s", album.Status)
	}

	if _, _, err := runCLI(t, []string{"album", "list", "--status", "Lost"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}
