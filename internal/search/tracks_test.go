package search_test

import (
	"bytes"
	"testing"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"

	"headphones/internal/search"
)

// torrentPayload builds a multi-file .torrent with one 1 KiB file per name.
func torrentPayload(t testing.TB, name string, files ...string) []byte {
	t.Helper()

	info := metainfo.Info{
		Name:        name,
		PieceLength: 1 << 18,
		Pieces:      make([]byte, 20),
	}
	for _, f := range files {
		info.Files = append(info.Files, metainfo.FileInfo{Length: 1024, Path: []string{f}})
	}
	infoBytes, err := bencode.Marshal(info)
	if err != nil {
		t.Fatalf("marshal info: %v", err)
	}
	mi := metainfo.MetaInfo{InfoBytes: infoBytes, Announce: "http://tracker.invalid/announce"}
	var buf bytes.Buffer
	if err := mi.Write(&buf); err != nil {
		t.Fatalf("write metainfo: %v", err)
	}
	return buf.Bytes()
}

// singleFilePayload builds a .torrent carrying one file at its top level.
func singleFilePayload(t testing.TB, name string) []byte {
	t.Helper()

	info := metainfo.Info{Name: name, Length: 4096, PieceLength: 1 << 18, Pieces: make([]byte, 20)}
	infoBytes, err := bencode.Marshal(info)
	if err != nil {
		t.Fatalf("marshal info: %v", err)
	}
	mi := metainfo.MetaInfo{InfoBytes: infoBytes, Announce: "http://tracker.invalid/announce"}
	var buf bytes.Buffer
	if err := mi.Write(&buf); err != nil {
		t.Fatalf("write metainfo: %v", err)
	}
	return buf.Bytes()
}

func trackNames(n int, ext string) []string {
	names := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		names = append(names, string(rune('a'+i-1))+"."+ext)
	}
	return names
}

func TestCountTorrentTracksCountsAudioOnly(t *testing.T) {
	files := append(trackNames(12, "mp3"), "cover.jpg", "info.nfo", "rip.log")
	payload := torrentPayload(t, "Artist - Album (2001)", files...)

	count, err := search.CountTorrentTracks(payload)
	if err != nil {
		t.Fatalf("CountTorrentTracks: %v", err)
	}
	if count != 12 {
		t.Fatalf("count = %d, want 12", count)
	}

	name, err := search.TorrentName(payload)
	if err != nil {
		t.Fatalf("TorrentName: %v", err)
	}
	if name != "Artist - Album (2001)" {
		t.Fatalf("name = %q", name)
	}
}

func TestCountTorrentTracksMixedFormats(t *testing.T) {
	files := append(trackNames(3, "flac"), "d.FLAC", "e.m4a", "playlist.m3u", "album.cue")
	count, err := search.CountTorrentTracks(torrentPayload(t, "mixed", files...))
	if err != nil {
		t.Fatalf("CountTorrentTracks: %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}

func TestCountTorrentTracksSingleFileIsUnknown(t *testing.T) {
	count, err := search.CountTorrentTracks(singleFilePayload(t, "Artist - Album.flac"))
	if err != nil {
		t.Fatalf("CountTorrentTracks: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestCountTorrentTracksRejectsGarbage(t *testing.T) {
	if _, err := search.CountTorrentTracks([]byte("<html>not a torrent</html>")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := search.TorrentName(nil); err == nil {
		t.Fatal("expected parse error for empty payload")
	}
}
