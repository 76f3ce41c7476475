package postprocess_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"headphones/internal/config"
	"headphones/internal/notifications"
	"headphones/internal/postprocess"
	"headphones/internal/snatch"
	"headphones/internal/tags"
	"headphones/internal/testsupport"
)

type recordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingNotifier) last() notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}

type fakeArt struct {
	data  []byte
	calls int
}

func (f *fakeArt) Fetch(context.Context, snatch.Album, string) ([]byte, error) {
	f.calls++
	if f.data == nil {
		return nil, errors.New("no art")
	}
	return f.data, nil
}

type fakeEncoder struct {
	err   error
	calls int
}

func (f *fakeEncoder) EncodeFolder(_ context.Context, dir string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	download, err := postprocess.ScanDownload(dir)
	return download.Media, err
}

type fakeLyrics map[string]string

func (f fakeLyrics) Lyrics(_ context.Context, _, _, title string) (string, error) {
	return f[title], nil
}

type harness struct {
	settings config.Settings
	store    *snatch.Store
	base     string
	art      *fakeArt
	encoder  *fakeEncoder
	notifier *recordingNotifier
	proc     *postprocess.Processor
	release  snatch.Release
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		settings: testsupport.Settings(t, cfg),
		store:    testsupport.MustOpenStore(t, cfg),
		base:     testsupport.BaseDir(cfg),
		art:      &fakeArt{data: bytes.Repeat([]byte{0xFF, 0xD8, 0xFF}, 100)},
		encoder:  &fakeEncoder{},
		notifier: &recordingNotifier{},
		release:  testsupport.AbbeyRoad(),
	}
	testsupport.SeedRelease(t, h.store, h.release)
	h.proc = postprocess.NewProcessorWithDependencies(h.settings, h.store, nil, postprocess.Dependencies{
		Reader:   &tags.Reader{},
		Encoder:  h.encoder,
		Art:      h.art,
		Lyrics:   fakeLyrics{"Come Together": "Here come old flat-top"},
		Notifier: h.notifier,
	})
	return h
}

// download writes an album folder into the NZB download dir and records a
// snatch for it.
func (h *harness) download(t *testing.T, name string, release snatch.Release, opts testsupport.AlbumFolder) string {
	t.Helper()
	dir := filepath.Join(h.settings.Usenet.DownloadDir, name)
	testsupport.WriteAlbumFolder(t, dir, release, opts)
	testsupport.NewSnatch(t, h.store, h.release.Album.ID, name, snatch.KindNZB)
	return dir
}

func (h *harness) snatchStatus(t *testing.T) snatch.Status {
	t.Helper()
	recs, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("store.List: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("expected a snatch record")
	}
	return recs[0].Status
}

func (h *harness) albumStatus(t *testing.T) snatch.AlbumStatus {
	t.Helper()
	album, err := h.store.Album(context.Background(), h.release.Album.ID)
	if err != nil || album == nil {
		t.Fatalf("store.Album: %v", err)
	}
	return album.Status
}

func numberedNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "track" + string(rune('a'+i)) + ".mp3"
	}
	return names
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
