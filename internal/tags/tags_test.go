package tags_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"
	"time"

	"github.com/bogem/id3v2"

	"headphones/internal/tags"
	"headphones/internal/testsupport"
)

func TestReadMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01 - Come Together.mp3")
	testsupport.WriteMP3(t, path, testsupport.TrackTags{
		Artist:   "The Beatles",
		Album:    "Abbey Road",
		Title:    "Come Together",
		Track:    1,
		Duration: 259 * time.Second,
	})

	info, err := tags.Reader{}.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.Artist != "The Beatles" || info.Album != "Abbey Road" || info.Title != "Come Together" {
		t.Fatalf("unexpected tags: %+v", info)
	}
	if info.Track != 1 {
		t.Fatalf("expected track 1, got %d", info.Track)
	}
	if info.Duration != 259*time.Second {
		t.Fatalf("expected 259s, got %s", info.Duration)
	}
}

func TestReadMP3WithoutDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	testsupport.WriteMP3(t, path, testsupport.TrackTags{Title: "Because"})

	info, err := tags.Reader{}.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.Duration != 0 {
		t.Fatalf("expected unknown duration, got %s", info.Duration)
	}
}

func TestReadFLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.flac")
	testsupport.WriteFLAC(t, path, testsupport.TrackTags{
		Artist:   "The Beatles",
		Album:    "Abbey Road",
		Title:    "Something",
		Track:    2,
		Duration: 182 * time.Second,
	})

	info, err := tags.Reader{}.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.Artist != "The Beatles" || info.Title != "Something" || info.Track != 2 {
		t.Fatalf("unexpected tags: %+v", info)
	}
	if info.Duration != 182*time.Second {
		t.Fatalf("expected 182s, got %s", info.Duration)
	}
}

func TestReadUnsupportedWithoutFFprobe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.ogg")
	testsupport.WriteFile(t, path, 16)

	_, err := tags.Reader{}.Read(context.Background(), path)
	if !errors.Is(err, tags.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestWriteFieldsMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	testsupport.WriteMP3(t, path, testsupport.TrackTags{Duration: 10 * time.Second})

	err := tags.WriteFields(path, tags.Fields{
		Artist: "The Beatles",
		Album:  "Abbey Road",
		Title:  "Sun King",
		Year:   "1969",
		Track:  10,
	})
	if err != nil {
		t.Fatalf("WriteFields: %v", err)
	}

	info, err := tags.Reader{}.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.Artist != "The Beatles" || info.Album != "Abbey Road" || info.Title != "Sun King" {
		t.Fatalf("fields not written: %+v", info)
	}
	if info.Year != "1969" || info.Track != 10 {
		t.Fatalf("year/track not written: %+v", info)
	}
	if info.Duration != 10*time.Second {
		t.Fatalf("duration frame lost: %s", info.Duration)
	}
}

func TestWriteFieldsFLACReplacesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.flac")
	testsupport.WriteFLAC(t, path, testsupport.TrackTags{Artist: "Beatles", Title: "Wrong", Duration: 5 * time.Second})

	if err := tags.WriteFields(path, tags.Fields{Artist: "The Beatles", Title: "Because"}); err != nil {
		t.Fatalf("WriteFields: %v", err)
	}
	info, err := tags.Reader{}.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.Artist != "The Beatles" || info.Title != "Because" {
		t.Fatalf("unexpected tags: %+v", info)
	}
	if info.Duration != 5*time.Second {
		t.Fatalf("streaminfo lost: %s", info.Duration)
	}
}

func TestEmbedArtAndLyricsMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	testsupport.WriteMP3(t, path, testsupport.TrackTags{Title: "Her Majesty"})

	cover := sampleJPEG(t)
	if err := tags.EmbedArt(path, cover); err != nil {
		t.Fatalf("EmbedArt: %v", err)
	}
	if err := tags.EmbedLyrics(path, "Her Majesty's a pretty nice girl"); err != nil {
		t.Fatalf("EmbedLyrics: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer tag.Close()
	pictures := tag.GetFrames(tag.CommonID("Attached picture"))
	if len(pictures) != 1 {
		t.Fatalf("expected one picture, got %d", len(pictures))
	}
	pic, ok := pictures[0].(id3v2.PictureFrame)
	if !ok || !bytes.Equal(pic.Picture, cover) {
		t.Fatalf("picture frame mismatch")
	}
	lyrics := tag.GetFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
	if len(lyrics) != 1 {
		t.Fatalf("expected one lyrics frame, got %d", len(lyrics))
	}
	if uslt, ok := lyrics[0].(id3v2.UnsynchronisedLyricsFrame); !ok || uslt.Lyrics != "Her Majesty's a pretty nice girl" {
		t.Fatalf("lyrics frame mismatch: %#v", lyrics[0])
	}
}

func TestWriteUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.wav")
	testsupport.WriteFile(t, path, 16)
	if err := tags.WriteFields(path, tags.Fields{Title: "x"}); !errors.Is(err, tags.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestMediaClassification(t *testing.T) {
	if !tags.IsMedia("/x/Track.FLAC") || !tags.IsLossless("a.flac") {
		t.Fatal("flac should be lossless media")
	}
	if tags.IsLossless("a.mp3") || !tags.IsMedia("a.mp3") {
		t.Fatal("mp3 should be lossy media")
	}
	if tags.IsMedia("cover.jpg") || tags.IsMedia("album.cue") {
		t.Fatal("non-audio files are not media")
	}
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
