package testsupport

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bogem/id3v2"

	"headphones/internal/snatch"
)

// TrackTags describes the metadata written into a generated audio file.
// Zero values are skipped, so a zero TrackTags produces an untagged file.
type TrackTags struct {
	Artist   string
	Album    string
	Title    string
	Track    int
	Duration time.Duration
}

// silentFrame is an MPEG-1 Layer III frame header followed by padding.
var silentFrame = append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...)

// WriteMP3 writes a tiny MP3 with an ID3v2 tag. The duration is stored in a
// TLEN frame.
func WriteMP3(t testing.TB, path string, tags TrackTags) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, silentFrame, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open id3 %s: %v", path, err)
	}
	defer tag.Close()
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if tags.Album != "" {
		tag.SetAlbum(tags.Album)
	}
	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Track > 0 {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(tags.Track))
	}
	if tags.Duration > 0 {
		tag.AddTextFrame("TLEN", id3v2.EncodingUTF8, strconv.FormatInt(tags.Duration.Milliseconds(), 10))
	}
	if err := tag.Save(); err != nil {
		t.Fatalf("save id3 %s: %v", path, err)
	}
}

// WriteFLAC writes a FLAC header with a STREAMINFO block sized for the
// duration at 44.1kHz and a Vorbis comment block. No audio frames follow.
func WriteFLAC(t testing.TB, path string, tags TrackTags) {
	t.Helper()

	const rate = 44100
	samples := uint64(tags.Duration.Seconds() * rate)

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:], 4096)
	binary.BigEndian.PutUint16(info[2:], 4096)
	// sample rate (20 bits), channels-1 (3 bits), bits-1 (5 bits), samples (36 bits)
	packed := uint64(rate)<<44 | uint64(1)<<41 | uint64(15)<<36 | (samples & 0xFFFFFFFFF)
	binary.BigEndian.PutUint64(info[10:], packed)

	var comments []string
	add := func(key, value string) {
		if value != "" {
			comments = append(comments, key+"="+value)
		}
	}
	add("ARTIST", tags.Artist)
	add("ALBUM", tags.Album)
	add("TITLE", tags.Title)
	if tags.Track > 0 {
		add("TRACKNUMBER", strconv.Itoa(tags.Track))
	}
	vorbis := vorbisBlock("headphones test", comments)

	var data []byte
	data = append(data, "fLaC"...)
	data = append(data, blockHeader(0, false, len(info))...)
	data = append(data, info...)
	data = append(data, blockHeader(4, true, len(vorbis))...)
	data = append(data, vorbis...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func blockHeader(kind byte, last bool, length int) []byte {
	if last {
		kind |= 0x80
	}
	return []byte{kind, byte(length >> 16), byte(length >> 8), byte(length)}
}

func vorbisBlock(vendor string, comments []string) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(vendor)))
	buf = append(buf, vendor...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(comments)))
	for _, comment := range comments {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(comment)))
		buf = append(buf, comment...)
	}
	return buf
}

// AlbumFolder controls how WriteAlbumFolder tags the generated files.
type AlbumFolder struct {
	// StripTags writes files without artist, album or title frames.
	StripTags bool
	// OmitDuration leaves out the TLEN frame.
	OmitDuration bool
	// Names overrides generated file names, indexed like the track list.
	Names []string
}

// WriteAlbumFolder writes one MP3 per release track into dir, named
// "NN - Title.mp3", and returns the file paths.
func WriteAlbumFolder(t testing.TB, dir string, release snatch.Release, opts AlbumFolder) []string {
	t.Helper()

	paths := make([]string, 0, len(release.Tracks))
	for i, track := range release.Tracks {
		name := fmt.Sprintf("%02d - %s.mp3", track.Number, sanitize(track.Title))
		if i < len(opts.Names) && opts.Names[i] != "" {
			name = opts.Names[i]
		}
		tags := TrackTags{Track: track.Number}
		if !opts.StripTags {
			tags.Artist = release.Album.ArtistName
			tags.Album = release.Album.Title
			tags.Title = track.Title
		}
		if !opts.OmitDuration {
			tags.Duration = time.Duration(track.DurationMS) * time.Millisecond
		}
		path := filepath.Join(dir, name)
		WriteMP3(t, path, tags)
		paths = append(paths, path)
	}
	return paths
}

func sanitize(title string) string {
	return strings.NewReplacer("/", "_", "?", "", ":", "").Replace(title)
}

var abbeyRoadTracks = []struct {
	title string
	ms    int64
}{
	{"Come Together", 259000},
	{"Something", 182000},
	{"Maxwell's Silver Hammer", 207000},
	{"Oh! Darling", 206000},
	{"Octopus's Garden", 170000},
	{"I Want You (She's So Heavy)", 467000},
	{"Here Comes the Sun", 185000},
	{"Because", 165000},
	{"You Never Give Me Your Money", 242000},
	{"Sun King", 146000},
	{"Mean Mr. Mustard", 66000},
	{"Polythene Pam", 72000},
	{"She Came in Through the Bathroom Window", 117000},
	{"Golden Slumbers", 91000},
	{"Carry That Weight", 96000},
	{"The End", 139000},
	{"Her Majesty", 23000},
}

// AbbeyRoad returns a seventeen track release fixture.
func AbbeyRoad() snatch.Release {
	album := snatch.Album{
		ID:          "9162580e-5df4-32de-80cc-f45a8d8a9b1d",
		ArtistID:    "b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d",
		ArtistName:  "The Beatles",
		Title:       "Abbey Road",
		ReleaseDate: "1969-09-26",
		Type:        "Album",
		Status:      snatch.AlbumWanted,
	}
	tracks := make([]snatch.Track, 0, len(abbeyRoadTracks))
	for i, tr := range abbeyRoadTracks {
		tracks = append(tracks, snatch.Track{
			ID:         fmt.Sprintf("abbey-road-%02d", i+1),
			AlbumID:    album.ID,
			Title:      tr.title,
			Number:     i + 1,
			Disc:       1,
			DurationMS: tr.ms,
		})
	}
	return snatch.Release{Album: album, Tracks: tracks}
}
