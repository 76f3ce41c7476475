package tags

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2"
)

func readID3(path string) (Info, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Info{}, fmt.Errorf("read id3 %s: %w", path, err)
	}
	defer tag.Close()

	info := Info{
		Artist:      strings.TrimSpace(tag.Artist()),
		AlbumArtist: textFrame(tag, "TPE2"),
		Album:       strings.TrimSpace(tag.Album()),
		Title:       strings.TrimSpace(tag.Title()),
		Year:        yearOf(tag.Year()),
		Track:       parseNumber(textFrame(tag, "TRCK")),
		Disc:        parseNumber(textFrame(tag, "TPOS")),
		Format:      "mp3",
	}
	if info.Year == "" {
		info.Year = yearOf(textFrame(tag, "TDRC"))
	}
	if ms, err := strconv.ParseInt(textFrame(tag, "TLEN"), 10, 64); err == nil && ms > 0 {
		info.Duration = time.Duration(ms) * time.Millisecond
	}
	return info, nil
}

func textFrame(tag *id3v2.Tag, id string) string {
	return strings.TrimSpace(tag.GetTextFrame(id).Text)
}

func openID3(path string) (*id3v2.Tag, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("open id3 %s: %w", path, err)
	}
	return tag, nil
}

func writeID3Fields(path string, fields Fields) error {
	tag, err := openID3(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	if fields.Artist != "" {
		tag.SetArtist(fields.Artist)
	}
	if fields.AlbumArtist != "" {
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, fields.AlbumArtist)
	}
	if fields.Album != "" {
		tag.SetAlbum(fields.Album)
	}
	if fields.Title != "" {
		tag.SetTitle(fields.Title)
	}
	if fields.Year != "" {
		tag.SetYear(fields.Year)
	}
	if fields.Track > 0 {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(fields.Track))
	}
	if fields.Disc > 0 {
		tag.AddTextFrame("TPOS", id3v2.EncodingUTF8, strconv.Itoa(fields.Disc))
	}
	return tag.Save()
}

func embedID3Art(path string, jpeg []byte) error {
	tag, err := openID3(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Front Cover",
		Picture:     jpeg,
	})
	return tag.Save()
}

func embedID3Lyrics(path, lyrics string) error {
	tag, err := openID3(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.DeleteFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
	tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
		Encoding:          id3v2.EncodingUTF8,
		Language:          "eng",
		ContentDescriptor: "",
		Lyrics:            lyrics,
	})
	return tag.Save()
}
