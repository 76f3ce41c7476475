package tags

import (
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"
	"time"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

const streamInfoLength = 34

func readFLAC(path string) (Info, error) {
	file, err := flac.ParseFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("read flac %s: %w", path, err)
	}
	info := Info{Format: "flac"}
	for _, block := range file.Meta {
		switch block.Type {
		case flac.StreamInfo:
			info.Duration = streamDuration(block.Data)
		case flac.VorbisComment:
			cmts, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return Info{}, fmt.Errorf("read flac %s: %w", path, err)
			}
			info.Artist = firstComment(cmts, flacvorbis.FIELD_ARTIST)
			info.AlbumArtist = firstComment(cmts, "ALBUMARTIST")
			info.Album = firstComment(cmts, flacvorbis.FIELD_ALBUM)
			info.Title = firstComment(cmts, flacvorbis.FIELD_TITLE)
			info.Year = yearOf(firstComment(cmts, flacvorbis.FIELD_DATE))
			info.Track = parseNumber(firstComment(cmts, flacvorbis.FIELD_TRACKNUMBER))
			info.Disc = parseNumber(firstComment(cmts, "DISCNUMBER"))
		}
	}
	return info, nil
}

// streamDuration decodes the sample rate (20 bits at byte 10) and the total
// sample count (36 bits at byte 13) of a STREAMINFO block.
func streamDuration(data []byte) time.Duration {
	if len(data) < streamInfoLength {
		return 0
	}
	rate := int64(data[10])<<12 | int64(data[11])<<4 | int64(data[12])>>4
	samples := int64(data[13]&0x0f)<<32 | int64(data[14])<<24 | int64(data[15])<<16 | int64(data[16])<<8 | int64(data[17])
	if rate == 0 || samples == 0 {
		return 0
	}
	return time.Duration(samples * int64(time.Second) / rate)
}

func firstComment(cmts *flacvorbis.MetaDataBlockVorbisComment, key string) string {
	values, err := cmts.Get(key)
	if err != nil || len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// editVorbis rewrites the vorbis comment block, creating one when absent.
func editVorbis(path string, edit func(*flacvorbis.MetaDataBlockVorbisComment) error) error {
	file, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("open flac %s: %w", path, err)
	}
	index := -1
	var cmts *flacvorbis.MetaDataBlockVorbisComment
	for i, block := range file.Meta {
		if block.Type == flac.VorbisComment {
			cmts, err = flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return fmt.Errorf("open flac %s: %w", path, err)
			}
			index = i
			break
		}
	}
	if cmts == nil {
		cmts = flacvorbis.New()
	}
	if err := edit(cmts); err != nil {
		return err
	}
	block := cmts.Marshal()
	if index >= 0 {
		file.Meta[index] = &block
	} else {
		file.Meta = append(file.Meta, &block)
	}
	return file.Save(path)
}

// setComment replaces every value of key with value.
func setComment(cmts *flacvorbis.MetaDataBlockVorbisComment, key, value string) error {
	kept := cmts.Comments[:0]
	prefix := strings.ToUpper(key) + "="
	for _, comment := range cmts.Comments {
		if !strings.HasPrefix(strings.ToUpper(comment), prefix) {
			kept = append(kept, comment)
		}
	}
	cmts.Comments = kept
	return cmts.Add(key, value)
}

func writeFLACFields(path string, fields Fields) error {
	return editVorbis(path, func(cmts *flacvorbis.MetaDataBlockVorbisComment) error {
		pairs := []struct {
			key   string
			value string
		}{
			{flacvorbis.FIELD_ARTIST, fields.Artist},
			{"ALBUMARTIST", fields.AlbumArtist},
			{flacvorbis.FIELD_ALBUM, fields.Album},
			{flacvorbis.FIELD_TITLE, fields.Title},
			{flacvorbis.FIELD_DATE, fields.Year},
		}
		if fields.Track > 0 {
			pairs = append(pairs, struct {
				key   string
				value string
			}{flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(fields.Track)})
		}
		if fields.Disc > 0 {
			pairs = append(pairs, struct {
				key   string
				value string
			}{"DISCNUMBER", strconv.Itoa(fields.Disc)})
		}
		for _, pair := range pairs {
			if pair.value == "" {
				continue
			}
			if err := setComment(cmts, pair.key, pair.value); err != nil {
				return err
			}
		}
		return nil
	})
}

func embedFLACLyrics(path, lyrics string) error {
	return editVorbis(path, func(cmts *flacvorbis.MetaDataBlockVorbisComment) error {
		return setComment(cmts, "LYRICS", lyrics)
	})
}

func embedFLACArt(path string, jpeg []byte) error {
	pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", jpeg, "image/jpeg")
	if err != nil {
		return fmt.Errorf("embed art: %w", err)
	}
	file, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("open flac %s: %w", path, err)
	}
	kept := file.Meta[:0]
	for _, block := range file.Meta {
		if block.Type != flac.Picture {
			kept = append(kept, block)
		}
	}
	block := pic.Marshal()
	file.Meta = append(kept, &block)
	return file.Save(path)
}
