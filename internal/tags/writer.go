package tags

import "fmt"

// WriteFields corrects the metadata of one file.
func WriteFields(path string, fields Fields) error {
	switch formatOf(path) {
	case "mp3":
		return writeID3Fields(path, fields)
	case "flac":
		return writeFLACFields(path, fields)
	default:
		return fmt.Errorf("write tags %s: %w", path, ErrUnsupported)
	}
}

// EmbedArt replaces the front cover picture with jpeg.
func EmbedArt(path string, jpeg []byte) error {
	switch formatOf(path) {
	case "mp3":
		return embedID3Art(path, jpeg)
	case "flac":
		return embedFLACArt(path, jpeg)
	default:
		return fmt.Errorf("embed art %s: %w", path, ErrUnsupported)
	}
}

// EmbedLyrics stores unsynchronised lyrics.
func EmbedLyrics(path, lyrics string) error {
	switch formatOf(path) {
	case "mp3":
		return embedID3Lyrics(path, lyrics)
	case "flac":
		return embedFLACLyrics(path, lyrics)
	default:
		return fmt.Errorf("embed lyrics %s: %w", path, ErrUnsupported)
	}
}
