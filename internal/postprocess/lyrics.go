package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LyricsSource looks up lyrics for one track. An empty string means none
// were found.
type LyricsSource interface {
	Lyrics(ctx context.Context, path, artist, title string) (string, error)
}

// SidecarLyrics reads lyrics shipped next to the audio file as
// "<name>.lrc" or "<name>.txt".
type SidecarLyrics struct{}

// Lyrics implements LyricsSource.
func (SidecarLyrics) Lyrics(_ context.Context, path, _, _ string) (string, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".lrc", ".txt"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return text, nil
		}
	}
	return "", nil
}
