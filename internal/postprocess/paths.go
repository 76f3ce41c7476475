package postprocess

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"headphones/internal/snatch"
	"headphones/internal/tags"
	"headphones/internal/textutil"
)

const variousArtists = "Various Artists"

var separators = regexp.MustCompile(`[.\-/_]`)

// render substitutes $Placeholders, longest first so $SortArtist is never
// read as $S followed by other text.
func render(format string, values map[string]string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, key, values[key])
	}
	return strings.NewReplacer(pairs...).Replace(strings.TrimSpace(format))
}

// withLower adds a lowercase placeholder for every value.
func withLower(values map[string]string) map[string]string {
	out := make(map[string]string, len(values)*2)
	for key, value := range values {
		out[key] = value
		out["$"+strings.ToLower(key[1:])] = strings.ToLower(value)
	}
	return out
}

func noSlash(value string) string {
	return strings.ReplaceAll(value, "/", "_")
}

func firstChar(sortName string) string {
	for _, r := range sortName {
		if unicode.IsDigit(r) {
			return "0-9"
		}
		return strings.ToUpper(string(r))
	}
	return ""
}

// FolderPath renders FOLDER_FORMAT for an album. The result is relative
// and every segment is cleaned.
func FolderPath(format string, album snatch.Album, underscores bool) string {
	artist := noSlash(album.ArtistName)
	title := noSlash(album.Title)
	if underscores {
		artist = strings.ReplaceAll(artist, " ", "_")
		title = strings.ReplaceAll(title, " ", "_")
	}
	sortName := snatch.SortName(album.ArtistName)
	values := withLower(map[string]string{
		"$Artist":     artist,
		"$SortArtist": noSlash(sortName),
		"$Album":      title,
		"$Year":       album.Year(),
		"$Type":       noSlash(album.Type),
		"$First":      firstChar(sortName),
	})
	return textutil.CleanRelativePath(render(format, values))
}

// FileName renders FILE_FORMAT for one track and keeps ext. A track without
// a title keeps its cleaned original name.
func FileName(format string, album snatch.Album, info tags.Info, original string, underscores bool) string {
	ext := filepath.Ext(original)
	var name string
	if strings.TrimSpace(info.Title) == "" {
		name = cleanTitle(strings.TrimSuffix(filepath.Base(original), ext)) + ext
	} else {
		artist := album.ArtistName
		if album.ArtistName == variousArtists && info.Artist != "" {
			artist = info.Artist
		}
		disc, track := "", ""
		if info.Disc > 0 {
			disc = strconv.Itoa(info.Disc)
		}
		if info.Track > 0 {
			track = fmt.Sprintf("%02d", info.Track)
		}
		values := withLower(map[string]string{
			"$Disc":       disc,
			"$Track":      track,
			"$Title":      info.Title,
			"$Artist":     artist,
			"$SortArtist": snatch.SortName(artist),
			"$Album":      album.Title,
			"$Year":       album.Year(),
		})
		name = noSlash(render(format, values)) + ext
	}
	return finishName(name, underscores)
}

// ArtName renders ALBUM_ART_FORMAT with a .jpg extension.
func ArtName(format string, album snatch.Album, underscores bool) string {
	values := withLower(map[string]string{
		"$Artist": album.ArtistName,
		"$Album":  album.Title,
		"$Year":   album.Year(),
	})
	return finishName(noSlash(render(format, values))+".jpg", underscores)
}

func finishName(name string, underscores bool) string {
	name = textutil.SanitizeFileName(name)
	if underscores {
		name = strings.ReplaceAll(name, " ", "_")
	}
	if strings.HasPrefix(name, ".") {
		name = "_" + name[1:]
	}
	return name
}

// cleanTitle turns "01.some_track-name" into "01 Some Track Name".
func cleanTitle(title string) string {
	title = strings.Join(strings.Fields(strings.ToLower(separators.ReplaceAllString(title, " "))), " ")
	words := strings.Split(title, " ")
	for i, word := range words {
		runes := []rune(word)
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
