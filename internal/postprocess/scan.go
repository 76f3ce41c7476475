package postprocess

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"headphones/internal/logging"
	"headphones/internal/snatch"
	"headphones/internal/tags"
	"headphones/internal/textutil"
)

// folderNamePatterns parse "Artist - Album [Year]" and "Artist - Album (Year)".
var folderNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?P<artist>.*?)\s-\s(?P<album>.*?)\s\[(?P<year>.*?)\]`),
	regexp.MustCompile(`^(?P<artist>.*?)\s-\s(?P<album>.*?)\s\((?P<year>\d+)\)`),
}

// minGuessSimilarity is the cosine similarity a folder name needs to be
// matched to a pending album by token overlap.
const minGuessSimilarity = 0.6

// CheckFolders looks for the download folder of every Snatched record and
// verifies the ones present. NZB folders are also tried with dots turned
// into spaces and spaces into underscores, as download clients rename them.
func (p *Processor) CheckFolders(ctx context.Context) ([]Result, error) {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	pending, err := p.store.List(ctx, snatch.StatusSnatched)
	if err != nil {
		return nil, fmt.Errorf("list snatched: %w", err)
	}
	var results []Result
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if strings.TrimSpace(rec.FolderName) == "" {
			continue
		}
		for _, dir := range p.candidateFolders(rec) {
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				continue
			}
			p.logger.Debug("found snatched folder, verifying",
				logging.String("folder", dir),
				logging.String("kind", string(rec.Kind)),
			)
			result, err := p.Verify(ctx, rec.AlbumID, dir, Options{Kind: rec.Kind})
			if err != nil {
				logging.WarnWithContext(p.logger, "verification failed", "verify_failed",
					logging.String(logging.FieldAlbumID, rec.AlbumID),
					logging.String("folder", dir),
					logging.Error(err),
				)
				continue
			}
			results = append(results, result)
			break
		}
	}
	return results, nil
}

func (p *Processor) candidateFolders(rec *snatch.Snatch) []string {
	name := rec.FolderName
	if rec.Kind == snatch.KindTorrent {
		if p.settings.Torrent.DownloadDir == "" {
			return nil
		}
		return []string{filepath.Join(p.settings.Torrent.DownloadDir, name)}
	}
	if p.settings.Usenet.DownloadDir == "" {
		return nil
	}
	dots := strings.ReplaceAll(name, ".", " ")
	variants := []string{name, dots, strings.ReplaceAll(name, " ", "_"), strings.ReplaceAll(dots, " ", "_")}
	seen := make(map[string]bool, len(variants))
	var out []string
	for _, v := range variants {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, filepath.Join(p.settings.Usenet.DownloadDir, v))
	}
	return out
}

// ForceOptions select the folders ForceProcess looks at.
type ForceOptions struct {
	// Dir replaces the configured download directories.
	Dir string
	// AlbumDir processes exactly one folder.
	AlbumDir string
	// ExpandSubfolders descends into folders holding several albums.
	ExpandSubfolders bool
	// Forced processes folders that still contain .part files.
	Forced bool
}

// ForceProcess verifies every folder in the download directories, working
// out the album of each from the snatch table, the folder name, the files'
// tags, or a trailing release group id.
func (p *Processor) ForceProcess(ctx context.Context, opts ForceOptions) ([]Result, error) {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	folders := p.forcedFolders(opts)
	if len(folders) == 0 {
		p.logger.Info("no folders to process")
		return nil, nil
	}
	p.logger.Info("processing download folders", logging.Int("folders", len(folders)))

	var results []Result
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		albumID, kind, ok := p.identify(ctx, folder)
		if !ok {
			continue
		}
		result, err := p.Verify(ctx, albumID, folder, Options{Kind: kind, Forced: opts.Forced})
		if err != nil {
			logging.WarnWithContext(p.logger, "verification failed", "verify_failed",
				logging.String(logging.FieldAlbumID, albumID),
				logging.String("folder", folder),
				logging.Error(err),
			)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (p *Processor) forcedFolders(opts ForceOptions) []string {
	if opts.AlbumDir != "" {
		return []string{opts.AlbumDir}
	}
	var roots []string
	if opts.Dir != "" {
		roots = []string{opts.Dir}
	} else {
		for _, dir := range []string{p.settings.Usenet.DownloadDir, p.settings.Torrent.DownloadDir} {
			if dir == "" || slices.Contains(roots, dir) {
				continue
			}
			roots = append(roots, dir)
		}
	}

	var folders []string
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			p.logger.Warn("download directory unreadable, skipping", logging.String("dir", root), logging.Error(err))
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if opts.ExpandSubfolders {
				if nested := albumSubfolders(path); len(nested) > 0 {
					folders = append(folders, nested...)
					continue
				}
			}
			folders = append(folders, path)
		}
	}
	return folders
}

// albumSubfolders returns the folders below path that directly hold media,
// when there is more than one of them.
func albumSubfolders(path string) []string {
	seen := map[string]bool{}
	var out []string
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !tags.IsMedia(p) {
			return nil
		}
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
		return nil
	})
	if len(out) < 2 {
		return nil
	}
	return out
}

// identify works out which album a folder holds.
func (p *Processor) identify(ctx context.Context, folder string) (string, snatch.Kind, bool) {
	base := filepath.Base(folder)
	logger := p.logger.With(logging.String("folder", base))

	if rec, err := p.store.FindByFolder(ctx, base); err == nil && rec != nil {
		if keepOriginal(p.settings.PostProcess, rec.Kind) && rec.Status == snatch.StatusProcessed {
			logger.Info("kept download folder is already processed, skipping")
			return "", "", false
		}
		logger.Info("matched snatch record", logging.String("title", rec.Title))
		return rec.AlbumID, rec.Kind, true
	}

	if artist, album, ok := ParseFolderName(base); ok {
		if found := p.findAlbum(ctx, artist, album); found != nil {
			logger.Info("matched folder name", logging.String("artist", found.ArtistName), logging.String("album", found.Title))
			return found.ID, "", true
		}
	}

	if artist, album, ok := p.folderMetadata(ctx, folder); ok {
		if found := p.findAlbum(ctx, artist, album); found != nil {
			logger.Info("matched file metadata", logging.String("artist", found.ArtistName), logging.String("album", found.Title))
			return found.ID, "", true
		}
	}

	if found := p.guessByName(ctx, base); found != nil {
		logger.Info("matched folder name by similarity", logging.String("artist", found.ArtistName), logging.String("album", found.Title))
		return found.ID, "", true
	}

	if len(base) >= 36 {
		if id, err := uuid.Parse(base[len(base)-36:]); err == nil {
			if album, err := p.store.Album(ctx, id.String()); err == nil && album != nil {
				logger.Info("matched release group id", logging.String("album", album.Title))
				return album.ID, "", true
			}
			logger.Info("release group id is not in the catalog", logging.String("id", id.String()))
			return "", "", false
		}
	}

	logger.Info("folder not recognised; use 'Artist - Album [Year]' or end the name with the release group id")
	return "", "", false
}

func (p *Processor) findAlbum(ctx context.Context, artist, title string) *snatch.Album {
	album, err := p.store.FindAlbum(ctx, artist, title)
	if err != nil {
		p.logger.Debug("album lookup failed", logging.Error(err))
		return nil
	}
	return album
}

// ParseFolderName extracts artist and album from "Artist - Album [Year]" or
// "Artist - Album (Year)".
func ParseFolderName(name string) (artist, album string, ok bool) {
	for _, pattern := range folderNamePatterns {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		artist = strings.TrimSpace(m[pattern.SubexpIndex("artist")])
		album = strings.TrimSpace(m[pattern.SubexpIndex("album")])
		if artist != "" && album != "" {
			return artist, album, true
		}
	}
	return "", "", false
}

// folderMetadata returns the artist and album shared by the folder's tagged
// files. At least three quarters of the media must carry tags and they must
// agree.
func (p *Processor) folderMetadata(ctx context.Context, folder string) (string, string, bool) {
	download, err := ScanDownload(folder)
	if err != nil || len(download.Media) == 0 {
		return "", "", false
	}
	artists := map[string]string{}
	albums := map[string]string{}
	tagged := 0
	for _, path := range download.Media {
		info, err := p.reader.Read(ctx, path)
		if err != nil {
			continue
		}
		artist := info.AlbumArtist
		if artist == "" {
			artist = info.Artist
		}
		if artist == "" || info.Album == "" {
			continue
		}
		tagged++
		artists[textutil.MatchKey(artist)] = artist
		albums[textutil.MatchKey(info.Album)] = info.Album
	}
	if tagged == 0 || float64(tagged) < 0.75*float64(len(download.Media)) {
		return "", "", false
	}
	if len(artists) != 1 || len(albums) != 1 {
		return "", "", false
	}
	var artist, album string
	for _, v := range artists {
		artist = v
	}
	for _, v := range albums {
		album = v
	}
	return artist, album, true
}

// guessByName compares the folder name against pending albums.
func (p *Processor) guessByName(ctx context.Context, name string) *snatch.Album {
	folderPrint := textutil.NewFingerprint(separators.ReplaceAllString(name, " "))
	if folderPrint == nil {
		return nil
	}
	var best *snatch.Album
	bestScore := 0.0
	for _, status := range []snatch.AlbumStatus{snatch.AlbumSnatched, snatch.AlbumWanted} {
		albums, err := p.store.AlbumsByStatus(ctx, status)
		if err != nil {
			continue
		}
		for _, album := range albums {
			score := folderPrint.Similarity(textutil.NewFingerprint(album.ArtistName + " " + album.Title))
			if score > bestScore {
				best, bestScore = album, score
			}
		}
	}
	if bestScore < minGuessSimilarity {
		return nil
	}
	return best
}
