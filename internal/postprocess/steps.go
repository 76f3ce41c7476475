package postprocess

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"headphones/internal/config"
	"headphones/internal/encoder"
	"headphones/internal/fileutil"
	"headphones/internal/logging"
	"headphones/internal/notifications"
	"headphones/internal/services"
	"headphones/internal/snatch"
	"headphones/internal/tags"
	"headphones/internal/textutil"
)

// modifiedFolder receives the working copy of a download that must stay
// intact, either for seeding or because KEEP_ORIGINAL_FOLDER is set.
const modifiedFolder = "headphones-modified"

// process runs the configured steps on a verified folder. Step failures are
// logged and the next step still runs; only an encoder that leaves no media,
// a failed working copy or a partial move stop the run before the status
// update.
func (p *Processor) process(ctx context.Context, release snatch.Release, download Download, opts Options, result Result) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	pp := p.settings.PostProcess
	album := release.Album
	dir := download.Dir
	files := download.Media

	logger.Info("starting post-processing",
		logging.String("artist", album.ArtistName),
		logging.String("album", album.Title),
		logging.String("match", string(result.Match)),
		logging.Int("files", len(files)),
	)

	if keepOriginal(pp, opts.Kind) {
		copied, err := copyWorkingFolder(dir)
		if err != nil {
			result.Outcome = OutcomeAborted
			logging.WarnWithContext(logger, "cannot copy download folder", "working_copy_failed",
				logging.String("folder", dir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "post-processing not continued"),
			)
			return result, services.Wrap(services.ErrTransient, "postprocess", "working copy", "Download folder could not be copied", err)
		}
		logger.Info("processing a copy to preserve the download folder", logging.String("folder", copied))
		dir = copied
		if rescanned, err := ScanDownload(dir); err == nil {
			files = rescanned.Media
		}
	}

	if pp.MusicEncoder {
		encoded, err := p.encoder.EncodeFolder(ctx, dir)
		if err != nil || len(encoded) == 0 {
			result.Outcome = OutcomeAborted
			logging.ErrorWithContext(logger, "encoding failed", "encode_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the encoder settings and binary"),
				logging.String(logging.FieldImpact, "album left in the download folder"),
			)
			if err == nil {
				err = encoder.ErrNothingLeft
			}
			return result, err
		}
		files = encoded
	}

	var art []byte
	if pp.EmbedAlbumArt || pp.AddAlbumArt {
		fetched, err := p.art.Fetch(ctx, album, dir)
		if err != nil {
			logger.Info("no album art found", logging.Error(err))
		} else {
			art = fetched
		}
	}
	if pp.EmbedAlbumArt && art != nil {
		p.embedArt(logger, files, art)
	}
	if pp.CleanupFiles {
		cleanupFiles(logger, dir)
	}
	if pp.AddAlbumArt && art != nil {
		name := ArtName(pp.AlbumArtFormat, album, pp.FileUnderscores)
		if err := os.WriteFile(filepath.Join(dir, name), art, 0o644); err != nil {
			logger.Warn("album art not saved", logging.String("file", name), logging.Error(err))
		}
	}
	if pp.CorrectMetadata {
		p.correctMetadata(ctx, logger, release, files)
	}
	if pp.EmbedLyrics {
		p.embedLyrics(ctx, logger, files)
	}
	if pp.RenameFiles {
		files = p.renameFiles(ctx, logger, album, dir, files)
	}

	destinations := []string{dir}
	if pp.MoveFiles {
		if pp.DestinationDir == "" {
			logging.ErrorWithContext(logger, "no destination directory set", "destination_missing",
				logging.String(logging.FieldErrorHint, "set DESTINATION_DIR to the library root"),
				logging.String(logging.FieldImpact, "files stay in the download folder"),
			)
		} else {
			moved, err := p.moveFiles(ctx, album, dir)
			switch {
			case errors.Is(err, errPartialMove):
				result.Outcome = OutcomeAborted
				result.Destinations = moved
				logging.ErrorWithContext(logger, "move incomplete", "move_partial",
					logging.Error(err),
					logging.String(logging.FieldImpact, "album not marked processed"),
				)
				return result, err
			case err != nil:
				logging.ErrorWithContext(logger, "move aborted", "move_aborted",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check permissions on the destination directory"),
					logging.String(logging.FieldImpact, "files stay in the download folder"),
				)
			default:
				destinations = moved
			}
		}
	}

	if mode, err := config.ParseMode(pp.FilePermissions); err == nil {
		for _, dest := range destinations {
			if err := fileutil.ChmodTree(dest, 0, os.FileMode(mode)); err != nil {
				logger.Warn("file permissions not updated", logging.String("folder", dest), logging.Error(err))
			}
		}
	}

	return p.finish(ctx, release, destinations, result)
}

func (p *Processor) finish(ctx context.Context, release snatch.Release, destinations []string, result Result) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	album := release.Album

	if err := p.store.MarkTracksHave(ctx, album.ID, p.trackLocations(ctx, release, destinations)); err != nil {
		logger.Warn("have tracks not updated", logging.Error(err))
	}
	if err := p.store.SetAlbumStatus(ctx, album.ID, snatch.AlbumDownloaded); err != nil {
		logger.Warn("album status not updated", logging.Error(err))
	}
	if err := p.store.SetStatus(ctx, album.ID, snatch.StatusProcessed); err != nil {
		logger.Warn("snatch status not updated", logging.Error(err))
	}

	result.Outcome = OutcomeProcessed
	result.Destinations = destinations
	if _, err := os.Stat(result.Folder); err != nil {
		result.Folder = ""
	}
	logger.Info("post-processing complete",
		logging.String("artist", album.ArtistName),
		logging.String("album", album.Title),
		logging.String("location", destinations[0]),
	)

	if err := p.notifier.Publish(ctx, notifications.EventProcessed, notifications.Payload{
		"artist":   album.ArtistName,
		"album":    album.Title,
		"location": destinations[0],
	}); err != nil {
		logger.Warn("processed notification failed", logging.Error(err))
	}
	return result, nil
}

// trackLocations finds the destination folder holding each release track.
// Files are matched by disc and track number, then by title tag, then by
// the title appearing in the file name.
func (p *Processor) trackLocations(ctx context.Context, release snatch.Release, destinations []string) map[string]string {
	byNumber := make(map[[2]int]snatch.Track, len(release.Tracks))
	byTitle := make(map[string]snatch.Track, len(release.Tracks))
	for _, track := range release.Tracks {
		byNumber[[2]int{max(track.Disc, 1), track.Number}] = track
		byTitle[textutil.MatchKey(track.Title)] = track
	}

	locations := make(map[string]string, len(release.Tracks))
	for _, dest := range destinations {
		_ = filepath.WalkDir(dest, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !tags.IsMedia(path) {
				return nil
			}
			track, ok := p.trackFor(ctx, path, release.Tracks, byNumber, byTitle)
			if ok {
				if _, seen := locations[track.ID]; !seen {
					locations[track.ID] = dest
				}
			}
			return nil
		})
	}
	return locations
}

func (p *Processor) trackFor(ctx context.Context, path string, tracks []snatch.Track, byNumber map[[2]int]snatch.Track, byTitle map[string]snatch.Track) (snatch.Track, bool) {
	if info, err := p.reader.Read(ctx, path); err == nil {
		if track, ok := byNumber[[2]int{max(info.Disc, 1), info.Track}]; ok && info.Track > 0 {
			return track, true
		}
		if track, ok := byTitle[textutil.MatchKey(info.Title)]; ok && info.Title != "" {
			return track, true
		}
	}
	name := textutil.FilenameKey(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	for _, track := range tracks {
		if key := textutil.FilenameKey(track.Title); key != "" && strings.Contains(name, key) {
			return track, true
		}
	}
	return snatch.Track{}, false
}

// keepOriginal reports whether post-processing must leave the download
// folder untouched: torrents kept for seeding, or copying into the library
// instead of moving.
func keepOriginal(pp config.PostProcessSettings, kind snatch.Kind) bool {
	if pp.KeepTorrentFiles && kind == snatch.KindTorrent {
		return true
	}
	return pp.MoveFiles && pp.KeepOriginalFolder
}

// copyWorkingFolder copies the folder's contents into its modifiedFolder
// subfolder, replacing an earlier copy.
func copyWorkingFolder(dir string) (string, error) {
	target := filepath.Join(dir, modifiedFolder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(target); err != nil {
		return "", err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.Name() == modifiedFolder {
			continue
		}
		src := filepath.Join(dir, entry.Name())
		dst := filepath.Join(target, entry.Name())
		if entry.IsDir() {
			err = fileutil.CopyDir(src, dst)
		} else if entry.Type().IsRegular() {
			err = fileutil.CopyFile(src, dst)
		}
		if err != nil {
			return "", err
		}
	}
	return target, nil
}

func (p *Processor) embedArt(logger *slog.Logger, files []string, art []byte) {
	logger.Info("embedding album art", logging.Int("files", len(files)))
	for _, path := range files {
		if err := tags.EmbedArt(path, art); err != nil {
			logger.Warn("album art not embedded", logging.String("file", filepath.Base(path)), logging.Error(err))
		}
	}
}

// cleanupFiles removes every non-media file below dir.
func cleanupFiles(logger *slog.Logger, dir string) {
	logger.Info("cleaning up non-media files")
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || tags.IsMedia(path) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("file not removed", logging.String("file", path), logging.Error(err))
		} else {
			logger.Debug("removed file", logging.String("file", filepath.Base(path)))
		}
		return nil
	})
}

// correctMetadata writes catalog values into each file. Tracks are paired by
// disc and track number, or by position when the counts agree.
func (p *Processor) correctMetadata(ctx context.Context, logger *slog.Logger, release snatch.Release, files []string) {
	logger.Info("correcting metadata", logging.Int("files", len(files)))
	album := release.Album
	byNumber := make(map[[2]int]snatch.Track, len(release.Tracks))
	for _, track := range release.Tracks {
		disc := track.Disc
		if disc <= 0 {
			disc = 1
		}
		byNumber[[2]int{disc, track.Number}] = track
	}
	ordered := append([]string(nil), files...)
	sort.Strings(ordered)

	for i, path := range ordered {
		info, err := p.reader.Read(ctx, path)
		if err != nil {
			logger.Warn("metadata not read", logging.String("file", filepath.Base(path)), logging.Error(err))
			continue
		}
		fields := tags.Fields{
			Artist:      album.ArtistName,
			AlbumArtist: album.ArtistName,
			Album:       album.Title,
			Year:        album.Year(),
		}
		if album.ArtistName == variousArtists && info.Artist != "" {
			fields.Artist = info.Artist
		}
		disc := info.Disc
		if disc <= 0 {
			disc = 1
		}
		track, ok := byNumber[[2]int{disc, info.Track}]
		if !ok && len(ordered) == len(release.Tracks) {
			track, ok = release.Tracks[i], true
		}
		if ok {
			fields.Title = track.Title
			fields.Track = track.Number
			fields.Disc = track.Disc
		}
		if err := tags.WriteFields(path, fields); err != nil {
			logger.Warn("metadata not written", logging.String("file", filepath.Base(path)), logging.Error(err))
		}
	}
}

func (p *Processor) embedLyrics(ctx context.Context, logger *slog.Logger, files []string) {
	logger.Info("adding lyrics")
	for _, path := range files {
		info, err := p.reader.Read(ctx, path)
		if err != nil {
			logger.Warn("file not read, lyrics skipped", logging.String("file", filepath.Base(path)), logging.Error(err))
			continue
		}
		artist := info.AlbumArtist
		if artist == "" {
			artist = info.Artist
		}
		if artist == "" || info.Title == "" {
			logger.Debug("no artist or title, lyrics skipped", logging.String("file", filepath.Base(path)))
			continue
		}
		text, err := p.lyrics.Lyrics(ctx, path, artist, info.Title)
		if err != nil {
			logger.Warn("lyrics lookup failed", logging.String("file", filepath.Base(path)), logging.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		if err := tags.EmbedLyrics(path, text); err != nil {
			logger.Warn("lyrics not saved", logging.String("file", filepath.Base(path)), logging.Error(err))
		}
	}
}

// renameFiles renames every file into dir by FILE_FORMAT and returns the new
// paths. Files that cannot be read or renamed keep their path.
func (p *Processor) renameFiles(ctx context.Context, logger *slog.Logger, album snatch.Album, dir string, files []string) []string {
	pp := p.settings.PostProcess
	logger.Info("renaming files", logging.Int("files", len(files)))
	renamed := make([]string, 0, len(files))
	for _, path := range files {
		info, err := p.reader.Read(ctx, path)
		if err != nil {
			logger.Info("file not read, rename skipped", logging.String("file", filepath.Base(path)), logging.Error(err))
			renamed = append(renamed, path)
			continue
		}
		target := filepath.Join(dir, FileName(pp.FileFormat, album, info, path, pp.FileUnderscores))
		if target == path {
			renamed = append(renamed, path)
			continue
		}
		target = fileutil.UniquePath(target, false)
		if err := os.Rename(path, target); err != nil {
			logger.Warn("file not renamed", logging.String("file", filepath.Base(path)), logging.Error(err))
			renamed = append(renamed, path)
			continue
		}
		logger.Debug("renamed file", logging.String("from", filepath.Base(path)), logging.String("to", filepath.Base(target)))
		renamed = append(renamed, target)
	}
	return renamed
}
