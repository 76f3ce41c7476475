package postprocess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"

	"headphones/internal/artwork"
	"headphones/internal/config"
	"headphones/internal/deps"
	"headphones/internal/encoder"
	"headphones/internal/logging"
	"headphones/internal/notifications"
	"headphones/internal/services"
	"headphones/internal/snatch"
	"headphones/internal/tags"
)

// unprocessedSuffix matches folders already renamed after a failed
// verification.
var unprocessedSuffix = regexp.MustCompile(` \(Unprocessed\)(?:\[\d+\])?$`)

// Outcome is the terminal decision of one verification run.
type Outcome string

const (
	// OutcomeProcessed means the folder was verified and post-processed.
	OutcomeProcessed Outcome = "processed"
	// OutcomeUnprocessed means no verification test passed.
	OutcomeUnprocessed Outcome = "unprocessed"
	// OutcomeIncomplete means the download still has .part files.
	OutcomeIncomplete Outcome = "incomplete"
	// OutcomeAborted means post-processing stopped before the status update.
	OutcomeAborted Outcome = "aborted"
)

// Options tune one verification run.
type Options struct {
	// Kind is the download channel; torrents may be preserved for seeding.
	Kind snatch.Kind
	// Forced processes folders that still contain .part files.
	Forced bool
}

// Result reports what a verification run did.
type Result struct {
	AlbumID string
	Outcome Outcome
	Match   Match
	// Folder is the folder's final location when it stayed in the
	// download directory.
	Folder string
	// Destinations lists the library folders that received files.
	Destinations []string
}

// ArtSource provides JPEG album art.
type ArtSource interface {
	Fetch(ctx context.Context, album snatch.Album, folder string) ([]byte, error)
}

// FolderEncoder re-encodes the media of a folder and returns the media files
// left afterwards.
type FolderEncoder interface {
	EncodeFolder(ctx context.Context, dir string) ([]string, error)
}

// Dependencies are the collaborators of a Processor. Nil fields get
// defaults.
type Dependencies struct {
	Reader   *tags.Reader
	Encoder  FolderEncoder
	Art      ArtSource
	Lyrics   LyricsSource
	Notifier notifications.Service
}

// Processor verifies download folders and runs post-processing.
type Processor struct {
	settings config.Settings
	store    *snatch.Store
	reader   tags.Reader
	verifier *Verifier
	encoder  FolderEncoder
	art      ArtSource
	lyrics   LyricsSource
	notifier notifications.Service
	logger   *slog.Logger

	// scanMu serializes folder scans.
	scanMu sync.Mutex
}

// NewProcessor wires a processor with the default encoder, art fetcher,
// sidecar lyrics and the configured notifier.
func NewProcessor(settings config.Settings, store *snatch.Store, logger *slog.Logger) *Processor {
	return NewProcessorWithDependencies(settings, store, logger, Dependencies{})
}

// NewProcessorWithDependencies allows injecting collaborators (used in tests).
func NewProcessorWithDependencies(settings config.Settings, store *snatch.Store, logger *slog.Logger, d Dependencies) *Processor {
	reader := tags.Reader{}
	if d.Reader != nil {
		reader = *d.Reader
	} else if probe := deps.ResolveFFprobe(settings.Encoder.Path); probe.Available {
		reader.FFprobe = probe.Command
	}
	if d.Encoder == nil {
		d.Encoder = encoder.New(settings, logger)
	}
	if d.Art == nil {
		d.Art = artwork.NewFetcher(settings.General.DataDir, logger)
	}
	if d.Lyrics == nil {
		d.Lyrics = SidecarLyrics{}
	}
	if d.Notifier == nil {
		d.Notifier = notifications.NewService(settings.Notify)
	}
	return &Processor{
		settings: settings,
		store:    store,
		reader:   reader,
		verifier: NewVerifier(reader, logger),
		encoder:  d.Encoder,
		art:      d.Art,
		lyrics:   d.Lyrics,
		notifier: d.Notifier,
		logger:   logging.NewComponentLogger(logger, "postprocess"),
	}
}

// Verify checks that dir holds the album and post-processes it, or marks the
// album's snatch Unprocessed and renames the folder.
func (p *Processor) Verify(ctx context.Context, albumID, dir string, opts Options) (Result, error) {
	ctx = services.WithRequestID(services.WithAlbumID(ctx, albumID), uuid.NewString())
	logger := logging.WithContext(ctx, p.logger).With(logging.String("folder", filepath.Base(dir)))
	result := Result{AlbumID: albumID, Folder: dir}

	if p.store == nil {
		return result, services.Wrap(services.ErrConfiguration, "postprocess", "load album", "No catalog store configured", nil)
	}
	release, err := p.store.Release(ctx, albumID)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "postprocess", "load album", "Catalog lookup failed", err)
	}
	if release == nil {
		return result, services.Wrap(services.ErrNotFound, "postprocess", "load album", fmt.Sprintf("Album %s is not in the catalog", albumID), nil)
	}

	download, err := ScanDownload(dir)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "postprocess", "scan folder", "Download folder unreadable", err)
	}
	if download.Partial && !opts.Forced {
		logger.Info("download not complete yet, will retry on the next scan")
		result.Outcome = OutcomeIncomplete
		return result, nil
	}

	result.Match = p.verifier.Verify(ctx, *release, download.Media)
	if result.Match == MatchNone {
		return p.markUnprocessed(ctx, *release, dir, result)
	}
	return p.process(ctx, *release, download, opts, result)
}

func (p *Processor) markUnprocessed(ctx context.Context, release snatch.Release, dir string, result Result) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	result.Outcome = OutcomeUnprocessed
	logging.WarnWithContext(logger, "could not identify album", "album_unverified",
		logging.String("folder", dir),
		logging.String("artist", release.Album.ArtistName),
		logging.String("album", release.Album.Title),
		logging.String(logging.FieldErrorHint, "check the folder contents or process it manually"),
		logging.String(logging.FieldImpact, "snatch marked Unprocessed"),
	)
	if err := p.store.SetStatus(ctx, release.Album.ID, snatch.StatusUnprocessed); err != nil {
		logger.Warn("snatch status not updated", logging.Error(err))
	}

	if unprocessedSuffix.MatchString(filepath.Base(dir)) {
		logger.Info("folder already marked unprocessed", logging.String("folder", dir))
	} else {
		renamed, err := renameUnprocessed(dir)
		if err != nil {
			logger.Warn("unprocessed folder not renamed", logging.String("folder", dir), logging.Error(err))
		} else {
			result.Folder = renamed
		}
	}

	if err := p.notifier.Publish(ctx, notifications.EventUnprocessed, notifications.Payload{
		"artist": release.Album.ArtistName,
		"album":  release.Album.Title,
		"folder": result.Folder,
	}); err != nil {
		logger.Warn("unprocessed notification failed", logging.Error(err))
	}
	return result, nil
}

// renameUnprocessed renames dir to "dir (Unprocessed)", or the first free
// "dir (Unprocessed)[n]".
func renameUnprocessed(dir string) (string, error) {
	for i := 0; ; i++ {
		candidate := dir + " (Unprocessed)"
		if i > 0 {
			candidate = fmt.Sprintf("%s (Unprocessed)[%d]", dir, i)
		}
		if _, err := os.Lstat(candidate); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if err := os.Rename(dir, candidate); err != nil {
			return "", err
		}
		return candidate, nil
	}
}
