package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/google/uuid"

	"headphones/internal/config"
	"headphones/internal/logging"
	"headphones/internal/notifications"
	"headphones/internal/services"
	"headphones/internal/snatch"
)

// Searcher runs album searches across the configured providers and records
// the chosen release as a snatch.
type Searcher struct {
	settings  config.Settings
	store     *snatch.Store
	providers []Provider
	matcher   *Matcher
	notifier  notifications.Service
	logger    *slog.Logger
}

// NewSearcher wires a searcher. A nil notifier disables notifications.
func NewSearcher(settings config.Settings, store *snatch.Store, providers []Provider, notifier notifications.Service, logger *slog.Logger) *Searcher {
	if notifier == nil {
		notifier = notifications.NewService(config.NotifySettings{})
	}
	return &Searcher{
		settings:  settings,
		store:     store,
		providers: providers,
		matcher:   NewMatcher(logger),
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "searcher"),
	}
}

// ProvidersFromSettings builds an indexer for every enabled provider,
// newznab first.
func ProvidersFromSettings(settings config.Settings, logger *slog.Logger) []Provider {
	var providers []Provider
	if settings.Usenet.Enabled {
		providers = append(providers, NewIndexer(IndexerConfig{
			Name:       "newznab",
			Kind:       KindNZB,
			BaseURL:    settings.Usenet.Host,
			APIKey:     settings.Usenet.APIKey,
			Categories: settings.Usenet.Categories,
		}, logger))
	}
	if settings.Torrent.Enabled {
		providers = append(providers, NewIndexer(IndexerConfig{
			Name:       "torznab",
			Kind:       KindTorrent,
			BaseURL:    settings.Torrent.Host,
			APIKey:     settings.Torrent.APIKey,
			Categories: settings.Torrent.Categories,
		}, logger))
	}
	return providers
}

// Candidates searches for an album and returns the accepted results, best
// first. Nothing is recorded.
func (s *Searcher) Candidates(ctx context.Context, albumID string) ([]Result, error) {
	release, err := s.release(ctx, albumID)
	if err != nil {
		return nil, err
	}
	return s.candidates(ctx, release), nil
}

// SearchAlbum finds the best release for a wanted album and snatches it.
// It returns nil, nil when no result is accepted.
func (s *Searcher) SearchAlbum(ctx context.Context, albumID string) (*snatch.Snatch, error) {
	ctx = services.WithRequestID(services.WithAlbumID(ctx, albumID), uuid.NewString())
	release, err := s.release(ctx, albumID)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, s.logger)

	candidates := s.candidates(ctx, release)
	if len(candidates) == 0 {
		logger.Info("no acceptable result",
			logging.String("artist", release.Album.ArtistName),
			logging.String("album", release.Album.Title))
		return nil, nil
	}
	return s.Snatch(ctx, release, candidates[0])
}

// SearchWanted searches every Wanted album once and returns how many were
// snatched. A failing album is logged and the sweep moves on; a
// configuration error ends the sweep.
func (s *Searcher) SearchWanted(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, services.Wrap(services.ErrConfiguration, "search", "list wanted", "No catalog store configured", nil)
	}
	wanted, err := s.store.AlbumsByStatus(ctx, snatch.AlbumWanted)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "search", "list wanted", "Catalog lookup failed", err)
	}
	if len(wanted) == 0 {
		s.logger.Debug("no wanted albums")
		return 0, nil
	}
	if len(s.providers) == 0 {
		logging.WarnWithContext(s.logger, "no search providers enabled", "search_no_providers",
			logging.Int("wanted", len(wanted)),
			logging.String(logging.FieldErrorHint, "enable TORZNAB or NEWZNAB"),
		)
		return 0, nil
	}

	snatched := 0
	for _, album := range wanted {
		if err := ctx.Err(); err != nil {
			return snatched, err
		}
		rec, err := s.SearchAlbum(ctx, album.ID)
		if errors.Is(err, services.ErrConfiguration) {
			return snatched, err
		}
		if err != nil {
			logging.WarnWithContext(s.logger, "album search failed", "search_failed",
				logging.String(logging.FieldAlbumID, album.ID),
				logging.String("album", album.Title),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
			)
			continue
		}
		if rec != nil {
			snatched++
		}
	}
	s.logger.Info("wanted search finished", logging.Int("wanted", len(wanted)), logging.Int("snatched", snatched))
	return snatched, nil
}

func (s *Searcher) release(ctx context.Context, albumID string) (*snatch.Release, error) {
	if s.store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "search", "load album", "No catalog store configured", nil)
	}
	release, err := s.store.Release(ctx, albumID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "search", "load album", "Catalog lookup failed", err)
	}
	if release == nil {
		return nil, services.Wrap(services.ErrNotFound, "search", "load album", fmt.Sprintf("Album %s is not in the catalog", albumID), nil)
	}
	return release, nil
}

func (s *Searcher) candidates(ctx context.Context, release *snatch.Release) []Result {
	quality := s.settings.Search.PreferredQuality
	query := Query{
		Artist:   release.Album.ArtistName,
		Album:    release.Album.Title,
		Year:     release.Album.Year(),
		Lossless: quality == config.QualityLossless || quality == config.QualityLosslessFallback,
	}
	accepted := s.sweep(ctx, release, query)
	if len(accepted) == 0 && quality == config.QualityLosslessFallback {
		s.logger.Info("no lossless result, retrying lossy", logging.String("album", release.Album.Title))
		query.Lossless = false
		accepted = s.sweep(ctx, release, query)
	}
	return accepted
}

func (s *Searcher) sweep(ctx context.Context, release *snatch.Release, q Query) []Result {
	results := s.dropSnatched(ctx, Sweep(ctx, s.providers, q, s.logger))
	if len(results) == 0 {
		return nil
	}
	SortPreferred(results, s.settings.Search.PreferredWords)
	OrderByKind(results, s.settings.Search.PreferTorrents)

	c, target := s.constraints(release, q)
	accepted := s.matcher.Match(ctx, results, c)
	if c.WantAll && target > 0 {
		accepted = ClosestToTarget(accepted, target, c.AllowLossless)
	}
	return accepted
}

func (s *Searcher) constraints(release *snatch.Release, q Query) (Constraints, int64) {
	search := s.settings.Search
	c := Constraints{
		MaxSize:        search.MaxSizeBytes,
		MinSeeders:     s.settings.Torrent.NumberOfSeeders,
		Ignored:        search.IgnoredWords,
		Required:       search.RequiredWords,
		IgnoreClean:    search.IgnoreCleanReleases,
		Term:           q.Term(),
		ExpectedTracks: len(release.Tracks),
	}
	switch search.PreferredQuality {
	case config.QualityHighest:
		c.LossyOnly = true
	case config.QualityPreferredBitrate:
		c.WantAll = true
		c.AllowLossless = search.AllowLosslessFallback
		seconds := albumSeconds(release.Tracks)
		low, high := 0, 0
		if len(search.BitrateBuffer) == 2 {
			low, high = search.BitrateBuffer[0], search.BitrateBuffer[1]
		}
		c.MinSize, c.MaxWindow = SizeWindow(search.PreferredBitrate, seconds, low, high)
		return c, TargetSize(search.PreferredBitrate, seconds)
	}
	return c, 0
}

func albumSeconds(tracks []snatch.Track) float64 {
	var total int64
	for _, t := range tracks {
		total += t.DurationMS
	}
	return float64(total) / 1000
}

func (s *Searcher) dropSnatched(ctx context.Context, results []Result) []Result {
	if s.store == nil {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		seen, err := s.store.HasURL(ctx, r.URL)
		if err != nil {
			s.logger.Debug("snatch url lookup failed", logging.String("url", r.URL), logging.Error(err))
		}
		if seen {
			logging.Decision(s.logger, "search result decision", "search_result", false, "already_snatched",
				logging.String("title", r.Title))
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// Snatch hands a result to the download client through the blackhole
// directory for its kind and records it.
func (s *Searcher) Snatch(ctx context.Context, release *snatch.Release, r Result) (*snatch.Snatch, error) {
	logger := logging.WithContext(ctx, s.logger)

	folder, err := s.deliver(ctx, r)
	if err != nil {
		logging.WarnWithContext(logger, "snatch delivery failed", "snatch_delivery_failed",
			logging.String("title", r.Title),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the blackhole directory and indexer link"),
			logging.String(logging.FieldImpact, "album stays wanted"),
		)
		return nil, err
	}

	rec, err := s.store.Create(ctx, snatch.Snatch{
		AlbumID:    release.Album.ID,
		Title:      r.Title,
		Size:       r.Size,
		URL:        r.URL,
		Kind:       r.Kind,
		FolderName: folder,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "search", "record snatch", "Snatch could not be stored", err)
	}
	logger.Info("album snatched",
		logging.String("title", r.Title),
		logging.String("provider", r.Provider),
		logging.String("kind", string(r.Kind)),
		logging.String("folder", folder),
		logging.Int64("size", r.Size),
	)

	if err := s.notifier.Publish(ctx, notifications.EventSnatched, notifications.Payload{
		"artist":   release.Album.ArtistName,
		"album":    release.Album.Title,
		"provider": r.Provider,
	}); err != nil {
		logger.Warn("snatch notification failed", logging.Error(err))
	}
	return rec, nil
}

// deliver writes the payload into the blackhole and returns the folder name
// the download client is expected to create.
func (s *Searcher) deliver(ctx context.Context, r Result) (string, error) {
	dir := s.settings.Usenet.BlackholeDir
	ext := ".nzb"
	if r.Kind == KindTorrent {
		dir = s.settings.Torrent.BlackholeDir
		ext = ".torrent"
	}

	if isMagnet(r.URL) {
		folder := r.Title
		if magnet, err := metainfo.ParseMagnetUri(r.URL); err == nil && magnet.DisplayName != "" {
			folder = magnet.DisplayName
		}
		if dir == "" {
			return folder, nil
		}
		return folder, writePayload(dir, folder+".magnet", []byte(r.URL))
	}

	if r.Fetch == nil {
		return r.Title, nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	payload, err := r.Fetch(fetchCtx)
	if err != nil {
		return "", err
	}

	folder := r.Title
	if r.Kind == KindTorrent {
		name, err := TorrentName(payload)
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "search", "parse torrent", "Indexer returned an invalid torrent", err)
		}
		if name != "" {
			folder = name
		}
	}
	if dir == "" {
		s.logger.Debug("no blackhole configured, payload not written", logging.String("title", r.Title))
		return folder, nil
	}
	return folder, writePayload(dir, r.Title+ext, payload)
}

func writePayload(dir, name string, payload []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "search", "blackhole", "Blackhole directory unavailable", err)
	}
	target := filepath.Join(dir, safeFileName(name))
	if err := os.WriteFile(target, payload, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "search", "blackhole", "Payload could not be written", err)
	}
	return nil
}

func safeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}
