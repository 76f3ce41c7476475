package search

import (
	"context"
	"log/slog"
	"strings"

	"headphones/internal/logging"
)

var cleanWords = []string{"clean", "edited", "censored"}

// Constraints are the configured limits a result must satisfy. Zero values
// disable the corresponding check.
type Constraints struct {
	MaxSize        int64
	MinSeeders     int
	Ignored        []string
	Required       []string
	IgnoreClean    bool
	Term           string
	ExpectedTracks int
	// WantAll returns every accepted result instead of only the first.
	WantAll bool
	// LossyOnly rejects titles that mention flac.
	LossyOnly bool
	// MinSize and MaxWindow bound the size around a bitrate target.
	MinSize   int64
	MaxWindow int64
	// AllowLossless keeps flac results that exceed MaxWindow.
	AllowLossless bool
}

// Matcher filters indexer results against Constraints.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher returns a matcher logging its decisions to logger.
func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logging.NewComponentLogger(logger, "matcher")}
}

// Match returns the accepted results in their original order: all of them
// when c.WantAll is set, otherwise only the first.
func (m *Matcher) Match(ctx context.Context, results []Result, c Constraints) []Result {
	var accepted []Result
	for _, r := range results {
		ok, reason := m.Check(ctx, &r, c)
		logging.Decision(m.logger, "search result decision", "search_result", ok, reason,
			logging.String("title", r.Title),
			logging.String("provider", r.Provider),
			logging.Int64("size", r.Size),
			logging.Int("seeders", r.Seeders),
		)
		if !ok {
			continue
		}
		accepted = append(accepted, r)
		if !c.WantAll {
			break
		}
	}
	return accepted
}

// Check applies every rule to one result and reports the deciding reason.
// The track count is filled in from the torrent payload when it is needed
// and unknown.
func (m *Matcher) Check(ctx context.Context, r *Result, c Constraints) (bool, string) {
	if c.MaxSize > 0 && r.Size > c.MaxSize {
		return false, "size_above_max"
	}
	if r.Kind == KindTorrent && r.Seeders < c.MinSeeders {
		return false, "seeders_below_min"
	}

	title := NormalizeTitle(r.Title)
	term := strings.ToLower(c.Term)

	if strings.Contains(title, "remix") && !strings.Contains(term, "remix") {
		return false, "remix"
	}
	if c.LossyOnly && strings.Contains(title, "flac") {
		return false, "lossless_not_wanted"
	}
	if _, found := containsAnyFold(title, c.Ignored); found {
		return false, "ignored_word"
	}
	for _, group := range RequiredGroups(c.Required) {
		if _, found := containsAnyFold(title, group); !found {
			return false, "required_word_missing"
		}
	}
	if c.IgnoreClean {
		for _, word := range cleanWords {
			if strings.Contains(title, word) && !strings.Contains(term, word) {
				return false, "clean_release"
			}
		}
	}
	if token, missing := MissingTermToken(r.Title, c.Term); missing {
		m.logger.Debug("search term token missing from title", logging.String("title", r.Title), logging.String("token", token))
		return false, "term_token_missing"
	}
	if c.MinSize > 0 && r.Size < c.MinSize {
		return false, "size_below_bitrate_window"
	}
	if c.MaxWindow > 0 && r.Size > c.MaxWindow {
		if !(c.AllowLossless && strings.Contains(title, "flac")) {
			return false, "size_above_bitrate_window"
		}
	}

	if c.ExpectedTracks > 0 && r.TrackCount <= 0 {
		r.TrackCount = m.countTracks(ctx, r)
	}
	return checkTrackCount(title, r.TrackCount, c.ExpectedTracks)
}

func (m *Matcher) countTracks(ctx context.Context, r *Result) int {
	if r.Kind != KindTorrent || r.Fetch == nil || isMagnet(r.URL) {
		return 0
	}
	payload, err := r.Fetch(ctx)
	if err != nil {
		m.logger.Debug("torrent fetch for track count failed", logging.String("title", r.Title), logging.Error(err))
		return 0
	}
	count, err := CountTorrentTracks(payload)
	if err != nil {
		m.logger.Debug("torrent track count failed", logging.String("title", r.Title), logging.Error(err))
		return 0
	}
	return count
}
