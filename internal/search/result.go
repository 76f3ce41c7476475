package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"headphones/internal/snatch"
)

// Kind is the download channel of a result.
type Kind = snatch.Kind

const (
	KindTorrent = snatch.KindTorrent
	KindNZB     = snatch.KindNZB
)

// Result is one release offered by an indexer. TrackCount is zero when the
// file list is not known yet.
type Result struct {
	Title      string
	URL        string
	Size       int64
	Seeders    int
	Kind       Kind
	Provider   string
	TrackCount int
	Priority   float64

	// Fetch downloads the torrent or NZB payload. It may be nil.
	Fetch func(ctx context.Context) ([]byte, error)
}

// ParseSize reads indexer size strings such as "734003200" or "700 MB".
// Anything unparseable is 0.
func ParseSize(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	n, err := humanize.ParseBytes(value)
	if err != nil || n > 1<<62 {
		return 0
	}
	return int64(n)
}

// ParseSeeders reads a seeder count. Anything unparseable is 0.
func ParseSeeders(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
