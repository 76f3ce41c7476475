package snatch

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a snatch record.
type Status string

const (
	StatusSnatched    Status = "Snatched"
	StatusProcessed   Status = "Processed"
	StatusUnprocessed Status = "Unprocessed"
)

var allStatuses = []Status{StatusSnatched, StatusProcessed, StatusUnprocessed}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(value string) (Status, bool) {
	for _, status := range allStatuses {
		if strings.EqualFold(string(status), strings.TrimSpace(value)) {
			return status, true
		}
	}
	return "", false
}

// AllStatuses returns every snatch status.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Kind identifies the download channel of a snatch.
type Kind string

const (
	KindTorrent Kind = "torrent"
	KindNZB     Kind = "nzb"
)

// Snatch records an accepted search result.
type Snatch struct {
	ID         int64
	AlbumID    string
	Title      string
	Size       int64
	URL        string
	Kind       Kind
	Status     Status
	FolderName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AlbumStatus is the wanted state of a catalog album.
type AlbumStatus string

const (
	AlbumSkipped    AlbumStatus = "Skipped"
	AlbumWanted     AlbumStatus = "Wanted"
	AlbumSnatched   AlbumStatus = "Snatched"
	AlbumDownloaded AlbumStatus = "Downloaded"
)

// ParseAlbumStatus matches an album status name case-insensitively.
func ParseAlbumStatus(value string) (AlbumStatus, bool) {
	for _, status := range []AlbumStatus{AlbumSkipped, AlbumWanted, AlbumSnatched, AlbumDownloaded} {
		if strings.EqualFold(string(status), strings.TrimSpace(value)) {
			return status, true
		}
	}
	return "", false
}

// Artist is a catalog artist with library counters.
type Artist struct {
	ID          string
	Name        string
	SortName    string
	HaveTracks  int
	TotalTracks int
}

// Album is a catalog release group.
type Album struct {
	ID          string
	ArtistID    string
	ArtistName  string
	Title       string
	ReleaseDate string
	Type        string
	Status      AlbumStatus
	ArtworkURL  string
}

// Year returns the four digit year of the release date, if any.
func (a Album) Year() string {
	if len(a.ReleaseDate) >= 4 {
		return a.ReleaseDate[:4]
	}
	return ""
}

// Track is one expected track of an album. DurationMS is zero when unknown.
type Track struct {
	ID         string
	AlbumID    string
	Title      string
	Number     int
	Disc       int
	DurationMS int64
	Location   string
}

// Release bundles an album with its expected tracks.
type Release struct {
	Album  Album
	Tracks []Track
}
