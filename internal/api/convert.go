package api

import (
	"time"

	"github.com/dustin/go-humanize"

	"headphones/internal/deps"
	"headphones/internal/postprocess"
	"headphones/internal/snatch"
)

// FromSnatch converts a snatch record to its API representation.
func FromSnatch(rec *snatch.Snatch) Snatch {
	if rec == nil {
		return Snatch{}
	}
	dto := Snatch{
		ID:         rec.ID,
		AlbumID:    rec.AlbumID,
		Title:      rec.Title,
		Size:       rec.Size,
		URL:        rec.URL,
		Kind:       string(rec.Kind),
		Status:     string(rec.Status),
		FolderName: rec.FolderName,
		CreatedAt:  FormatTime(rec.CreatedAt),
		UpdatedAt:  FormatTime(rec.UpdatedAt),
	}
	if rec.Size > 0 {
		dto.SizeLabel = humanize.Bytes(uint64(rec.Size))
	}
	return dto
}

// FromSnatches converts a slice of records, skipping nil entries.
func FromSnatches(recs []*snatch.Snatch) []Snatch {
	out := make([]Snatch, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		out = append(out, FromSnatch(rec))
	}
	return out
}

// MergeSnatchStats returns counts for every status, zero-filled.
func MergeSnatchStats(stats map[snatch.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range snatch.AllStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromResults converts verification results.
func FromResults(results []postprocess.Result) []ScanResult {
	out := make([]ScanResult, 0, len(results))
	for _, r := range results {
		out = append(out, ScanResult{
			AlbumID:      r.AlbumID,
			Outcome:      string(r.Outcome),
			Match:        string(r.Match),
			Folder:       r.Folder,
			Destinations: r.Destinations,
		})
	}
	return out
}

// FromDependencies converts binary checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FormatTime renders t for API payloads; the zero time is empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
