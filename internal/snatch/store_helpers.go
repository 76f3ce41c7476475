package snatch

import (
	"database/sql"
	"errors"
	"time"
)

const snatchColumns = "id, album_id, title, size, url, kind, status, folder_name, created_at, updated_at"

func scanSnatch(scanner interface{ Scan(dest ...any) error }) (*Snatch, error) {
	var (
		id         int64
		albumID    string
		title      string
		size       sql.NullInt64
		url        sql.NullString
		kind       string
		status     string
		folderName sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &albumID, &title, &size, &url, &kind, &status, &folderName, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	rec := &Snatch{
		ID:         id,
		AlbumID:    albumID,
		Title:      title,
		Size:       size.Int64,
		URL:        url.String,
		Kind:       Kind(kind),
		Status:     Status(status),
		FolderName: folderName.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

const albumColumns = "id, artist_id, artist_name, title, release_date, type, status, artwork_url"

func scanAlbum(scanner interface{ Scan(dest ...any) error }) (*Album, error) {
	var (
		album       Album
		releaseDate sql.NullString
		albumType   sql.NullString
		status      string
		artworkURL  sql.NullString
	)
	if err := scanner.Scan(&album.ID, &album.ArtistID, &album.ArtistName, &album.Title, &releaseDate, &albumType, &status, &artworkURL); err != nil {
		return nil, err
	}
	album.ReleaseDate = releaseDate.String
	album.Type = albumType.String
	album.Status = AlbumStatus(status)
	album.ArtworkURL = artworkURL.String
	return &album, nil
}

const trackColumns = "id, album_id, title, number, disc, duration_ms, location"

func scanTrack(scanner interface{ Scan(dest ...any) error }) (Track, error) {
	var (
		track    Track
		duration sql.NullInt64
		location sql.NullString
	)
	if err := scanner.Scan(&track.ID, &track.AlbumID, &track.Title, &track.Number, &track.Disc, &duration, &location); err != nil {
		return Track{}, err
	}
	track.DurationMS = duration.Int64
	track.Location = location.String
	return track, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableDuration(ms int64) any {
	if ms <= 0 {
		return nil
	}
	return ms
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
