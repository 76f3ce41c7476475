package snatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// UpsertArtist inserts or updates a catalog artist. An empty sort name is
// derived from the name.
func (s *Store) UpsertArtist(ctx context.Context, artist Artist) error {
	if strings.TrimSpace(artist.ID) == "" {
		return errors.New("artist requires an id")
	}
	sortName := artist.SortName
	if sortName == "" {
		sortName = SortName(artist.Name)
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO artists (id, name, sort_name, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET name = excluded.name, sort_name = excluded.sort_name, updated_at = excluded.updated_at`,
		artist.ID, artist.Name, sortName, now(),
	); err != nil {
		return fmt.Errorf("upsert artist: %w", err)
	}
	return nil
}

// Artist fetches an artist. A missing artist yields nil, nil.
func (s *Store) Artist(ctx context.Context, id string) (*Artist, error) {
	var (
		artist   Artist
		sortName sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, sort_name, have_tracks, total_tracks FROM artists WHERE id = ?`, id,
	).Scan(&artist.ID, &artist.Name, &sortName, &artist.HaveTracks, &artist.TotalTracks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}
	artist.SortName = sortName.String
	return &artist, nil
}

// UpsertAlbum inserts or updates a catalog album. The status is only written
// for new albums or when explicitly set.
func (s *Store) UpsertAlbum(ctx context.Context, album Album) error {
	if strings.TrimSpace(album.ID) == "" || strings.TrimSpace(album.ArtistID) == "" {
		return errors.New("album requires an id and an artist id")
	}
	status := album.Status
	if status == "" {
		status = AlbumSkipped
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO albums (id, artist_id, artist_name, title, release_date, type, status, artwork_url, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             artist_id = excluded.artist_id, artist_name = excluded.artist_name, title = excluded.title,
             release_date = excluded.release_date, type = excluded.type, artwork_url = excluded.artwork_url,
             status = CASE WHEN ? = '' THEN albums.status ELSE excluded.status END,
             updated_at = excluded.updated_at`,
		album.ID, album.ArtistID, album.ArtistName, album.Title,
		nullableString(album.ReleaseDate), nullableString(album.Type), status,
		nullableString(album.ArtworkURL), now(), string(album.Status),
	); err != nil {
		return fmt.Errorf("upsert album: %w", err)
	}
	return nil
}

// Album fetches an album. A missing album yields nil, nil.
func (s *Store) Album(ctx context.Context, id string) (*Album, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}
	return album, nil
}

// FindAlbum matches an album by artist and title, ignoring case. An empty
// artist matches on title alone.
func (s *Store) FindAlbum(ctx context.Context, artist, title string) (*Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums WHERE title = ? COLLATE NOCASE`
	args := []any{strings.TrimSpace(title)}
	if strings.TrimSpace(artist) != "" {
		query += ` AND artist_name = ? COLLATE NOCASE`
		args = append(args, strings.TrimSpace(artist))
	}
	row := s.db.QueryRowContext(ctx, query+` LIMIT 1`, args...)
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find album: %w", err)
	}
	return album, nil
}

// AlbumsByStatus lists albums in a wanted state ordered by artist and title.
func (s *Store) AlbumsByStatus(ctx context.Context, status AlbumStatus) ([]*Album, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE status = ? ORDER BY artist_name, title`, status)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()
	var out []*Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, album)
	}
	return out, rows.Err()
}

// SetAlbumStatus updates the wanted state of an album.
func (s *Store) SetAlbumStatus(ctx context.Context, id string, status AlbumStatus) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE albums SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id,
	); err != nil {
		return fmt.Errorf("set album status: %w", err)
	}
	return nil
}

// ReplaceTracks swaps the expected track list of an album.
func (s *Store) ReplaceTracks(ctx context.Context, albumID string, tracks []Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tracks tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE album_id = ?`, albumID); err != nil {
		return fmt.Errorf("clear tracks: %w", err)
	}
	for i, track := range tracks {
		id := track.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", albumID, i+1)
		}
		disc := track.Disc
		if disc <= 0 {
			disc = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (id, album_id, title, number, disc, duration_ms, location) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, albumID, track.Title, track.Number, disc, nullableDuration(track.DurationMS), nullableString(track.Location),
		); err != nil {
			return fmt.Errorf("insert track %q: %w", track.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tracks: %w", err)
	}
	return nil
}

// Tracks returns the expected tracks of an album in disc and track order.
func (s *Store) Tracks(ctx context.Context, albumID string) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE album_id = ? ORDER BY disc, number, id`, albumID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()
	var out []Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, track)
	}
	return out, rows.Err()
}

// Release loads an album with its tracks. A missing album yields nil, nil.
func (s *Store) Release(ctx context.Context, albumID string) (*Release, error) {
	album, err := s.Album(ctx, albumID)
	if err != nil || album == nil {
		return nil, err
	}
	tracks, err := s.Tracks(ctx, albumID)
	if err != nil {
		return nil, err
	}
	return &Release{Album: *album, Tracks: tracks}, nil
}

// MarkTracksHave records the folder each listed track now lives in, keyed
// by track ID, and refreshes the artist's have and total track counters.
// Tracks missing from locations keep their previous location.
func (s *Store) MarkTracksHave(ctx context.Context, albumID string, locations map[string]string) error {
	album, err := s.Album(ctx, albumID)
	if err != nil {
		return err
	}
	if album == nil {
		return fmt.Errorf("mark tracks: album %s not found", albumID)
	}
	for trackID, location := range locations {
		if err := s.execWithoutResultRetry(ctx,
			`UPDATE tracks SET location = ? WHERE id = ? AND album_id = ?`, nullableString(location), trackID, albumID,
		); err != nil {
			return fmt.Errorf("mark track %s: %w", trackID, err)
		}
	}
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE artists SET
             have_tracks = (SELECT COUNT(1) FROM tracks t JOIN albums a ON a.id = t.album_id
                            WHERE a.artist_id = artists.id AND t.location IS NOT NULL AND t.location != ''),
             total_tracks = (SELECT COUNT(1) FROM tracks t JOIN albums a ON a.id = t.album_id
                             WHERE a.artist_id = artists.id),
             updated_at = ?
         WHERE id = ?`,
		now(), album.ArtistID,
	); err != nil {
		return fmt.Errorf("update have tracks: %w", err)
	}
	return nil
}

// SortName moves a leading "The " to the end: "The Beatles" becomes
// "Beatles, The".
func SortName(name string) string {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) > 4 && strings.EqualFold(trimmed[:4], "the ") {
		return trimmed[4:] + ", " + trimmed[:3]
	}
	return trimmed
}
