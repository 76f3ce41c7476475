package snatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Create inserts a snatch in the Snatched state and marks its album Snatched.
func (s *Store) Create(ctx context.Context, rec Snatch) (*Snatch, error) {
	if strings.TrimSpace(rec.AlbumID) == "" {
		return nil, errors.New("snatch requires an album id")
	}
	if rec.Kind != KindTorrent && rec.Kind != KindNZB {
		return nil, fmt.Errorf("snatch kind %q is not supported", rec.Kind)
	}
	timestamp := now()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO snatched (album_id, title, size, url, kind, status, folder_name, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AlbumID,
		rec.Title,
		rec.Size,
		nullableString(rec.URL),
		rec.Kind,
		StatusSnatched,
		nullableString(rec.FolderName),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert snatch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE albums SET status = ?, updated_at = ? WHERE id = ?`,
		AlbumSnatched, timestamp, rec.AlbumID,
	); err != nil {
		return nil, fmt.Errorf("mark album snatched: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a snatch by identifier. A missing record yields nil, nil.
func (s *Store) Get(ctx context.Context, id int64) (*Snatch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snatchColumns+` FROM snatched WHERE id = ?`, id)
	rec, err := scanSnatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snatch: %w", err)
	}
	return rec, nil
}

// List returns snatches filtered by status (or all records when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Snatch, error) {
	query := `SELECT ` + snatchColumns + ` FROM snatched`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snatches: %w", err)
	}
	defer rows.Close()

	var out []*Snatch
	for rows.Next() {
		rec, err := scanSnatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindByFolder returns the newest snatch whose folder name matches,
// ignoring case.
func (s *Store) FindByFolder(ctx context.Context, folder string) (*Snatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snatchColumns+` FROM snatched WHERE folder_name = ? COLLATE NOCASE ORDER BY id DESC LIMIT 1`,
		folder,
	)
	rec, err := scanSnatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snatch by folder: %w", err)
	}
	return rec, nil
}

// HasURL reports whether any snatch was recorded for url.
func (s *Store) HasURL(ctx context.Context, url string) (bool, error) {
	if strings.TrimSpace(url) == "" {
		return false, nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM snatched WHERE url = ?`, url).Scan(&count); err != nil {
		return false, fmt.Errorf("lookup snatch url: %w", err)
	}
	return count > 0, nil
}

// SetStatus transitions every snatch of an album to status.
func (s *Store) SetStatus(ctx context.Context, albumID string, status Status) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE snatched SET status = ?, updated_at = ? WHERE album_id = ?`,
		status, now(), albumID,
	)
	if err != nil {
		return fmt.Errorf("set snatch status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set snatch status: no snatch for album %s", albumID)
	}
	return nil
}

// SetFolderName records the folder the download client created.
func (s *Store) SetFolderName(ctx context.Context, id int64, folder string) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE snatched SET folder_name = ?, updated_at = ? WHERE id = ?`,
		nullableString(folder), now(), id,
	); err != nil {
		return fmt.Errorf("set folder name: %w", err)
	}
	return nil
}

// Stats returns a count of snatches grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM snatched GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("snatch stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Clear removes finished snatches with the given statuses. Snatched records
// are never cleared.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	filtered := make([]any, 0, len(statuses))
	for _, status := range statuses {
		if status == StatusSnatched {
			continue
		}
		filtered = append(filtered, status)
	}
	if len(filtered) == 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM snatched WHERE status IN (`+makePlaceholders(len(filtered))+`)`,
		filtered...,
	)
	if err != nil {
		return 0, fmt.Errorf("clear snatches: %w", err)
	}
	return res.RowsAffected()
}
