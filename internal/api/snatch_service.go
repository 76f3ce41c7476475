package api

import (
	"context"

	"headphones/internal/snatch"
)

// SnatchReader abstracts the snatch queries needed by the API.
type SnatchReader interface {
	List(ctx context.Context, statuses ...snatch.Status) ([]*snatch.Snatch, error)
	Stats(ctx context.Context) (map[snatch.Status]int, error)
	Get(ctx context.Context, id int64) (*snatch.Snatch, error)
}

// SnatchService exposes read-only snatch operations returning API DTOs.
type SnatchService struct {
	store SnatchReader
}

// NewSnatchService constructs a SnatchService around the provided reader.
func NewSnatchService(store SnatchReader) *SnatchService {
	if store == nil {
		return nil
	}
	return &SnatchService{store: store}
}

// List returns snatches filtered by status.
func (s *SnatchService) List(ctx context.Context, statuses ...snatch.Status) ([]Snatch, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	recs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromSnatches(recs), nil
}

// Stats returns snatch counts keyed by status name.
func (s *SnatchService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeSnatchStats(stats), nil
}

// Describe fetches a single snatch.
func (s *SnatchService) Describe(ctx context.Context, id int64) (*Snatch, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	dto := FromSnatch(rec)
	return &dto, nil
}
