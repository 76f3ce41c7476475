package logging

import (
	"context"
	"log/slog"

	"headphones/internal/services"
)

// Field keys shared by every component.
const (
	FieldComponent      = "component"
	FieldAlbumID        = "album_id"
	FieldSnatchID       = "snatch_id"
	FieldCorrelationID  = "correlation_id"
	FieldEventType      = "event_type"
	FieldErrorHint      = "error_hint"
	FieldImpact         = "impact"
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

// WithContext tags logger with the album, snatch and correlation ids ctx
// carries.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if id, ok := services.AlbumIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldAlbumID, id))
	}
	if id, ok := services.SnatchIDFromContext(ctx); ok {
		args = append(args, slog.Int64(FieldSnatchID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldCorrelationID, rid))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
