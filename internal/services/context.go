package services

import "context"

type (
	albumIDKey   struct{}
	snatchIDKey  struct{}
	requestIDKey struct{}
)

// WithAlbumID tags ctx with the album being searched or processed. Blank ids
// leave ctx untouched.
func WithAlbumID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, albumIDKey{}, id)
}

func AlbumIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(albumIDKey{}).(string)
	return id, ok
}

// WithSnatchID tags ctx with a snatch record id. Non-positive ids leave ctx
// untouched.
func WithSnatchID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, snatchIDKey{}, id)
}

func SnatchIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(snatchIDKey{}).(int64)
	return id, ok
}

// WithRequestID tags ctx with a correlation id for one search or scan run.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}
