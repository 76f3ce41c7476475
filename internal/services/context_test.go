package services_test

import (
	"context"
	"testing"

	"headphones/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithAlbumID(ctx, "mbid-1")
	ctx = services.WithSnatchID(ctx, 42)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.AlbumIDFromContext(ctx); !ok || id != "mbid-1" {
		t.Fatalf("unexpected album id: %v %v", id, ok)
	}
	if id, ok := services.SnatchIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected snatch id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankAlbumPreservesContext(t *testing.T) {
	ctx := services.WithAlbumID(context.Background(), "")
	if _, ok := services.AlbumIDFromContext(ctx); ok {
		t.Fatal("expected no album value")
	}
	if _, ok := services.SnatchIDFromContext(ctx); ok {
		t.Fatal("expected no snatch value")
	}
}
