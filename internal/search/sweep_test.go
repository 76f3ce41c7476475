package search_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"headphones/internal/search"
)

type fakeProvider struct {
	name    string
	kind    search.Kind
	results []search.Result
	err     error

	mu      sync.Mutex
	queries []search.Query
}

func (p *fakeProvider) Name() string      { return p.name }
func (p *fakeProvider) Kind() search.Kind { return p.kind }

func (p *fakeProvider) Search(_ context.Context, q search.Query) ([]search.Result, error) {
	p.mu.Lock()
	p.queries = append(p.queries, q)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	out := make([]search.Result, len(p.results))
	copy(out, p.results)
	for i := range out {
		out[i].Provider = p.name
		if out[i].Kind == "" {
			out[i].Kind = p.kind
		}
	}
	return out, nil
}

func (p *fakeProvider) Fetch(ctx context.Context, r search.Result) ([]byte, error) {
	if r.Fetch != nil {
		return r.Fetch(ctx)
	}
	return nil, errors.New("no payload")
}

func TestSweepSkipsFailingProviders(t *testing.T) {
	providers := []search.Provider{
		&fakeProvider{name: "first", kind: search.KindNZB, results: []search.Result{{Title: "a"}, {Title: "b"}}},
		&fakeProvider{name: "broken", kind: search.KindTorrent, err: errors.New("connection refused")},
		&fakeProvider{name: "last", kind: search.KindTorrent, results: []search.Result{{Title: "c"}}},
	}

	got := search.Sweep(context.Background(), providers, search.Query{Artist: "A", Album: "B"}, nil)
	if names := titles(got); len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Fatalf("sweep = %v", names)
	}
	if got[2].Provider != "last" {
		t.Fatalf("provider = %q", got[2].Provider)
	}
}

func TestSweepWithoutProviders(t *testing.T) {
	if got := search.Sweep(context.Background(), nil, search.Query{}, nil); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}
