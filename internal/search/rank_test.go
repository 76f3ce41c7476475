package search_test

import (
	"testing"

	"headphones/internal/config"
	"headphones/internal/search"
)

func TestSizeWindow(t *testing.T) {
	if got := search.TargetSize(320, 100); got != 4_096_000 {
		t.Fatalf("target = %d", got)
	}
	low, high := search.SizeWindow(320, 100, 20, 10)
	if low != 3_276_800 || high != 4_505_600 {
		t.Fatalf("window = [%d, %d]", low, high)
	}
	low, high = search.SizeWindow(320, 100, 0, 10)
	if low != 0 || high != 4_505_600 {
		t.Fatalf("open low side = [%d, %d]", low, high)
	}
	if low, high = search.SizeWindow(320, 0, 20, 20); low != 0 || high != 0 {
		t.Fatalf("unknown length should disable the window, got [%d, %d]", low, high)
	}
}

func TestSortPreferred(t *testing.T) {
	results := []search.Result{
		{Title: "Album small", Size: 10, Provider: "newznab"},
		{Title: "Album big", Size: 30, Provider: "newznab"},
		{Title: "Album WEB", Size: 20, Provider: "newznab"},
		{Title: "Album mid", Size: 25, Provider: "torznab"},
	}
	search.SortPreferred(results, []string{"web", "torznab"})

	want := []string{"Album WEB", "Album mid", "Album big", "Album small"}
	for i, title := range want {
		if results[i].Title != title {
			t.Fatalf("order = %v, want %v", titles(results), want)
		}
	}
	if results[0].Priority != 1 {
		t.Fatalf("preferred word priority = %v", results[0].Priority)
	}
	if results[1].Priority != 0.5 {
		t.Fatalf("provider priority = %v", results[1].Priority)
	}
}

func TestSortPreferredWithoutWordsKeepsSizeOrder(t *testing.T) {
	results := []search.Result{
		{Title: "a", Size: 1},
		{Title: "b", Size: 3},
		{Title: "c", Size: 2},
	}
	search.SortPreferred(results, nil)
	if got := titles(results); got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Fatalf("order = %v", got)
	}
}

func TestClosestToTarget(t *testing.T) {
	results := []search.Result{
		{Title: "far", Size: 200},
		{Title: "near", Size: 105},
		{Title: "Album FLAC", Size: 500},
		{Title: "close", Size: 90},
	}
	got := titles(search.ClosestToTarget(results, 100, true))
	if len(got) != 3 || got[0] != "near" || got[1] != "close" || got[2] != "far" {
		t.Fatalf("order = %v", got)
	}

	lossless := []search.Result{{Title: "Album FLAC", Size: 500}}
	if got := search.ClosestToTarget(lossless, 100, false); len(got) != 0 {
		t.Fatalf("expected no lossless without fallback, got %v", titles(got))
	}
	if got := search.ClosestToTarget(lossless, 100, true); len(got) != 1 {
		t.Fatalf("expected lossless fallback, got %v", titles(got))
	}
}

func TestOrderByKind(t *testing.T) {
	build := func() []search.Result {
		return []search.Result{
			{Title: "t1", Kind: search.KindTorrent},
			{Title: "n1", Kind: search.KindNZB},
			{Title: "t2", Kind: search.KindTorrent},
		}
	}
	tests := []struct {
		mode int
		want []string
	}{
		{mode: config.PreferUsenet, want: []string{"n1", "t1", "t2"}},
		{mode: config.PreferTorrents, want: []string{"t1", "t2", "n1"}},
		{mode: config.PreferEither, want: []string{"t1", "n1", "t2"}},
	}
	for _, tc := range tests {
		results := build()
		search.OrderByKind(results, tc.mode)
		got := titles(results)
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("mode %d: order = %v, want %v", tc.mode, got, tc.want)
			}
		}
	}
}
