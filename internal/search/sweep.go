package search

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"headphones/internal/logging"
)

// Sweep queries every provider concurrently and concatenates their results
// in provider order. A failing provider contributes no results.
func Sweep(ctx context.Context, providers []Provider, q Query, logger *slog.Logger) []Result {
	logger = logging.NewComponentLogger(logger, "search")
	lists := make([][]Result, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for idx, p := range providers {
		g.Go(func() error {
			results, err := p.Search(gctx, q)
			if err != nil {
				logging.WarnWithContext(logger, "provider search failed", "provider_search_failed",
					logging.String("provider", p.Name()),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the indexer host and api key"),
					logging.String(logging.FieldImpact, "results from this provider are skipped"),
				)
				return nil
			}
			lists[idx] = results
			return nil
		})
	}
	_ = g.Wait()

	var out []Result
	for _, list := range lists {
		out = append(out, list...)
	}
	return out
}
