package core

import (
	"context"

	"github.com/google/uuid"

	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/status"
)

// search runs one provider query under a fresh correlation key. Failures
// are stamped into the error ring under that key so the UI can surface
// them inline next to the input that triggered the search; the key is
// returned either way.
func (c *Core) search(key, op string, run func() ([]catalog.SearchResult, error)) ([]catalog.SearchResult, string, error) {
	results, err := run()
	if err != nil {
		c.errs.RecordError(status.KindRemote, key, op+" failed", err)
		return nil, key, err
	}
	return results, key, nil
}

// SearchSeries queries the series-first provider (catalog-A) by name.
func (c *Core) SearchSeries(ctx context.Context, query string) ([]catalog.SearchResult, string, error) {
	key := uuid.NewString()
	return c.search(key, "series search", func() ([]catalog.SearchResult, error) {
		return c.catA.SearchByName(ctx, query)
	})
}

// SearchSeriesAlt queries the second provider (catalog-B) for series.
func (c *Core) SearchSeriesAlt(ctx context.Context, query string) ([]catalog.SearchResult, string, error) {
	key := uuid.NewString()
	return c.search(key, "series search", func() ([]catalog.SearchResult, error) {
		return c.catB.SearchByName(ctx, query)
	})
}

// SearchMovies queries the second provider (catalog-B) for movies.
func (c *Core) SearchMovies(ctx context.Context, query string) ([]catalog.SearchResult, string, error) {
	key := uuid.NewString()
	return c.search(key, "movie search", func() ([]catalog.SearchResult, error) {
		return c.catB.SearchMoviesByName(ctx, query)
	})
}
