package catalog

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Page is one page of a provider's cursor-paginated listing. Cursor is opaque; FetchAll stops once a page reports
// no next cursor.
type Page[Raw any] struct {
	Data []Raw
	Next *string
}

// FetchPageFunc retrieves one page given the previous page's cursor (nil
// for the first page).
type FetchPageFunc[Raw any] func(ctx context.Context, cursor *string) (Page[Raw], error)

// ParseRowFunc turns one raw provider row into the normalized T, or
// returns an error if the row is malformed.
type ParseRowFunc[Raw, T any] func(raw Raw) (T, error)

// FetchAll walks every page fetchPage returns until a page's Next is nil,
// parsing each page's rows concurrently via errgroup (within a page rather
// than across pages, since a cursor is not known until the prior page is
// fetched).
// A row that fails to parse is reported to onSkip and dropped rather than
// failing the whole fetch.
func FetchAll[Raw, T any](ctx context.Context, fetchPage FetchPageFunc[Raw], parseRow ParseRowFunc[Raw, T], onSkip func(raw Raw, err error)) ([]T, error) {
	var out []T
	var cursor *string

	for {
		page, err := fetchPage(ctx, cursor)
		if err != nil {
			return out, err
		}

		parsed := make([]*T, len(page.Data))
		g, gctx := errgroup.WithContext(ctx)
		for i, raw := range page.Data {
			i, raw := i, raw
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				v, err := parseRow(raw)
				if err != nil {
					if onSkip != nil {
						onSkip(raw, err)
					}
					return nil
				}
				parsed[i] = &v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return out, err
		}
		for _, p := range parsed {
			if p != nil {
				out = append(out, *p)
			}
		}

		if page.Next == nil {
			return out, nil
		}
		cursor = page.Next
	}
}
