// Package catalog defines the abstract remote-catalog operations the core
// depends on. Concrete HTTP clients for the two providers live outside
// this module; this package only specifies the
// Catalog interface internal/ingest consumes, plus the shared plumbing
// (pagination, rate limiting) any real implementation would need.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/store"
)

// ErrNotModified is returned by Series/Movie in place of a result when the
// provider replies that the conditional fetch found no change.
var ErrNotModified = errors.New("catalog: not modified")

// SeriesUpdate is the provider-agnostic normalized series payload.
type SeriesUpdate struct {
	Title        string
	FirstAirDate *time.Time
	Overview     string
	Graphics     store.Graphics
}

// EpisodeUpdate is the provider-agnostic normalized episode payload.
type EpisodeUpdate struct {
	Name            *string
	Overview        string
	AbsoluteNumber  *int
	Season          store.SeasonNumber
	Number          int
	Aired           *time.Time
	Graphics        store.Graphics
	CanonicalRemote *id.RemoteID
}

// SeriesFetchResult is what Series returns on a successful (modified)
// conditional fetch.
type SeriesFetchResult struct {
	Update       SeriesUpdate
	CrossRemotes []id.RemoteID
	ETag         *string
	LastModified *time.Time
}

// MovieUpdate is the provider-agnostic normalized movie payload.
type MovieUpdate struct {
	Title                 string
	ReleaseDate           *time.Time
	Overview              string
	Graphics              store.Graphics
	ReleaseDatesByCountry []store.CountryRelease
}

// MovieFetchResult is what Movie returns on a successful (modified)
// conditional fetch.
type MovieFetchResult struct {
	Update       MovieUpdate
	CrossRemotes []id.RemoteID
	ETag         *string
	LastModified *time.Time
}

// SearchResult is one hit from a provider's by-name search.
type SearchResult struct {
	Remote   id.RemoteID
	Title    string
	Year     *int
	Overview string
	Poster   *id.ImageRef
}

// Catalog is the abstract set of remote-catalog operations ingestion
// (internal/ingest) and the image cache (internal/imagecache) depend on.
// A concrete implementation talks to one of the two real providers
// (or a cross-reference-only provider, for catalog-C); this core never
// assumes which.
type Catalog interface {
	// SeriesLastModified is the HEAD-equivalent check used by
	// CheckForUpdates tasks: it reads the provider's modification
	// time without fetching a body.
	SeriesLastModified(ctx context.Context, remote id.RemoteID) (*time.Time, error)

	// Series performs a conditional fetch; ifNoneMatch, if non-nil, is
	// sent as the request's validator. Returns ErrNotModified if the
	// provider reports no change.
	Series(ctx context.Context, remote id.RemoteID, ifNoneMatch *string) (SeriesFetchResult, error)

	// SeriesEpisodes fetches every episode of remote, paginating
	// internally until the provider's `next` link is absent.
	SeriesEpisodes(ctx context.Context, remote id.RemoteID) ([]EpisodeUpdate, error)

	// Movie performs a conditional fetch for a movie; same ErrNotModified
	// contract as Series.
	Movie(ctx context.Context, remote id.RemoteID, ifNoneMatch *string) (MovieFetchResult, error)

	// DownloadImage fetches the raw bytes of an image at ref's path; the
	// image cache is the only caller.
	DownloadImage(ctx context.Context, ref id.ImageRef) ([]byte, error)

	// SearchByName performs the provider's free-text series search.
	SearchByName(ctx context.Context, query string) ([]SearchResult, error)

	// SearchMoviesByName performs the provider's free-text movie search.
	// Series-only providers return an *Unsupported error.
	SearchMoviesByName(ctx context.Context, query string) ([]SearchResult, error)
}

// Unsupported reports an operation unavailable for a remote's provider,
// e.g. a movie download against a series-only catalog.
type Unsupported struct {
	Op       string
	Provider id.RemoteProvider
}

func (e *Unsupported) Error() string {
	return "catalog: " + e.Op + " unsupported for provider " + e.Provider.String()
}

// Unconfigured is the Catalog used when no provider client has been wired
// in (no API key configured, or a deployment that only serves already-
// ingested data). Every operation fails with a typed *Unsupported error so
// callers surface "configure a catalog" rather than a nil-pointer panic.
type Unconfigured struct {
	Provider id.RemoteProvider
}

func (u Unconfigured) unsupported(op string) error {
	return &Unsupported{Op: op, Provider: u.Provider}
}

func (u Unconfigured) SeriesLastModified(context.Context, id.RemoteID) (*time.Time, error) {
	return nil, u.unsupported("series_last_modified")
}

func (u Unconfigured) Series(context.Context, id.RemoteID, *string) (SeriesFetchResult, error) {
	return SeriesFetchResult{}, u.unsupported("series")
}

func (u Unconfigured) SeriesEpisodes(context.Context, id.RemoteID) ([]EpisodeUpdate, error) {
	return nil, u.unsupported("series_episodes")
}

func (u Unconfigured) Movie(context.Context, id.RemoteID, *string) (MovieFetchResult, error) {
	return MovieFetchResult{}, u.unsupported("movie")
}

func (u Unconfigured) DownloadImage(context.Context, id.ImageRef) ([]byte, error) {
	return nil, u.unsupported("download_image")
}

func (u Unconfigured) SearchByName(context.Context, string) ([]SearchResult, error) {
	return nil, u.unsupported("search_by_name")
}

func (u Unconfigured) SearchMoviesByName(context.Context, string) ([]SearchResult, error) {
	return nil, u.unsupported("search_movies_by_name")
}
