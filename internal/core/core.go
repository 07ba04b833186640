// Package core is the operation surface the UI/HTTP layer talks to: it
// composes the entity store, task queue, persistence driver, image cache,
// and the two catalog clients behind one façade of typed methods.
package core

import (
	"errors"
	"time"

	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/config"
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/imagecache"
	"github.com/jellywatch/core/internal/ledger"
	"github.com/jellywatch/core/internal/logging"
	"github.com/jellywatch/core/internal/persist"
	"github.com/jellywatch/core/internal/queue"
	"github.com/jellywatch/core/internal/status"
	"github.com/jellywatch/core/internal/store"
)

// ErrNotFound reports that a requested local entity does not exist.
var ErrNotFound = errors.New("core: not found")

// ErrNotAired reports an Aired-mode watch against an episode that has not
// aired yet as of "now".
var ErrNotAired = errors.New("core: episode has not aired")

// ErrNoAirDate reports an AirDate-mode watch against an episode (or movie)
// with no known air/release date.
var ErrNoAirDate = errors.New("core: no air date recorded")

// NowSource supplies the cached "now" the schedule window is anchored at;
// the scheduler loop implements it, refreshing its value once per sweep.
type NowSource interface {
	Now() time.Time
}

// nowFunc adapts a plain func to NowSource, the fallback when no scheduler
// is wired in (tests, one-shot tools).
type nowFunc func() time.Time

func (f nowFunc) Now() time.Time { return f() }

// Options collects the collaborators a Core composes. SeriesCatalog is the
// series-first provider (catalog-A); MovieCatalog is the provider that
// serves both series and movie search (catalog-B). Either may be
// catalog.Unconfigured. The schedule anchor is not an option: it is wired in
// later with SetAnchor, and until then time.Now is used directly.
type Options struct {
	Store         *store.Store
	Ledger        *ledger.Ledger
	Queue         *queue.Queue
	Driver        *persist.Driver
	Images        *imagecache.Cache
	SeriesCatalog catalog.Catalog
	MovieCatalog  catalog.Catalog
	Errors        *status.Ring
	Config        *config.Config
	Logger        *logging.Logger
}

// Core is the composed operation surface.
type Core struct {
	st     *store.Store
	ledger *ledger.Ledger
	q      *queue.Queue
	driver *persist.Driver
	images *imagecache.Cache
	catA   catalog.Catalog
	catB   catalog.Catalog
	errs   *status.Ring
	cfg    *config.Config
	logger *logging.Logger
	anchor NowSource
}

// New assembles a Core from opts.
func New(opts Options) *Core {
	c := &Core{
		st:     opts.Store,
		ledger: opts.Ledger,
		q:      opts.Queue,
		driver: opts.Driver,
		images: opts.Images,
		catA:   opts.SeriesCatalog,
		catB:   opts.MovieCatalog,
		errs:   opts.Errors,
		cfg:    opts.Config,
		logger: opts.Logger,
		anchor: nowFunc(time.Now),
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	return c
}

// SetAnchor wires in the scheduler's cached-now source once the scheduler
// exists; until then Schedule falls back to the wall clock.
func (c *Core) SetAnchor(anchor NowSource) {
	if anchor != nil {
		c.anchor = anchor
	}
}

// Series returns the series with id sid.
func (c *Core) Series(sid id.SeriesID) (store.Series, error) {
	sr, ok := c.st.GetSeries(sid)
	if !ok {
		return store.Series{}, ErrNotFound
	}
	return sr, nil
}

// SeriesByName lists every series in case-preserving title order.
func (c *Core) SeriesByName() []store.Series { return c.st.SeriesByName() }

// Movie returns the movie with id mid.
func (c *Core) Movie(mid id.MovieID) (store.Movie, error) {
	m, ok := c.st.GetMovie(mid)
	if !ok {
		return store.Movie{}, ErrNotFound
	}
	return m, nil
}

// MoviesByName lists every movie in case-preserving title order.
func (c *Core) MoviesByName() []store.Movie { return c.st.MoviesByName() }

// Episodes returns sid's episodes as a double-ended iterator in watch-key
// order.
func (c *Core) Episodes(sid id.SeriesID) *store.EpisodeIter {
	return c.st.EpisodesBySeries(sid)
}

// EpisodesBySeason returns one season's episodes in watch-key order.
func (c *Core) EpisodesBySeason(sid id.SeriesID, n store.SeasonNumber) *store.EpisodeIter {
	return c.st.EpisodesBySeason(sid, n)
}

// SeasonRef is a season plus its next/prev navigation.
type SeasonRef struct {
	Season store.Season
	Next   *store.SeasonNumber
	Prev   *store.SeasonNumber
}

// Season returns season n of sid with navigation populated.
func (c *Core) Season(sid id.SeriesID, n store.SeasonNumber) (SeasonRef, error) {
	sea, ok := c.st.GetSeason(sid, n)
	if !ok {
		return SeasonRef{}, ErrNotFound
	}
	ref := SeasonRef{Season: sea}
	if next, ok := c.st.NextSeason(sid, n); ok {
		num := next.Number
		ref.Next = &num
	}
	if prev, ok := c.st.PrevSeason(sid, n); ok {
		num := prev.Number
		ref.Prev = &num
	}
	return ref, nil
}

// WatchedByEpisode returns every watch logged against eid.
func (c *Core) WatchedByEpisode(eid id.EpisodeID) []store.Watch {
	return c.st.WatchesForEpisode(eid)
}

// WatchedByMovie returns every watch logged against mid.
func (c *Core) WatchedByMovie(mid id.MovieID) []store.Watch {
	return c.st.WatchesForMovie(mid)
}

// Pending returns the global pending list newest-first.
func (c *Core) Pending() []store.PendingItem {
	return c.st.Pending().CollectReverse()
}

// RemotesBySeries returns every remote id bound to sid.
func (c *Core) RemotesBySeries(sid id.SeriesID) []id.RemoteID {
	return c.st.RemoteIndex().RemotesForSeries(sid)
}

// RemotesByMovie returns every remote id bound to mid.
func (c *Core) RemotesByMovie(mid id.MovieID) []id.RemoteID {
	return c.st.RemoteIndex().RemotesForMovie(mid)
}

// Errors drains a snapshot of the error ring, oldest first.
func (c *Core) Errors() []status.Entry { return c.errs.All() }

// ErrorsByKey returns the ring entries correlated with key, for inline
// error surfaces.
func (c *Core) ErrorsByKey(key string) []status.Entry { return c.errs.ByKey(key) }

// SaveChanges flushes every dirty family to disk immediately, outside the
// debounce cycle. An empty ledger is a no-op.
func (c *Core) SaveChanges() error {
	snap := c.ledger.Flush()
	if snap.Empty() {
		return nil
	}
	if err := c.driver.Save(snap, c.st); err != nil {
		c.ledger.Restore(snap)
		c.errs.RecordError(status.KindIO, "persist", "save failed", err)
		return err
	}
	return nil
}
