package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/config"
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/imagecache"
	"github.com/jellywatch/core/internal/ledger"
	"github.com/jellywatch/core/internal/persist"
	"github.com/jellywatch/core/internal/queue"
	"github.com/jellywatch/core/internal/status"
	"github.com/jellywatch/core/internal/store"
)

type fixedNow time.Time

func (f fixedNow) Now() time.Time { return time.Time(f) }

func newTestCore(t *testing.T, now time.Time) (*Core, *store.Store) {
	t.Helper()
	l := ledger.New()
	st := store.New(l)
	st.SetClock(func() time.Time { return now })
	driver := persist.NewDriver(t.TempDir(), persist.LineDelimited)
	c := New(Options{
		Store:         st,
		Ledger:        l,
		Queue:         queue.New(0),
		Driver:        driver,
		Images:        imagecache.New(t.TempDir(), catalog.Unconfigured{}),
		SeriesCatalog: catalog.Unconfigured{Provider: id.CatalogA},
		MovieCatalog:  catalog.Unconfigured{Provider: id.CatalogB},
		Errors:        status.NewRing(0),
		Config:        config.DefaultConfig(),
	})
	c.SetAnchor(fixedNow(now))
	return c, st
}

func seedEpisode(sid id.SeriesID, season store.SeasonNumber, number int, aired *time.Time) store.Episode {
	return store.Episode{ID: id.NewEpisodeID(), SeriesID: sid, Season: season, Number: number, Aired: aired}
}

func tp(t time.Time) *time.Time { return &t }

func TestWatchAdvancesPending(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	e1 := seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, -10)))
	e2 := seedEpisode(sr.ID, 1, 2, tp(now.AddDate(0, 0, -3)))
	st.ReplaceEpisodes(sr.ID, []store.Episode{e1, e2})

	_, err := c.WatchEpisode(now, sr.ID, e1.ID, store.ModeAired)
	require.NoError(t, err)

	require.Len(t, c.WatchedByEpisode(e1.ID), 1)

	p, ok := st.SeriesPending(sr.ID)
	require.True(t, ok)
	assert.Equal(t, e2.ID, p.Kind.EpisodeID)
	assert.Equal(t, now, p.Timestamp)
}

func TestWatchAiredRefusesUnaired(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	future := seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, 5)))
	undated := seedEpisode(sr.ID, 1, 2, nil)
	st.ReplaceEpisodes(sr.ID, []store.Episode{future, undated})

	_, err := c.WatchEpisode(now, sr.ID, future.ID, store.ModeAired)
	assert.ErrorIs(t, err, ErrNotAired)

	_, err = c.WatchEpisode(now, sr.ID, undated.ID, store.ModeAirDate)
	assert.ErrorIs(t, err, ErrNoAirDate)
}

func TestWatchRemainingSeasonAirDateSkipsUnaired(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	e1 := seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, -5)))
	e2 := seedEpisode(sr.ID, 1, 2, tp(now.AddDate(0, 0, 5)))
	st.ReplaceEpisodes(sr.ID, []store.Episode{e1, e2})

	watched := c.WatchRemainingSeason(now, sr.ID, 1, store.ModeAirDate)
	require.Len(t, watched, 1)
	assert.Equal(t, e1.ID, watched[0].Target.EpisodeID)
	assert.Equal(t, now.AddDate(0, 0, -5), watched[0].Timestamp)

	assert.Empty(t, c.WatchedByEpisode(e2.ID))

	p, ok := st.SeriesPending(sr.ID)
	require.True(t, ok)
	assert.Equal(t, e2.ID, p.Kind.EpisodeID)
}

func TestRemoveLastMovieWatchResurrectsPending(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	release := now.AddDate(0, 0, -30)
	m := st.InsertMovie(store.Movie{
		Title:                 "Feature",
		ReleaseDatesByCountry: []store.CountryRelease{{Country: "US", Kind: store.ReleaseDigital, Date: release}},
	})

	w, err := c.WatchMovie(now.AddDate(0, 0, -10), m.ID, store.ModeAired)
	require.NoError(t, err)
	_, ok := st.MoviePending(m.ID)
	require.False(t, ok)

	require.NoError(t, c.RemoveMovieWatch(m.ID, w.ID))

	p, ok := st.MoviePending(m.ID)
	require.True(t, ok)
	assert.Equal(t, now, p.Timestamp)
}

func TestRemoveSeasonWatches(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	e1 := seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, -2)))
	e2 := seedEpisode(sr.ID, 1, 2, tp(now.AddDate(0, 0, -1)))
	st.ReplaceEpisodes(sr.ID, []store.Episode{e1, e2})

	c.WatchRemainingSeason(now, sr.ID, 1, store.ModeAired)
	require.Len(t, c.WatchedByEpisode(e1.ID), 1)

	removed := c.RemoveSeasonWatches(sr.ID, 1)
	assert.Equal(t, 2, removed)
	assert.Empty(t, c.WatchedByEpisode(e1.ID))
	assert.Empty(t, c.WatchedByEpisode(e2.ID))
}

func TestRemoveSeriesDropsKeyedTasks(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	remote := id.NewCatalogARemoteID(7)
	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true, CanonicalRemote: &remote})

	_, ok := c.PushTaskWithoutDelay(queue.CheckForUpdates(sr.ID, remote, nil))
	require.True(t, ok)
	require.Len(t, c.PendingTasks(), 1)

	require.NoError(t, c.RemoveSeries(sr.ID))
	assert.Empty(t, c.PendingTasks())
	assert.Equal(t, queue.StatusNone, c.TaskStatus(queue.SeriesRef(sr.ID)))
}

func TestSelectAndClearPending(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	e1 := seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, -2)))
	e2 := seedEpisode(sr.ID, 1, 2, tp(now.AddDate(0, 0, -1)))
	st.ReplaceEpisodes(sr.ID, []store.Episode{e1, e2})

	require.NoError(t, c.SelectPending(sr.ID, e2.ID))
	p, ok := st.SeriesPending(sr.ID)
	require.True(t, ok)
	assert.Equal(t, e2.ID, p.Kind.EpisodeID)

	require.NoError(t, c.ClearPending(sr.ID))
	_, ok = st.SeriesPending(sr.ID)
	assert.False(t, ok)
}

func TestSkipAdvancesWithoutWatch(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	e1 := seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, -2)))
	e2 := seedEpisode(sr.ID, 1, 2, tp(now.AddDate(0, 0, -1)))
	st.ReplaceEpisodes(sr.ID, []store.Episode{e1, e2})

	require.NoError(t, c.Skip(sr.ID))

	p, ok := st.SeriesPending(sr.ID)
	require.True(t, ok)
	assert.Equal(t, e2.ID, p.Kind.EpisodeID)
	assert.Empty(t, c.WatchedByEpisode(e1.ID))
}

func TestScheduleGroupsByCalendarDay(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	today := seedEpisode(sr.ID, 1, 1, tp(time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)))
	inThree := seedEpisode(sr.ID, 1, 2, tp(time.Date(2026, 2, 4, 20, 0, 0, 0, time.UTC)))
	past := seedEpisode(sr.ID, 1, 3, tp(time.Date(2026, 1, 20, 20, 0, 0, 0, time.UTC)))
	st.ReplaceEpisodes(sr.ID, []store.Episode{today, inThree, past})

	untracked := st.InsertSeries(store.Series{Title: "Ignored"})
	st.ReplaceEpisodes(untracked.ID, []store.Episode{seedEpisode(untracked.ID, 1, 1, tp(now))})

	days := c.Schedule()
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), days[0].Date)
	require.Len(t, days[0].Series, 1)
	assert.Equal(t, "Show", days[0].Series[0].Title)
	require.Len(t, days[0].Series[0].Episodes, 1)
	assert.Equal(t, today.ID, days[0].Series[0].Episodes[0].EpisodeID)
	assert.Equal(t, time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC), days[1].Date)
}

func TestPendingNewestFirst(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	st.ReplaceEpisodes(sr.ID, []store.Episode{seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, 3)))})
	st.InsertMovie(store.Movie{Title: "Feature", ReleaseDate: tp(now.AddDate(0, 0, -3))})

	items := c.Pending()
	require.Len(t, items, 2)
	assert.True(t, !items[0].Timestamp.Before(items[1].Timestamp))
}

func TestSearchRecordsCorrelatedError(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, _ := newTestCore(t, now)

	_, key, err := c.SearchSeries(context.Background(), "unknown show")
	require.Error(t, err)
	require.NotEmpty(t, key)

	entries := c.ErrorsByKey(key)
	require.Len(t, entries, 1)
	assert.Equal(t, status.KindRemote, entries[0].Kind)
}

func TestImportWatchHistory(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c, st := newTestCore(t, now)

	remote := id.NewCatalogARemoteID(11)
	sr := st.InsertSeries(store.Series{Title: "Imported Show", Tracked: true, CanonicalRemote: &remote})
	e1 := seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, -30)))
	st.ReplaceEpisodes(sr.ID, []store.Episode{e1})

	unknown := id.NewCatalogARemoteID(99)
	watchedAt := now.AddDate(0, 0, -7)

	sum := c.ImportWatchHistory([]ImportedWatch{
		{Remote: remote, Season: 1, Number: 1, WatchedAt: watchedAt, Title: "Imported Show"},
		{Remote: unknown, Season: 1, Number: 1, WatchedAt: watchedAt, Title: "Unknown Show"},
		{Remote: remote, Season: 1, Number: 1, WatchedAt: watchedAt, Title: "filtered out"},
	}, ImportOptions{TitleFilter: "show", ImportMissing: true})

	assert.Equal(t, 1, sum.Imported)
	assert.Equal(t, 1, sum.Filtered)
	assert.Equal(t, 1, sum.Missing)
	assert.Equal(t, 1, sum.Enqueued)

	watches := c.WatchedByEpisode(e1.ID)
	require.Len(t, watches, 1)
	assert.Equal(t, watchedAt, watches[0].Timestamp)

	assert.Equal(t, queue.StatusPending, c.TaskStatus(queue.RemoteRef(unknown)))
}

func TestParseVariantHint(t *testing.T) {
	v, err := ParseVariantHint("original")
	require.NoError(t, err)
	assert.True(t, v.Original)

	v, err = ParseVariantHint("fill-240x360")
	require.NoError(t, err)
	assert.Equal(t, imagecache.FitCover, v.Fit)
	assert.Equal(t, 240, v.Width)
	assert.Equal(t, 360, v.Height)

	v, err = ParseVariantHint("fit-100x100")
	require.NoError(t, err)
	assert.Equal(t, imagecache.FitLetterbox, v.Fit)

	for _, bad := range []string{"", "fit", "fit-100", "fit-0x10", "stretch-10x10", "fit-ax10"} {
		_, err := ParseVariantHint(bad)
		assert.Error(t, err, bad)
	}
}

func TestSaveChangesRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	dir := t.TempDir()
	l := ledger.New()
	st := store.New(l)
	st.SetClock(func() time.Time { return now })
	driver := persist.NewDriver(dir, persist.LineDelimited)
	c := New(Options{
		Store: st, Ledger: l, Queue: queue.New(0), Driver: driver,
		Images:        imagecache.New(t.TempDir(), catalog.Unconfigured{}),
		SeriesCatalog: catalog.Unconfigured{}, MovieCatalog: catalog.Unconfigured{},
		Errors:        status.NewRing(0), Config: config.DefaultConfig(),
	})

	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: true})
	e1 := seedEpisode(sr.ID, 1, 1, tp(now.AddDate(0, 0, -1)))
	st.ReplaceEpisodes(sr.ID, []store.Episode{e1})
	_, err := c.WatchEpisode(now, sr.ID, e1.ID, store.ModeAired)
	require.NoError(t, err)

	require.NoError(t, c.SaveChanges())

	reloaded := store.New(ledger.New())
	require.NoError(t, persist.NewDriver(dir, persist.LineDelimited).Load(reloaded))

	got, ok := reloaded.GetSeries(sr.ID)
	require.True(t, ok)
	assert.Equal(t, "Show", got.Title)
	require.Len(t, reloaded.WatchesForEpisode(e1.ID), 1)
}
