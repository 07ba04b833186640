package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

func newTestStore() *Store {
	return New(ledger.New())
}

func mustEpisode(sid id.SeriesID, season SeasonNumber, number int, aired time.Time) Episode {
	return Episode{ID: id.NewEpisodeID(), SeriesID: sid, Season: season, Number: number, Aired: &aired}
}

func TestInsertSeriesAssignsIDAndMarksLedger(t *testing.T) {
	s := newTestStore()
	sr := s.InsertSeries(Series{Title: "Example", Tracked: true})
	require.False(t, sr.ID.IsZero())

	got, ok := s.GetSeries(sr.ID)
	require.True(t, ok)
	assert.Equal(t, "Example", got.Title)
}

func TestSeriesByNameOrdersCaseInsensitiveWithIDTiebreak(t *testing.T) {
	s := newTestStore()
	s.InsertSeries(Series{Title: "banana"})
	s.InsertSeries(Series{Title: "Apple"})
	s.InsertSeries(Series{Title: "cherry"})

	names := s.SeriesByName()
	require.Len(t, names, 3)
	assert.Equal(t, "Apple", names[0].Title)
	assert.Equal(t, "banana", names[1].Title)
	assert.Equal(t, "cherry", names[2].Title)
}

func TestEpisodeOrderingAndNextPrev(t *testing.T) {
	s := newTestStore()
	sr := s.InsertSeries(Series{Title: "Show", Tracked: true})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e1 := mustEpisode(sr.ID, 1, 1, base)
	e2 := mustEpisode(sr.ID, 1, 2, base.Add(24*time.Hour))
	e3 := mustEpisode(sr.ID, 1, 3, base.Add(48*time.Hour))

	s.ReplaceEpisodes(sr.ID, []Episode{e3, e1, e2})

	it := s.EpisodesBySeries(sr.ID)
	require.Equal(t, 3, it.Len())
	collected := it.Collect()
	require.Len(t, collected, 3)
	assert.Equal(t, e1.ID, collected[0].ID)
	assert.Equal(t, e2.ID, collected[1].ID)
	assert.Equal(t, e3.ID, collected[2].ID)

	next, ok := s.NextEpisode(sr.ID, e1.ID)
	require.True(t, ok)
	assert.Equal(t, e2.ID, next.ID)

	prev, ok := s.PrevEpisode(sr.ID, e2.ID)
	require.True(t, ok)
	assert.Equal(t, e1.ID, prev.ID)

	_, ok = s.NextEpisode(sr.ID, e3.ID)
	assert.False(t, ok)
}

func TestEpisodeOrderingSortsSpecialsLast(t *testing.T) {
	s := newTestStore()
	sr := s.InsertSeries(Series{Title: "Show", Tracked: true})

	// No absolute numbers and no air dates: both collapse to +inf and the
	// order falls through to the season component.
	special := Episode{ID: id.NewEpisodeID(), SeriesID: sr.ID, Season: SpecialsSeason, Number: 1}
	e1 := Episode{ID: id.NewEpisodeID(), SeriesID: sr.ID, Season: 1, Number: 1}
	e2 := Episode{ID: id.NewEpisodeID(), SeriesID: sr.ID, Season: 2, Number: 1}
	s.ReplaceEpisodes(sr.ID, []Episode{special, e2, e1})

	collected := s.EpisodesBySeries(sr.ID).Collect()
	require.Len(t, collected, 3)
	assert.Equal(t, e1.ID, collected[0].ID)
	assert.Equal(t, e2.ID, collected[1].ID)
	assert.Equal(t, special.ID, collected[2].ID)
}

func TestEpisodeIterCollectReverse(t *testing.T) {
	s := newTestStore()
	sr := s.InsertSeries(Series{Title: "Show", Tracked: true})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e1 := mustEpisode(sr.ID, 1, 1, base)
	e2 := mustEpisode(sr.ID, 1, 2, base.Add(time.Hour))
	s.ReplaceEpisodes(sr.ID, []Episode{e1, e2})

	rev := s.EpisodesBySeries(sr.ID).CollectReverse()
	require.Len(t, rev, 2)
	assert.Equal(t, e2.ID, rev[0].ID)
	assert.Equal(t, e1.ID, rev[1].ID)
}

func TestPendingAdvancesPastWatchedAndSkipsSpecials(t *testing.T) {
	s := newTestStore()
	sr := s.InsertSeries(Series{Title: "Show", Tracked: true})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	special := mustEpisode(sr.ID, SpecialsSeason, 1, base)
	e1 := mustEpisode(sr.ID, 1, 1, base.Add(time.Hour))
	e2 := mustEpisode(sr.ID, 1, 2, base.Add(2*time.Hour))
	s.ReplaceEpisodes(sr.ID, []Episode{special, e1, e2})

	p, ok := s.SeriesPending(sr.ID)
	require.True(t, ok)
	assert.Equal(t, e1.ID, p.Kind.EpisodeID)

	s.RecordWatch(EpisodeTarget(sr.ID, e1.ID), base.Add(90*time.Minute))

	p, ok = s.SeriesPending(sr.ID)
	require.True(t, ok)
	assert.Equal(t, e2.ID, p.Kind.EpisodeID)
}

func TestSkipSeriesPendingAdvancesWithoutWatch(t *testing.T) {
	s := newTestStore()
	sr := s.InsertSeries(Series{Title: "Show", Tracked: true})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e1 := mustEpisode(sr.ID, 1, 1, base)
	e2 := mustEpisode(sr.ID, 1, 2, base.Add(time.Hour))
	s.ReplaceEpisodes(sr.ID, []Episode{e1, e2})

	ok := s.SkipSeriesPending(sr.ID)
	require.True(t, ok)

	p, ok := s.SeriesPending(sr.ID)
	require.True(t, ok)
	assert.Equal(t, e2.ID, p.Kind.EpisodeID)
	assert.Empty(t, s.WatchesForEpisode(e1.ID))
}

func TestUntrackClearsPending(t *testing.T) {
	s := newTestStore()
	sr := s.InsertSeries(Series{Title: "Show", Tracked: true})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.ReplaceEpisodes(sr.ID, []Episode{mustEpisode(sr.ID, 1, 1, base)})

	_, ok := s.SeriesPending(sr.ID)
	require.True(t, ok)

	s.Untrack(sr.ID)
	_, ok = s.SeriesPending(sr.ID)
	assert.False(t, ok)
}

func TestRemoveSeriesCascades(t *testing.T) {
	s := newTestStore()
	sr := s.InsertSeries(Series{Title: "Show", Tracked: true})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e1 := mustEpisode(sr.ID, 1, 1, base)
	s.ReplaceEpisodes(sr.ID, []Episode{e1})
	w := s.RecordWatch(EpisodeTarget(sr.ID, e1.ID), base)

	require.True(t, s.RemoveSeries(sr.ID))

	_, ok := s.GetSeries(sr.ID)
	assert.False(t, ok)
	_, ok = s.GetEpisode(sr.ID, e1.ID)
	assert.False(t, ok)
	assert.Empty(t, s.WatchesForEpisode(e1.ID))
	assert.False(t, s.RemoveWatch(w.ID))
}

func TestMovieEarliestByKindAndPending(t *testing.T) {
	s := newTestStore()
	digitalUS := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	theatrical := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	m := s.InsertMovie(Movie{
		Title: "Feature",
		ReleaseDatesByCountry: []CountryRelease{
			{Country: "US", Kind: ReleaseTheatrical, Date: theatrical},
			{Country: "US", Kind: ReleaseDigital, Date: digitalUS},
		},
	})

	got, ok := s.GetMovie(m.ID)
	require.True(t, ok)
	assert.Equal(t, digitalUS, *got.SortableRelease())
	assert.Equal(t, theatrical, *got.EarliestRelease())

	p, ok := s.MoviePending(m.ID)
	require.True(t, ok)
	assert.Equal(t, m.ID, p.Kind.MovieID)
}

func TestRemoteIndexBindAndCascadeUnbind(t *testing.T) {
	s := newTestStore()
	r := id.NewCatalogARemoteID(42)
	sr := s.InsertSeries(Series{Title: "Show", CanonicalRemote: &r})

	view := s.RemoteIndex()
	ref, ok := view.Lookup(r)
	require.True(t, ok)
	assert.Equal(t, sr.ID, ref.SeriesID)

	s.RemoveSeries(sr.ID)
	_, ok = view.Lookup(r)
	assert.False(t, ok)
}

func TestPendingGlobalOrderingAscending(t *testing.T) {
	s := newTestStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sr := s.InsertSeries(Series{Title: "Show", Tracked: true})
	s.ReplaceEpisodes(sr.ID, []Episode{mustEpisode(sr.ID, 1, 1, base.Add(48 * time.Hour))})

	s.InsertMovie(Movie{
		Title:       "Feature",
		ReleaseDate: timePtr(base),
	})

	items := s.Pending().Collect()
	require.Len(t, items, 2)
	assert.True(t, items[0].Timestamp.Before(items[1].Timestamp))
}

func timePtr(t time.Time) *time.Time { return &t }
