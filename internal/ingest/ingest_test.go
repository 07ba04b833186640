package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
	"github.com/jellywatch/core/internal/store"
)

type fakeCatalog struct {
	seriesResult   catalog.SeriesFetchResult
	seriesErr      error
	episodes       []catalog.EpisodeUpdate
	episodesErr    error
	movieResult    catalog.MovieFetchResult
	movieErr       error
}

func (f *fakeCatalog) SeriesLastModified(context.Context, id.RemoteID) (*time.Time, error) {
	return nil, nil
}
func (f *fakeCatalog) Series(context.Context, id.RemoteID, *string) (catalog.SeriesFetchResult, error) {
	return f.seriesResult, f.seriesErr
}
func (f *fakeCatalog) SeriesEpisodes(context.Context, id.RemoteID) ([]catalog.EpisodeUpdate, error) {
	return f.episodes, f.episodesErr
}
func (f *fakeCatalog) Movie(context.Context, id.RemoteID, *string) (catalog.MovieFetchResult, error) {
	return f.movieResult, f.movieErr
}
func (f *fakeCatalog) DownloadImage(context.Context, id.ImageRef) ([]byte, error) { return nil, nil }
func (f *fakeCatalog) SearchByName(context.Context, string) ([]catalog.SearchResult, error) {
	return nil, nil
}
func (f *fakeCatalog) SearchMoviesByName(context.Context, string) ([]catalog.SearchResult, error) {
	return nil, nil
}

func newTestStore() *store.Store {
	return store.New(ledger.New())
}

func TestIngestSeriesCreatesNewSeriesAndDerivesSeasons(t *testing.T) {
	st := newTestStore()
	remote := id.NewCatalogARemoteID(1)
	aired1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	aired2 := aired1.Add(7 * 24 * time.Hour)

	fc := &fakeCatalog{
		seriesResult: catalog.SeriesFetchResult{
			Update: catalog.SeriesUpdate{Title: "Show", Overview: "desc"},
		},
		episodes: []catalog.EpisodeUpdate{
			{Season: 1, Number: 1, Aired: &aired2},
			{Season: 1, Number: 2, Aired: &aired1},
		},
	}

	r := New(fc, st)
	out, err := r.IngestSeries(context.Background(), remote, id.SeriesID{})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	require.False(t, out.SeriesID.IsZero())

	sr, ok := st.GetSeries(out.SeriesID)
	require.True(t, ok)
	assert.Equal(t, "Show", sr.Title)
	assert.True(t, sr.Tracked)

	seasons := st.SeasonsBySeries(out.SeriesID)
	require.Len(t, seasons, 1)
	assert.Equal(t, aired1, *seasons[0].AirDate)

	episodes := st.EpisodesBySeries(out.SeriesID).Collect()
	require.Len(t, episodes, 2)
}

func TestIngestSeriesNotModifiedUpdatesSyncOnly(t *testing.T) {
	st := newTestStore()
	remote := id.NewCatalogARemoteID(2)
	fc := &fakeCatalog{seriesErr: catalog.ErrNotModified}

	r := New(fc, st)
	out, err := r.IngestSeries(context.Background(), remote, id.SeriesID{})
	require.NoError(t, err)
	assert.False(t, out.Changed)

	ss, ok := st.GetSyncState(remote)
	require.True(t, ok)
	assert.NotNil(t, ss.LastSyncTime)
}

func TestIngestSeriesResolvesByCrossRemote(t *testing.T) {
	st := newTestStore()
	remoteA := id.NewCatalogARemoteID(10)
	remoteC := id.NewCatalogCRemoteID(id.NewShortID("tt0099"))

	sr := st.InsertSeries(store.Series{Title: "Existing", Tracked: true, CanonicalRemote: &remoteC})
	st.BindRemote(remoteC, store.LocalRef{Kind: store.LocalSeries, SeriesID: sr.ID})

	fc := &fakeCatalog{
		seriesResult: catalog.SeriesFetchResult{
			Update:       catalog.SeriesUpdate{Title: "Existing Renamed"},
			CrossRemotes: []id.RemoteID{remoteC},
		},
	}

	r := New(fc, st)
	out, err := r.IngestSeries(context.Background(), remoteA, id.SeriesID{})
	require.NoError(t, err)
	assert.Equal(t, sr.ID, out.SeriesID)

	got, ok := st.GetSeries(sr.ID)
	require.True(t, ok)
	assert.Equal(t, "Existing Renamed", got.Title)
}

func TestIngestSeriesPreservesCustomizedGraphicsSlot(t *testing.T) {
	st := newTestStore()
	remote := id.NewCatalogARemoteID(20)

	customPoster := id.ImageRef{Provider: id.ImageProviderA, Path: "custom.jpg"}
	sr := st.InsertSeries(store.Series{
		Title:   "Show",
		Tracked: true,
		Graphics: store.Graphics{
			Poster:     &customPoster,
			Customized: map[string]bool{"poster": true},
		},
		CanonicalRemote: &remote,
	})

	newPoster := id.ImageRef{Provider: id.ImageProviderA, Path: "new.jpg"}
	fc := &fakeCatalog{
		seriesResult: catalog.SeriesFetchResult{
			Update: catalog.SeriesUpdate{
				Title:    "Show",
				Graphics: store.Graphics{Poster: &newPoster},
			},
		},
	}

	r := New(fc, st)
	_, err := r.IngestSeries(context.Background(), remote, sr.ID)
	require.NoError(t, err)

	got, _ := st.GetSeries(sr.ID)
	require.NotNil(t, got.Graphics.Poster)
	assert.Equal(t, "custom.jpg", got.Graphics.Poster.Path)
}

func TestIngestMovieRecomputesEarliestByKind(t *testing.T) {
	st := newTestStore()
	remote := id.NewCatalogBRemoteID(5)
	digital := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	fc := &fakeCatalog{
		movieResult: catalog.MovieFetchResult{
			Update: catalog.MovieUpdate{
				Title: "A Film",
				ReleaseDatesByCountry: []store.CountryRelease{
					{Country: "US", Kind: store.ReleaseDigital, Date: digital},
				},
			},
		},
	}

	r := New(fc, st)
	out, err := r.IngestMovie(context.Background(), remote, id.MovieID{})
	require.NoError(t, err)
	require.False(t, out.MovieID.IsZero())

	m, ok := st.GetMovie(out.MovieID)
	require.True(t, ok)
	require.Contains(t, m.EarliestByKind, store.ReleaseDigital)
	assert.Equal(t, digital, m.EarliestByKind[store.ReleaseDigital].Date)
}
