package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
	"github.com/jellywatch/core/internal/logging"
	"github.com/jellywatch/core/internal/persist"
	"github.com/jellywatch/core/internal/queue"
	"github.com/jellywatch/core/internal/status"
	"github.com/jellywatch/core/internal/store"
)

type fakeCatalog struct {
	lastModified *time.Time
	lastModErr   error
}

func (f *fakeCatalog) SeriesLastModified(context.Context, id.RemoteID) (*time.Time, error) {
	return f.lastModified, f.lastModErr
}
func (f *fakeCatalog) Series(context.Context, id.RemoteID, *string) (catalog.SeriesFetchResult, error) {
	return catalog.SeriesFetchResult{}, catalog.ErrNotModified
}
func (f *fakeCatalog) SeriesEpisodes(context.Context, id.RemoteID) ([]catalog.EpisodeUpdate, error) {
	return nil, nil
}
func (f *fakeCatalog) Movie(context.Context, id.RemoteID, *string) (catalog.MovieFetchResult, error) {
	return catalog.MovieFetchResult{}, catalog.ErrNotModified
}
func (f *fakeCatalog) DownloadImage(context.Context, id.ImageRef) ([]byte, error) { return nil, nil }
func (f *fakeCatalog) SearchByName(context.Context, string) ([]catalog.SearchResult, error) {
	return nil, nil
}
func (f *fakeCatalog) SearchMoviesByName(context.Context, string) ([]catalog.SearchResult, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T, cat catalog.Catalog) (*Scheduler, *store.Store, *queue.Queue) {
	t.Helper()
	l := ledger.New()
	st := store.New(l)
	q := queue.New(0)
	driver := persist.NewDriver(t.TempDir(), persist.LineDelimited)
	errs := status.NewRing(0)
	logger, err := logging.New(logging.Config{File: filepath.Join(t.TempDir(), "log.txt")})
	require.NoError(t, err)
	return New(q, st, l, cat, driver, errs, logger), st, q
}

func TestDispatchCheckForUpdatesSchedulesDownloadWhenModified(t *testing.T) {
	modified := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, st, q := newTestScheduler(t, &fakeCatalog{lastModified: &modified})

	remote := id.NewCatalogARemoteID(1)
	sid := id.NewSeriesID()
	st.InsertSeries(store.Series{ID: sid, Title: "Show", Tracked: true, CanonicalRemote: &remote})

	task := queue.Task{ID: id.NewTaskID(), Kind: queue.CheckForUpdates(sid, remote, nil)}
	err := s.dispatchCheckForUpdates(context.Background(), task)
	require.NoError(t, err)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, queue.KindDownloadSeries, pending[0].Kind.Kind)
	assert.Equal(t, sid, pending[0].Kind.Series)
}

func TestDispatchCheckForUpdatesNoOpWhenNotStale(t *testing.T) {
	modified := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s, st, q := newTestScheduler(t, &fakeCatalog{lastModified: &modified})

	remote := id.NewCatalogARemoteID(2)
	st.SetSyncState(remote, store.SyncState{LastModified: &modified})

	task := queue.Task{ID: id.NewTaskID(), Kind: queue.CheckForUpdates(id.NewSeriesID(), remote, nil)}
	err := s.dispatchCheckForUpdates(context.Background(), task)
	require.NoError(t, err)
	assert.Empty(t, q.Pending())

	sync, ok := st.GetSyncState(remote)
	require.True(t, ok)
	require.NotNil(t, sync.LastSyncTime)
	assert.Equal(t, modified, *sync.LastModified)
}

func TestDispatchDownloadSeriesByRemoteTracksExistingLocal(t *testing.T) {
	s, st, _ := newTestScheduler(t, &fakeCatalog{})

	remote := id.NewCatalogARemoteID(3)
	sr := st.InsertSeries(store.Series{Title: "Show", Tracked: false, CanonicalRemote: &remote})
	st.BindRemote(remote, store.LocalRef{Kind: store.LocalSeries, SeriesID: sr.ID})

	task := queue.Task{ID: id.NewTaskID(), Kind: queue.DownloadSeriesByRemote(remote)}
	err := s.dispatchDownloadSeries(context.Background(), task)
	require.NoError(t, err)

	got, ok := st.GetSeries(sr.ID)
	require.True(t, ok)
	assert.True(t, got.Tracked)
}

func TestIsStaleTrueWithNoSyncState(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeCatalog{})
	assert.True(t, s.isStale(id.NewCatalogARemoteID(4)))
}

func TestIsStaleFalseWhenRecentlySynced(t *testing.T) {
	s, st, _ := newTestScheduler(t, &fakeCatalog{})
	remote := id.NewCatalogARemoteID(5)
	now := time.Now()
	st.SetSyncState(remote, store.SyncState{LastSyncTime: &now, LastModified: &now})
	assert.False(t, s.isStale(remote))
}

func TestRunSweepEnqueuesStaleTrackedSeries(t *testing.T) {
	s, st, q := newTestScheduler(t, &fakeCatalog{})
	remote := id.NewCatalogARemoteID(6)
	st.InsertSeries(store.Series{Title: "Stale Show", Tracked: true, CanonicalRemote: &remote})

	s.runSweep(context.Background())

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, queue.KindCheckForUpdates, pending[0].Kind.Kind)
}

func TestMaybeSaveFlushesDirtyLedger(t *testing.T) {
	s, st, _ := newTestScheduler(t, &fakeCatalog{})
	st.InsertSeries(store.Series{Title: "Show", Tracked: true})

	s.maybeSave()
	assert.False(t, s.lastSave.IsZero())
}
