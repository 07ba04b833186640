package persist

import (
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
	"github.com/jellywatch/core/internal/store"
)

// remoteRecordKind discriminates which local entity a remotes.* group
// names.
type remoteRecordKind int

const (
	remoteRecordSeries remoteRecordKind = iota
	remoteRecordMovie
	remoteRecordEpisode
)

type remoteRecord struct {
	Kind      remoteRecordKind
	SeriesID  id.SeriesID
	EpisodeID id.EpisodeID
	MovieID   id.MovieID
	Remotes   []id.RemoteID
}

func toRemoteRecord(b store.RemoteBinding) remoteRecord {
	switch b.Ref.Kind {
	case store.LocalEpisode:
		return remoteRecord{Kind: remoteRecordEpisode, SeriesID: b.Ref.SeriesID, EpisodeID: b.Ref.EpisodeID, Remotes: b.Remotes}
	case store.LocalMovie:
		return remoteRecord{Kind: remoteRecordMovie, MovieID: b.Ref.MovieID, Remotes: b.Remotes}
	default:
		return remoteRecord{Kind: remoteRecordSeries, SeriesID: b.Ref.SeriesID, Remotes: b.Remotes}
	}
}

func (r remoteRecord) toLocalRef() store.LocalRef {
	switch r.Kind {
	case remoteRecordEpisode:
		return store.LocalRef{Kind: store.LocalEpisode, SeriesID: r.SeriesID, EpisodeID: r.EpisodeID}
	case remoteRecordMovie:
		return store.LocalRef{Kind: store.LocalMovie, MovieID: r.MovieID}
	default:
		return store.LocalRef{Kind: store.LocalSeries, SeriesID: r.SeriesID}
	}
}

// skipRecord persists one skipped-without-watch target, kept as a sibling
// file of pending.* since it is not itself a PendingItem.
type skipRecord struct {
	SeriesID  id.SeriesID
	EpisodeID id.EpisodeID
	MovieID   id.MovieID
	IsMovie   bool
}

const (
	familySeries  = "series"
	familyMovies  = "movies"
	familyWatched = "watched"
	familyPending = "pending"
	familySync    = "sync"
	familyRemotes = "remotes"
	familySkipped = "skipped"

	episodesDir = "episodes"
	seasonsDir  = "seasons"
)

// Driver is the persistence driver: it maps the change ledger's coarse
// families onto the on-disk layout, one file per family plus per-series
// trees, with a single process-wide write lock serializing flushes.
type Driver struct {
	dir      string
	encoding Encoding

	// mu is the single write lock guarding save flushes; readers proceed via the atomic-rename barrier in
	// SaveRecords without needing this lock.
	mu sync.Mutex

	// readOnly turns Save into a no-op ("do not save" mode). Loads still
	// work.
	readOnly bool
}

// SetReadOnly toggles "do not save" mode.
func (d *Driver) SetReadOnly(readOnly bool) {
	d.mu.Lock()
	d.readOnly = readOnly
	d.mu.Unlock()
}

// NewDriver creates a driver rooted at dir (the configuration directory)
// emitting encoding as its canonical on-disk form.
func NewDriver(dir string, encoding Encoding) *Driver {
	return &Driver{dir: dir, encoding: encoding}
}

// Save writes every family snap marks dirty, plus the per-series
// episodes/seasons trees for any series whose Series family changed, and
// removes the files for any series/movies recorded as removed. Per-family
// write failures are combined rather than aborting the whole flush.
func (d *Driver) Save(snap ledger.Snapshot, st *store.Store) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readOnly {
		return nil
	}

	var errs error

	if snap.Dirty(ledger.Series) {
		errs = multierr.Append(errs, d.saveSeries(st))
		errs = multierr.Append(errs, d.savePerSeriesFiles(st))
	}
	if snap.Dirty(ledger.Movie) {
		errs = multierr.Append(errs, d.saveMovies(st))
	}
	if snap.Dirty(ledger.Watched) {
		errs = multierr.Append(errs, d.saveWatched(st))
	}
	if snap.Dirty(ledger.Pending) {
		errs = multierr.Append(errs, d.savePending(st))
		errs = multierr.Append(errs, d.saveSkipped(st))
	}
	if snap.Dirty(ledger.Sync) {
		errs = multierr.Append(errs, d.saveSync(st))
	}
	if snap.Dirty(ledger.Remotes) {
		errs = multierr.Append(errs, d.saveRemotes(st))
	}

	for _, sid := range snap.RemovedSeries {
		RemoveFamily(filepath.Join(d.dir, episodesDir), sid.String())
		RemoveFamily(filepath.Join(d.dir, seasonsDir), sid.String())
	}

	return errs
}

func (d *Driver) saveSeries(st *store.Store) error {
	return SaveRecords(d.dir, familySeries, d.encoding, st.SeriesByName())
}

func (d *Driver) saveMovies(st *store.Store) error {
	return SaveRecords(d.dir, familyMovies, d.encoding, st.MoviesByName())
}

func (d *Driver) saveWatched(st *store.Store) error {
	return SaveRecords(d.dir, familyWatched, d.encoding, st.AllWatches())
}

func (d *Driver) savePending(st *store.Store) error {
	return SaveRecords(d.dir, familyPending, d.encoding, st.Pending().Collect())
}

func (d *Driver) saveSkipped(st *store.Store) error {
	var records []skipRecord
	for sid, episodes := range st.AllSkippedEpisodes() {
		for _, eid := range episodes {
			records = append(records, skipRecord{SeriesID: sid, EpisodeID: eid})
		}
	}
	for _, mid := range st.AllSkippedMovies() {
		records = append(records, skipRecord{MovieID: mid, IsMovie: true})
	}
	return SaveRecords(d.dir, familySkipped, d.encoding, records)
}

func (d *Driver) saveSync(st *store.Store) error {
	return SaveRecords(d.dir, familySync, d.encoding, st.AllSyncStates())
}

func (d *Driver) saveRemotes(st *store.Store) error {
	bindings := st.AllRemoteBindings()
	records := make([]remoteRecord, 0, len(bindings))
	for _, b := range bindings {
		records = append(records, toRemoteRecord(b))
	}
	return SaveRecords(d.dir, familyRemotes, d.encoding, records)
}

// savePerSeriesFiles rewrites every series' episodes/<sid> and
// seasons/<sid> file. The ledger only tracks the coarse Series family, not
// which series changed, so any Series-dirty flush rewrites all of them;
// this keeps the driver simple at the cost of redundant writes for
// libraries with many series, a tradeoff acceptable at this core's scale.
func (d *Driver) savePerSeriesFiles(st *store.Store) error {
	var errs error
	epDir := filepath.Join(d.dir, episodesDir)
	seDir := filepath.Join(d.dir, seasonsDir)

	for _, sid := range st.AllSeriesIDs() {
		episodes := st.EpisodesBySeries(sid).Collect()
		if err := SaveRecords(epDir, sid.String(), d.encoding, episodes); err != nil {
			errs = multierr.Append(errs, err)
		}
		seasons := st.SeasonsBySeries(sid)
		if err := SaveRecords(seDir, sid.String(), d.encoding, seasons); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Load populates st from every family file present under d.dir, skipping
// any family whose file is absent or unreadable rather than failing the
// whole load. Per-family errors are combined and returned, but every
// other family is still attempted and applied.
func (d *Driver) Load(st *store.Store) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs error

	series, err := LoadRecords[store.Series](d.dir, familySeries)
	errs = multierr.Append(errs, err)
	for _, sr := range series {
		st.InsertSeries(sr)
	}

	for _, sr := range series {
		episodes, err := LoadRecords[store.Episode](filepath.Join(d.dir, episodesDir), sr.ID.String())
		errs = multierr.Append(errs, err)
		if episodes != nil {
			st.ReplaceEpisodes(sr.ID, episodes)
		}
		seasons, err := LoadRecords[store.Season](filepath.Join(d.dir, seasonsDir), sr.ID.String())
		errs = multierr.Append(errs, err)
		if seasons != nil {
			st.ReplaceSeasons(sr.ID, seasons)
		}
	}

	movies, err := LoadRecords[store.Movie](d.dir, familyMovies)
	errs = multierr.Append(errs, err)
	for _, m := range movies {
		st.InsertMovie(m)
	}

	watched, err := LoadRecords[store.Watch](d.dir, familyWatched)
	errs = multierr.Append(errs, err)
	for _, w := range watched {
		st.RestoreWatch(w)
	}

	pending, err := LoadRecords[store.PendingItem](d.dir, familyPending)
	errs = multierr.Append(errs, err)
	for _, p := range pending {
		st.RestorePending(p)
	}

	skipped, err := LoadRecords[skipRecord](d.dir, familySkipped)
	errs = multierr.Append(errs, err)
	for _, sk := range skipped {
		if sk.IsMovie {
			st.RestoreSkippedMovie(sk.MovieID)
		} else {
			st.RestoreSkippedEpisode(sk.SeriesID, sk.EpisodeID)
		}
	}

	syncStates, err := LoadRecords[store.SyncEntry](d.dir, familySync)
	errs = multierr.Append(errs, err)
	for _, e := range syncStates {
		st.SetSyncState(e.Remote, e.State)
	}

	remotes, err := LoadRecords[remoteRecord](d.dir, familyRemotes)
	errs = multierr.Append(errs, err)
	for _, rec := range remotes {
		ref := rec.toLocalRef()
		for _, r := range rec.Remotes {
			st.BindRemote(r, ref)
		}
	}

	st.RecomputeAllPending()

	return errs
}
