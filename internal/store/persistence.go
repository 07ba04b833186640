package store

import (
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// This file gives internal/persist the bulk export/import hooks it needs
// to flush and reload each entity family without handing out
// direct access to the store's internals. Export methods return plain
// snapshots; restore methods replay state exactly (preserving ids and
// timestamps) rather than minting new identities the way the live mutators
// (InsertSeries, RecordWatch, ...) do.

// AllWatches returns every logged watch, in no particular order; callers
// needing display order use Pending()/watch-key iteration instead.
func (s *Store) AllWatches() []Watch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Watch, 0, len(s.watches))
	for _, w := range s.watches {
		out = append(out, w)
	}
	return out
}

// RestoreWatch replays a previously-recorded watch verbatim (keeping its
// id and timestamp), used only by the persistence loader. Live
// callers use RecordWatch, which mints a fresh id.
func (s *Store) RestoreWatch(w Watch) {
	s.mu.Lock()
	s.watches[w.ID] = w
	switch w.Target.Kind {
	case TargetEpisode:
		s.watchesByEpisode[w.Target.EpisodeID] = append(s.watchesByEpisode[w.Target.EpisodeID], w.ID)
	case TargetMovie:
		s.watchesByMovie[w.Target.MovieID] = append(s.watchesByMovie[w.Target.MovieID], w.ID)
	}
	s.mu.Unlock()
}

// SyncEntry pairs a remote id with its sync bookkeeping, the shape
// sync.* records on disk.
type SyncEntry struct {
	Remote id.RemoteID
	State  SyncState
}

// AllSyncStates returns every tracked remote's sync bookkeeping.
func (s *Store) AllSyncStates() []SyncEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SyncEntry, 0, len(s.sync))
	for r, st := range s.sync {
		out = append(out, SyncEntry{Remote: r, State: st})
	}
	return out
}

// RemoteBinding is one local entity's full set of remote ids, the shape
// remotes.* groups records by: "each naming the local id and its list
// of remotes".
type RemoteBinding struct {
	Ref     LocalRef
	Remotes []id.RemoteID
}

// AllRemoteBindings exports the full bidirectional remote index as
// per-local-entity groups.
func (s *Store) AllRemoteBindings() []RemoteBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RemoteBinding, 0, len(s.remotes.localToRemote))
	for ref, set := range s.remotes.localToRemote {
		remotes := make([]id.RemoteID, 0, len(set))
		for r := range set {
			remotes = append(remotes, r)
		}
		out = append(out, RemoteBinding{Ref: ref, Remotes: remotes})
	}
	return out
}

// BindRemote restores a single remote_id -> local mapping, used by the
// persistence loader to rebuild the remote index from remotes.*, and by
// ingestion to bind a fetched entity's cross-reference remotes. Canonical
// remotes are bound implicitly through InsertSeries/InsertMovie/
// UpsertEpisode.
func (s *Store) BindRemote(r id.RemoteID, ref LocalRef) {
	s.mu.Lock()
	s.remotes.bind(r, ref)
	s.ledger.Mark(ledger.Remotes)
	s.mu.Unlock()
}

// AllSkippedEpisodes and AllSkippedMovies export the skip-advancement state
// so a reload doesn't immediately re-surface a
// previously-skipped item as pending again.
func (s *Store) AllSkippedEpisodes() map[id.SeriesID][]id.EpisodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.SeriesID][]id.EpisodeID, len(s.skippedEpisodes))
	for sid, set := range s.skippedEpisodes {
		for eid := range set {
			out[sid] = append(out[sid], eid)
		}
	}
	return out
}

func (s *Store) AllSkippedMovies() []id.MovieID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.MovieID, 0, len(s.skippedMovies))
	for mid := range s.skippedMovies {
		out = append(out, mid)
	}
	return out
}

// RestoreSkippedEpisode and RestoreSkippedMovie replay skip state loaded
// from disk without forcing a pending recompute per-call; the caller
// recomputes once after the whole family is restored.
func (s *Store) RestoreSkippedEpisode(sid id.SeriesID, eid id.EpisodeID) {
	s.mu.Lock()
	set, ok := s.skippedEpisodes[sid]
	if !ok {
		set = make(map[id.EpisodeID]struct{})
		s.skippedEpisodes[sid] = set
	}
	set[eid] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) RestoreSkippedMovie(mid id.MovieID) {
	s.mu.Lock()
	s.skippedMovies[mid] = struct{}{}
	s.mu.Unlock()
}

// AllSeriesIDs and AllMovieIDs list every known id, used by the persistence
// driver to enumerate the per-series episodes/seasons directory tree.
func (s *Store) AllSeriesIDs() []id.SeriesID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.SeriesID, 0, len(s.series))
	for sid := range s.series {
		out = append(out, sid)
	}
	return out
}

func (s *Store) AllMovieIDs() []id.MovieID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.MovieID, 0, len(s.movies))
	for mid := range s.movies {
		out = append(out, mid)
	}
	return out
}

// RecomputeAllPending recomputes pending for every series/movie currently
// stored, and drops pending entries whose series/movie is not stored;
// called once after a bulk load finishes.
func (s *Store) RecomputeAllPending() {
	s.mu.RLock()
	var orphanSeries []id.SeriesID
	for sid := range s.pendingBySeries {
		if _, ok := s.series[sid]; !ok {
			orphanSeries = append(orphanSeries, sid)
		}
	}
	var orphanMovies []id.MovieID
	for mid := range s.pendingByMovie {
		if _, ok := s.movies[mid]; !ok {
			orphanMovies = append(orphanMovies, mid)
		}
	}
	s.mu.RUnlock()

	for _, sid := range append(s.AllSeriesIDs(), orphanSeries...) {
		s.RecomputeSeriesPending(sid)
	}
	for _, mid := range append(s.AllMovieIDs(), orphanMovies...) {
		s.RecomputeMoviePending(mid)
	}
}
