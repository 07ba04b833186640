package store

import (
	"sort"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// GetSeries returns the series with id sid, if it exists.
func (s *Store) GetSeries(sid id.SeriesID) (Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.series[sid]
	return sr, ok
}

// SeriesByName returns every series ordered by case-preserving title
// ascending, ties broken by id.
func (s *Store) SeriesByName() []Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Series, 0, len(s.series))
	for _, sr := range s.series {
		out = append(out, sr)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := s.coll.CompareString(out[i].Title, out[j].Title); c != 0 {
			return c < 0
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// InsertSeries upserts a series: if ID already exists in the store it is
// merged (caller-provided Graphics respects customized slots; see
// internal/ingest for the merge policy; this method performs the raw
// write), otherwise a new series is created. Either way the Series family
// and the relevant added_series set are marked dirty.
func (s *Store) InsertSeries(sr Series) Series {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.series[sr.ID]
	if sr.ID.IsZero() {
		sr.ID = id.NewSeriesID()
		existed = false
	}

	s.series[sr.ID] = sr
	if _, ok := s.episodes[sr.ID]; !ok {
		s.episodes[sr.ID] = make(map[id.EpisodeID]Episode)
		s.seasons[sr.ID] = make(map[SeasonNumber]Season)
		s.index[sr.ID] = newSeriesIndex()
	}

	if !existed {
		s.ledger.MarkSeriesAdded(sr.ID)
	} else {
		s.ledger.Mark(ledger.Series)
	}

	if sr.CanonicalRemote != nil {
		s.remotes.bind(*sr.CanonicalRemote, LocalRef{Kind: LocalSeries, SeriesID: sr.ID})
		s.ledger.Mark(ledger.Remotes)
	}

	return sr
}

// ReplaceEpisodes replaces the full episode list for sid, rebuilding the
// linked-iteration index.
func (s *Store) ReplaceEpisodes(sid id.SeriesID, episodes []Episode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[id.EpisodeID]Episode, len(episodes))
	for _, e := range episodes {
		if e.ID.IsZero() {
			e.ID = id.NewEpisodeID()
		}
		e.SeriesID = sid
		m[e.ID] = e
		if e.CanonicalRemote != nil {
			s.remotes.bind(*e.CanonicalRemote, LocalRef{Kind: LocalEpisode, SeriesID: sid, EpisodeID: e.ID})
		}
	}
	s.episodes[sid] = m
	idx, ok := s.index[sid]
	if !ok {
		idx = newSeriesIndex()
		s.index[sid] = idx
	}
	idx.rebuild(m)
	s.ledger.Mark(ledger.Series)
	s.ledger.Mark(ledger.Remotes)
	s.recomputeSeriesPendingLocked(sid)
}

// ReplaceSeasons replaces the full season list for sid.
func (s *Store) ReplaceSeasons(sid id.SeriesID, seasons []Season) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[SeasonNumber]Season, len(seasons))
	for _, sea := range seasons {
		sea.SeriesID = sid
		m[sea.Number] = sea
	}
	s.seasons[sid] = m
	s.ledger.Mark(ledger.Series)
}

// RemoveSeries cascades series -> episodes, seasons, pending, sync-state,
// per the entity lifecycle rules. Tasks keyed by this series are removed by the
// caller (the task queue, which is a separate component; see
// internal/core for the composed operation).
func (s *Store) RemoveSeries(sid id.SeriesID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.series[sid]
	if !ok {
		return false
	}

	for _, r := range s.remotes.remotesFor(LocalRef{Kind: LocalSeries, SeriesID: sid}) {
		delete(s.sync, r)
	}
	for eid := range s.episodes[sid] {
		s.remotes.unbindLocal(LocalRef{Kind: LocalEpisode, SeriesID: sid, EpisodeID: eid})
		for _, wid := range s.watchesByEpisode[eid] {
			delete(s.watches, wid)
		}
		delete(s.watchesByEpisode, eid)
	}
	if sr.CanonicalRemote != nil {
		s.remotes.unbindLocal(LocalRef{Kind: LocalSeries, SeriesID: sid})
	}

	delete(s.pendingBySeries, sid)
	delete(s.skippedEpisodes, sid)
	delete(s.series, sid)
	delete(s.episodes, sid)
	delete(s.seasons, sid)
	delete(s.index, sid)

	s.ledger.MarkSeriesRemoved(sid)
	s.ledger.Mark(ledger.Watched)
	s.ledger.Mark(ledger.Pending)
	s.ledger.Mark(ledger.Sync)
	return true
}

// Track sets series sid's tracked bit to true.
func (s *Store) Track(sid id.SeriesID) bool { return s.setTracked(sid, true) }

// Untrack sets series sid's tracked bit to false; by invariant this
// also clears any pending episode for sid since pending requires tracked
// == true (the pending entry is dropped inside this call).
func (s *Store) Untrack(sid id.SeriesID) bool { return s.setTracked(sid, false) }

func (s *Store) setTracked(sid id.SeriesID, tracked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.series[sid]
	if !ok {
		return false
	}
	sr.Tracked = tracked
	s.series[sid] = sr
	s.ledger.Mark(ledger.Series)

	if !tracked {
		delete(s.pendingBySeries, sid)
		s.ledger.Mark(ledger.Pending)
	} else {
		s.recomputeSeriesPendingLocked(sid)
	}
	return true
}
