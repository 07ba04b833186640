package store

import (
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// GetEpisode returns the episode with id eid within series sid.
func (s *Store) GetEpisode(sid id.SeriesID, eid id.EpisodeID) (Episode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.episodes[sid][eid]
	return e, ok
}

// EpisodesBySeries returns an exact-size, double-ended iterator over every
// episode of sid in watch-key order.
func (s *Store) EpisodesBySeries(sid id.SeriesID) *EpisodeIter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index[sid]
	if idx == nil {
		return newEpisodeIter(nil, nil)
	}
	return newEpisodeIter(idx.episodeOrder, s.episodes[sid])
}

// EpisodesBySeason returns an exact-size, double-ended iterator over the
// episodes of one season of sid, in watch-key order.
func (s *Store) EpisodesBySeason(sid id.SeriesID, n SeasonNumber) *EpisodeIter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index[sid]
	if idx == nil {
		return newEpisodeIter(nil, nil)
	}
	episodes := s.episodes[sid]
	ids := make([]id.EpisodeID, 0, len(idx.episodeOrder))
	for _, eid := range idx.episodeOrder {
		if episodes[eid].Season == n {
			ids = append(ids, eid)
		}
	}
	return newEpisodeIter(ids, episodes)
}

// NextEpisode returns the episode immediately after eid in sid's watch-key
// order, the O(1) step the linked-iteration index exists for.
func (s *Store) NextEpisode(sid id.SeriesID, eid id.EpisodeID) (Episode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index[sid]
	if idx == nil {
		return Episode{}, false
	}
	next, ok := idx.next(eid)
	if !ok {
		return Episode{}, false
	}
	e, ok := s.episodes[sid][next]
	return e, ok
}

// PrevEpisode returns the episode immediately before eid in sid's
// watch-key order.
func (s *Store) PrevEpisode(sid id.SeriesID, eid id.EpisodeID) (Episode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index[sid]
	if idx == nil {
		return Episode{}, false
	}
	prev, ok := idx.prev(eid)
	if !ok {
		return Episode{}, false
	}
	e, ok := s.episodes[sid][prev]
	return e, ok
}

// UpsertEpisode inserts or replaces a single episode and repositions it in
// the linked-iteration index, used when ingestion refreshes one episode
// without a full ReplaceEpisodes call.
func (s *Store) UpsertEpisode(e Episode) Episode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID.IsZero() {
		e.ID = id.NewEpisodeID()
	}

	m, ok := s.episodes[e.SeriesID]
	if !ok {
		m = make(map[id.EpisodeID]Episode)
		s.episodes[e.SeriesID] = m
	}
	m[e.ID] = e

	idx, ok := s.index[e.SeriesID]
	if !ok {
		idx = newSeriesIndex()
		s.index[e.SeriesID] = idx
	}
	idx.rebuild(m)

	if e.CanonicalRemote != nil {
		s.remotes.bind(*e.CanonicalRemote, LocalRef{Kind: LocalEpisode, SeriesID: e.SeriesID, EpisodeID: e.ID})
		s.ledger.Mark(ledger.Remotes)
	}
	s.ledger.Mark(ledger.Series)
	s.recomputeSeriesPendingLocked(e.SeriesID)
	return e
}
