package store

import (
	"time"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// RecordWatch logs a new watch event and marks the Watched family dirty.
// Pending recomputes as a side effect; see pending.go.
func (s *Store) RecordWatch(target WatchTarget, at time.Time) Watch {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := Watch{ID: id.NewWatchID(), Timestamp: at, Target: target}
	s.watches[w.ID] = w

	switch target.Kind {
	case TargetEpisode:
		s.watchesByEpisode[target.EpisodeID] = append(s.watchesByEpisode[target.EpisodeID], w.ID)
		s.recomputeSeriesPendingLocked(target.SeriesID)
	case TargetMovie:
		s.watchesByMovie[target.MovieID] = append(s.watchesByMovie[target.MovieID], w.ID)
		s.recomputeMoviePendingLocked(target.MovieID, false)
	}

	s.ledger.Mark(ledger.Watched)
	return w
}

// RemoveWatch deletes a logged watch by id.
func (s *Store) RemoveWatch(wid id.WatchID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[wid]
	if !ok {
		return false
	}
	delete(s.watches, wid)

	switch w.Target.Kind {
	case TargetEpisode:
		s.watchesByEpisode[w.Target.EpisodeID] = removeWatchID(s.watchesByEpisode[w.Target.EpisodeID], wid)
		s.recomputeSeriesPendingLocked(w.Target.SeriesID)
	case TargetMovie:
		s.watchesByMovie[w.Target.MovieID] = removeWatchID(s.watchesByMovie[w.Target.MovieID], wid)
		s.recomputeMoviePendingLocked(w.Target.MovieID, true)
	}

	s.ledger.Mark(ledger.Watched)
	return true
}

func removeWatchID(ids []id.WatchID, target id.WatchID) []id.WatchID {
	out := ids[:0]
	for _, w := range ids {
		if w != target {
			out = append(out, w)
		}
	}
	return out
}

// WatchesForEpisode returns every watch logged against eid.
func (s *Store) WatchesForEpisode(eid id.EpisodeID) []Watch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.watchesByEpisode[eid]
	out := make([]Watch, 0, len(ids))
	for _, wid := range ids {
		out = append(out, s.watches[wid])
	}
	return out
}

// WatchesForMovie returns every watch logged against mid.
func (s *Store) WatchesForMovie(mid id.MovieID) []Watch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.watchesByMovie[mid]
	out := make([]Watch, 0, len(ids))
	for _, wid := range ids {
		out = append(out, s.watches[wid])
	}
	return out
}

// IsEpisodeWatched reports whether at least one watch exists for eid.
func (s *Store) IsEpisodeWatched(eid id.EpisodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchesByEpisode[eid]) > 0
}

// IsMovieWatched reports whether at least one watch exists for mid.
func (s *Store) IsMovieWatched(mid id.MovieID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchesByMovie[mid]) > 0
}
