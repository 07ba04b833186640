package store

import (
	"sort"
	"time"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// RecomputeSeriesPending walks sid's episodes in watch-key order and sets
// the series' pending entry to the first unwatched, non-special,
// non-skipped episode. A series that is untracked, fully watched,
// or has no episodes carries no pending entry.
func (s *Store) RecomputeSeriesPending(sid id.SeriesID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeSeriesPendingLocked(sid)
}

func (s *Store) recomputeSeriesPendingLocked(sid id.SeriesID) {
	sr, ok := s.series[sid]
	if !ok || !sr.Tracked {
		delete(s.pendingBySeries, sid)
		s.ledger.Mark(ledger.Pending)
		return
	}

	idx := s.index[sid]
	if idx == nil {
		delete(s.pendingBySeries, sid)
		s.ledger.Mark(ledger.Pending)
		return
	}
	episodes := s.episodes[sid]
	skipped := s.skippedEpisodes[sid]

	for _, eid := range idx.episodeOrder {
		e := episodes[eid]
		if e.IsSpecial() {
			continue
		}
		if len(s.watchesByEpisode[eid]) > 0 {
			continue
		}
		if _, sk := skipped[eid]; sk {
			continue
		}

		// An unchanged target keeps its timestamp, so a reload or an
		// unrelated recompute doesn't re-stamp it to the current clock.
		if cur, ok := s.pendingBySeries[sid]; ok && cur.Kind.EpisodeID == eid {
			return
		}

		// timestamp = max(now, last watch for the series, air date).
		ts := s.now()
		if lw, ok := s.lastSeriesWatchLocked(sid); ok && lw.After(ts) {
			ts = lw
		}
		if e.Aired != nil && e.Aired.After(ts) {
			ts = *e.Aired
		}
		s.pendingBySeries[sid] = PendingItem{Timestamp: ts, Kind: EpisodeTarget(sid, eid)}
		s.ledger.Mark(ledger.Pending)
		return
	}
	delete(s.pendingBySeries, sid)
	s.ledger.Mark(ledger.Pending)
}

// lastSeriesWatchLocked returns the most recent watch timestamp across all
// of sid's episodes.
func (s *Store) lastSeriesWatchLocked(sid id.SeriesID) (time.Time, bool) {
	var best time.Time
	found := false
	for eid := range s.episodes[sid] {
		for _, wid := range s.watchesByEpisode[eid] {
			w := s.watches[wid]
			if !found || w.Timestamp.After(best) {
				best = w.Timestamp
				found = true
			}
		}
	}
	return best, found
}

// RecomputeMoviePending sets mid's pending entry if the movie is unwatched
// and not skipped, using its earliest known release as the scheduled
// timestamp.
func (s *Store) RecomputeMoviePending(mid id.MovieID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeMoviePendingLocked(mid, false)
}

// recomputeMoviePendingLocked rebuilds mid's pending entry. stampNow is
// set when the recompute follows a watch removal: a resurrected entry is
// stamped max(now, earliest release) rather than just the release date, so
// it surfaces at the top of newest-first displays.
func (s *Store) recomputeMoviePendingLocked(mid id.MovieID, stampNow bool) {
	m, ok := s.movies[mid]
	if !ok || len(s.watchesByMovie[mid]) > 0 {
		delete(s.pendingByMovie, mid)
		s.ledger.Mark(ledger.Pending)
		return
	}
	if _, sk := s.skippedMovies[mid]; sk {
		delete(s.pendingByMovie, mid)
		s.ledger.Mark(ledger.Pending)
		return
	}

	if _, ok := s.pendingByMovie[mid]; ok {
		return
	}

	ts := time.Time{}
	if r := m.EarliestRelease(); r != nil {
		ts = *r
	}
	if stampNow {
		if now := s.now(); now.After(ts) {
			ts = now
		}
	}
	s.pendingByMovie[mid] = PendingItem{Timestamp: ts, Kind: MovieTarget(mid)}
	s.ledger.Mark(ledger.Pending)
}

// SkipSeriesPending advances past sid's current pending episode without
// recording a watch, then recomputes the next candidate.
func (s *Store) SkipSeriesPending(sid id.SeriesID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.pendingBySeries[sid]
	if !ok || cur.Kind.Kind != TargetEpisode {
		return false
	}

	set, ok := s.skippedEpisodes[sid]
	if !ok {
		set = make(map[id.EpisodeID]struct{})
		s.skippedEpisodes[sid] = set
	}
	set[cur.Kind.EpisodeID] = struct{}{}

	s.recomputeSeriesPendingLocked(sid)
	return true
}

// SkipMoviePending advances past mid's pending entry without recording a
// watch.
func (s *Store) SkipMoviePending(mid id.MovieID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pendingByMovie[mid]; !ok {
		return false
	}
	s.skippedMovies[mid] = struct{}{}
	s.recomputeMoviePendingLocked(mid, false)
	return true
}

// SelectSeriesPending explicitly pins sid's pending entry to episode eid,
// overriding whatever the recompute rules would pick. Any skip marker on eid is cleared so a later
// recompute doesn't advance past the user's explicit choice.
func (s *Store) SelectSeriesPending(sid id.SeriesID, eid id.EpisodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.series[sid]
	if !ok || !sr.Tracked {
		return false
	}
	e, ok := s.episodes[sid][eid]
	if !ok {
		return false
	}

	delete(s.skippedEpisodes[sid], eid)

	ts := s.now()
	if e.Aired != nil && e.Aired.After(ts) {
		ts = *e.Aired
	}
	s.pendingBySeries[sid] = PendingItem{Timestamp: ts, Kind: EpisodeTarget(sid, eid)}
	s.ledger.Mark(ledger.Pending)
	return true
}

// SelectMoviePending explicitly re-surfaces mid as pending, clearing any
// skip marker.
func (s *Store) SelectMoviePending(mid id.MovieID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[mid]; !ok {
		return false
	}
	delete(s.skippedMovies, mid)
	delete(s.pendingByMovie, mid)
	s.recomputeMoviePendingLocked(mid, true)
	_, ok := s.pendingByMovie[mid]
	return ok
}

// ClearSeriesPending drops sid's pending entry without recording a watch.
// It stays cleared until the series' pending entry is next recomputed (a
// watch change, an episode refresh, re-tracking, or a reload).
func (s *Store) ClearSeriesPending(sid id.SeriesID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pendingBySeries[sid]; !ok {
		return false
	}
	delete(s.pendingBySeries, sid)
	s.ledger.Mark(ledger.Pending)
	return true
}

// ClearMoviePending drops mid's pending entry.
func (s *Store) ClearMoviePending(mid id.MovieID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pendingByMovie[mid]; !ok {
		return false
	}
	delete(s.pendingByMovie, mid)
	s.ledger.Mark(ledger.Pending)
	return true
}

// RestorePending replays a pending entry loaded from disk verbatim,
// keeping its original timestamp; the loader recomputes afterwards so
// entries referencing since-removed entities are dropped while valid ones
// keep their stamps.
func (s *Store) RestorePending(p PendingItem) {
	s.mu.Lock()
	switch p.Kind.Kind {
	case TargetEpisode:
		s.pendingBySeries[p.Kind.SeriesID] = p
	case TargetMovie:
		s.pendingByMovie[p.Kind.MovieID] = p
	}
	s.mu.Unlock()
}

// SeriesPending returns sid's current pending entry, if any.
func (s *Store) SeriesPending(sid id.SeriesID) (PendingItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pendingBySeries[sid]
	return p, ok
}

// MoviePending returns mid's current pending entry, if any.
func (s *Store) MoviePending(mid id.MovieID) (PendingItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pendingByMovie[mid]
	return p, ok
}

// Pending returns a double-ended iterator over every pending entry across
// series and movies, ordered ascending by scheduled timestamp; callers
// wanting newest-first drain it with NextBack/CollectReverse.
func (s *Store) Pending() *PendingIter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]PendingItem, 0, len(s.pendingBySeries)+len(s.pendingByMovie))
	for _, p := range s.pendingBySeries {
		items = append(items, p)
	}
	for _, p := range s.pendingByMovie {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.Before(items[j].Timestamp)
		}
		return pendingTieKey(items[i]) < pendingTieKey(items[j])
	})
	return newPendingIter(items)
}

// pendingTieKey breaks ties between equal-timestamp pending entries
// deterministically.
func pendingTieKey(p PendingItem) string {
	switch p.Kind.Kind {
	case TargetEpisode:
		return "e:" + p.Kind.EpisodeID.String()
	default:
		return "m:" + p.Kind.MovieID.String()
	}
}
