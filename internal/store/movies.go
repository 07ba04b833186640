package store

import (
	"sort"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// GetMovie returns the movie with id mid.
func (s *Store) GetMovie(mid id.MovieID) (Movie, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[mid]
	return m, ok
}

// MoviesByName returns every movie ordered by case-preserving title
// ascending, ties broken by id.
func (s *Store) MoviesByName() []Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := s.coll.CompareString(out[i].Title, out[j].Title); c != 0 {
			return c < 0
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// MoviesByRelease returns every movie ordered by SortableRelease ascending,
// movies with no known release sorting last.
func (s *Store) MoviesByRelease() []Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].SortableRelease(), out[j].SortableRelease()
		switch {
		case ri == nil && rj == nil:
			return out[i].ID.String() < out[j].ID.String()
		case ri == nil:
			return false
		case rj == nil:
			return true
		case !ri.Equal(*rj):
			return ri.Before(*rj)
		default:
			return out[i].ID.String() < out[j].ID.String()
		}
	})
	return out
}

// InsertMovie upserts a movie, recomputing EarliestByKind from the caller's
// ReleaseDatesByCountry and marking the Movie family dirty.
func (s *Store) InsertMovie(m Movie) Movie {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.movies[m.ID]
	if m.ID.IsZero() {
		m.ID = id.NewMovieID()
		existed = false
	}
	m.RecomputeEarliestByKind()
	s.movies[m.ID] = m

	if !existed {
		s.ledger.MarkMovieAdded(m.ID)
	} else {
		s.ledger.Mark(ledger.Movie)
	}

	if m.CanonicalRemote != nil {
		s.remotes.bind(*m.CanonicalRemote, LocalRef{Kind: LocalMovie, MovieID: m.ID})
		s.ledger.Mark(ledger.Remotes)
	}

	s.recomputeMoviePendingLocked(m.ID, false)
	return m
}

// RemoveMovie deletes a movie and cascades to its watches, pending entry,
// and sync state.
func (s *Store) RemoveMovie(mid id.MovieID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[mid]
	if !ok {
		return false
	}

	for _, r := range s.remotes.remotesFor(LocalRef{Kind: LocalMovie, MovieID: mid}) {
		delete(s.sync, r)
	}
	if m.CanonicalRemote != nil {
		s.remotes.unbindLocal(LocalRef{Kind: LocalMovie, MovieID: mid})
	}
	for _, wid := range s.watchesByMovie[mid] {
		delete(s.watches, wid)
	}
	delete(s.watchesByMovie, mid)
	delete(s.pendingByMovie, mid)
	delete(s.skippedMovies, mid)
	delete(s.movies, mid)

	s.ledger.MarkMovieRemoved(mid)
	s.ledger.Mark(ledger.Watched)
	s.ledger.Mark(ledger.Pending)
	s.ledger.Mark(ledger.Sync)
	return true
}
