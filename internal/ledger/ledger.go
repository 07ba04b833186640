// Package ledger tracks which entity families have been mutated since the
// last flush. It is a coarse bitset plus per-entity
// add/remove sets, avoiding a listener graph over entity mutations: a flush
// snapshots the bitset and swaps in an empty one atomically.
package ledger

import (
	"sync"

	"github.com/jellywatch/core/internal/id"
	"go.uber.org/atomic"
)

// Family names a coarse group of on-disk state.
type Family int

const (
	Config Family = iota
	Sync
	Watched
	Pending
	Series
	Movie
	Remotes
	Schedule

	numFamilies
)

func (f Family) String() string {
	switch f {
	case Config:
		return "config"
	case Sync:
		return "sync"
	case Watched:
		return "watched"
	case Pending:
		return "pending"
	case Series:
		return "series"
	case Movie:
		return "movie"
	case Remotes:
		return "remotes"
	case Schedule:
		return "schedule"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the ledger taken at flush time: which
// families are dirty, and which series/movie ids were added or removed
// since the last flush.
type Snapshot struct {
	Families     [numFamilies]bool
	AddedSeries  []id.SeriesID
	RemovedSeries []id.SeriesID
	AddedMovies  []id.MovieID
	RemovedMovies []id.MovieID
}

// Dirty reports whether f is marked in this snapshot.
func (s Snapshot) Dirty(f Family) bool { return s.Families[f] }

// Empty reports whether nothing was recorded (no families, no per-entity
// deltas); a save triggered on an empty snapshot is a no-op.
func (s Snapshot) Empty() bool {
	for _, d := range s.Families {
		if d {
			return false
		}
	}
	return len(s.AddedSeries) == 0 && len(s.RemovedSeries) == 0 &&
		len(s.AddedMovies) == 0 && len(s.RemovedMovies) == 0
}

// Ledger is the mutable, process-wide record of what has changed. All
// methods are safe for concurrent use, though in this core only the
// single-threaded store owner ever calls Mark.
type Ledger struct {
	mu            sync.Mutex
	families      [numFamilies]bool
	addedSeries   map[id.SeriesID]struct{}
	removedSeries map[id.SeriesID]struct{}
	addedMovies   map[id.MovieID]struct{}
	removedMovies map[id.MovieID]struct{}

	// dirty is a fast, lock-free "is anything pending" flag so the
	// debounce timer can be armed without taking mu on every
	// mutation-adjacent check.
	dirty atomic.Bool
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		addedSeries:   make(map[id.SeriesID]struct{}),
		removedSeries: make(map[id.SeriesID]struct{}),
		addedMovies:   make(map[id.MovieID]struct{}),
		removedMovies: make(map[id.MovieID]struct{}),
	}
}

// Mark records that family f was mutated.
func (l *Ledger) Mark(f Family) {
	l.mu.Lock()
	l.families[f] = true
	l.mu.Unlock()
	l.dirty.Store(true)
}

// MarkSeriesAdded records a new series id and marks the Series family dirty.
func (l *Ledger) MarkSeriesAdded(sid id.SeriesID) {
	l.mu.Lock()
	l.families[Series] = true
	delete(l.removedSeries, sid)
	l.addedSeries[sid] = struct{}{}
	l.mu.Unlock()
	l.dirty.Store(true)
}

// MarkSeriesRemoved records a removed series id and marks the Series family
// dirty.
func (l *Ledger) MarkSeriesRemoved(sid id.SeriesID) {
	l.mu.Lock()
	l.families[Series] = true
	delete(l.addedSeries, sid)
	l.removedSeries[sid] = struct{}{}
	l.mu.Unlock()
	l.dirty.Store(true)
}

// MarkMovieAdded records a new movie id and marks the Movie family dirty.
func (l *Ledger) MarkMovieAdded(mid id.MovieID) {
	l.mu.Lock()
	l.families[Movie] = true
	delete(l.removedMovies, mid)
	l.addedMovies[mid] = struct{}{}
	l.mu.Unlock()
	l.dirty.Store(true)
}

// MarkMovieRemoved records a removed movie id and marks the Movie family
// dirty.
func (l *Ledger) MarkMovieRemoved(mid id.MovieID) {
	l.mu.Lock()
	l.families[Movie] = true
	delete(l.addedMovies, mid)
	l.removedMovies[mid] = struct{}{}
	l.mu.Unlock()
	l.dirty.Store(true)
}

// Dirty reports whether any mutation has been recorded since the last
// Flush. Used by the debounce timer to decide whether a save is needed at
// all.
func (l *Ledger) Dirty() bool {
	return l.dirty.Load()
}

// Flush atomically snapshots the current ledger state and resets the
// ledger to empty, so concurrent Mark calls observed after Flush returns
// belong to the next save cycle, not this one.
func (l *Ledger) Flush() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{Families: l.families}
	for sid := range l.addedSeries {
		snap.AddedSeries = append(snap.AddedSeries, sid)
	}
	for sid := range l.removedSeries {
		snap.RemovedSeries = append(snap.RemovedSeries, sid)
	}
	for mid := range l.addedMovies {
		snap.AddedMovies = append(snap.AddedMovies, mid)
	}
	for mid := range l.removedMovies {
		snap.RemovedMovies = append(snap.RemovedMovies, mid)
	}

	l.families = [numFamilies]bool{}
	l.addedSeries = make(map[id.SeriesID]struct{})
	l.removedSeries = make(map[id.SeriesID]struct{})
	l.addedMovies = make(map[id.MovieID]struct{})
	l.removedMovies = make(map[id.MovieID]struct{})
	l.dirty.Store(false)

	return snap
}

// Restore merges a previously-flushed snapshot back into the ledger, used
// when a save fails so the dirty state survives for the next debounce
// retry. Mutations recorded since the failed flush are kept.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	for f, dirty := range snap.Families {
		if dirty {
			l.families[f] = true
		}
	}
	for _, sid := range snap.AddedSeries {
		if _, removed := l.removedSeries[sid]; !removed {
			l.addedSeries[sid] = struct{}{}
		}
	}
	for _, sid := range snap.RemovedSeries {
		delete(l.addedSeries, sid)
		l.removedSeries[sid] = struct{}{}
	}
	for _, mid := range snap.AddedMovies {
		if _, removed := l.removedMovies[mid]; !removed {
			l.addedMovies[mid] = struct{}{}
		}
	}
	for _, mid := range snap.RemovedMovies {
		delete(l.addedMovies, mid)
		l.removedMovies[mid] = struct{}{}
	}
	l.mu.Unlock()
	l.dirty.Store(true)
}
