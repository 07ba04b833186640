package store

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// seriesIndex is the per-series linked-iteration structure: a
// watch-key-sorted vector of episode ids plus a position index, giving
// O(1) next()/prev() stepping without rescanning.
type seriesIndex struct {
	episodeOrder []id.EpisodeID
	episodePos   map[id.EpisodeID]int
}

func newSeriesIndex() *seriesIndex {
	return &seriesIndex{episodePos: make(map[id.EpisodeID]int)}
}

// rebuild recomputes the ordering from the current episode set. Called
// whenever a series' episode list is replaced or an individual
// episode is added/removed.
func (si *seriesIndex) rebuild(episodes map[id.EpisodeID]Episode) {
	order := make([]id.EpisodeID, 0, len(episodes))
	for eid := range episodes {
		order = append(order, eid)
	}
	sort.Slice(order, func(i, j int) bool {
		return episodes[order[i]].key().less(episodes[order[j]].key())
	})

	si.episodeOrder = order
	si.episodePos = make(map[id.EpisodeID]int, len(order))
	for i, eid := range order {
		si.episodePos[eid] = i
	}
}

// next returns the episode id immediately after eid in watch-key order.
func (si *seriesIndex) next(eid id.EpisodeID) (id.EpisodeID, bool) {
	pos, ok := si.episodePos[eid]
	if !ok || pos+1 >= len(si.episodeOrder) {
		return id.EpisodeID{}, false
	}
	return si.episodeOrder[pos+1], true
}

// prev returns the episode id immediately before eid in watch-key order.
func (si *seriesIndex) prev(eid id.EpisodeID) (id.EpisodeID, bool) {
	pos, ok := si.episodePos[eid]
	if !ok || pos == 0 {
		return id.EpisodeID{}, false
	}
	return si.episodeOrder[pos-1], true
}

// Store is the in-memory relational store. It is owned
// exclusively by the scheduler loop; mu guards the rare case of a
// concurrent UI/HTTP read snapshot racing a write.
type Store struct {
	mu sync.RWMutex

	ledger *ledger.Ledger
	coll   *collate.Collator

	// now is the clock pending timestamps are stamped against;
	// replaceable in tests via SetClock.
	now func() time.Time

	series   map[id.SeriesID]Series
	seasons  map[id.SeriesID]map[SeasonNumber]Season
	episodes map[id.SeriesID]map[id.EpisodeID]Episode
	index    map[id.SeriesID]*seriesIndex

	movies map[id.MovieID]Movie

	watches       map[id.WatchID]Watch
	watchesByEpisode map[id.EpisodeID][]id.WatchID
	watchesByMovie   map[id.MovieID][]id.WatchID

	pendingBySeries map[id.SeriesID]PendingItem
	pendingByMovie  map[id.MovieID]PendingItem

	// skippedEpisodes/skippedMovies record targets advanced past without a
	// recorded watch, so recomputing pending does not just
	// land back on the same target.
	skippedEpisodes map[id.SeriesID]map[id.EpisodeID]struct{}
	skippedMovies   map[id.MovieID]struct{}

	remotes *remoteIndex
	sync    map[id.RemoteID]SyncState
}

// New creates an empty store recording changes into l.
func New(l *ledger.Ledger) *Store {
	return &Store{
		ledger:           l,
		now:              time.Now,
		coll:             collate.New(language.English, collate.IgnoreCase),
		series:           make(map[id.SeriesID]Series),
		seasons:          make(map[id.SeriesID]map[SeasonNumber]Season),
		episodes:         make(map[id.SeriesID]map[id.EpisodeID]Episode),
		index:            make(map[id.SeriesID]*seriesIndex),
		movies:           make(map[id.MovieID]Movie),
		watches:          make(map[id.WatchID]Watch),
		watchesByEpisode: make(map[id.EpisodeID][]id.WatchID),
		watchesByMovie:   make(map[id.MovieID][]id.WatchID),
		pendingBySeries:  make(map[id.SeriesID]PendingItem),
		pendingByMovie:   make(map[id.MovieID]PendingItem),
		skippedEpisodes:  make(map[id.SeriesID]map[id.EpisodeID]struct{}),
		skippedMovies:    make(map[id.MovieID]struct{}),
		remotes:          newRemoteIndex(),
		sync:             make(map[id.RemoteID]SyncState),
	}
}

// SetClock replaces the clock pending timestamps are stamped against.
// Tests use this to pin "now"; production code never calls it.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// RemoteIndex returns the read-only proxy handle ingestion code uses to
// resolve remote ids.
func (s *Store) RemoteIndex() RemoteIndexView {
	return RemoteIndexView{ri: s.remotes}
}
