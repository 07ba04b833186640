package store

import (
	"sort"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// GetSeason returns season n of series sid.
func (s *Store) GetSeason(sid id.SeriesID, n SeasonNumber) (Season, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sea, ok := s.seasons[sid][n]
	return sea, ok
}

// SeasonsBySeries returns every season of sid ordered ascending by number,
// with SpecialsSeason (0) sorted last.
func (s *Store) SeasonsBySeries(sid id.SeriesID) []Season {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.seasons[sid]
	out := make([]Season, 0, len(m))
	for _, sea := range m {
		out = append(out, sea)
	}
	sort.Slice(out, func(i, j int) bool {
		return seasonSortKey(out[i].Number) < seasonSortKey(out[j].Number)
	})
	return out
}

func seasonSortKey(n SeasonNumber) int {
	if n == SpecialsSeason {
		return int(^uint(0) >> 1)
	}
	return int(n)
}

// NextSeason returns the season immediately after n within sid, honoring
// the specials-sort-last convention.
func (s *Store) NextSeason(sid id.SeriesID, n SeasonNumber) (Season, bool) {
	seasons := s.SeasonsBySeries(sid)
	for i, sea := range seasons {
		if sea.Number == n && i+1 < len(seasons) {
			return seasons[i+1], true
		}
	}
	return Season{}, false
}

// PrevSeason returns the season immediately before n within sid.
func (s *Store) PrevSeason(sid id.SeriesID, n SeasonNumber) (Season, bool) {
	seasons := s.SeasonsBySeries(sid)
	for i, sea := range seasons {
		if sea.Number == n && i > 0 {
			return seasons[i-1], true
		}
	}
	return Season{}, false
}

// UpsertSeason inserts or replaces a single season, used when ingestion
// refreshes one season's metadata without a full SeasonsUpdate.
func (s *Store) UpsertSeason(sea Season) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.seasons[sea.SeriesID]
	if !ok {
		m = make(map[SeasonNumber]Season)
		s.seasons[sea.SeriesID] = m
	}
	m[sea.Number] = sea
	s.ledger.Mark(ledger.Series)
}
