package store

import (
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ledger"
)

// GetSyncState returns the conditional-fetch bookkeeping for remote id r,
// used to populate If-None-Match on the next catalog request.
func (s *Store) GetSyncState(r id.RemoteID) (SyncState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sync[r]
	return st, ok
}

// SetSyncState records updated conditional-fetch bookkeeping for r and
// marks the Sync family dirty.
func (s *Store) SetSyncState(r id.RemoteID, st SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync[r] = st
	s.ledger.Mark(ledger.Sync)
}
