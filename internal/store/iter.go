package store

import "github.com/jellywatch/core/internal/id"

// EpisodeIter is an exact-size, double-ended iterator over episodes in
// watch-key order.
type EpisodeIter struct {
	ids      []id.EpisodeID
	episodes map[id.EpisodeID]Episode
	i, j     int
}

func newEpisodeIter(ids []id.EpisodeID, episodes map[id.EpisodeID]Episode) *EpisodeIter {
	return &EpisodeIter{ids: ids, episodes: episodes, i: 0, j: len(ids)}
}

// Len reports the number of episodes remaining in the iterator.
func (it *EpisodeIter) Len() int { return it.j - it.i }

// Next returns the next episode in ascending watch-key order.
func (it *EpisodeIter) Next() (Episode, bool) {
	if it.i >= it.j {
		return Episode{}, false
	}
	e := it.episodes[it.ids[it.i]]
	it.i++
	return e, true
}

// NextBack returns the next episode in descending watch-key order.
func (it *EpisodeIter) NextBack() (Episode, bool) {
	if it.i >= it.j {
		return Episode{}, false
	}
	it.j--
	return it.episodes[it.ids[it.j]], true
}

// Collect drains the iterator forward into a slice.
func (it *EpisodeIter) Collect() []Episode {
	out := make([]Episode, 0, it.Len())
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		out = append(out, e)
	}
	return out
}

// CollectReverse drains the iterator backward (newest/highest key first)
// into a slice.
func (it *EpisodeIter) CollectReverse() []Episode {
	out := make([]Episode, 0, it.Len())
	for e, ok := it.NextBack(); ok; e, ok = it.NextBack() {
		out = append(out, e)
	}
	return out
}

// PendingIter is a double-ended iterator over pending items in global
// timestamp order. Newest-first display is NextBack.
type PendingIter struct {
	items []PendingItem
	i, j  int
}

func newPendingIter(items []PendingItem) *PendingIter {
	return &PendingIter{items: items, i: 0, j: len(items)}
}

func (it *PendingIter) Len() int { return it.j - it.i }

func (it *PendingIter) Next() (PendingItem, bool) {
	if it.i >= it.j {
		return PendingItem{}, false
	}
	v := it.items[it.i]
	it.i++
	return v, true
}

func (it *PendingIter) NextBack() (PendingItem, bool) {
	if it.i >= it.j {
		return PendingItem{}, false
	}
	it.j--
	return it.items[it.j], true
}

func (it *PendingIter) Collect() []PendingItem {
	out := make([]PendingItem, 0, it.Len())
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		out = append(out, v)
	}
	return out
}

func (it *PendingIter) CollectReverse() []PendingItem {
	out := make([]PendingItem, 0, it.Len())
	for v, ok := it.NextBack(); ok; v, ok = it.NextBack() {
		out = append(out, v)
	}
	return out
}
