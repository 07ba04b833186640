package core

import (
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/queue"
)

// Track marks sid as tracked, which makes it eligible for a pending entry
// and for the periodic refresh sweep.
func (c *Core) Track(sid id.SeriesID) error {
	if !c.st.Track(sid) {
		return ErrNotFound
	}
	return nil
}

// Untrack clears sid's tracked bit; its pending entry goes with it.
func (c *Core) Untrack(sid id.SeriesID) error {
	if !c.st.Untrack(sid) {
		return ErrNotFound
	}
	return nil
}

// RemoveSeries removes sid with full cascade: episodes, seasons, watches,
// pending, sync state, remote bindings, and any pending tasks keyed by the
// series or its remotes.
func (c *Core) RemoveSeries(sid id.SeriesID) error {
	remotes := c.st.RemoteIndex().RemotesForSeries(sid)
	if !c.st.RemoveSeries(sid) {
		return ErrNotFound
	}
	c.q.RemovePending(queue.SeriesRef(sid))
	for _, r := range remotes {
		c.q.RemovePending(queue.RemoteRef(r))
	}
	return nil
}

// RemoveMovie removes mid with cascade, including pending tasks keyed by
// the movie or its remotes.
func (c *Core) RemoveMovie(mid id.MovieID) error {
	remotes := c.st.RemoteIndex().RemotesForMovie(mid)
	if !c.st.RemoveMovie(mid) {
		return ErrNotFound
	}
	c.q.RemovePending(queue.MovieRef(mid))
	for _, r := range remotes {
		c.q.RemovePending(queue.RemoteRef(r))
	}
	return nil
}

// SelectPending pins sid's pending entry to eid, the UI's "start watching
// from here" gesture.
func (c *Core) SelectPending(sid id.SeriesID, eid id.EpisodeID) error {
	if !c.st.SelectSeriesPending(sid, eid) {
		return ErrNotFound
	}
	return nil
}

// SelectPendingMovie re-surfaces mid as pending.
func (c *Core) SelectPendingMovie(mid id.MovieID) error {
	if !c.st.SelectMoviePending(mid) {
		return ErrNotFound
	}
	return nil
}

// ClearPending drops sid's pending entry without recording a watch.
func (c *Core) ClearPending(sid id.SeriesID) error {
	if !c.st.ClearSeriesPending(sid) {
		return ErrNotFound
	}
	return nil
}

// ClearPendingMovie drops mid's pending entry.
func (c *Core) ClearPendingMovie(mid id.MovieID) error {
	if !c.st.ClearMoviePending(mid) {
		return ErrNotFound
	}
	return nil
}

// Skip advances sid's pending entry to its successor in watch-key order
// without recording a watch.
func (c *Core) Skip(sid id.SeriesID) error {
	if !c.st.SkipSeriesPending(sid) {
		return ErrNotFound
	}
	return nil
}

// SkipMovie drops mid's pending entry without recording a watch; unlike
// ClearPendingMovie the skip is remembered across recomputes.
func (c *Core) SkipMovie(mid id.MovieID) error {
	if !c.st.SkipMoviePending(mid) {
		return ErrNotFound
	}
	return nil
}

// SetGraphicCustomized flips the "user picked this slot" bit on sid's
// graphics so refreshes stop overwriting it; image is the user's
// choice for the slot.
func (c *Core) SetGraphicCustomized(sid id.SeriesID, slot string, image id.ImageRef) error {
	sr, ok := c.st.GetSeries(sid)
	if !ok {
		return ErrNotFound
	}
	if sr.Graphics.Customized == nil {
		sr.Graphics.Customized = make(map[string]bool)
	}
	sr.Graphics.Customized[slot] = true
	switch slot {
	case "poster":
		sr.Graphics.Poster = &image
	case "banner":
		sr.Graphics.Banner = &image
	}
	c.st.InsertSeries(sr)
	return nil
}
