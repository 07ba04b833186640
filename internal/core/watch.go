package core

import (
	"time"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/store"
)

// watchTimestamp derives the timestamp a watch of e should carry under
// mode: Aired stamps "now" and requires the episode to have aired
// as of now; AirDate stamps the episode's own air time and requires one to
// exist. An aired-in-the-future episode is unaired for both modes.
func watchTimestamp(now time.Time, e store.Episode, mode store.WatchMode) (time.Time, error) {
	switch mode {
	case store.ModeAirDate:
		if e.Aired == nil {
			return time.Time{}, ErrNoAirDate
		}
		if e.Aired.After(now) {
			return time.Time{}, ErrNotAired
		}
		return *e.Aired, nil
	default: // ModeAired
		if e.Aired == nil || e.Aired.After(now) {
			return time.Time{}, ErrNotAired
		}
		return now, nil
	}
}

// WatchEpisode records a watch of eid at a timestamp derived from mode;
// the store advances sid's pending entry as a side effect.
func (c *Core) WatchEpisode(now time.Time, sid id.SeriesID, eid id.EpisodeID, mode store.WatchMode) (store.Watch, error) {
	e, ok := c.st.GetEpisode(sid, eid)
	if !ok {
		return store.Watch{}, ErrNotFound
	}
	ts, err := watchTimestamp(now, e, mode)
	if err != nil {
		return store.Watch{}, err
	}
	return c.st.RecordWatch(store.EpisodeTarget(sid, eid), ts), nil
}

// WatchMovie records a watch of mid. Aired mode stamps now; AirDate mode
// stamps the movie's earliest known release, failing with ErrNoAirDate if
// none is recorded.
func (c *Core) WatchMovie(now time.Time, mid id.MovieID, mode store.WatchMode) (store.Watch, error) {
	m, ok := c.st.GetMovie(mid)
	if !ok {
		return store.Watch{}, ErrNotFound
	}

	ts := now
	if mode == store.ModeAirDate {
		r := m.EarliestRelease()
		if r == nil {
			return store.Watch{}, ErrNoAirDate
		}
		if r.After(now) {
			return store.Watch{}, ErrNotAired
		}
		ts = *r
	}
	return c.st.RecordWatch(store.MovieTarget(mid), ts), nil
}

// WatchRemainingSeason records a watch for every not-yet-watched episode
// of season n, skipping episodes the mode cannot stamp (unaired, or
// missing an air date) rather than failing the whole operation.
// Returns the watches recorded.
func (c *Core) WatchRemainingSeason(now time.Time, sid id.SeriesID, n store.SeasonNumber, mode store.WatchMode) []store.Watch {
	var out []store.Watch
	for _, e := range c.st.EpisodesBySeason(sid, n).Collect() {
		if c.st.IsEpisodeWatched(e.ID) {
			continue
		}
		ts, err := watchTimestamp(now, e, mode)
		if err != nil {
			continue
		}
		out = append(out, c.st.RecordWatch(store.EpisodeTarget(sid, e.ID), ts))
	}
	return out
}

// RemoveEpisodeWatch deletes one logged watch of eid by id.
func (c *Core) RemoveEpisodeWatch(eid id.EpisodeID, wid id.WatchID) error {
	for _, w := range c.st.WatchesForEpisode(eid) {
		if w.ID == wid {
			c.st.RemoveWatch(wid)
			return nil
		}
	}
	return ErrNotFound
}

// RemoveMovieWatch deletes one logged watch of mid by id; removing the
// only watch resurrects the movie's pending entry.
func (c *Core) RemoveMovieWatch(mid id.MovieID, wid id.WatchID) error {
	for _, w := range c.st.WatchesForMovie(mid) {
		if w.ID == wid {
			c.st.RemoveWatch(wid)
			return nil
		}
	}
	return ErrNotFound
}

// RemoveSeasonWatches deletes every watch logged against season n's
// episodes, returning how many were removed.
func (c *Core) RemoveSeasonWatches(sid id.SeriesID, n store.SeasonNumber) int {
	removed := 0
	for _, e := range c.st.EpisodesBySeason(sid, n).Collect() {
		for _, w := range c.st.WatchesForEpisode(e.ID) {
			if c.st.RemoveWatch(w.ID) {
				removed++
			}
		}
	}
	return removed
}
