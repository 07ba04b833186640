package core

import (
	"strings"
	"time"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/queue"
	"github.com/jellywatch/core/internal/store"
)

// ImportedWatch is one row of an external watch-history export, already
// parsed by the collaborator that owns the file format; the core only
// resolves it against local entities and records the watch.
type ImportedWatch struct {
	Remote    id.RemoteID
	IsMovie   bool
	Season    store.SeasonNumber
	Number    int
	WatchedAt time.Time
	Title     string
}

// ImportOptions are the import toggles: a title filter and whether
// unknown remotes should be scheduled for download.
type ImportOptions struct {
	// TitleFilter, when non-empty, imports only rows whose title contains
	// it (case-insensitive).
	TitleFilter string
	// ImportMissing enqueues a by-remote download for rows whose remote id
	// is not known locally, so a later import pass can land them.
	ImportMissing bool
}

// ImportSummary reports what an import pass did.
type ImportSummary struct {
	Imported int
	Filtered int
	Missing  int
	Enqueued int
}

// ImportWatchHistory replays externally-recorded watches into the store.
// Rows resolving to a known episode or movie get a watch at their original
// timestamp; unknown remotes are counted and, with ImportMissing, queued
// for download so re-running the import afterwards picks them up.
func (c *Core) ImportWatchHistory(items []ImportedWatch, opts ImportOptions) ImportSummary {
	var sum ImportSummary
	filter := strings.ToLower(opts.TitleFilter)

	for _, item := range items {
		if filter != "" && !strings.Contains(strings.ToLower(item.Title), filter) {
			sum.Filtered++
			continue
		}

		ref, known := c.st.RemoteIndex().Lookup(item.Remote)
		if !known {
			sum.Missing++
			if opts.ImportMissing {
				kind := queue.DownloadSeriesByRemote(item.Remote)
				if item.IsMovie {
					kind = queue.DownloadMovieByRemote(item.Remote)
				}
				if _, ok := c.PushTask(kind); ok {
					sum.Enqueued++
				}
			}
			continue
		}

		switch {
		case item.IsMovie && ref.Kind == store.LocalMovie:
			c.st.RecordWatch(store.MovieTarget(ref.MovieID), item.WatchedAt)
			sum.Imported++
		case !item.IsMovie && ref.Kind == store.LocalEpisode:
			c.st.RecordWatch(store.EpisodeTarget(ref.SeriesID, ref.EpisodeID), item.WatchedAt)
			sum.Imported++
		case !item.IsMovie && ref.Kind == store.LocalSeries:
			if e, ok := c.findEpisode(ref.SeriesID, item.Season, item.Number); ok {
				c.st.RecordWatch(store.EpisodeTarget(ref.SeriesID, e.ID), item.WatchedAt)
				sum.Imported++
			} else {
				sum.Missing++
			}
		default:
			sum.Missing++
		}
	}
	return sum
}

func (c *Core) findEpisode(sid id.SeriesID, season store.SeasonNumber, number int) (store.Episode, bool) {
	for _, e := range c.st.EpisodesBySeason(sid, season).Collect() {
		if e.Number == number {
			return e, true
		}
	}
	return store.Episode{}, false
}
