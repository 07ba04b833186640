// Package ingest is ingestion and reconciliation: given a remote id it
// drives a conditional catalog fetch, resolves the local
// entity the result belongs to, and applies the reconciled update into the
// store as a sequence of store calls (series, episodes, seasons, remote
// bindings, sync state). Each call is atomic on its own; the sequence as a
// whole is not, so a concurrent reader can observe a partly applied update.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/store"
)

// Reconciler drives ingestion against one Catalog into one Store.
type Reconciler struct {
	cat catalog.Catalog
	st  *store.Store
}

// New builds a Reconciler over cat and st.
func New(cat catalog.Catalog, st *store.Store) *Reconciler {
	return &Reconciler{cat: cat, st: st}
}

// Outcome reports what IngestSeries/IngestMovie did, for the scheduler to
// log and for sync-state bookkeeping.
type Outcome struct {
	Changed bool
	SeriesID id.SeriesID
	MovieID  id.MovieID
}

// resolveLocalSeries implements the three-step id resolution: explicit
// id from the caller, else a remote-index lookup among the fetched cross
// references, else mint a new id by leaving sid zero (InsertSeries mints).
func (r *Reconciler) resolveLocalSeries(explicit id.SeriesID, remotes []id.RemoteID) id.SeriesID {
	if !explicit.IsZero() {
		return explicit
	}
	view := r.st.RemoteIndex()
	for _, rid := range remotes {
		if ref, ok := view.Lookup(rid); ok && ref.Kind == store.LocalSeries {
			return ref.SeriesID
		}
	}
	return id.SeriesID{}
}

func (r *Reconciler) resolveLocalMovie(explicit id.MovieID, remotes []id.RemoteID) id.MovieID {
	if !explicit.IsZero() {
		return explicit
	}
	view := r.st.RemoteIndex()
	for _, rid := range remotes {
		if ref, ok := view.Lookup(rid); ok && ref.Kind == store.LocalMovie {
			return ref.MovieID
		}
	}
	return id.MovieID{}
}

// IngestSeries fetches remote (conditionally, using whatever sync-state is
// already recorded for it) and reconciles the result into the store. If
// explicitSeries is non-zero it overrides id resolution.
func (r *Reconciler) IngestSeries(ctx context.Context, remote id.RemoteID, explicitSeries id.SeriesID) (Outcome, error) {
	var ifNoneMatch *string
	if sync, ok := r.st.GetSyncState(remote); ok {
		ifNoneMatch = sync.LastETag
	}

	now := time.Now()
	result, err := r.cat.Series(ctx, remote, ifNoneMatch)
	if err == catalog.ErrNotModified {
		r.st.SetSyncState(remote, store.SyncState{LastSyncTime: &now, LastETag: ifNoneMatch})
		return Outcome{}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("ingest: fetch series %s: %w", remote, err)
	}

	episodes, err := r.cat.SeriesEpisodes(ctx, remote)
	if err != nil {
		return Outcome{}, fmt.Errorf("ingest: fetch episodes for %s: %w", remote, err)
	}

	sid := r.resolveLocalSeries(explicitSeries, result.CrossRemotes)

	existingGraphics := store.Graphics{}
	if !sid.IsZero() {
		if sr, ok := r.st.GetSeries(sid); ok {
			existingGraphics = sr.Graphics
		}
	}

	sr := store.Series{
		ID:              sid,
		Title:           result.Update.Title,
		FirstAirDate:    result.Update.FirstAirDate,
		Overview:        result.Update.Overview,
		Graphics:        mergeGraphics(existingGraphics, result.Update.Graphics),
		Tracked:         true,
		CanonicalRemote: &remote,
	}
	if !sid.IsZero() {
		if existing, ok := r.st.GetSeries(sid); ok {
			sr.Tracked = existing.Tracked
		}
	}
	sr = r.st.InsertSeries(sr)

	storeEpisodes := make([]store.Episode, 0, len(episodes))
	for _, eu := range episodes {
		storeEpisodes = append(storeEpisodes, store.Episode{
			SeriesID:        sr.ID,
			Name:            eu.Name,
			Overview:        eu.Overview,
			AbsoluteNumber:  eu.AbsoluteNumber,
			Season:          eu.Season,
			Number:          eu.Number,
			Aired:           eu.Aired,
			Graphics:        eu.Graphics,
			CanonicalRemote: eu.CanonicalRemote,
		})
	}
	r.st.ReplaceEpisodes(sr.ID, storeEpisodes)
	r.st.ReplaceSeasons(sr.ID, deriveSeasons(storeEpisodes))

	for _, rid := range result.CrossRemotes {
		r.st.BindRemote(rid, store.LocalRef{Kind: store.LocalSeries, SeriesID: sr.ID})
	}

	etag := result.ETag
	r.st.SetSyncState(remote, store.SyncState{LastSyncTime: &now, LastModified: result.LastModified, LastETag: etag})

	return Outcome{Changed: true, SeriesID: sr.ID}, nil
}

// deriveSeasons computes the derived season list: one season per distinct
// value, air_date = min(episode.aired) within that season.
func deriveSeasons(episodes []store.Episode) []store.Season {
	bySeason := make(map[store.SeasonNumber]*store.Season)
	order := make([]store.SeasonNumber, 0)
	for _, e := range episodes {
		sea, ok := bySeason[e.Season]
		if !ok {
			sea = &store.Season{SeriesID: e.SeriesID, Number: e.Season}
			bySeason[e.Season] = sea
			order = append(order, e.Season)
		}
		if e.Aired != nil && (sea.AirDate == nil || e.Aired.Before(*sea.AirDate)) {
			sea.AirDate = e.Aired
		}
	}
	out := make([]store.Season, 0, len(order))
	for _, n := range order {
		out = append(out, *bySeason[n])
	}
	return out
}

// mergeGraphics applies the graphics-merge rule: a customized slot keeps
// its existing value; everything else, including alternates and fanart,
// is replaced by the incoming value.
func mergeGraphics(existing, incoming store.Graphics) store.Graphics {
	out := incoming
	out.Alternates = incoming.Alternates
	if existing.IsCustomized("poster") {
		out.Poster = existing.Poster
	}
	if existing.IsCustomized("banner") {
		out.Banner = existing.Banner
	}
	if out.Customized == nil {
		out.Customized = existing.Customized
	}
	return out
}

// IngestMovie fetches remote conditionally and reconciles into the store.
func (r *Reconciler) IngestMovie(ctx context.Context, remote id.RemoteID, explicitMovie id.MovieID) (Outcome, error) {
	var ifNoneMatch *string
	if sync, ok := r.st.GetSyncState(remote); ok {
		ifNoneMatch = sync.LastETag
	}

	now := time.Now()
	result, err := r.cat.Movie(ctx, remote, ifNoneMatch)
	if err == catalog.ErrNotModified {
		r.st.SetSyncState(remote, store.SyncState{LastSyncTime: &now, LastETag: ifNoneMatch})
		return Outcome{}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("ingest: fetch movie %s: %w", remote, err)
	}

	mid := r.resolveLocalMovie(explicitMovie, result.CrossRemotes)

	existingGraphics := store.Graphics{}
	if !mid.IsZero() {
		if m, ok := r.st.GetMovie(mid); ok {
			existingGraphics = m.Graphics
		}
	}

	m := store.Movie{
		ID:                    mid,
		Title:                 result.Update.Title,
		ReleaseDate:           result.Update.ReleaseDate,
		Overview:              result.Update.Overview,
		Graphics:              mergeGraphics(existingGraphics, result.Update.Graphics),
		CanonicalRemote:       &remote,
		ReleaseDatesByCountry: result.Update.ReleaseDatesByCountry,
	}
	m = r.st.InsertMovie(m)

	for _, rid := range result.CrossRemotes {
		r.st.BindRemote(rid, store.LocalRef{Kind: store.LocalMovie, MovieID: m.ID})
	}

	etag := result.ETag
	r.st.SetSyncState(remote, store.SyncState{LastSyncTime: &now, LastModified: result.LastModified, LastETag: etag})

	return Outcome{Changed: true, MovieID: m.ID}, nil
}
