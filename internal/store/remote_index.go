package store

import (
	"github.com/jellywatch/core/internal/id"
)

// LocalRef names whichever local entity a RemoteID maps to.
type LocalKind int

const (
	LocalSeries LocalKind = iota
	LocalEpisode
	LocalMovie
)

type LocalRef struct {
	Kind      LocalKind
	SeriesID  id.SeriesID
	EpisodeID id.EpisodeID
	MovieID   id.MovieID
}

// remoteIndex is the bidirectional remote_id <-> local entity mapping:
// two maps, remote->local and
// local->set<remote>, so that a single local entity may carry several
// remote ids (e.g. a catalog-A id plus a catalog-C cross-reference) while
// a single remote id names at most one local entity.
//
// The facade owns the only mutable entry points; RemoteIndexView exposes a
// read-only proxy handle for ingestion code that must look up ids without
// being able to corrupt the index.
type remoteIndex struct {
	remoteToLocal map[id.RemoteID]LocalRef
	localToRemote map[LocalRef]map[id.RemoteID]struct{}
}

func newRemoteIndex() *remoteIndex {
	return &remoteIndex{
		remoteToLocal: make(map[id.RemoteID]LocalRef),
		localToRemote: make(map[LocalRef]map[id.RemoteID]struct{}),
	}
}

func (ri *remoteIndex) lookup(r id.RemoteID) (LocalRef, bool) {
	ref, ok := ri.remoteToLocal[r]
	return ref, ok
}

func (ri *remoteIndex) remotesFor(ref LocalRef) []id.RemoteID {
	set := ri.localToRemote[ref]
	out := make([]id.RemoteID, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	return out
}

// bind adds a remote_id -> local mapping, maintaining both directions.
func (ri *remoteIndex) bind(r id.RemoteID, ref LocalRef) {
	ri.remoteToLocal[r] = ref
	set, ok := ri.localToRemote[ref]
	if !ok {
		set = make(map[id.RemoteID]struct{})
		ri.localToRemote[ref] = set
	}
	set[r] = struct{}{}
}

// unbindLocal removes every remote id mapped to ref (used on cascade
// removal of the local entity).
func (ri *remoteIndex) unbindLocal(ref LocalRef) {
	for r := range ri.localToRemote[ref] {
		delete(ri.remoteToLocal, r)
	}
	delete(ri.localToRemote, ref)
}

// RemoteIndexView is a read-only proxy handle: ingestion
// coroutines may resolve remote ids to local entities but cannot mutate
// the index directly.
type RemoteIndexView struct {
	ri *remoteIndex
}

// Lookup resolves a remote id to the local entity it names, if any.
func (v RemoteIndexView) Lookup(r id.RemoteID) (LocalRef, bool) {
	return v.ri.lookup(r)
}

// RemotesForSeries returns every remote id bound to sid.
func (v RemoteIndexView) RemotesForSeries(sid id.SeriesID) []id.RemoteID {
	return v.ri.remotesFor(LocalRef{Kind: LocalSeries, SeriesID: sid})
}

// RemotesForMovie returns every remote id bound to mid.
func (v RemoteIndexView) RemotesForMovie(mid id.MovieID) []id.RemoteID {
	return v.ri.remotesFor(LocalRef{Kind: LocalMovie, MovieID: mid})
}
