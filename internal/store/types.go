// Package store is the in-memory relational entity store: series,
// seasons, episodes, movies, watches, pending items, the remote-id index,
// and per-remote sync state, with the cascade and uniqueness invariants
// enforced on every mutation.
//
// The store is owned exclusively by the scheduler loop; it is not itself
// safe for concurrent writers. Single-threaded ownership plus an RWMutex
// covers UI/HTTP read snapshots.
package store

import (
	"math"
	"time"

	"github.com/jellywatch/core/internal/id"
)

// SeasonNumber is a season's ordinal; SpecialsSeason (0) sorts after all
// numbered content under the episode watch-key.
type SeasonNumber int

const SpecialsSeason SeasonNumber = 0

// Graphics bundles a series/season/episode's artwork plus the "user
// customized this slot" bits that suppress overwrite on refresh.
type Graphics struct {
	Poster  *id.ImageRef
	Banner  *id.ImageRef
	Fanart  *id.ImageRef
	Alternates []id.ImageRef

	// Customized records which named slots ("poster", "banner") the user
	// has explicitly picked, so a later ingest does not clobber the
	// choice.
	Customized map[string]bool
}

func NewGraphics() Graphics {
	return Graphics{Customized: make(map[string]bool)}
}

// IsCustomized reports whether slot has been pinned by the user.
func (g Graphics) IsCustomized(slot string) bool {
	return g.Customized != nil && g.Customized[slot]
}

// Series is one show, tracked or merely known.
type Series struct {
	ID               id.SeriesID
	Title            string
	FirstAirDate     *time.Time
	Overview         string
	Graphics         Graphics
	Tracked          bool
	CanonicalRemote  *id.RemoteID
}

// Season is not separately identified; it lives at (SeriesID, Number).
type Season struct {
	SeriesID id.SeriesID
	Number   SeasonNumber
	AirDate  *time.Time
	Name     *string
	Overview string
	Graphics Graphics
}

// Episode is one episode of a series.
type Episode struct {
	ID              id.EpisodeID
	SeriesID        id.SeriesID
	Name            *string
	Overview        string
	AbsoluteNumber  *int
	Season          SeasonNumber
	Number          int
	Aired           *time.Time
	Graphics        Graphics
	CanonicalRemote *id.RemoteID
}

// watchKey is the iteration total order: (absolute_number or +∞,
// aired or +∞, season, number), with id as the final tiebreaker. The
// season component uses seasonSortKey so specials sort after all numbered
// content, the same convention SeasonsBySeries applies.
type watchKey struct {
	absolute int64
	aired    int64
	season   int
	number   int
	id       id.EpisodeID
}

const plusInf = math.MaxInt64

func (e Episode) key() watchKey {
	k := watchKey{absolute: plusInf, aired: plusInf, season: seasonSortKey(e.Season), number: e.Number, id: e.ID}
	if e.AbsoluteNumber != nil {
		k.absolute = int64(*e.AbsoluteNumber)
	}
	if e.Aired != nil {
		k.aired = e.Aired.UnixNano()
	}
	return k
}

// less implements the strict total order the watch-key uses for iteration
// and pending advancement.
func (a watchKey) less(b watchKey) bool {
	if a.absolute != b.absolute {
		return a.absolute < b.absolute
	}
	if a.aired != b.aired {
		return a.aired < b.aired
	}
	if a.season != b.season {
		return a.season < b.season
	}
	if a.number != b.number {
		return a.number < b.number
	}
	return a.id.String() < b.id.String()
}

// IsSpecial reports whether e belongs to the specials season; pending
// advancement skips these.
func (e Episode) IsSpecial() bool { return e.Season == SpecialsSeason }

// ReleaseKind is a movie release's category, used to derive
// Movie.EarliestByKind.
type ReleaseKind int

const (
	ReleasePremiere ReleaseKind = iota
	ReleaseTheatricalLimited
	ReleaseTheatrical
	ReleaseDigital
	ReleasePhysical
	ReleaseTV
)

// CountryRelease is one dated release of a movie in one country.
type CountryRelease struct {
	Country string
	Kind    ReleaseKind
	Date    time.Time
}

// countryPriority breaks ties between same-day releases of the same kind in
// different countries: US=10, GB=9, else 0, higher wins.
func countryPriority(country string) int {
	switch country {
	case "US":
		return 10
	case "GB":
		return 9
	default:
		return 0
	}
}

// availabilityKinds are the kinds that count as "earliest actual
// availability" for a movie's sortable release.
var availabilityKinds = map[ReleaseKind]bool{
	ReleaseDigital:  true,
	ReleasePhysical: true,
	ReleaseTV:       true,
}

// Movie is one film with its per-country release history.
type Movie struct {
	ID                    id.MovieID
	Title                 string
	ReleaseDate           *time.Time
	Overview              string
	Graphics              Graphics
	CanonicalRemote       *id.RemoteID
	ReleaseDatesByCountry []CountryRelease

	// EarliestByKind is derived from ReleaseDatesByCountry; see
	// RecomputeEarliestByKind.
	EarliestByKind map[ReleaseKind]CountryRelease
}

// RecomputeEarliestByKind rebuilds m.EarliestByKind from
// m.ReleaseDatesByCountry: group by kind, keep the earliest date
// within a kind, break ties by country priority.
func (m *Movie) RecomputeEarliestByKind() {
	out := make(map[ReleaseKind]CountryRelease, len(m.ReleaseDatesByCountry))
	for _, r := range m.ReleaseDatesByCountry {
		cur, ok := out[r.Kind]
		if !ok {
			out[r.Kind] = r
			continue
		}
		switch {
		case r.Date.Before(cur.Date):
			out[r.Kind] = r
		case r.Date.Equal(cur.Date) && countryPriority(r.Country) > countryPriority(cur.Country):
			out[r.Kind] = r
		}
	}
	m.EarliestByKind = out
}

// SortableRelease is the "earliest actual availability" if one of
// {digital, physical, tv} is known, else the release-date field.
func (m Movie) SortableRelease() *time.Time {
	var best *time.Time
	for kind, r := range m.EarliestByKind {
		if !availabilityKinds[kind] {
			continue
		}
		d := r.Date
		if best == nil || d.Before(*best) {
			best = &d
		}
	}
	if best != nil {
		return best
	}
	return m.ReleaseDate
}

// EarliestRelease returns the earliest known release date across all
// countries/kinds, used to seed a movie's initial pending timestamp.
func (m Movie) EarliestRelease() *time.Time {
	var best *time.Time
	for _, r := range m.ReleaseDatesByCountry {
		d := r.Date
		if best == nil || d.Before(*best) {
			best = &d
		}
	}
	if best != nil {
		return best
	}
	return m.ReleaseDate
}

// WatchTargetKind discriminates a Watch's or PendingItem's target.
type WatchTargetKind int

const (
	TargetEpisode WatchTargetKind = iota
	TargetMovie
)

// WatchTarget is the tagged union `episode(series_id, episode_id) |
// movie(movie_id)`.
type WatchTarget struct {
	Kind      WatchTargetKind
	SeriesID  id.SeriesID
	EpisodeID id.EpisodeID
	MovieID   id.MovieID
}

func EpisodeTarget(sid id.SeriesID, eid id.EpisodeID) WatchTarget {
	return WatchTarget{Kind: TargetEpisode, SeriesID: sid, EpisodeID: eid}
}

func MovieTarget(mid id.MovieID) WatchTarget {
	return WatchTarget{Kind: TargetMovie, MovieID: mid}
}

// Watch is one logged viewing of an episode or movie.
type Watch struct {
	ID        id.WatchID
	Timestamp time.Time
	Target    WatchTarget
}

// PendingItem is the single "watch next" hint for one series or movie.
type PendingItem struct {
	Timestamp time.Time
	Kind      WatchTarget
}

// SyncState is per-canonical-remote-id conditional-fetch bookkeeping.
type SyncState struct {
	LastSyncTime  *time.Time
	LastModified  *time.Time
	LastETag      *string
}

// WatchMode selects how a watch timestamp is derived.
type WatchMode int

const (
	// ModeAired records the watch timestamp as "now", only valid if the
	// episode has aired as of today.
	ModeAired WatchMode = iota
	// ModeAirDate records the watch timestamp as the episode's air date,
	// skipping episodes without one.
	ModeAirDate
)
