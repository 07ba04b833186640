// Package id holds the core's stable identity types:
// opaque per-entity ids backed by github.com/google/uuid, the remote-id sum
// type over the two catalogs plus their cross-reference, and the
// image-reference sum type with its content-addressing fingerprint.
package id

import (
	"crypto/sha256"
	"strconv"

	"github.com/google/uuid"
)

// SeriesID, EpisodeID, MovieID, WatchID, and TaskID are distinct nominal
// types over uuid.UUID so the compiler rejects passing one kind of id where
// another is expected, even though all five share the same representation.

type SeriesID uuid.UUID
type EpisodeID uuid.UUID
type MovieID uuid.UUID
type WatchID uuid.UUID
type TaskID uuid.UUID

func NewSeriesID() SeriesID   { return SeriesID(uuid.New()) }
func NewEpisodeID() EpisodeID { return EpisodeID(uuid.New()) }
func NewMovieID() MovieID     { return MovieID(uuid.New()) }
func NewWatchID() WatchID     { return WatchID(uuid.New()) }
func NewTaskID() TaskID       { return TaskID(uuid.New()) }

func (id SeriesID) String() string  { return uuid.UUID(id).String() }
func (id EpisodeID) String() string { return uuid.UUID(id).String() }
func (id MovieID) String() string   { return uuid.UUID(id).String() }
func (id WatchID) String() string   { return uuid.UUID(id).String() }
func (id TaskID) String() string    { return uuid.UUID(id).String() }

func (id SeriesID) IsZero() bool  { return id == SeriesID{} }
func (id EpisodeID) IsZero() bool { return id == EpisodeID{} }
func (id MovieID) IsZero() bool   { return id == MovieID{} }

// ParseSeriesID parses a canonical string form back into a SeriesID.
func ParseSeriesID(s string) (SeriesID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SeriesID{}, err
	}
	return SeriesID(u), nil
}

// ParseEpisodeID parses a canonical string form back into an EpisodeID.
func ParseEpisodeID(s string) (EpisodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EpisodeID{}, err
	}
	return EpisodeID(u), nil
}

// ParseMovieID parses a canonical string form back into a MovieID.
func ParseMovieID(s string) (MovieID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MovieID{}, err
	}
	return MovieID(u), nil
}

// ParseWatchID parses a canonical string form back into a WatchID.
func ParseWatchID(s string) (WatchID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return WatchID{}, err
	}
	return WatchID(u), nil
}

// ParseTaskID parses a canonical string form back into a TaskID.
func ParseTaskID(s string) (TaskID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, err
	}
	return TaskID(u), nil
}

// RemoteProvider names the remote catalog or cross-reference a RemoteID
// belongs to.
type RemoteProvider int

const (
	// CatalogA is a numeric-id provider (e.g. the "series database" style
	// catalog).
	CatalogA RemoteProvider = iota
	// CatalogB is a second numeric-id provider (e.g. the "movie database"
	// style catalog).
	CatalogB
	// CatalogC is a short, fixed-width alphanumeric cross-reference
	// provider.
	CatalogC
)

func (p RemoteProvider) String() string {
	switch p {
	case CatalogA:
		return "catalog-a"
	case CatalogB:
		return "catalog-b"
	case CatalogC:
		return "catalog-c"
	default:
		return "unknown"
	}
}

// ShortID is the fixed-width inline storage for catalog-C ids: up to 16
// ASCII bytes, stored without heap allocation, trailing bytes zero-padded.
type ShortID [16]byte

// NewShortID packs a string (≤16 bytes) into a ShortID, truncating any
// excess. Overflow-checked construction is ParseShortID.
func NewShortID(s string) ShortID {
	var out ShortID
	copy(out[:], s)
	return out
}

// ParseShortID packs s into a ShortID, returning ErrShortIDOverflow if s is
// longer than 16 bytes.
func ParseShortID(s string) (ShortID, error) {
	if len(s) > len(ShortID{}) {
		return ShortID{}, ErrShortIDOverflow
	}
	return NewShortID(s), nil
}

func (s ShortID) String() string {
	end := len(s)
	for end > 0 && s[end-1] == 0 {
		end--
	}
	return string(s[:end])
}

// RemoteID is a tagged union over the three remote-id variants it is valid
// to hold at once: two independent numeric catalogs plus one
// fixed-width alphanumeric cross-reference id.
type RemoteID struct {
	Provider RemoteProvider
	Numeric  int64
	Short    ShortID
}

func NewCatalogARemoteID(numeric int64) RemoteID {
	return RemoteID{Provider: CatalogA, Numeric: numeric}
}

func NewCatalogBRemoteID(numeric int64) RemoteID {
	return RemoteID{Provider: CatalogB, Numeric: numeric}
}

func NewCatalogCRemoteID(short ShortID) RemoteID {
	return RemoteID{Provider: CatalogC, Short: short}
}

// CanonicalURL renders the remote id to its provider's canonical URL.
func (r RemoteID) CanonicalURL() string {
	switch r.Provider {
	case CatalogA:
		return "https://catalog-a.example/series/" + strconv.FormatInt(r.Numeric, 10)
	case CatalogB:
		return "https://catalog-b.example/movie/" + strconv.FormatInt(r.Numeric, 10)
	case CatalogC:
		return "https://catalog-c.example/title/" + r.Short.String()
	default:
		return ""
	}
}

// String is Display, so %s/%v formatting of a RemoteID yields the
// canonical `provider:id` form.
func (r RemoteID) String() string { return r.Display() }

// Display renders the `provider:id` debug/display form.
func (r RemoteID) Display() string {
	switch r.Provider {
	case CatalogA, CatalogB:
		return r.Provider.String() + ":" + strconv.FormatInt(r.Numeric, 10)
	case CatalogC:
		return r.Provider.String() + ":" + r.Short.String()
	default:
		return r.Provider.String() + ":?"
	}
}

// ImageProvider names which of the two image-hosting providers an ImageRef
// points at.
type ImageProvider int

const (
	ImageProviderA ImageProvider = iota
	ImageProviderB
)

func (p ImageProvider) String() string {
	switch p {
	case ImageProviderA:
		return "image-a"
	case ImageProviderB:
		return "image-b"
	default:
		return "unknown"
	}
}

// ParseImageProvider parses the provider tag used in the `provider:relpath`
// image-ref form.
func ParseImageProvider(s string) (ImageProvider, bool) {
	switch s {
	case "image-a":
		return ImageProviderA, true
	case "image-b":
		return ImageProviderB, true
	default:
		return 0, false
	}
}

// ImageRef is a tagged union over the two image-hosting providers; each
// variant carries a relative path.
type ImageRef struct {
	Provider ImageProvider
	Path     string
}

// Fingerprint derives a stable 16-byte cache key by domain-separated
// hashing of (provider-tag, path): the provider tag is hashed as a
// discriminant byte so that the same path under different providers never
// collides.
func (r ImageRef) Fingerprint() [16]byte {
	h := sha256.New()
	h.Write([]byte{byte(r.Provider)})
	h.Write([]byte{0})
	h.Write([]byte(r.Path))
	sum := h.Sum(nil)
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}

// Display renders the `provider:relpath` form used in the image HTTP
// endpoint and debug output.
func (r ImageRef) Display() string {
	return r.Provider.String() + ":" + r.Path
}
