package id

import (
	"fmt"
	"strconv"
	"strings"
)

// MarshalText/UnmarshalText implementations let the plain id types and the
// RemoteID/ImageRef sum types serialize as their canonical string forms
// under both encoding/json and gopkg.in/yaml.v3 (both respect
// encoding.TextMarshaler/TextUnmarshaler), which is what internal/persist
// relies on to write/read the entity family files.

func (v SeriesID) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *SeriesID) UnmarshalText(b []byte) error {
	parsed, err := ParseSeriesID(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v EpisodeID) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *EpisodeID) UnmarshalText(b []byte) error {
	parsed, err := ParseEpisodeID(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v MovieID) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *MovieID) UnmarshalText(b []byte) error {
	parsed, err := ParseMovieID(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v WatchID) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *WatchID) UnmarshalText(b []byte) error {
	parsed, err := ParseWatchID(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v TaskID) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *TaskID) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskID(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseRemoteID parses the `provider:id` display form back into a
// RemoteID.
func ParseRemoteID(s string) (RemoteID, error) {
	provider, rest, ok := strings.Cut(s, ":")
	if !ok {
		return RemoteID{}, fmt.Errorf("id: malformed remote id %q", s)
	}
	switch provider {
	case CatalogA.String():
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return RemoteID{}, fmt.Errorf("id: malformed catalog-a remote id %q: %w", s, err)
		}
		return NewCatalogARemoteID(n), nil
	case CatalogB.String():
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return RemoteID{}, fmt.Errorf("id: malformed catalog-b remote id %q: %w", s, err)
		}
		return NewCatalogBRemoteID(n), nil
	case CatalogC.String():
		short, err := ParseShortID(rest)
		if err != nil {
			return RemoteID{}, fmt.Errorf("id: malformed catalog-c remote id %q: %w", s, err)
		}
		return NewCatalogCRemoteID(short), nil
	default:
		return RemoteID{}, fmt.Errorf("id: unknown remote id provider %q", provider)
	}
}

func (r RemoteID) MarshalText() ([]byte, error) { return []byte(r.Display()), nil }
func (r *RemoteID) UnmarshalText(b []byte) error {
	parsed, err := ParseRemoteID(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseImageRef parses the `provider:relpath` form
// back into an ImageRef.
func ParseImageRef(s string) (ImageRef, error) {
	provider, rest, ok := strings.Cut(s, ":")
	if !ok {
		return ImageRef{}, fmt.Errorf("id: malformed image ref %q", s)
	}
	p, ok := ParseImageProvider(provider)
	if !ok {
		return ImageRef{}, fmt.Errorf("id: unknown image provider %q", provider)
	}
	return ImageRef{Provider: p, Path: rest}, nil
}

func (r ImageRef) MarshalText() ([]byte, error) { return []byte(r.Display()), nil }
func (r *ImageRef) UnmarshalText(b []byte) error {
	parsed, err := ParseImageRef(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
