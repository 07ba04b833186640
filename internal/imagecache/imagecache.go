// Package imagecache is a content-addressed on-disk image cache keyed by
// (fingerprint, variant). Concurrent requesters for the same key share
// one fetch via singleflight; writes land via the same
// write-temp/fsync/rename discipline internal/persist uses.
package imagecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/id"
)

// Fit selects how Resize maps a source image onto the target box.
type Fit int

const (
	// FitLetterbox scales to exactly w x h, preserving aspect ratio by
	// letterboxing ("fit").
	FitLetterbox Fit = iota
	// FitCover scales to cover w x h, cropping the overflow and preserving
	// the top edge for portrait sources ("fill").
	FitCover
)

// Variant is either the original download or a resize spec.
type Variant struct {
	Original bool
	Fit      Fit
	Width    int
	Height   int
}

// Ext returns the variant's path suffix, "" for the original.
func (v Variant) Ext() string {
	if v.Original {
		return ""
	}
	fit := "fit"
	if v.Fit == FitCover {
		fit = "fill"
	}
	return fmt.Sprintf("-%s-%dx%d", fit, v.Width, v.Height)
}

// ErrUnsupportedFormat is returned when a resize is requested against a
// decoded image whose source format cannot be re-encoded.
var ErrUnsupportedFormat = errors.New("imagecache: unsupported re-encode target")

// Cache is the on-disk, singleflight-coalesced image cache.
type Cache struct {
	dir   string
	cat   catalog.Catalog
	group singleflight.Group
}

// New creates a Cache rooted at dir, fetching originals through cat.
func New(dir string, cat catalog.Catalog) *Cache {
	return &Cache{dir: dir, cat: cat}
}

func cacheKey(ref id.ImageRef, v Variant) string {
	fp := ref.Fingerprint()
	return fmt.Sprintf("%x%s", fp, v.Ext())
}

func (c *Cache) path(ref id.ImageRef, v Variant) string {
	fp := ref.Fingerprint()
	return filepath.Join(c.dir, fmt.Sprintf("%x%s.jpg", fp, v.Ext()))
}

// Load returns the bytes at (ref, variant), populating the cache on a miss.
// Concurrent callers requesting the same key share one fetch.
func (c *Cache) Load(ctx context.Context, ref id.ImageRef, v Variant) ([]byte, error) {
	path := c.path(ref, v)
	if b, err := os.ReadFile(path); err == nil {
		return b, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("imagecache: read %s: %w", path, err)
	}

	out, err, _ := c.group.Do(cacheKey(ref, v), func() (any, error) {
		return c.populate(ctx, ref, v, path)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Cache) populate(ctx context.Context, ref id.ImageRef, v Variant, path string) ([]byte, error) {
	// Another goroutine may have populated the file while this call waited
	// to be scheduled, or while an earlier singleflight wave completed.
	if b, err := os.ReadFile(path); err == nil {
		return b, nil
	}

	// Each variant key performs its own download on a miss; only the
	// variant the caller asked for lands on disk, so a resize-only
	// request leaves exactly one file behind.
	original, err := c.cat.DownloadImage(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("imagecache: download %s: %w", ref.Display(), err)
	}
	if v.Original {
		if err := writeAtomic(path, original); err != nil {
			return nil, err
		}
		return original, nil
	}

	out, err := resize(original, v)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(path, out); err != nil {
		return nil, err
	}
	return out, nil
}

func resize(original []byte, v Variant) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("imagecache: decode source: %w", err)
	}
	if format != "jpeg" {
		return nil, fmt.Errorf("%w: source format %s", ErrUnsupportedFormat, format)
	}

	resized := scale(src, v)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("imagecache: encode resized jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// scale implements the two resize modes. fit letterboxes onto an exact
// w x h canvas preserving aspect ratio; fill covers w x h, cropping any
// overflow while preserving the top edge (so a portrait poster keeps its
// head rather than its feet).
func scale(src image.Image, v Variant) image.Image {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return src
	}

	switch v.Fit {
	case FitCover:
		scaleFactor := maxFloat(float64(v.Width)/float64(sw), float64(v.Height)/float64(sh))
		rw, rh := int(float64(sw)*scaleFactor), int(float64(sh)*scaleFactor)
		scaled := resizeNearest(src, rw, rh)
		return cropTop(scaled, v.Width, v.Height)
	default: // FitLetterbox
		scaleFactor := minFloat(float64(v.Width)/float64(sw), float64(v.Height)/float64(sh))
		rw, rh := int(float64(sw)*scaleFactor), int(float64(sh)*scaleFactor)
		scaled := resizeNearest(src, rw, rh)
		return letterbox(scaled, v.Width, v.Height)
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// resizeNearest performs nearest-neighbor scaling; the cache's quality bar
// is consistent thumbnails, not photographic fidelity.
func resizeNearest(src image.Image, w, h int) image.Image {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sh/h
		for x := 0; x < w; x++ {
			sx := sb.Min.X + x*sw/w
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

func letterbox(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	offX := (w - sb.Dx()) / 2
	offY := (h - sb.Dy()) / 2
	for y := 0; y < sb.Dy(); y++ {
		for x := 0; x < sb.Dx(); x++ {
			dst.Set(x+offX, y+offY, src.At(sb.Min.X+x, sb.Min.Y+y))
		}
	}
	return dst
}

func cropTop(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	for y := 0; y < h && y < sb.Dy(); y++ {
		for x := 0; x < w && x < sb.Dx(); x++ {
			dst.Set(x, y, src.At(sb.Min.X+x, sb.Min.Y+y))
		}
	}
	return dst
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("imagecache: create dir %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("imagecache: open temp file: %w", err)
	}

	_, writeErr := f.Write(data)
	syncErr := f.Sync()
	closeErr := f.Close()

	if writeErr != nil || syncErr != nil || closeErr != nil {
		os.Remove(tmp)
		if writeErr != nil {
			return fmt.Errorf("imagecache: write: %w", writeErr)
		}
		if syncErr != nil {
			return fmt.Errorf("imagecache: fsync: %w", syncErr)
		}
		return fmt.Errorf("imagecache: close: %w", closeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("imagecache: rename into place: %w", err)
	}
	return nil
}
