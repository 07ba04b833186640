package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/imagecache"
)

// ErrBadHint reports a malformed image variant hint.
var ErrBadHint = errors.New("core: bad image hint")

// ParseVariantHint parses the image-endpoint hint forms: "original",
// "fit-WxH", "fill-WxH".
func ParseVariantHint(hint string) (imagecache.Variant, error) {
	if hint == "original" {
		return imagecache.Variant{Original: true}, nil
	}

	mode, dims, ok := strings.Cut(hint, "-")
	if !ok {
		return imagecache.Variant{}, fmt.Errorf("%w: %q", ErrBadHint, hint)
	}
	var fit imagecache.Fit
	switch mode {
	case "fit":
		fit = imagecache.FitLetterbox
	case "fill":
		fit = imagecache.FitCover
	default:
		return imagecache.Variant{}, fmt.Errorf("%w: unknown mode %q", ErrBadHint, mode)
	}

	ws, hs, ok := strings.Cut(dims, "x")
	if !ok {
		return imagecache.Variant{}, fmt.Errorf("%w: malformed dimensions %q", ErrBadHint, dims)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return imagecache.Variant{}, fmt.Errorf("%w: width %q", ErrBadHint, ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return imagecache.Variant{}, fmt.Errorf("%w: height %q", ErrBadHint, hs)
	}
	return imagecache.Variant{Fit: fit, Width: w, Height: h}, nil
}

// LoadImage returns the bytes for ref at the variant hint names,
// populating the cache on a miss.
func (c *Core) LoadImage(ctx context.Context, ref id.ImageRef, hint string) ([]byte, error) {
	v, err := ParseVariantHint(hint)
	if err != nil {
		return nil, err
	}
	return c.images.Load(ctx, ref, v)
}
