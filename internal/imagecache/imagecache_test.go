package imagecache

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/id"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

type countingCatalog struct {
	catalog.Catalog
	mu      sync.Mutex
	calls   int32
	payload []byte
	err     error
}

func (c *countingCatalog) DownloadImage(context.Context, id.ImageRef) ([]byte, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.payload, c.err
}

func TestLoadFetchesAndCachesOriginal(t *testing.T) {
	dir := t.TempDir()
	payload := testJPEG(t, 4, 4)
	cat := &countingCatalog{payload: payload}
	c := New(dir, cat)

	ref := id.ImageRef{Provider: id.ImageProviderA, Path: "poster.jpg"}
	got, err := c.Load(context.Background(), ref, Variant{Original: true})
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	got2, err := c.Load(context.Background(), ref, Variant{Original: true})
	require.NoError(t, err)
	assert.Equal(t, payload, got2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&cat.calls))
}

func TestLoadResizesFitLetterbox(t *testing.T) {
	dir := t.TempDir()
	cat := &countingCatalog{payload: testJPEG(t, 100, 200)}
	c := New(dir, cat)

	ref := id.ImageRef{Provider: id.ImageProviderB, Path: "banner.jpg"}
	out, err := c.Load(context.Background(), ref, Variant{Fit: FitLetterbox, Width: 50, Height: 50})
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestLoadResizesFillCover(t *testing.T) {
	dir := t.TempDir()
	cat := &countingCatalog{payload: testJPEG(t, 100, 200)}
	c := New(dir, cat)

	ref := id.ImageRef{Provider: id.ImageProviderA, Path: "fan.jpg"}
	out, err := c.Load(context.Background(), ref, Variant{Fit: FitCover, Width: 40, Height: 40})
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestLoadCoalescesConcurrentRequests(t *testing.T) {
	dir := t.TempDir()
	cat := &countingCatalog{payload: testJPEG(t, 10, 10)}
	c := New(dir, cat)
	ref := id.ImageRef{Provider: id.ImageProviderA, Path: "concurrent.jpg"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Load(context.Background(), ref, Variant{Fit: FitLetterbox, Width: 8, Height: 8})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&cat.calls), int32(2))
}

func TestLoadDifferentVariantsAreDistinctKeys(t *testing.T) {
	dir := t.TempDir()
	cat := &countingCatalog{payload: testJPEG(t, 20, 20)}
	c := New(dir, cat)
	ref := id.ImageRef{Provider: id.ImageProviderA, Path: "variants.jpg"}

	_, err := c.Load(context.Background(), ref, Variant{Original: true})
	require.NoError(t, err)
	_, err = c.Load(context.Background(), ref, Variant{Fit: FitCover, Width: 10, Height: 10})
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&cat.calls))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), ".jpg"))
	}
}
