package wms

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoplat/vtbridge/scheme"
)

func mercScheme(t *testing.T) scheme.TilingScheme {
	t.Helper()
	s, ok := scheme.ForProjection("EPSG:3857", 0, 0)
	require.True(t, ok)
	return s
}

func TestDerive(t *testing.T) {
	sch := mercScheme(t)
	desc, err := Derive("https://tiles.example.com/service?token=abc&layer=roads", sch, "image/png", []string{"Example"})
	require.NoError(t, err)

	assert.Equal(t, "https://tiles.example.com/service", desc.BaseURL)
	assert.Equal(t, "abc", desc.Params.Get("token"))
	assert.Equal(t, "roads", desc.Params.Get("layer"))
	assert.Equal(t, "image/png", desc.Format)
	assert.True(t, desc.Transparent)
	assert.Equal(t, []string{"Example"}, desc.Credits)
}

func TestDeriveOpaqueFormat(t *testing.T) {
	sch := mercScheme(t)
	for _, format := range []string{"image/jpeg", "IMAGE/JPEG"} {
		desc, err := Derive("https://tiles.example.com/service", sch, format, nil)
		require.NoError(t, err)
		assert.False(t, desc.Transparent, format)
	}
}

func TestDeriveRejectsRelativeURL(t *testing.T) {
	_, err := Derive("/tiles/0/0/0.mvt", mercScheme(t), "image/png", nil)
	assert.Error(t, err)
}

func TestTileURL(t *testing.T) {
	sch := mercScheme(t)
	b := NewBridge(Description{
		BaseURL:     "https://wms.example.com/service",
		Format:      "image/png",
		Transparent: true,
		Scheme:      sch,
	}, nil, 8, 256, 256)

	u := b.TileURL(0, 0, 0)
	req, err := http.NewRequest(http.MethodGet, u, nil)
	require.NoError(t, err)
	q := req.URL.Query()

	assert.Equal(t, "WMS", q.Get("SERVICE"))
	assert.Equal(t, "1.3.0", q.Get("VERSION"))
	assert.Equal(t, "GetMap", q.Get("REQUEST"))
	assert.Equal(t, "image/png", q.Get("FORMAT"))
	assert.Equal(t, "TRUE", q.Get("TRANSPARENT"))
	assert.Equal(t, "EPSG:3857", q.Get("CRS"))
	assert.Equal(t, "256", q.Get("WIDTH"))
	assert.NotEmpty(t, q.Get("BBOX"))
}

func TestBBoxAxisOrder(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

	// WMS 1.3.0 swaps to lat,lon for geographic CRS
	assert.Equal(t, "-90,-180,90,180", bboxParam(scheme.Geographic, bound))
	assert.Equal(t, "-180,-90,180,90", bboxParam(scheme.WebMercator, bound))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestRequestImageCoalesces(t *testing.T) {
	var fetches atomic.Int32
	tile := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(tile)
	}))
	defer srv.Close()

	b := NewBridge(Description{BaseURL: srv.URL, Format: "image/png", Scheme: mercScheme(t)}, nil, 8, 256, 256)

	const callers = 8
	imgs := make([]*image.RGBA, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := b.RequestImage(context.Background(), 1, 0, 0)
			if err != nil {
				t.Error(err)
				return
			}
			imgs[i] = img
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load())
	for i := 1; i < callers; i++ {
		assert.Same(t, imgs[0], imgs[i])
	}
}

func TestRequestImageCachesFailure(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		http.Error(w, "no such layer", http.StatusNotFound)
	}))
	defer srv.Close()

	b := NewBridge(Description{BaseURL: srv.URL, Format: "image/png", Scheme: mercScheme(t)}, nil, 8, 256, 256)

	_, err := b.RequestImage(context.Background(), 0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), strconv.Itoa(http.StatusNotFound))

	// the failed result stays cached; no retry happens on its own
	_, err = b.RequestImage(context.Background(), 0, 0, 0)
	require.Error(t, err)
	assert.Equal(t, int32(1), fetches.Load())
}
