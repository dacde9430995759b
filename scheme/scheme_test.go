package scheme

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForProjectionGeographic(t *testing.T) {
	for _, code := range []string{"EPSG:4326", "CRS:84", "urn:ogc:def:crs:OGC:1.3:CRS84"} {
		s, ok := ForProjection(code, 0, 0)
		require.True(t, ok, code)
		assert.Equal(t, Geographic, s.Projection)
		assert.Equal(t, 2, s.RootTilesX)
		assert.Equal(t, 1, s.RootTilesY)
		assert.Equal(t, -180.0, s.Rectangle.Min[0])
		assert.Equal(t, 90.0, s.Rectangle.Max[1])
	}
}

func TestForProjectionWebMercator(t *testing.T) {
	for _, code := range []string{"EPSG:3857", "EPSG:900913", "EPSG:102100"} {
		s, ok := ForProjection(code, 0, 0)
		require.True(t, ok, code)
		assert.Equal(t, WebMercator, s.Projection)
		assert.Equal(t, 1, s.RootTilesX)
		assert.Equal(t, 1, s.RootTilesY)
		assert.InDelta(t, math.Pi*equatorialRadius, s.Rectangle.Max[0], 1e-6)
	}
}

func TestForProjectionUnsupported(t *testing.T) {
	_, ok := ForProjection("EPSG:9999", 0, 0)
	assert.False(t, ok)
	_, ok = ForProjection("", 0, 0)
	assert.False(t, ok)
}

func TestForProjectionExplicitGrid(t *testing.T) {
	s, ok := ForProjection("EPSG:4326", 1, 1)
	require.True(t, ok)
	assert.Equal(t, 1, s.RootTilesX)
	assert.Equal(t, 1, s.RootTilesY)
}

func TestResolution(t *testing.T) {
	merc, _ := ForProjection("EPSG:3857", 0, 0)
	world := 2 * math.Pi * equatorialRadius
	assert.InDelta(t, world/256, merc.Resolution(0, 256), 1e-6)
	assert.InDelta(t, world/256/2, merc.Resolution(1, 256), 1e-6)
	assert.InDelta(t, world/512, merc.Resolution(0, 512), 1e-6)

	geo, _ := ForProjection("EPSG:4326", 0, 0)
	assert.InDelta(t, 2*math.Pi/256, geo.Resolution(0, 256), 1e-12)
}

func TestTileBound(t *testing.T) {
	geo, _ := ForProjection("EPSG:4326", 0, 0)

	// level 0 west tile covers the western hemisphere
	b := geo.TileBound(0, 0, 0)
	assert.InDelta(t, -180.0, b.Min[0], 1e-9)
	assert.InDelta(t, 0.0, b.Max[0], 1e-9)
	assert.InDelta(t, -90.0, b.Min[1], 1e-9)
	assert.InDelta(t, 90.0, b.Max[1], 1e-9)

	// y counts top to bottom
	b = geo.TileBound(1, 0, 1)
	assert.InDelta(t, -90.0, b.Min[1], 1e-9)
	assert.InDelta(t, 0.0, b.Max[1], 1e-9)
}

func TestTileIDKey(t *testing.T) {
	id := TileID{Z: 3, X: 5, Y: -2}
	assert.Equal(t, "3_5_-2", id.Key())
	assert.Equal(t, "3/5/-2", id.String())
}

func TestReconcilerNextLevel(t *testing.T) {
	// geographic source with a single root tile sits one level above the
	// consumer convention
	geo1x1, _ := ForProjection("EPSG:4326", 1, 1)
	r := NewReconciler(geo1x1, false)
	assert.True(t, r.RequestsNextLevel())
	assert.Equal(t, TileID{Z: 4, X: 2, Y: 1}, r.SourceTile(3, 2, 1))

	// conventional 2x1 geographic grid maps levels one to one
	geo2x1, _ := ForProjection("EPSG:4326", 0, 0)
	r = NewReconciler(geo2x1, false)
	assert.False(t, r.RequestsNextLevel())
	assert.Equal(t, TileID{Z: 3, X: 2, Y: 1}, r.SourceTile(3, 2, 1))

	// mercator never shifts, even on a 1x1 grid
	merc, _ := ForProjection("EPSG:3857", 0, 0)
	r = NewReconciler(merc, false)
	assert.False(t, r.RequestsNextLevel())
}

func TestReconcilerInvertY(t *testing.T) {
	merc, _ := ForProjection("EPSG:3857", 0, 0)
	r := NewReconciler(merc, true)
	assert.Equal(t, TileID{Z: 2, X: 1, Y: -1}, r.SourceTile(2, 1, 0))
	assert.Equal(t, TileID{Z: 2, X: 1, Y: -4}, r.SourceTile(2, 1, 3))
}
