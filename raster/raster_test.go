package raster

import (
	"image/color"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoplat/vtbridge/vectortile"
)

// decodeFeature round-trips a geometry through the tile codec so tests
// exercise the same feature records the bridge produces.
func decodeFeature(t *testing.T, layer string, geom orb.Geometry, props geojson.Properties) *vectortile.Feature {
	t.Helper()
	gf := geojson.NewFeature(geom)
	if props != nil {
		gf.Properties = props
	}
	data, err := mvt.Marshal(mvt.Layers{{
		Name:     layer,
		Version:  2,
		Extent:   4096,
		Features: []*geojson.Feature{gf},
	}})
	require.NoError(t, err)
	feats, err := vectortile.Decode(data)
	require.NoError(t, err)
	require.Len(t, feats, 1)
	return feats[0]
}

func solidRed(_ *vectortile.Feature, _ float64) []Style {
	return []Style{{Fill: "#ff0000"}}
}

func TestRasterizeFullExtentPolygon(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {4096, 0}, {4096, 4096}, {0, 4096}, {0, 0}}}
	f := decodeFeature(t, "land", poly, nil)

	img := Rasterize([]*vectortile.Feature{f}, solidRed, 1, 256, 256)
	require.Equal(t, 256, img.Bounds().Dx())
	require.Equal(t, 256, img.Bounds().Dy())

	// the full tile extent scales onto the full pixel surface
	for _, p := range [][2]int{{128, 128}, {10, 10}, {245, 245}} {
		r, _, _, a := img.At(p[0], p[1]).RGBA()
		assert.Equal(t, uint32(0xffff), r, "pixel %v", p)
		assert.Equal(t, uint32(0xffff), a, "pixel %v", p)
	}
}

func TestRasterizeDeterministic(t *testing.T) {
	feats := []*vectortile.Feature{
		decodeFeature(t, "roads", orb.LineString{{0, 0}, {4096, 4096}}, nil),
		decodeFeature(t, "land", orb.Polygon{{{100, 100}, {3000, 100}, {3000, 3000}, {100, 3000}, {100, 100}}}, nil),
	}

	a := Rasterize(feats, DefaultStyle, 10, 256, 256)
	b := Rasterize(feats, DefaultStyle, 10, 256, 256)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestRasterizeDoesNotMutateFeature(t *testing.T) {
	f := decodeFeature(t, "roads", orb.LineString{{0, 0}, {2048, 2048}, {4096, 0}}, nil)
	before := append([]float64(nil), f.Coords()...)

	Rasterize([]*vectortile.Feature{f}, DefaultStyle, 1, 256, 256)
	Rasterize([]*vectortile.Feature{f}, DefaultStyle, 1, 512, 512)

	assert.Equal(t, before, f.Coords())
}

func TestRasterizeUnstyledLeavesBlank(t *testing.T) {
	f := decodeFeature(t, "land", orb.Polygon{{{0, 0}, {4096, 0}, {4096, 4096}, {0, 4096}, {0, 0}}}, nil)
	none := func(*vectortile.Feature, float64) []Style { return nil }

	img := Rasterize([]*vectortile.Feature{f}, none, 1, 64, 64)
	_, _, _, a := img.At(32, 32).RGBA()
	assert.Zero(t, a)
}

func TestRasterizePoint(t *testing.T) {
	f := decodeFeature(t, "poi", orb.Point{2048, 2048}, nil)
	style := func(*vectortile.Feature, float64) []Style {
		return []Style{{Fill: "#00ff00", Radius: 8}}
	}

	img := Rasterize([]*vectortile.Feature{f}, style, 1, 256, 256)
	_, g, _, a := img.At(128, 128).RGBA()
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), a)
}

func TestRasterizeStylesPaintInOrder(t *testing.T) {
	f := decodeFeature(t, "land", orb.Polygon{{{0, 0}, {4096, 0}, {4096, 4096}, {0, 4096}, {0, 0}}}, nil)
	layered := func(*vectortile.Feature, float64) []Style {
		return []Style{{Fill: "#ff0000"}, {Fill: "#0000ff"}}
	}

	img := Rasterize([]*vectortile.Feature{f}, layered, 1, 64, 64)
	r, _, b, _ := img.At(32, 32).RGBA()
	assert.Equal(t, uint32(0xffff), b)
	assert.Zero(t, r)
}

func TestParseColor(t *testing.T) {
	c, ok := parseColor("#3388ff", 0)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 0x33, G: 0x88, B: 0xff, A: 0xff}, c)

	// short form expands per digit
	c, ok = parseColor("#38f", 0)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 0x33, G: 0x88, B: 0xff, A: 0xff}, c)

	c, ok = parseColor("#000000", 0.5)
	require.True(t, ok)
	assert.Equal(t, uint8(128), c.A)

	for _, bad := range []string{"", "red", "#12345", "#zzzzzz"} {
		_, ok := parseColor(bad, 0)
		assert.False(t, ok, bad)
	}
}

func TestDefaultStyleByGeometry(t *testing.T) {
	pt := decodeFeature(t, "poi", orb.Point{1, 1}, nil)
	ln := decodeFeature(t, "roads", orb.LineString{{0, 0}, {10, 10}}, nil)
	pg := decodeFeature(t, "land", orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}, nil)

	assert.NotEmpty(t, DefaultStyle(pt, 1)[0].Fill)
	assert.NotEmpty(t, DefaultStyle(ln, 1)[0].Stroke)
	assert.NotEmpty(t, DefaultStyle(pg, 1)[0].Fill)
}
