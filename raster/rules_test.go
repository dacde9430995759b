package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesFuncMatching(t *testing.T) {
	fn := RulesFunc([]Rule{
		{Layer: "water", Style: Style{Fill: "#0000ff"}},
		{Layer: "roads", FilterProp: "class", FilterValue: "motorway", Style: Style{Stroke: "#ff0000", Width: 3}},
		{Layer: "roads", Style: Style{Stroke: "#888888"}},
	})

	water := decodeFeature(t, "water", orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}, nil)
	styles := fn(water, 1)
	require.Len(t, styles, 1)
	assert.Equal(t, "#0000ff", styles[0].Fill)

	motorway := decodeFeature(t, "roads", orb.LineString{{0, 0}, {10, 10}},
		geojson.Properties{"class": "motorway"})
	styles = fn(motorway, 1)
	require.Len(t, styles, 2)
	assert.Equal(t, "#ff0000", styles[0].Stroke)
	assert.Equal(t, "#888888", styles[1].Stroke)

	// no matching rule leaves the feature unpainted
	other := decodeFeature(t, "buildings", orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}, nil)
	assert.Empty(t, fn(other, 1))
}

func TestRulesFuncEmptyFallsBack(t *testing.T) {
	fn := RulesFunc(nil)
	pt := decodeFeature(t, "poi", orb.Point{1, 1}, nil)
	assert.NotEmpty(t, fn(pt, 1))
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- layer: water
  fill: "#0000ff"
  opacity: 0.8
- layer: roads
  filterProp: class
  filterValue: motorway
  stroke: "#ff0000"
  width: 3
`), 0644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "water", rules[0].Layer)
	assert.Equal(t, "#0000ff", rules[0].Fill)
	assert.InDelta(t, 0.8, rules[0].Opacity, 1e-9)
	assert.Equal(t, "motorway", rules[1].FilterValue)
	assert.Equal(t, 3.0, rules[1].Width)
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
