// Package raster turns decoded vector tile features into raster tile
// images using caller-supplied styling.
package raster

import (
	"image/color"
	"strconv"

	"github.com/geoplat/vtbridge/vectortile"
)

// Style is one paint instruction for a feature. Colors are CSS hex strings
// ("#38f" or "#3388ff"); an empty color skips the corresponding paint step.
// Zero Opacity means fully opaque.
type Style struct {
	Fill    string  `json:"fill,omitempty" yaml:"fill,omitempty"`
	Stroke  string  `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	Width   float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Radius  float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Opacity float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
}

// StyleFunc maps a feature and the tile's resolution estimate to zero or
// more styles, painted in the order returned. The feature passed in is the
// original, unscaled record.
type StyleFunc func(f *vectortile.Feature, resolution float64) []Style

// DefaultStyle paints features in a single flat scheme when no style
// function is configured.
func DefaultStyle(f *vectortile.Feature, _ float64) []Style {
	switch f.Type() {
	case vectortile.Point, vectortile.MultiPoint:
		return []Style{{Fill: "#3388ff", Radius: 3}}
	case vectortile.Polygon, vectortile.MultiPolygon:
		return []Style{{Fill: "#3388ff", Stroke: "#2266cc", Width: 1, Opacity: 0.7}}
	default:
		return []Style{{Stroke: "#3388ff", Width: 1.5}}
	}
}

// parseColor parses #rgb and #rrggbb with an opacity multiplier.
func parseColor(s string, opacity float64) (color.NRGBA, bool) {
	if len(s) == 0 || s[0] != '#' {
		return color.NRGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: uint8(opacity*255 + 0.5),
	}, true
}
