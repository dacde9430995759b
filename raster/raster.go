package raster

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"

	"github.com/geoplat/vtbridge/vectortile"
)

// defaultPointRadius is used when a style paints a point without a radius.
const defaultPointRadius = 3

// Rasterize paints features onto a fresh width x height surface. It is
// pure and synchronous: the same features, style function, and resolution
// always produce a pixel-identical surface.
//
// Shared decoded buffers are never touched: each feature's flat buffer is
// cloned and scaled into pixel space before painting, and the style
// function always receives the original unscaled feature.
func Rasterize(features []*vectortile.Feature, styleFn StyleFunc, resolution float64, width, height int) *image.RGBA {
	dc := gg.NewContext(width, height)
	if styleFn == nil {
		styleFn = DefaultStyle
	}
	for _, f := range features {
		geom := scaledGeometry(f, float64(width), float64(height))
		if geom == nil {
			continue
		}
		for _, st := range styleFn(f, resolution) {
			paint(dc, geom, st)
		}
	}
	return dc.Image().(*image.RGBA)
}

// scaledGeometry clones the feature's flat buffer, maps the tile-local
// extent into pixel space with a per-axis scale factor, and rebuilds a
// geometry of the matching type. No axis flip: decode already established
// screen orientation. Unknown type tags fall back to a single line through
// the buffer.
func scaledGeometry(f *vectortile.Feature, w, h float64) orb.Geometry {
	src := f.Coords()
	if len(src) < 2 {
		return nil
	}
	sx := w / f.Extent()
	sy := h / f.Extent()
	coords := make([]float64, len(src))
	for i := 0; i+1 < len(src); i += 2 {
		coords[i] = src[i] * sx
		coords[i+1] = src[i+1] * sy
	}

	switch f.Type() {
	case vectortile.Point:
		return orb.Point{coords[0], coords[1]}
	case vectortile.MultiPoint:
		return orb.MultiPoint(points(coords))
	case vectortile.LineString:
		return orb.LineString(points(coords))
	case vectortile.MultiLineString:
		var mls orb.MultiLineString
		for _, part := range parts(coords, f.Ends()) {
			mls = append(mls, orb.LineString(part))
		}
		return mls
	case vectortile.Polygon:
		var poly orb.Polygon
		for _, part := range parts(coords, f.Ends()) {
			poly = append(poly, orb.Ring(part))
		}
		return poly
	case vectortile.MultiPolygon:
		rings := parts(coords, f.Ends())
		var mp orb.MultiPolygon
		for _, n := range f.PolygonRings() {
			if n > len(rings) {
				n = len(rings)
			}
			var poly orb.Polygon
			for _, part := range rings[:n] {
				poly = append(poly, orb.Ring(part))
			}
			rings = rings[n:]
			mp = append(mp, poly)
		}
		return mp
	default:
		return orb.LineString(points(coords))
	}
}

func points(coords []float64) []orb.Point {
	ps := make([]orb.Point, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		ps = append(ps, orb.Point{coords[i], coords[i+1]})
	}
	return ps
}

// parts splits a flat buffer at its end markers. A nil marker list yields
// one part spanning the whole buffer.
func parts(coords []float64, ends []int) [][]orb.Point {
	if len(ends) == 0 {
		return [][]orb.Point{points(coords)}
	}
	var out [][]orb.Point
	start := 0
	for _, end := range ends {
		if end > len(coords) {
			end = len(coords)
		}
		out = append(out, points(coords[start:end]))
		start = end
	}
	return out
}

func paint(dc *gg.Context, geom orb.Geometry, st Style) {
	switch g := geom.(type) {
	case orb.Point:
		paintPoint(dc, g, st)
	case orb.MultiPoint:
		for _, p := range g {
			paintPoint(dc, p, st)
		}
	case orb.LineString:
		traceLine(dc, g)
		strokePath(dc, st)
	case orb.MultiLineString:
		for _, ls := range g {
			dc.NewSubPath()
			traceLine(dc, ls)
		}
		strokePath(dc, st)
	case orb.Polygon:
		tracePolygon(dc, g)
		fillPath(dc, st)
		strokePath(dc, st)
	case orb.MultiPolygon:
		for _, poly := range g {
			tracePolygon(dc, poly)
		}
		fillPath(dc, st)
		strokePath(dc, st)
	}
}

func paintPoint(dc *gg.Context, p orb.Point, st Style) {
	c, ok := parseColor(st.Fill, st.Opacity)
	if !ok {
		c, ok = parseColor(st.Stroke, st.Opacity)
	}
	if !ok {
		return
	}
	r := st.Radius
	if r <= 0 {
		r = defaultPointRadius
	}
	dc.SetColor(c)
	dc.DrawCircle(p[0], p[1], r)
	dc.Fill()
}

func traceLine(dc *gg.Context, ls orb.LineString) {
	for i, p := range ls {
		if i == 0 {
			dc.MoveTo(p[0], p[1])
		} else {
			dc.LineTo(p[0], p[1])
		}
	}
}

func tracePolygon(dc *gg.Context, poly orb.Polygon) {
	for _, ring := range poly {
		dc.NewSubPath()
		traceLine(dc, orb.LineString(ring))
		dc.ClosePath()
	}
}

func fillPath(dc *gg.Context, st Style) {
	c, ok := parseColor(st.Fill, st.Opacity)
	if !ok {
		return
	}
	dc.SetColor(c)
	dc.FillPreserve()
}

func strokePath(dc *gg.Context, st Style) {
	c, ok := parseColor(st.Stroke, st.Opacity)
	if !ok {
		dc.ClearPath()
		return
	}
	w := st.Width
	if w <= 0 {
		w = 1
	}
	dc.SetColor(c)
	dc.SetLineWidth(w)
	dc.Stroke()
}
