// Package scheme reconciles tile addressing between a raster imagery
// consumer's tiling convention and a vector tile source's grid.
package scheme

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Projection identifies one of the two supported tiling projections.
type Projection string

const (
	// Geographic is plate carree over WGS84 degrees.
	Geographic Projection = "EPSG:4326"
	// WebMercator is spherical mercator over meters.
	WebMercator Projection = "EPSG:3857"
)

// equatorialRadius is the WGS84 equatorial radius in meters.
const equatorialRadius = 6378137.0

// TilingScheme describes a source's tile grid: the projection, the number
// of tiles along each axis at level zero, and the covering rectangle in
// projection units (degrees for geographic, meters for web mercator).
// A scheme is derived once when the source becomes ready and never changes.
type TilingScheme struct {
	Projection Projection
	RootTilesX int
	RootTilesY int
	Rectangle  orb.Bound
}

// ForProjection maps a projection code onto a tiling scheme. Root tile
// counts of zero take the projection's conventional defaults (2x1 for
// geographic, 1x1 for mercator). Codes outside the two supported
// projections return ok=false; the bridge then never becomes ready.
func ForProjection(code string, rootX, rootY int) (TilingScheme, bool) {
	switch code {
	case "EPSG:4326", "CRS:84", "urn:ogc:def:crs:OGC:1.3:CRS84":
		if rootX <= 0 {
			rootX = 2
		}
		if rootY <= 0 {
			rootY = 1
		}
		return TilingScheme{
			Projection: Geographic,
			RootTilesX: rootX,
			RootTilesY: rootY,
			Rectangle:  orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}},
		}, true
	case "EPSG:3857", "EPSG:900913", "EPSG:102100":
		if rootX <= 0 {
			rootX = 1
		}
		if rootY <= 0 {
			rootY = 1
		}
		half := math.Pi * equatorialRadius
		return TilingScheme{
			Projection: WebMercator,
			RootTilesX: rootX,
			RootTilesY: rootY,
			Rectangle:  orb.Bound{Min: orb.Point{-half, -half}, Max: orb.Point{half, half}},
		}, true
	}
	return TilingScheme{}, false
}

// Placeholder is the scheme a bridge answers with before it becomes ready,
// so early property reads never crash the caller.
func Placeholder() TilingScheme {
	s, _ := ForProjection(string(WebMercator), 1, 1)
	return s
}

// Resolution estimates the ground size of one pixel at a source level:
// the world circumference at the equator for mercator, the world in
// radians for geographic, divided by the tile pixel width and 2^level.
func (s TilingScheme) Resolution(level, tileWidth int) float64 {
	world := 2 * math.Pi
	if s.Projection == WebMercator {
		world = 2 * math.Pi * equatorialRadius
	}
	return world / float64(tileWidth) / math.Exp2(float64(level))
}

// TileBound returns the rectangle covered by tile (z,x,y) in projection
// units. Y counts top to bottom, matching the source's native addressing.
func (s TilingScheme) TileBound(z, x, y int) orb.Bound {
	nx := float64(s.RootTilesX) * math.Exp2(float64(z))
	ny := float64(s.RootTilesY) * math.Exp2(float64(z))
	w := (s.Rectangle.Max[0] - s.Rectangle.Min[0]) / nx
	h := (s.Rectangle.Max[1] - s.Rectangle.Min[1]) / ny
	minX := s.Rectangle.Min[0] + float64(x)*w
	maxY := s.Rectangle.Max[1] - float64(y)*h
	return orb.Bound{Min: orb.Point{minX, maxY - h}, Max: orb.Point{minX + w, maxY}}
}

// TileID addresses a tile in the source's convention. Y may be negative
// under the legacy bottom-up axis convention.
type TileID struct {
	Z, X, Y int
}

// Key is the cache key form of the address.
func (t TileID) Key() string {
	return fmt.Sprintf("%d_%d_%d", t.Z, t.X, t.Y)
}

func (t TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Reconciler converts consumer tile addresses into source tile addresses.
// Both conversion flags are resolved once at construction and fixed for the
// reconciler's lifetime.
type Reconciler struct {
	scheme           TilingScheme
	requestNextLevel bool
	invertY          bool
}

// NewReconciler derives the conversion flags. A geographic source whose
// level-zero grid is a single tile sits one zoom level above the consumer's
// two-tile geographic convention, so every lookup requests the next level.
// invertY applies the legacy bottom-up tile axis (y' = -y-1) on every
// lookup; it is explicit configuration, not a runtime probe.
func NewReconciler(s TilingScheme, invertY bool) Reconciler {
	next := s.Projection == Geographic && s.RootTilesX == 1 && s.RootTilesY == 1
	return Reconciler{scheme: s, requestNextLevel: next, invertY: invertY}
}

// SourceTile maps a consumer (level, x, y) to the source's addressing.
func (r Reconciler) SourceTile(level, x, y int) TileID {
	z := level
	if r.requestNextLevel {
		z++
	}
	if r.invertY {
		y = -y - 1
	}
	return TileID{Z: z, X: x, Y: y}
}

// RequestsNextLevel reports whether consumer levels map to source level+1.
func (r Reconciler) RequestsNextLevel() bool { return r.requestNextLevel }

// Scheme returns the source tiling scheme the reconciler was built from.
func (r Reconciler) Scheme() TilingScheme { return r.scheme }
