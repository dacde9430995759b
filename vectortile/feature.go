// Package vectortile decodes Mapbox Vector Tile payloads into immutable
// feature records.
//
// Decoded coordinate buffers are shared: the same record may back this
// bridge's rasterizer and a 2D map consumer at the same time, so nothing in
// this package scales or flips coordinates after decode. Any per-consumer
// transform must copy the buffer, never mutate it in place.
package vectortile

// DefaultExtent is the conventional tile-local coordinate extent.
const DefaultExtent = 4096

// GeomType tags the geometry stored in a Feature's coordinate buffer.
type GeomType uint8

const (
	Unknown GeomType = iota
	Point
	MultiPoint
	LineString
	MultiLineString
	Polygon
	MultiPolygon
)

func (t GeomType) String() string {
	switch t {
	case Point:
		return "point"
	case MultiPoint:
		return "multipoint"
	case LineString:
		return "linestring"
	case MultiLineString:
		return "multilinestring"
	case Polygon:
		return "polygon"
	case MultiPolygon:
		return "multipolygon"
	}
	return "unknown"
}

// Feature is one decoded vector tile feature: a geometry type tag, a flat
// [x0 y0 x1 y1 ...] coordinate buffer in tile-local coordinates, and end
// markers delimiting rings and parts. Records are immutable once decoded;
// slice accessors return internal buffers that must be treated as
// read-only views.
type Feature struct {
	geomType GeomType
	coords   []float64
	ends     []int // buffer offset ending each ring/part
	ringsPer []int // rings per polygon, MultiPolygon only
	extent   float64
	layer    string
	id       uint64
	props    map[string]any
}

// Type returns the geometry type tag.
func (f *Feature) Type() GeomType { return f.geomType }

// Coords returns the flat coordinate buffer. Read-only.
func (f *Feature) Coords() []float64 { return f.coords }

// Ends returns the buffer offsets ending each ring or part, nil for
// single-part geometries. Read-only.
func (f *Feature) Ends() []int { return f.ends }

// PolygonRings returns the number of rings belonging to each polygon of a
// MultiPolygon, nil otherwise. Read-only.
func (f *Feature) PolygonRings() []int { return f.ringsPer }

// Extent returns the tile-local coordinate extent the buffer is anchored
// to, conventionally 4096.
func (f *Feature) Extent() float64 { return f.extent }

// Layer returns the source layer name the feature was decoded from.
func (f *Feature) Layer() string { return f.layer }

// ID returns the feature id, zero when the tile carried none.
func (f *Feature) ID() uint64 { return f.id }

// Property looks up a decoded feature attribute.
func (f *Feature) Property(key string) (any, bool) {
	v, ok := f.props[key]
	return v, ok
}

// Properties returns the decoded attribute map. Read-only.
func (f *Feature) Properties() map[string]any { return f.props }
