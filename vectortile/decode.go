package vectortile

import (
	"bytes"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Decode parses raw vector tile bytes, optionally gzip-compressed, into
// feature records. Decoding is deterministic: the same bytes always yield
// bit-identical coordinate buffers. Coordinates come out exactly as
// encoded, in tile-local screen orientation (y grows downward).
func Decode(raw []byte) ([]*Feature, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(raw, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(raw)
	} else {
		layers, err = mvt.Unmarshal(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding vector tile: %w", err)
	}

	var features []*Feature
	for _, layer := range layers {
		extent := float64(layer.Extent)
		if extent <= 0 {
			extent = DefaultExtent
		}
		for _, gf := range layer.Features {
			if f := flatten(gf, layer.Name, extent); f != nil {
				features = append(features, f)
			}
		}
	}
	return features, nil
}

// flatten copies an orb geometry into the flat-buffer representation.
// Geometry collections and empty geometries are dropped.
func flatten(gf *geojson.Feature, layer string, extent float64) *Feature {
	f := &Feature{
		extent: extent,
		layer:  layer,
		id:     featureID(gf.ID),
		props:  map[string]any(gf.Properties),
	}

	switch g := gf.Geometry.(type) {
	case orb.Point:
		f.geomType = Point
		f.coords = []float64{g[0], g[1]}
	case orb.MultiPoint:
		f.geomType = MultiPoint
		f.coords = appendPoints(nil, g)
	case orb.LineString:
		f.geomType = LineString
		f.coords = appendPoints(nil, g)
	case orb.MultiLineString:
		f.geomType = MultiLineString
		for _, ls := range g {
			f.coords = appendPoints(f.coords, ls)
			f.ends = append(f.ends, len(f.coords))
		}
	case orb.Polygon:
		f.geomType = Polygon
		for _, ring := range g {
			f.coords = appendPoints(f.coords, ring)
			f.ends = append(f.ends, len(f.coords))
		}
	case orb.MultiPolygon:
		f.geomType = MultiPolygon
		for _, poly := range g {
			for _, ring := range poly {
				f.coords = appendPoints(f.coords, ring)
				f.ends = append(f.ends, len(f.coords))
			}
			f.ringsPer = append(f.ringsPer, len(poly))
		}
	default:
		return nil
	}

	if len(f.coords) == 0 {
		return nil
	}
	return f
}

func appendPoints[S ~[]orb.Point](coords []float64, ps S) []float64 {
	for _, p := range ps {
		coords = append(coords, p[0], p[1])
	}
	return coords
}

func featureID(id any) uint64 {
	switch v := id.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case float64:
		return uint64(v)
	}
	return 0
}
