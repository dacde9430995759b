// Package wms provides the generic raster bridge a vector source can
// delegate to: instead of rasterizing vector data locally, tiles are
// requested pre-rendered from a WMS endpoint derived from the source.
package wms

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/geoplat/vtbridge/scheme"
	"github.com/geoplat/vtbridge/tilecache"
)

// OpaqueFormat is the one raster format with no alpha channel;
// transparency is forced off for it.
const OpaqueFormat = "image/jpeg"

// Description declares a raster service equivalent to a vector source:
// base endpoint, passthrough query parameters (credential hooks included),
// target format, and the tile grid to serve.
type Description struct {
	BaseURL     string
	Params      url.Values
	Format      string
	Transparent bool
	Scheme      scheme.TilingScheme
	Credits     []string
	Headers     http.Header
}

// Derive builds a Description from a sample tile URL of the vector source,
// reusing its base path, query parameters, and tile grid. The transparency
// flag follows the format: on unless the format is opaque-only.
func Derive(sampleURL string, sch scheme.TilingScheme, format string, credits []string) (Description, error) {
	u, err := url.Parse(sampleURL)
	if err != nil {
		return Description{}, fmt.Errorf("parsing sample tile url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Description{}, fmt.Errorf("sample tile url %q has no endpoint", sampleURL)
	}
	params := u.Query()
	u.RawQuery = ""
	u.Fragment = ""
	return Description{
		BaseURL:     u.String(),
		Params:      params,
		Format:      format,
		Transparent: !strings.EqualFold(format, OpaqueFormat),
		Scheme:      sch,
		Credits:     credits,
	}, nil
}

// Bridge serves raster tiles from a WMS endpoint, with the same dedup
// cache discipline as the vector pipeline: one in-flight request per tile.
type Bridge struct {
	desc   Description
	httpc  *http.Client
	tiles  *tilecache.Cache[*image.RGBA]
	width  int
	height int
}

// NewBridge wraps a raster service description.
func NewBridge(desc Description, client *http.Client, cacheSize, tileWidth, tileHeight int) *Bridge {
	if client == nil {
		client = http.DefaultClient
	}
	if tileWidth <= 0 {
		tileWidth = 256
	}
	if tileHeight <= 0 {
		tileHeight = 256
	}
	return &Bridge{
		desc:   desc,
		httpc:  client,
		tiles:  tilecache.New[*image.RGBA](cacheSize),
		width:  tileWidth,
		height: tileHeight,
	}
}

// TileURL builds the GetMap request for one tile.
func (b *Bridge) TileURL(z, x, y int) string {
	bound := b.desc.Scheme.TileBound(z, x, y)
	q := url.Values{}
	for k, v := range b.desc.Params {
		q[k] = v
	}
	q.Set("SERVICE", "WMS")
	q.Set("VERSION", "1.3.0")
	q.Set("REQUEST", "GetMap")
	q.Set("FORMAT", b.desc.Format)
	q.Set("TRANSPARENT", strings.ToUpper(strconv.FormatBool(b.desc.Transparent)))
	q.Set("CRS", string(b.desc.Scheme.Projection))
	q.Set("WIDTH", strconv.Itoa(b.width))
	q.Set("HEIGHT", strconv.Itoa(b.height))
	q.Set("BBOX", bboxParam(b.desc.Scheme.Projection, bound))
	return b.desc.BaseURL + "?" + q.Encode()
}

// bboxParam formats a bound for WMS 1.3.0, which uses lat,lon axis order
// for EPSG:4326.
func bboxParam(p scheme.Projection, bound orb.Bound) string {
	minX, minY := bound.Min[0], bound.Min[1]
	maxX, maxY := bound.Max[0], bound.Max[1]
	if p == scheme.Geographic {
		minX, minY = minY, minX
		maxX, maxY = maxY, maxX
	}
	return strings.Join([]string{
		strconv.FormatFloat(minX, 'f', -1, 64),
		strconv.FormatFloat(minY, 'f', -1, 64),
		strconv.FormatFloat(maxX, 'f', -1, 64),
		strconv.FormatFloat(maxY, 'f', -1, 64),
	}, ",")
}

// RequestImage fetches one raster tile, coalescing concurrent requests for
// the same address.
func (b *Bridge) RequestImage(ctx context.Context, level, x, y int) (*image.RGBA, error) {
	key := scheme.TileID{Z: level, X: x, Y: y}.Key()
	fut, created := b.tiles.GetOrCreate(key)
	if created {
		img, err := b.fetch(ctx, level, x, y)
		if err != nil {
			fut.Reject(err)
		} else {
			fut.Resolve(img)
		}
	}
	return fut.Wait(ctx)
}

func (b *Bridge) fetch(ctx context.Context, z, x, y int) (*image.RGBA, error) {
	tileURL := b.TileURL(z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building raster request: %w", err)
	}
	for k, vs := range b.desc.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := b.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", tileURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", tileURL, resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding raster tile: %w", err)
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// Scheme returns the delegate's tiling scheme.
func (b *Bridge) Scheme() scheme.TilingScheme { return b.desc.Scheme }

// Rectangle returns the area the delegate serves.
func (b *Bridge) Rectangle() orb.Bound { return b.desc.Scheme.Rectangle }

// Credits returns the delegate's attributions.
func (b *Bridge) Credits() []string { return b.desc.Credits }

// HasAlphaChannel reports whether served tiles carry alpha.
func (b *Bridge) HasAlphaChannel() bool { return b.desc.Transparent }

// TileWidth returns the served tile pixel width.
func (b *Bridge) TileWidth() int { return b.width }

// TileHeight returns the served tile pixel height.
func (b *Bridge) TileHeight() int { return b.height }
