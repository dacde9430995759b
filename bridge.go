// Package vtbridge bridges a tile-based raster imagery consumer with a
// vector tile source: it reconciles the two tiling conventions, fetches
// and decodes vector tiles, and rasterizes them with caller-supplied
// styling. A source can opt out of the vector pipeline entirely by naming
// a raster format, in which case all requests are forwarded to a derived
// WMS delegate.
package vtbridge

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/geoplat/vtbridge/raster"
	"github.com/geoplat/vtbridge/scheme"
	"github.com/geoplat/vtbridge/tilecache"
	"github.com/geoplat/vtbridge/vectortile"
	"github.com/geoplat/vtbridge/wms"
)

// DefaultTileSize is the tile pixel size when none is configured.
const DefaultTileSize = 256

// Bridge implements the imagery-provider contract over a vector tile
// source. One instance owns its caches and readiness state; only the
// decoded-feature cache may be shared across instances, via
// Options.FeatureCache.
type Bridge struct {
	src   Source
	httpc *http.Client
	log   *zap.SugaredLogger

	// resolved once at construction
	proxy     Proxy
	headers   http.Header
	style     raster.StyleFunc
	minLevel  int
	maxLevel  int
	tw, th    int
	invertY   bool
	rectOpt   *orb.Bound
	cacheSize int

	features *tilecache.Cache[[]*vectortile.Feature]
	surfaces *tilecache.Cache[*image.RGBA]
	errs     *ErrorEvent

	mu        sync.Mutex
	ready     bool
	rec       scheme.Reconciler
	rectangle orb.Bound
	delegate  *wms.Bridge

	placeholderOnce sync.Once
	placeholder     *image.RGBA
}

// New wires a bridge around a vector tile source. The bridge exists
// immediately; it becomes ready on the first call that observes the source
// in the ready state with a supported projection. Optional source
// capabilities (proxy, auth headers, raster delegation) are probed here,
// once, never per tile.
func New(src Source, opts Options) *Bridge {
	b := &Bridge{
		src:       src,
		httpc:     opts.HTTPClient,
		style:     opts.Style,
		minLevel:  opts.MinimumLevel,
		maxLevel:  opts.MaximumLevel,
		tw:        opts.TileWidth,
		th:        opts.TileHeight,
		invertY:   opts.InvertY,
		rectOpt:   opts.Rectangle,
		cacheSize: opts.CacheSize,
		errs:      newErrorEvent(),
		log:       opts.Logger,
	}
	if b.httpc == nil {
		b.httpc = http.DefaultClient
	}
	if b.log == nil {
		b.log = zap.NewNop().Sugar()
	}
	if b.tw <= 0 {
		b.tw = DefaultTileSize
	}
	if b.th <= 0 {
		b.th = DefaultTileSize
	}
	if p, ok := src.(ProxiedSource); ok {
		b.proxy = p.Proxy()
	}
	if a, ok := src.(AuthSource); ok {
		b.headers = a.AuthHeaders()
	}
	b.features = opts.FeatureCache
	if b.features == nil {
		b.features = tilecache.NewWithFactor[[]*vectortile.Feature](opts.CacheSize, opts.EvictionFactor)
	}
	b.surfaces = tilecache.NewWithFactor[*image.RGBA](opts.CacheSize, opts.EvictionFactor)
	return b
}

// checkReady performs the one-time false-to-true transition when the
// source reports ready. An unsupported projection leaves the bridge in its
// placeholder state permanently; that is a fail-safe, not an error.
func (b *Bridge) checkReady() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready || b.src.State() != SourceReady {
		return
	}

	rootX, rootY := 0, 0
	if g, ok := b.src.(GriddedSource); ok {
		rootX, rootY = g.RootTileCount()
	}
	sch, ok := scheme.ForProjection(b.src.Projection(), rootX, rootY)
	if !ok {
		b.log.Debugw("unsupported source projection, bridge stays unready",
			"projection", b.src.Projection())
		return
	}

	b.rec = scheme.NewReconciler(sch, b.invertY)
	b.rectangle = sch.Rectangle
	if b.rectOpt != nil {
		b.rectangle = *b.rectOpt
	}
	b.ready = true
	b.activateDelegate(sch)
}

// activateDelegate is the one-time, one-directional delegation switch,
// decided at readiness and never revisited. Failure to derive a delegate
// silently keeps the vector path. Callers hold b.mu.
func (b *Bridge) activateDelegate(sch scheme.TilingScheme) {
	hint, ok := b.src.(RasterHintSource)
	if !ok {
		return
	}
	format := hint.RasterFormat()
	if format == "" {
		return
	}

	var desc wms.Description
	if c, ok := b.src.(CompanionSource); ok && c.RasterCompanion() != nil {
		desc = *c.RasterCompanion()
		if desc.Scheme.RootTilesX == 0 {
			desc.Scheme = sch
		}
		desc.Format = format
		desc.Transparent = !strings.EqualFold(format, wms.OpaqueFormat)
	} else {
		st := b.rec.SourceTile(0, 0, 0)
		sample := b.src.TileURL(st.Z, st.X, st.Y)
		if sample == "" {
			b.log.Debugw("raster delegation unavailable, no sample tile url")
			return
		}
		d, err := wms.Derive(sample, sch, format, creditStrings(b.src.Attributions()))
		if err != nil {
			b.log.Debugw("raster delegation unavailable", "err", err)
			return
		}
		desc = d
	}
	desc.Headers = b.headers
	b.delegate = wms.NewBridge(desc, b.httpc, b.cacheSize, b.tw, b.th)
	b.log.Infow("raster delegation active", "format", format, "endpoint", desc.BaseURL)
}

// RequestImage produces the raster surface for a consumer tile address.
// Concurrent requests for the same tile share one in-flight result; at
// most one fetch runs per source tile. Before readiness, below
// MinimumLevel, and when the source yields no tile URL, the transparent
// placeholder surface is returned.
func (b *Bridge) RequestImage(ctx context.Context, level, x, y int) (*image.RGBA, error) {
	b.checkReady()

	b.mu.Lock()
	ready, del, rec := b.ready, b.delegate, b.rec
	b.mu.Unlock()

	if del != nil {
		return del.RequestImage(ctx, level, x, y)
	}
	if !ready || level < b.minLevel {
		return b.placeholderSurface(), nil
	}

	st := rec.SourceTile(level, x, y)
	key := st.Key()
	fut, created := b.surfaces.GetOrCreate(key)
	if created {
		surf, err := b.renderTile(ctx, st)
		if err != nil {
			b.errs.notify(err)
			b.log.Warnw("tile render failed", "tile", st.String(), "err", err)
			fut.Reject(err)
		} else {
			fut.Resolve(surf)
		}
	}
	return fut.Wait(ctx)
}

// renderTile runs fetch, decode, and rasterize for one source tile.
// Rasterization is synchronous CPU work; the only suspension point in the
// pipeline is the network fetch.
func (b *Bridge) renderTile(ctx context.Context, st scheme.TileID) (*image.RGBA, error) {
	tileURL := b.src.TileURL(st.Z, st.X, st.Y)
	if tileURL == "" {
		return b.placeholderSurface(), nil
	}
	features, err := b.fetchFeatures(ctx, st, tileURL)
	if err != nil {
		return nil, err
	}
	res := b.rec.Scheme().Resolution(st.Z, b.tw)
	return raster.Rasterize(features, b.style, res, b.tw, b.th), nil
}

// fetchFeatures returns decoded features for a source tile, coalescing
// concurrent fetches through the feature cache. A rejected future stays
// cached until evicted; the bridge never retries on its own.
func (b *Bridge) fetchFeatures(ctx context.Context, st scheme.TileID, tileURL string) ([]*vectortile.Feature, error) {
	fut, created := b.features.GetOrCreate(st.Key())
	if created {
		feats, err := b.fetchAndDecode(ctx, tileURL)
		if err != nil {
			fut.Reject(err)
		} else {
			fut.Resolve(feats)
		}
	}
	return fut.Wait(ctx)
}

func (b *Bridge) fetchAndDecode(ctx context.Context, tileURL string) ([]*vectortile.Feature, error) {
	if b.proxy != nil {
		tileURL = b.proxy.Rewrite(tileURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building tile request: %w", err)
	}
	for k, vs := range b.headers {
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
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", tileURL, err)
	}
	return vectortile.Decode(raw)
}

func (b *Bridge) placeholderSurface() *image.RGBA {
	b.placeholderOnce.Do(func() {
		b.placeholder = image.NewRGBA(image.Rect(0, 0, b.tw, b.th))
	})
	return b.placeholder
}

// Ready reports whether the bridge has completed its one-time activation.
func (b *Bridge) Ready() bool {
	b.checkReady()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Rectangle returns the area the bridge serves. Before readiness it
// answers with the placeholder scheme's rectangle.
func (b *Bridge) Rectangle() orb.Bound {
	b.checkReady()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.delegate != nil {
		return b.delegate.Rectangle()
	}
	if !b.ready {
		return scheme.Placeholder().Rectangle
	}
	return b.rectangle
}

// TilingScheme returns the source tiling scheme, the delegate's once
// delegation is active, or the placeholder scheme before readiness.
func (b *Bridge) TilingScheme() scheme.TilingScheme {
	b.checkReady()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.delegate != nil {
		return b.delegate.Scheme()
	}
	if !b.ready {
		return scheme.Placeholder()
	}
	return b.rec.Scheme()
}

// TileWidth returns the served tile pixel width.
func (b *Bridge) TileWidth() int { return b.tw }

// TileHeight returns the served tile pixel height.
func (b *Bridge) TileHeight() int { return b.th }

// MinimumLevel returns the level floor below which placeholders are served.
func (b *Bridge) MinimumLevel() int { return b.minLevel }

// MaximumLevel returns the advertised level cap; zero means unbounded.
func (b *Bridge) MaximumLevel() int { return b.maxLevel }

// HasAlphaChannel reports whether served tiles carry alpha. The vector
// path always does; a delegate may not.
func (b *Bridge) HasAlphaChannel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.delegate != nil {
		return b.delegate.HasAlphaChannel()
	}
	return true
}

// TileDiscardPolicy is never installed by the bridge.
func (b *Bridge) TileDiscardPolicy() TileDiscardPolicy { return nil }

// TileCredits returns the attributions for a tile.
func (b *Bridge) TileCredits(level, x, y int) []Credit {
	b.mu.Lock()
	del := b.delegate
	b.mu.Unlock()
	if del != nil {
		credits := make([]Credit, 0, len(del.Credits()))
		for _, c := range del.Credits() {
			credits = append(credits, Credit(c))
		}
		return credits
	}
	return b.src.Attributions()
}

// PickFeatures always declines: the bridge does not support picking.
func (b *Bridge) PickFeatures(ctx context.Context, level, x, y int, lon, lat float64) []*vectortile.Feature {
	return nil
}

// Errors returns the subscribe-only failure notification channel.
func (b *Bridge) Errors() *ErrorEvent { return b.errs }

func creditStrings(cs []Credit) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, string(c))
	}
	return out
}
