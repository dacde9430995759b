package vtbridge

import (
	"image"
	"net/http"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/geoplat/vtbridge/raster"
	"github.com/geoplat/vtbridge/tilecache"
	"github.com/geoplat/vtbridge/vectortile"
)

// Options configures a Bridge. All fields are optional.
type Options struct {
	// Rectangle restricts the served area; nil serves the source scheme's
	// full rectangle.
	Rectangle *orb.Bound

	// Style maps features to paint styles; nil uses raster.DefaultStyle.
	Style raster.StyleFunc

	// CacheSize is the shared high-water mark for the feature and surface
	// caches; zero uses tilecache.DefaultHighWaterMark.
	CacheSize int

	// EvictionFactor scales the occupancy at which batch eviction starts;
	// zero uses tilecache.DefaultEvictionFactor.
	EvictionFactor int

	// FeatureCache, when set, replaces the bridge's own decoded-feature
	// cache. Sharing one instance across bridges shares decoded tiles
	// across differently-styled overlays of the same source.
	FeatureCache *tilecache.Cache[[]*vectortile.Feature]

	// MinimumLevel floors requests: below it the placeholder surface is
	// served and no fetch happens.
	MinimumLevel int

	// MaximumLevel caps the advertised detail; zero means unbounded.
	MaximumLevel int

	// InvertY applies the legacy bottom-up tile axis (y' = -y-1).
	InvertY bool

	TileWidth  int
	TileHeight int

	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// TileDiscardPolicy decides whether a fetched surface should be discarded
// instead of rendered. The bridge never installs one.
type TileDiscardPolicy interface {
	ShouldDiscard(img *image.RGBA) bool
}
