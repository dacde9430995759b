package vtbridge

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/geoplat/vtbridge/wms"
)

// SourceState is the vector source's lifecycle state.
type SourceState int

const (
	SourceLoading SourceState = iota
	SourceReady
	SourceError
)

// Credit attributes imagery to its provider.
type Credit string

// Source is the vector tile source collaborator the bridge reads from.
// The bridge only activates once State reports SourceReady; configuration
// beyond this interface is probed once at construction through the
// optional interfaces below.
type Source interface {
	// State must report SourceReady before the bridge activates.
	State() SourceState
	// TileURL returns the request URL for a source-convention tile
	// address, or "" when no URL can be derived.
	TileURL(z, x, y int) string
	// Projection returns the source's projection code, e.g. "EPSG:3857".
	Projection() string
	// Attributions returns the credits to display for served tiles.
	Attributions() []Credit
}

// GriddedSource optionally reports the source's level-zero tile counts.
// Sources without it take the projection's conventional defaults.
type GriddedSource interface {
	RootTileCount() (x, y int)
}

// ProxiedSource optionally routes tile requests through a proxy.
type ProxiedSource interface {
	Proxy() Proxy
}

// AuthSource optionally adds headers to every tile request.
type AuthSource interface {
	AuthHeaders() http.Header
}

// RasterHintSource marks a source that should be served through a
// raster-service delegate instead of the vector pipeline. The returned
// format ("image/png", "image/jpeg", ...) selects the delegate output;
// "" keeps the vector path.
type RasterHintSource interface {
	RasterFormat() string
}

// CompanionSource optionally supplies an authored raster-service
// description for delegation, taking precedence over URL derivation.
type CompanionSource interface {
	RasterCompanion() *wms.Description
}

// Proxy rewrites tile request URLs. The two concrete shapes mirror the
// source configuration surface: a rewrite function or a URL template.
type Proxy interface {
	Rewrite(u string) string
}

// ProxyFunc adapts a plain function to Proxy.
type ProxyFunc func(string) string

func (f ProxyFunc) Rewrite(u string) string { return f(u) }

// ProxyTemplate substitutes the escaped target URL into a {url}
// placeholder, e.g. "https://proxy.example/fetch?url={url}".
type ProxyTemplate string

func (t ProxyTemplate) Rewrite(u string) string {
	return strings.ReplaceAll(string(t), "{url}", url.QueryEscape(u))
}

// URLSource is a template-based Source: {z}, {x}, and {y} placeholders in
// Template are substituted with the source-convention tile address.
type URLSource struct {
	Template string
	// Code is the projection code; empty means web mercator.
	Code         string
	RootX, RootY int
	Credits      []Credit
	TileProxy    Proxy
	Headers      http.Header
	// Format, when set, switches the bridge to raster delegation.
	Format    string
	Companion *wms.Description
	// Loading holds the source in SourceLoading for staged startup.
	Loading bool
}

func (s *URLSource) State() SourceState {
	if s.Loading {
		return SourceLoading
	}
	return SourceReady
}

func (s *URLSource) TileURL(z, x, y int) string {
	if s.Template == "" {
		return ""
	}
	u := strings.ReplaceAll(s.Template, "{z}", strconv.Itoa(z))
	u = strings.ReplaceAll(u, "{x}", strconv.Itoa(x))
	u = strings.ReplaceAll(u, "{y}", strconv.Itoa(y))
	return u
}

func (s *URLSource) Projection() string {
	if s.Code == "" {
		return "EPSG:3857"
	}
	return s.Code
}

func (s *URLSource) Attributions() []Credit          { return s.Credits }
func (s *URLSource) RootTileCount() (int, int)       { return s.RootX, s.RootY }
func (s *URLSource) Proxy() Proxy                    { return s.TileProxy }
func (s *URLSource) AuthHeaders() http.Header        { return s.Headers }
func (s *URLSource) RasterFormat() string            { return s.Format }
func (s *URLSource) RasterCompanion() *wms.Description { return s.Companion }
