// Package api defines the Huma API routes and handlers for the tile
// server's JSON surface.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	vtbridge "github.com/geoplat/vtbridge"
)

// Handler holds the REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type Handler struct {
	bridge *vtbridge.Bridge
}

func NewHandler(bridge *vtbridge.Bridge) *Handler {
	return &Handler{bridge: bridge}
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type InfoBody struct {
	Name        string `json:"name" doc:"Service name" example:"vtbridge"`
	Version     string `json:"version" doc:"Service version"`
	Description string `json:"description" doc:"What this service does"`
}

type SourceBody struct {
	Ready        bool      `json:"ready" doc:"Whether the bridge has activated"`
	Projection   string    `json:"projection" doc:"Source projection code" example:"EPSG:3857"`
	Rectangle    []float64 `json:"rectangle" doc:"Served area as [minX, minY, maxX, maxY]"`
	TileWidth    int       `json:"tileWidth" doc:"Tile pixel width"`
	TileHeight   int       `json:"tileHeight" doc:"Tile pixel height"`
	MinimumLevel int       `json:"minimumLevel" doc:"Level floor below which placeholders are served"`
	MaximumLevel int       `json:"maximumLevel" doc:"Advertised level cap, 0 = unbounded"`
	Alpha        bool      `json:"alpha" doc:"Whether served tiles carry an alpha channel"`
	Credits      []string  `json:"credits" doc:"Imagery attributions"`
}

// RegisterHealth registers health check routes.
func (h *Handler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterInfo registers the service info route.
func (h *Handler) RegisterInfo(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("info"))
}

// RegisterSource registers bridge/source inspection routes.
func (h *Handler) RegisterSource(api huma.API) {
	huma.Get(api, "/api/v1/source", h.GetSource, huma.OperationTags("source"))
}

func (h *Handler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *Handler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:        "vtbridge",
		Version:     "1.0.0",
		Description: "Raster tile service rendered from a vector tile source.",
	}}, nil
}

func (h *Handler) GetSource(ctx context.Context, input *struct{}) (*struct{ Body SourceBody }, error) {
	sch := h.bridge.TilingScheme()
	rect := h.bridge.Rectangle()
	credits := make([]string, 0)
	for _, c := range h.bridge.TileCredits(0, 0, 0) {
		credits = append(credits, string(c))
	}
	return &struct{ Body SourceBody }{Body: SourceBody{
		Ready:        h.bridge.Ready(),
		Projection:   string(sch.Projection),
		Rectangle:    []float64{rect.Min[0], rect.Min[1], rect.Max[0], rect.Max[1]},
		TileWidth:    h.bridge.TileWidth(),
		TileHeight:   h.bridge.TileHeight(),
		MinimumLevel: h.bridge.MinimumLevel(),
		MaximumLevel: h.bridge.MaximumLevel(),
		Alpha:        h.bridge.HasAlphaChannel(),
		Credits:      credits,
	}}, nil
}
