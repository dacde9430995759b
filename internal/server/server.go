// Package server exposes a bridge over HTTP: a raster tile endpoint plus
// a small Huma API for health and source inspection.
package server

import (
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.uber.org/zap"

	vtbridge "github.com/geoplat/vtbridge"
	"github.com/geoplat/vtbridge/internal/api"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port string
}

// Server is the tile HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	humaAPI huma.API
	bridge  *vtbridge.Bridge
	log     *zap.SugaredLogger
}

// New creates a tile server around a bridge.
func New(cfg Config, bridge *vtbridge.Bridge, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()

	// Huma API with the humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("vtbridge API", "1.0.0")
	humaConfig.Info.Description = "Raster tile service rendered from a vector tile source."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		bridge:  bridge,
		log:     log,
	}

	huma.AutoRegister(humaAPI, api.NewHandler(bridge))
	s.mux.HandleFunc("/tiles/", s.handleTile)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// handleTile serves GET /tiles/{z}/{x}/{y}.png rendered through the bridge.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, x, y, ok := parseTilePath(strings.TrimPrefix(r.URL.Path, "/tiles/"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	img, err := s.bridge.RequestImage(r.Context(), z, x, y)
	if err != nil {
		s.log.Warnw("tile request failed", "z", z, "x", x, "y", y, "err", err)
		http.Error(w, "tile unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := png.Encode(w, img); err != nil {
		s.log.Warnw("tile encode failed", "z", z, "x", x, "y", y, "err", err)
	}
}

// parseTilePath parses "z/x/y.png" (the extension is optional).
func parseTilePath(path string) (z, x, y int, ok bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	last := strings.TrimSuffix(parts[2], ".png")
	vals := [3]int{}
	for i, p := range [3]string{parts[0], parts[1], last} {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], true
}
