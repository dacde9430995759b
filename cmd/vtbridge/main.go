package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	vtbridge "github.com/geoplat/vtbridge"
	"github.com/geoplat/vtbridge/internal/archive"
	"github.com/geoplat/vtbridge/internal/server"
	"github.com/geoplat/vtbridge/raster"
)

// Options defines all CLI flags and env vars for the tile bridge.
// Flags: --host, --port, --source-url, --projection, --style-file, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_SOURCE_URL, ...
type Options struct {
	Host       string `doc:"Host to bind to" default:"0.0.0.0"`
	Port       int    `doc:"Port to listen on" short:"p" default:"8087"`
	SourceURL  string `doc:"Vector tile URL template with {z} {x} {y} placeholders"`
	Projection string `doc:"Source projection code" default:"EPSG:3857"`
	StyleFile  string `doc:"YAML style rules file; empty uses built-in defaults"`
	CacheSize  int    `doc:"Tile cache high-water mark" default:"128"`
	MinLevel   int    `doc:"Level floor below which blank tiles are served" default:"0"`
	MaxLevel   int    `doc:"Advertised level cap, 0 = unbounded" default:"0"`
	TileSize   int    `doc:"Rendered tile size in pixels" default:"256"`
	InvertY    bool   `doc:"Use the legacy bottom-up tile Y axis"`
	DataDir    string `doc:"Directory for the archive database" default:".data"`
}

func newBridge(opts *Options, logger *zap.SugaredLogger) (*vtbridge.Bridge, error) {
	if opts.SourceURL == "" {
		return nil, fmt.Errorf("--source-url is required")
	}

	var style raster.StyleFunc
	if opts.StyleFile != "" {
		rules, err := raster.LoadRules(opts.StyleFile)
		if err != nil {
			return nil, fmt.Errorf("loading style rules: %w", err)
		}
		style = raster.RulesFunc(rules)
	}

	src := &vtbridge.URLSource{
		Template: opts.SourceURL,
		Code:     opts.Projection,
	}
	return vtbridge.New(src, vtbridge.Options{
		Style:        style,
		CacheSize:    opts.CacheSize,
		MinimumLevel: opts.MinLevel,
		MaximumLevel: opts.MaxLevel,
		TileWidth:    opts.TileSize,
		TileHeight:   opts.TileSize,
		InvertY:      opts.InvertY,
		Logger:       logger,
	}), nil
}

func newLogger() *zap.SugaredLogger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	return logger.Sugar()
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger()
		bridge, err := newBridge(opts, logger)
		if err != nil {
			logger.Fatalw("bridge setup failed", "err", err)
		}
		srv := server.New(server.Config{
			Host: opts.Host,
			Port: fmt.Sprintf("%d", opts.Port),
		}, bridge, logger)

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("vtbridge tile server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Tiles:   %s/tiles/{z}/{x}/{y}.png\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				logger.Fatalw("server error", "err", err)
			}
		})
	})

	cli.Root().Use = "vtbridge"
	cli.Root().Short = "Raster tile server rendered from a vector tile source"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			// the OpenAPI document does not depend on the source
			bridge := vtbridge.New(&vtbridge.URLSource{}, vtbridge.Options{})
			srv := server.New(server.Config{Host: opts.Host, Port: fmt.Sprintf("%d", opts.Port)}, bridge, nil)
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// render subcommand: render one tile to a PNG file
	renderCmd := &cobra.Command{
		Use:   "render z x y",
		Short: "Render a single tile to a PNG file",
		Args:  cobra.ExactArgs(3),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger()
			bridge, err := newBridge(opts, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			coords := [3]int{}
			for i, a := range args {
				v, err := strconv.Atoi(a)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Invalid tile coordinate %q\n", a)
					os.Exit(1)
				}
				coords[i] = v
			}

			img, err := bridge.RequestImage(context.Background(), coords[0], coords[1], coords[2])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error rendering tile: %v\n", err)
				os.Exit(1)
			}

			out, _ := cmd.Flags().GetString("output")
			f, err := os.Create(out)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", out, err)
				os.Exit(1)
			}
			defer f.Close()
			if err := png.Encode(f, img); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding PNG: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Tile %d/%d/%d written to %s\n", coords[0], coords[1], coords[2], out)
		}),
	}
	renderCmd.Flags().StringP("output", "o", "tile.png", "Output PNG path")
	cli.Root().AddCommand(renderCmd)

	// archive subcommand: render a bbox pyramid into the archive database
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Render every tile in a bounding box into the archive database",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger()
			bridge, err := newBridge(opts, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			bboxStr, _ := cmd.Flags().GetString("bbox")
			bound, err := parseBBox(bboxStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			minZoom, _ := cmd.Flags().GetInt("min-zoom")
			maxZoom, _ := cmd.Flags().GetInt("max-zoom")

			if pmtilesPath, _ := cmd.Flags().GetString("pmtiles"); pmtilesPath != "" {
				n, err := archive.RenderPMTiles(context.Background(), bridge, pmtilesPath, bound, minZoom, maxZoom, logger)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error archiving: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("Archived %d tiles to %s\n", n, pmtilesPath)
				return
			}

			store, err := archive.Open(opts.DataDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
				os.Exit(1)
			}
			defer store.Close()

			n, err := archive.Render(context.Background(), bridge, store, bound, minZoom, maxZoom, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error archiving: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Archived %d tiles to %s\n", n, opts.DataDir)
		}),
	}
	archiveCmd.Flags().String("bbox", "", "Bounding box as minLon,minLat,maxLon,maxLat")
	archiveCmd.Flags().String("pmtiles", "", "Write a PMTiles file at this path instead of the database")
	archiveCmd.Flags().Int("min-zoom", 0, "First zoom level to archive")
	archiveCmd.Flags().Int("max-zoom", 5, "Last zoom level to archive")
	cli.Root().AddCommand(archiveCmd)

	cli.Run()
}

func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("--bbox must be minLon,minLat,maxLon,maxLat")
	}
	vals := [4]float64{}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid bbox value %q", p)
		}
		vals[i] = v
	}
	return orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}, nil
}
