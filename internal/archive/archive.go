// Package archive renders tile pyramids offline through a bridge and
// stores the PNG encodings in a DuckDB tile table, so a rendered region
// can be served or inspected without re-fetching the vector source.
package archive

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"go.uber.org/zap"

	vtbridge "github.com/geoplat/vtbridge"
)

// Store is a DuckDB-backed archive of rendered raster tiles.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	db, err := sql.Open("duckdb", filepath.Join(dataDir, "archive.duckdb"))
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tiles (
		z INTEGER, x INTEGER, y INTEGER, data BLOB,
		PRIMARY KEY (z, x, y))`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tiles table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put stores one encoded tile, replacing any previous encoding.
func (s *Store) Put(ctx context.Context, z, x, y int, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tiles (z, x, y, data) VALUES (?, ?, ?, ?)`,
		z, x, y, data)
	if err != nil {
		return fmt.Errorf("storing tile %d/%d/%d: %w", z, x, y, err)
	}
	return nil
}

// Get returns one encoded tile.
func (s *Store) Get(ctx context.Context, z, x, y int) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM tiles WHERE z = ? AND x = ? AND y = ?`,
		z, x, y).Scan(&data)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Count returns the number of archived tiles.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM tiles`).Scan(&n)
	return n, err
}

// Render renders every tile covering bound between minZoom and maxZoom
// through the bridge and archives the PNG encodings in the store. Tiles
// that fail to render are logged and skipped; the run keeps going.
func Render(ctx context.Context, bridge *vtbridge.Bridge, store *Store, bound orb.Bound, minZoom, maxZoom int, log *zap.SugaredLogger) (int, error) {
	total := 0
	err := renderCovering(ctx, bridge, bound, minZoom, maxZoom, log, func(t maptile.Tile, data []byte) error {
		if err := store.Put(ctx, int(t.Z), int(t.X), int(t.Y), data); err != nil {
			return err
		}
		total++
		return nil
	})
	return total, err
}

// renderCovering drives the render loop shared by the archive outputs:
// every tile intersecting bound at each zoom level is rendered, PNG
// encoded, and handed to visit.
func renderCovering(ctx context.Context, bridge *vtbridge.Bridge, bound orb.Bound, minZoom, maxZoom int, log *zap.SugaredLogger, visit func(maptile.Tile, []byte) error) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	for z := minZoom; z <= maxZoom; z++ {
		for _, t := range tilesInBound(bound, maptile.Zoom(z)) {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := bridge.RequestImage(ctx, int(t.Z), int(t.X), int(t.Y))
			if err != nil {
				log.Warnw("skipping tile", "z", t.Z, "x", t.X, "y", t.Y, "err", err)
				continue
			}
			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				return fmt.Errorf("encoding tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
			}
			if err := visit(t, buf.Bytes()); err != nil {
				return err
			}
		}
		log.Infow("zoom level rendered", "zoom", z)
	}
	return nil
}

// tilesInBound returns all tiles at a zoom level that intersect a lon/lat
// bounding box.
func tilesInBound(bound orb.Bound, zoom maptile.Zoom) []maptile.Tile {
	minTile := maptile.At(bound.Min, zoom)
	maxTile := maptile.At(bound.Max, zoom)

	minX, maxX := minTile.X, maxTile.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := minTile.Y, maxTile.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	var tiles []maptile.Tile
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, maptile.New(x, y, zoom))
		}
	}
	return tiles
}
