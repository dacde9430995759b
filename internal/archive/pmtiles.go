package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/protomaps/go-pmtiles/pmtiles"
	"go.uber.org/zap"

	vtbridge "github.com/geoplat/vtbridge"
)

// RenderPMTiles renders every tile covering bound between minZoom and
// maxZoom through the bridge and writes the PNG encodings to a single
// PMTiles v3 archive at path.
func RenderPMTiles(ctx context.Context, bridge *vtbridge.Bridge, path string, bound orb.Bound, minZoom, maxZoom int, log *zap.SugaredLogger) (int, error) {
	tiles := make(map[maptile.Tile][]byte)
	err := renderCovering(ctx, bridge, bound, minZoom, maxZoom, log, func(t maptile.Tile, data []byte) error {
		tiles[t] = data
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := WritePMTiles(path, tiles, minZoom, maxZoom); err != nil {
		return 0, err
	}
	return len(tiles), nil
}

// WritePMTiles writes PNG-encoded tiles to a PMTiles v3 file.
// PMTiles v3 format: https://github.com/protomaps/PMTiles/blob/main/spec/v3/spec.md
func WritePMTiles(path string, tiles map[maptile.Tile][]byte, minZoom, maxZoom int) error {
	if len(tiles) == 0 {
		return fmt.Errorf("no tiles to write")
	}

	// Convert tiles to PMTiles entries, sorted by tile ID
	type tileEntry struct {
		id   uint64
		data []byte
	}
	var tileEntries []tileEntry
	for t, data := range tiles {
		id := pmtiles.ZxyToID(uint8(t.Z), t.X, t.Y)
		tileEntries = append(tileEntries, tileEntry{id: id, data: data})
	}

	// Sort by tile ID for clustered output
	sort.Slice(tileEntries, func(i, j int) bool {
		return tileEntries[i].id < tileEntries[j].id
	})

	var entries []pmtiles.EntryV3
	var tileData bytes.Buffer
	currentOffset := uint64(0)
	for _, te := range tileEntries {
		entries = append(entries, pmtiles.EntryV3{
			TileID:    te.id,
			Offset:    currentOffset,
			Length:    uint32(len(te.data)),
			RunLength: 1,
		})
		tileData.Write(te.data)
		currentOffset += uint64(len(te.data))
	}

	metadata := map[string]any{
		"name":    "vtbridge archive",
		"format":  "png",
		"minzoom": minZoom,
		"maxzoom": maxZoom,
	}
	metadataBytes, err := pmtiles.SerializeMetadata(metadata, pmtiles.Gzip)
	if err != nil {
		return fmt.Errorf("serializing metadata: %w", err)
	}

	rootDirBytes := pmtiles.SerializeEntries(entries, pmtiles.Gzip)

	headerSize := uint64(pmtiles.HeaderV3LenBytes)
	rootDirOffset := headerSize
	rootDirLen := uint64(len(rootDirBytes))
	metadataOffset := rootDirOffset + rootDirLen
	metadataLen := uint64(len(metadataBytes))
	tileDataOffset := metadataOffset + metadataLen
	tileDataLen := uint64(tileData.Len())

	// PNG payloads are already compressed, so tile data stays raw
	header := pmtiles.HeaderV3{
		SpecVersion:         3,
		RootOffset:          rootDirOffset,
		RootLength:          rootDirLen,
		MetadataOffset:      metadataOffset,
		MetadataLength:      metadataLen,
		TileDataOffset:      tileDataOffset,
		TileDataLength:      tileDataLen,
		AddressedTilesCount: uint64(len(entries)),
		TileEntriesCount:    uint64(len(entries)),
		TileContentsCount:   uint64(len(entries)),
		Clustered:           true,
		InternalCompression: pmtiles.Gzip,
		TileCompression:     pmtiles.NoCompression,
		TileType:            pmtiles.Png,
		MinZoom:             uint8(minZoom),
		MaxZoom:             uint8(maxZoom),
	}
	headerBytes := pmtiles.SerializeHeader(header)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, chunk := range [][]byte{headerBytes, rootDirBytes, metadataBytes, tileData.Bytes()} {
		if _, err := f.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}
