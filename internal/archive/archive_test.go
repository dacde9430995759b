package archive

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, 3, 5, 2, []byte("tile-a")))
	require.NoError(t, store.Put(ctx, 3, 5, 3, []byte("tile-b")))

	data, err := store.Get(ctx, 3, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile-a"), data)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// replacing a tile keeps the count stable
	require.NoError(t, store.Put(ctx, 3, 5, 2, []byte("tile-a2")))
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	data, err = store.Get(ctx, 3, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile-a2"), data)
}

func TestStoreGetMissing(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), 9, 9, 9)
	assert.Error(t, err)
}

func TestTilesInBound(t *testing.T) {
	world := orb.Bound{Min: orb.Point{-179.9, -85}, Max: orb.Point{179.9, 85}}

	tiles := tilesInBound(world, 0)
	assert.Len(t, tiles, 1)

	tiles = tilesInBound(world, 1)
	assert.Len(t, tiles, 4)

	// a small box stays small
	small := orb.Bound{Min: orb.Point{13.3, 52.4}, Max: orb.Point{13.5, 52.6}}
	tiles = tilesInBound(small, 10)
	assert.NotEmpty(t, tiles)
	assert.Less(t, len(tiles), 16)
	for _, tile := range tiles {
		assert.Equal(t, maptile.Zoom(10), tile.Z)
	}
}
