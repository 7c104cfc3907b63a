package tiles

import (
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// Tile identifies one raster cell of the quadtree decomposition at Zoom.
// X is a column, Y is a row counted from the north edge.
type Tile struct {
	X, Y, Zoom int
}

// maxZoom keeps 1<<zoom inside an int on every platform.
const maxZoom = 30

// Count returns the number of tile columns (and rows) at zoom.
func Count(zoom int) int {
	return 1 << zoom
}

// String returns the z/x/y key used by tile servers and stores.
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}

// Valid reports whether the tile exists: the row must lie in [0, 2^zoom).
// Columns are always valid because they wrap around the antimeridian.
func (t Tile) Valid() bool {
	if t.Zoom < 0 || t.Zoom > maxZoom {
		return false
	}
	return t.Y >= 0 && t.Y < Count(t.Zoom)
}

// Wrap returns t with X taken modulo 2^Zoom.
func (t Tile) Wrap() Tile {
	n := Count(t.Zoom)
	t.X %= n
	if t.X < 0 {
		t.X += n
	}
	return t
}

// FlipY returns the TMS row used by MBTiles storage.
func (t Tile) FlipY() int {
	return Count(t.Zoom) - t.Y - 1
}

// Maptile converts a wrapped, valid tile to its orb representation.
func (t Tile) Maptile() maptile.Tile {
	t = t.Wrap()
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Zoom))
}
