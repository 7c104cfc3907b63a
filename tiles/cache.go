package tiles

import "image"

// Store holds decoded tile rasters keyed by wrapped tile. A store decides its
// own retention policy; TileCache only reads, writes and clears it.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(tile Tile) (image.Image, bool)
	Set(tile Tile, img image.Image)
	Delete(tile Tile)
	Len() int
	Clear()
}
