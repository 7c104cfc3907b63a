package tiles

import (
	"image"
	"sync"
)

// ImageCache is an unbounded Store. Entries live for the whole session.
type ImageCache struct {
	cache map[Tile]image.Image
	mu    sync.RWMutex
}

func NewImageCache() *ImageCache {
	return &ImageCache{
		cache: make(map[Tile]image.Image),
	}
}

func (c *ImageCache) Get(tile Tile) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.cache[tile]
	return img, ok
}

func (c *ImageCache) Set(tile Tile, img image.Image) {
	c.mu.Lock()
	c.cache[tile] = img
	c.mu.Unlock()
}

func (c *ImageCache) Delete(tile Tile) {
	c.mu.Lock()
	delete(c.cache, tile)
	c.mu.Unlock()
}

func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.cache = make(map[Tile]image.Image)
	c.mu.Unlock()
}
