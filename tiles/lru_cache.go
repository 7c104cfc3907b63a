package tiles

import (
	"image"
	"time"

	"github.com/karlseguin/ccache/v3"
)

// LRUCache is a Store bounded to a maximum number of rasters. The least
// recently used entries are pruned in the background once the bound is hit.
type LRUCache struct {
	cache *ccache.Cache[image.Image]
	ttl   time.Duration
}

// NewLRUCache creates a store holding at most maxSize rasters, each kept for
// at most ttl (a non-positive ttl keeps entries for a day).
func NewLRUCache(maxSize int64, ttl time.Duration) *LRUCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	prune := uint32(max(1, maxSize/16))
	return &LRUCache{
		cache: ccache.New(ccache.Configure[image.Image]().MaxSize(maxSize).ItemsToPrune(prune)),
		ttl:   ttl,
	}
}

func (c *LRUCache) Get(tile Tile) (image.Image, bool) {
	item := c.cache.Get(tile.String())
	if item == nil || item.Expired() {
		return nil, false
	}
	return item.Value(), true
}

func (c *LRUCache) Set(tile Tile, img image.Image) {
	c.cache.Set(tile.String(), img, c.ttl)
}

func (c *LRUCache) Delete(tile Tile) {
	c.cache.Delete(tile.String())
}

func (c *LRUCache) Len() int {
	return c.cache.ItemCount()
}

func (c *LRUCache) Clear() {
	c.cache.Clear()
}

// Stop ends the background pruning goroutine.
func (c *LRUCache) Stop() {
	c.cache.Stop()
}
