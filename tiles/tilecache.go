package tiles

import (
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/olablt/gio-fieldmap/tiles/worker"
)

// ErrTileUnavailable marks a tile that does not exist at its zoom or whose
// fetch failed.
var ErrTileUnavailable = errors.New("tile unavailable")

// Status is the state of a tile in the cache.
type Status int

const (
	// StatusMissing means the tile is invalid for its zoom or its last fetch
	// failed; callers draw a placeholder.
	StatusMissing Status = iota
	// StatusPending means a fetch is in flight.
	StatusPending
	// StatusReady means the raster is available.
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	default:
		return "missing"
	}
}

// Fetcher resolves a tile to a raster. Fetch may block for as long as the
// network takes; TileCache only ever calls it from a background task.
type Fetcher interface {
	Fetch(ctx context.Context, tile Tile) (image.Image, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, tile Tile) (image.Image, error)

func (f FetcherFunc) Fetch(ctx context.Context, tile Tile) (image.Image, error) {
	return f(ctx, tile)
}

// Submitter runs tasks in the background. *worker.Pool implements it.
type Submitter interface {
	Submit(task worker.Task) bool
}

// TileCache maps tiles to decoded rasters. A miss dispatches exactly one
// background fetch per tile no matter how many callers ask for it; the
// result is recorded by OnFetchResult from whichever goroutine ran it.
type TileCache struct {
	fetcher Fetcher
	pool    Submitter
	store   Store

	mu         sync.Mutex
	pending    map[Tile]struct{}
	failed     map[Tile]time.Time
	retryAfter time.Duration
	now        func() time.Time
	onLoad     func()
	metrics    *Metrics
}

// Option configures a TileCache.
type Option func(*TileCache)

// WithStore replaces the default unbounded ImageCache.
func WithStore(s Store) Option {
	return func(c *TileCache) {
		c.store = s
	}
}

// WithRetryAfter sets how long a failed tile stays unavailable before a
// fresh Get may fetch it again. Zero keeps failures until Retry or Reset.
func WithRetryAfter(d time.Duration) Option {
	return func(c *TileCache) {
		c.retryAfter = d
	}
}

// WithMetrics records cache activity.
func WithMetrics(m *Metrics) Option {
	return func(c *TileCache) {
		c.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *TileCache) {
		c.now = now
	}
}

func NewTileCache(fetcher Fetcher, pool Submitter, opts ...Option) *TileCache {
	c := &TileCache{
		fetcher: fetcher,
		pool:    pool,
		store:   NewImageCache(),
		pending: make(map[Tile]struct{}),
		failed:  make(map[Tile]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnLoadCallback registers fn to run after a raster is stored. It runs on
// the fetching goroutine and must not block.
func (c *TileCache) SetOnLoadCallback(fn func()) {
	c.mu.Lock()
	c.onLoad = fn
	c.mu.Unlock()
}

// Get returns the cached raster for tile, or starts fetching it. It never
// blocks on the network.
func (c *TileCache) Get(tile Tile) (image.Image, Status) {
	if !tile.Valid() {
		return nil, StatusMissing
	}
	tile = tile.Wrap()

	c.mu.Lock()
	if img, ok := c.store.Get(tile); ok {
		c.mu.Unlock()
		c.metrics.hit()
		return img, StatusReady
	}
	if _, ok := c.pending[tile]; ok {
		c.mu.Unlock()
		return nil, StatusPending
	}
	if at, ok := c.failed[tile]; ok {
		if c.retryAfter <= 0 || c.now().Sub(at) < c.retryAfter {
			c.mu.Unlock()
			return nil, StatusMissing
		}
		delete(c.failed, tile)
	}
	c.pending[tile] = struct{}{}
	c.metrics.setPending(len(c.pending))
	c.mu.Unlock()

	c.metrics.miss()
	if !c.dispatch(tile) {
		c.mu.Lock()
		delete(c.pending, tile)
		c.metrics.setPending(len(c.pending))
		c.mu.Unlock()
		return nil, StatusMissing
	}
	return nil, StatusPending
}

func (c *TileCache) dispatch(tile Tile) bool {
	return c.pool.Submit(worker.Task{
		Ctx:  context.Background(),
		Name: tile.String(),
		Work: func(ctx context.Context) error {
			c.metrics.fetch()
			img, err := c.fetcher.Fetch(ctx, tile)
			c.OnFetchResult(tile, img, err)
			return err
		},
	})
}

// OnFetchResult records the outcome of a fetch. A failure leaves a
// tombstone so the tile is not refetched on every frame. Applying a result
// for a tile that is no longer visible is harmless.
func (c *TileCache) OnFetchResult(tile Tile, img image.Image, err error) {
	tile = tile.Wrap()
	if err == nil && img == nil {
		err = ErrTileUnavailable
	}

	c.mu.Lock()
	delete(c.pending, tile)
	c.metrics.setPending(len(c.pending))
	if err != nil {
		c.failed[tile] = c.now()
		c.mu.Unlock()
		c.metrics.failure()
		log.Debugf("tile %s unavailable: %v", tile, err)
		return
	}
	delete(c.failed, tile)
	c.store.Set(tile, img)
	onLoad := c.onLoad
	c.mu.Unlock()

	if onLoad != nil {
		onLoad()
	}
}

// Retry clears a failure tombstone so the next Get fetches the tile again.
func (c *TileCache) Retry(tile Tile) {
	c.mu.Lock()
	delete(c.failed, tile.Wrap())
	c.mu.Unlock()
}

// Reset discards every stored raster and tombstone. Fetches in flight are
// kept and still land in the fresh cache.
func (c *TileCache) Reset() {
	c.mu.Lock()
	c.store.Clear()
	c.failed = make(map[Tile]time.Time)
	c.mu.Unlock()
	log.Info("tile cache reset")
}

// Stats is a snapshot of cache occupancy.
type Stats struct {
	Stored  int
	Pending int
	Failed  int
}

func (c *TileCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Stored: c.store.Len(), Pending: len(c.pending), Failed: len(c.failed)}
}
