package tiles_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/tiles/worker"
)

// manualPool queues tasks until the test runs them.
type manualPool struct {
	tasks  []worker.Task
	closed bool
}

func (p *manualPool) Submit(task worker.Task) bool {
	if p.closed {
		return false
	}
	p.tasks = append(p.tasks, task)
	return true
}

func (p *manualPool) runAll() {
	tasks := p.tasks
	p.tasks = nil
	for _, task := range tasks {
		_ = task.Work(context.Background())
	}
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, tile tiles.Tile) (image.Image, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, 256, 256)), nil
}

func TestTileCache_DeduplicatesFetches(t *testing.T) {
	pool := &manualPool{}
	fetcher := &countingFetcher{}
	cache := tiles.NewTileCache(fetcher, pool)
	tile := tiles.Tile{X: 1, Y: 1, Zoom: 2}

	for i := 0; i < 3; i++ {
		img, status := cache.Get(tile)
		assert.Nil(t, img)
		assert.Equal(t, tiles.StatusPending, status)
	}
	require.Len(t, pool.tasks, 1)

	pool.runAll()
	assert.Equal(t, int32(1), fetcher.calls.Load())

	img, status := cache.Get(tile)
	assert.Equal(t, tiles.StatusReady, status)
	assert.NotNil(t, img)
	assert.Empty(t, pool.tasks)
}

func TestTileCache_DeduplicatesConcurrentCallers(t *testing.T) {
	pool := worker.NewPool(4, 16, time.Second)
	defer pool.Shutdown()

	gate := make(chan struct{})
	var calls atomic.Int32
	fetcher := tiles.FetcherFunc(func(ctx context.Context, tile tiles.Tile) (image.Image, error) {
		calls.Add(1)
		<-gate
		return image.NewRGBA(image.Rect(0, 0, 256, 256)), nil
	})
	cache := tiles.NewTileCache(fetcher, pool)
	tile := tiles.Tile{X: 3, Y: 2, Zoom: 4}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, status := cache.Get(tile)
			assert.Equal(t, tiles.StatusPending, status)
		}()
	}
	wg.Wait()
	close(gate)

	require.Eventually(t, func() bool {
		_, status := cache.Get(tile)
		return status == tiles.StatusReady
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTileCache_InvalidRowsNeverFetch(t *testing.T) {
	pool := &manualPool{}
	fetcher := &countingFetcher{}
	cache := tiles.NewTileCache(fetcher, pool)

	for _, tile := range []tiles.Tile{
		{X: 0, Y: -1, Zoom: 3},
		{X: 0, Y: 8, Zoom: 3},
		{X: 0, Y: 0, Zoom: -2},
	} {
		_, status := cache.Get(tile)
		assert.Equal(t, tiles.StatusMissing, status, tile.String())
	}
	assert.Empty(t, pool.tasks)
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestTileCache_WrapsColumns(t *testing.T) {
	pool := &manualPool{}
	var fetched []tiles.Tile
	fetcher := tiles.FetcherFunc(func(ctx context.Context, tile tiles.Tile) (image.Image, error) {
		fetched = append(fetched, tile)
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	cache := tiles.NewTileCache(fetcher, pool)

	_, status := cache.Get(tiles.Tile{X: -1, Y: 0, Zoom: 2})
	assert.Equal(t, tiles.StatusPending, status)
	_, status = cache.Get(tiles.Tile{X: 3, Y: 0, Zoom: 2})
	assert.Equal(t, tiles.StatusPending, status)
	pool.runAll()

	assert.Equal(t, []tiles.Tile{{X: 3, Y: 0, Zoom: 2}}, fetched)
	_, status = cache.Get(tiles.Tile{X: 7, Y: 0, Zoom: 2})
	assert.Equal(t, tiles.StatusReady, status)
}

func TestTileCache_FailureTombstone(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	pool := &manualPool{}
	fetcher := &countingFetcher{err: errors.New("boom")}
	cache := tiles.NewTileCache(fetcher, pool,
		tiles.WithRetryAfter(30*time.Second),
		tiles.WithClock(func() time.Time { return now }),
	)
	tile := tiles.Tile{X: 2, Y: 2, Zoom: 3}

	_, status := cache.Get(tile)
	require.Equal(t, tiles.StatusPending, status)
	pool.runAll()

	_, status = cache.Get(tile)
	assert.Equal(t, tiles.StatusMissing, status)
	assert.Empty(t, pool.tasks, "tombstone must suppress refetch")
	assert.Equal(t, 1, cache.Stats().Failed)

	now = now.Add(31 * time.Second)
	fetcher.err = nil
	_, status = cache.Get(tile)
	assert.Equal(t, tiles.StatusPending, status)
	pool.runAll()

	_, status = cache.Get(tile)
	assert.Equal(t, tiles.StatusReady, status)
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, 0, cache.Stats().Failed)
}

func TestTileCache_PermanentTombstoneAndRetry(t *testing.T) {
	pool := &manualPool{}
	fetcher := &countingFetcher{err: errors.New("boom")}
	cache := tiles.NewTileCache(fetcher, pool)
	tile := tiles.Tile{X: 0, Y: 0, Zoom: 1}

	cache.Get(tile)
	pool.runAll()
	_, status := cache.Get(tile)
	assert.Equal(t, tiles.StatusMissing, status)

	cache.Retry(tile)
	_, status = cache.Get(tile)
	assert.Equal(t, tiles.StatusPending, status)
	assert.Len(t, pool.tasks, 1)
}

func TestTileCache_NilImageIsFailure(t *testing.T) {
	cache := tiles.NewTileCache(&countingFetcher{}, &manualPool{})
	tile := tiles.Tile{X: 0, Y: 0, Zoom: 0}

	cache.OnFetchResult(tile, nil, nil)
	_, status := cache.Get(tile)
	assert.Equal(t, tiles.StatusMissing, status)
}

func TestTileCache_ShutdownPoolReportsMissing(t *testing.T) {
	pool := &manualPool{closed: true}
	cache := tiles.NewTileCache(&countingFetcher{}, pool)
	tile := tiles.Tile{X: 0, Y: 0, Zoom: 1}

	_, status := cache.Get(tile)
	assert.Equal(t, tiles.StatusMissing, status)
	assert.Equal(t, 0, cache.Stats().Pending)
}

func TestTileCache_Reset(t *testing.T) {
	pool := &manualPool{}
	cache := tiles.NewTileCache(&countingFetcher{}, pool)
	tile := tiles.Tile{X: 1, Y: 0, Zoom: 1}

	cache.Get(tile)
	pool.runAll()
	require.Equal(t, 1, cache.Stats().Stored)

	cache.Reset()
	assert.Equal(t, tiles.Stats{}, cache.Stats())
	_, status := cache.Get(tile)
	assert.Equal(t, tiles.StatusPending, status)
}

func TestTileCache_OnLoadCallback(t *testing.T) {
	pool := &manualPool{}
	cache := tiles.NewTileCache(&countingFetcher{}, pool)
	loaded := 0
	cache.SetOnLoadCallback(func() { loaded++ })

	cache.Get(tiles.Tile{X: 0, Y: 0, Zoom: 1})
	cache.Get(tiles.Tile{X: 1, Y: 0, Zoom: 1})
	pool.runAll()

	assert.Equal(t, 2, loaded)
}

func TestTileCache_BoundedStore(t *testing.T) {
	store := tiles.NewLRUCache(100, time.Hour)
	defer store.Stop()
	pool := &manualPool{}
	cache := tiles.NewTileCache(&countingFetcher{}, pool, tiles.WithStore(store))
	tile := tiles.Tile{X: 5, Y: 5, Zoom: 4}

	cache.Get(tile)
	pool.runAll()

	_, status := cache.Get(tile)
	assert.Equal(t, tiles.StatusReady, status)
	_, ok := store.Get(tile)
	assert.True(t, ok)
}

func TestTileCache_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := tiles.NewMetrics(reg)
	pool := &manualPool{}
	fetcher := &countingFetcher{}
	cache := tiles.NewTileCache(fetcher, pool, tiles.WithMetrics(metrics))

	ok := tiles.Tile{X: 0, Y: 0, Zoom: 1}
	cache.Get(ok)
	cache.Get(ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Pending))
	pool.runAll()
	cache.Get(ok)

	fetcher.err = errors.New("offline")
	cache.Get(tiles.Tile{X: 1, Y: 1, Zoom: 1})
	pool.runAll()

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Hits))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Misses))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Fetches))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Failures))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Pending))
}
