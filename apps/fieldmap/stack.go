package main

import (
	"context"
	"errors"
	"image"
	"io"

	humanize "github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/olablt/gio-fieldmap/engine"
	"github.com/olablt/gio-fieldmap/internal/config"
	"github.com/olablt/gio-fieldmap/overlay"
	"github.com/olablt/gio-fieldmap/providers"
	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/tiles/worker"
	"github.com/olablt/gio-fieldmap/viewport"
)

// stack is the tile pipeline shared by every command: fetcher chain, worker
// pool and cache.
type stack struct {
	Cache   *tiles.TileCache
	Pool    *worker.Pool
	closers []io.Closer
	lru     *tiles.LRUCache
}

// newStack builds the tile pipeline from cfg. reg may be nil.
func newStack(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*stack, error) {
	fetcher, closers, err := newFetcher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &stack{
		Pool:    worker.NewPool(cfg.Tiles.Workers, cfg.Tiles.Queue, cfg.Tiles.FetchTimeout),
		closers: closers,
	}

	opts := []tiles.Option{
		tiles.WithRetryAfter(cfg.Tiles.RetryAfter),
		tiles.WithMetrics(tiles.NewMetrics(reg)),
	}
	if cfg.Tiles.CacheMax > 0 {
		s.lru = tiles.NewLRUCache(cfg.Tiles.CacheMax, 0)
		opts = append(opts, tiles.WithStore(s.lru))
	}
	s.Cache = tiles.NewTileCache(fetcher, s.Pool, opts...)
	return s, nil
}

func newFetcher(ctx context.Context, cfg *config.Config) (tiles.Fetcher, []io.Closer, error) {
	debug := providers.NewDebug(cfg.Tiles.Size)
	var (
		src     providers.Source
		closers []io.Closer
	)
	switch cfg.Source.Kind {
	case config.SourceDebug:
		return debug, nil, nil
	case config.SourceHTTP:
		src = providers.NewHTTP(cfg.Source.URL,
			providers.WithSubdomains(cfg.Source.Subdomains...),
			providers.WithUserAgent(cfg.Source.UserAgent),
		)
	case config.SourceMBTiles:
		db, err := providers.OpenSQL(ctx, cfg.Source.Driver, cfg.Source.DSN)
		if err != nil {
			return nil, nil, err
		}
		if meta, err := db.Metadata(ctx); err == nil {
			log.Infof("mbtiles %q (%s, zoom %s-%s)", meta["name"], meta["format"], meta["minzoom"], meta["maxzoom"])
		} else {
			log.Warnf("mbtiles metadata: %v", err)
		}
		src = db
		closers = append(closers, db)
	default:
		return nil, nil, errors.New("unknown source kind " + cfg.Source.Kind)
	}

	if cfg.Source.RedisAddr != "" {
		r := providers.NewRedis(providers.NewRedisPool(cfg.Source.RedisAddr), src, cfg.Source.RedisTTL)
		closers = append(closers, r)
		src = r
	}
	var fetcher tiles.Fetcher = providers.Decode(providers.NewShared(src))
	if cfg.Source.Fallback {
		fetcher = providers.NewFallback(fetcher, debug)
	}
	return fetcher, closers, nil
}

// Close stops the workers and releases sources.
func (s *stack) Close() {
	s.Pool.Shutdown()
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Warnf("close: %v", err)
		}
	}
	st := s.Cache.Stats()
	log.Infof("tile cache: %s stored, %s failed", humanize.Comma(int64(st.Stored)), humanize.Comma(int64(st.Failed)))
	if s.lru != nil {
		s.lru.Stop()
	}
}

func newViewport(cfg *config.Config) *viewport.Viewport {
	return viewport.New(
		tiles.LatLng{Lat: cfg.View.Lat, Lng: cfg.View.Lng},
		cfg.View.Zoom,
		image.Rect(0, 0, cfg.View.Width, cfg.View.Height),
		viewport.WithTileSize(cfg.Tiles.Size),
		viewport.WithZoomRange(cfg.Tiles.ZoomMin, cfg.Tiles.ZoomMax),
	)
}

func newEngine(cfg *config.Config, vp *viewport.Viewport, cache *tiles.TileCache, cb engine.Callbacks) *engine.Engine {
	return engine.New(vp, cache,
		engine.WithCallbacks(cb),
		engine.WithController(
			viewport.WithDragThreshold(cfg.Input.DragThreshold),
			viewport.WithZoomStep(cfg.Input.ZoomStep),
		),
		engine.WithEditor(overlay.WithMargin(cfg.Overlay.Margin)),
		engine.WithClickSlop(cfg.Input.ClickSlop),
	)
}
