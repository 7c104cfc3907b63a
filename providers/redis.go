package providers

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"

	"github.com/olablt/gio-fieldmap/tiles"
)

// NewRedisPool returns a connection pool for addr.
func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     16,
		MaxActive:   32,
		IdleTimeout: 120 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
	}
}

// Redis caches encoded tiles from src in Redis so several viewers can share
// downloads. Redis errors are logged and bypassed.
type Redis struct {
	pool   *redis.Pool
	src    Source
	ttl    time.Duration
	prefix string
}

func NewRedis(pool *redis.Pool, src Source, ttl time.Duration) *Redis {
	return &Redis{pool: pool, src: src, ttl: ttl, prefix: "tile:"}
}

func (r *Redis) key(tile tiles.Tile) string {
	return r.prefix + tile.String()
}

func (r *Redis) Fetch(ctx context.Context, tile tiles.Tile) ([]byte, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		log.Warnf("redis unavailable: %v", err)
		return r.src.Fetch(ctx, tile)
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", r.key(tile)))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.ErrNil) {
		log.Warnf("redis get %s: %v", tile, err)
	}

	data, err = r.src.Fetch(ctx, tile)
	if err != nil {
		return nil, err
	}
	args := redis.Args{}.Add(r.key(tile), data)
	if secs := int64(r.ttl / time.Second); secs > 0 {
		args = args.Add("EX", secs)
	}
	if _, err := conn.Do("SET", args...); err != nil {
		log.Warnf("redis set %s: %v", tile, err)
	}
	return data, nil
}

func (r *Redis) Close() error {
	return r.pool.Close()
}
