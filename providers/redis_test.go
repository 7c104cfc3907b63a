package providers_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/gio-fieldmap/providers"
	"github.com/olablt/gio-fieldmap/tiles"
)

// memConn is an in-memory redis.Conn understanding GET and SET.
type memConn struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]int64
	down bool
}

func newMemConn() *memConn {
	return &memConn{data: map[string][]byte{}, ttl: map[string]int64{}}
}

func (c *memConn) Do(cmd string, args ...any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cmd == "" {
		return nil, nil
	}
	if c.down {
		return nil, errors.New("connection refused")
	}
	switch cmd {
	case "GET":
		v, ok := c.data[args[0].(string)]
		if !ok {
			return nil, nil
		}
		return v, nil
	case "SET":
		key := args[0].(string)
		c.data[key] = args[1].([]byte)
		if len(args) == 4 {
			c.ttl[key] = args[3].(int64)
		}
		return "OK", nil
	}
	return nil, errors.New("unsupported command " + cmd)
}

func (c *memConn) Close() error              { return nil }
func (c *memConn) Err() error                { return nil }
func (c *memConn) Send(string, ...any) error { return nil }
func (c *memConn) Flush() error              { return nil }
func (c *memConn) Receive() (any, error)     { return nil, nil }

func memPool(conn *memConn) *redis.Pool {
	return &redis.Pool{
		Dial: func() (redis.Conn, error) { return conn, nil },
	}
}

func TestRedis_CachesSourceBytes(t *testing.T) {
	conn := newMemConn()
	src := &countingSource{data: []byte("png")}
	r := providers.NewRedis(memPool(conn), src, time.Hour)
	tile := tiles.Tile{X: 3, Y: 2, Zoom: 4}
	ctx := context.Background()

	data, err := r.Fetch(ctx, tile)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, []byte("png"), conn.data["tile:4/3/2"])
	assert.Equal(t, int64(3600), conn.ttl["tile:4/3/2"])

	data, err = r.Fetch(ctx, tile)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, int32(1), src.calls.Load(), "second fetch served from redis")
}

func TestRedis_SourceErrorNotCached(t *testing.T) {
	conn := newMemConn()
	src := &countingSource{err: providers.ErrNotFound}
	r := providers.NewRedis(memPool(conn), src, 0)

	_, err := r.Fetch(context.Background(), tiles.Tile{Zoom: 1})
	assert.ErrorIs(t, err, providers.ErrNotFound)
	assert.Empty(t, conn.data)
}

func TestRedis_BypassedWhenDown(t *testing.T) {
	conn := newMemConn()
	conn.down = true
	src := &countingSource{data: []byte("png")}
	r := providers.NewRedis(memPool(conn), src, time.Minute)

	data, err := r.Fetch(context.Background(), tiles.Tile{Zoom: 1})
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, int32(1), src.calls.Load())
}
