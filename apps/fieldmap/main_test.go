package main

import (
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/gio-fieldmap/engine"
	"github.com/olablt/gio-fieldmap/internal/config"
	"github.com/olablt/gio-fieldmap/tiles"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.Load("")
	require.NoError(t, err)
	c.View.Width, c.View.Height = 320, 240
	c.Tiles.FetchTimeout = 5 * time.Second
	return c
}

func TestProbeEnvironment(t *testing.T) {
	rect := image.Rect(40, 100, 840, 600)
	assert.Equal(t, "up farm", probeEnvironment(tiles.Pt(100, 300), rect).Name)
	assert.Equal(t, "new delhi", probeEnvironment(tiles.Pt(600, 300), rect).Name)
	assert.Equal(t, "default", probeEnvironment(tiles.Pt(1, 1), image.Rectangle{}).Name)
}

func TestStack_DebugSourceRenders(t *testing.T) {
	c := testConfig(t)
	c.Tiles.CacheMax = 64
	st, err := newStack(context.Background(), c, nil)
	require.NoError(t, err)
	defer st.Close()

	e := newEngine(c, newViewport(c), st.Cache, engine.Callbacks{})
	img, stats := settle(context.Background(), e, 5*time.Second, 5*time.Millisecond)
	assert.True(t, stats.Complete(), "stats %+v", stats)
	assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())
	assert.Equal(t, stats.Ready, st.Cache.Stats().Stored)
}

func TestNewFetcher_HTTPFallsBackToDebug(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := testConfig(t)
	c.Source.Kind = config.SourceHTTP
	c.Source.URL = srv.URL + "/{z}/{x}/{y}.png"

	f, closers, err := newFetcher(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, closers)
	img, err := f.Fetch(context.Background(), tiles.Tile{X: 1, Y: 1, Zoom: 2})
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())

	c.Source.Fallback = false
	f, _, err = newFetcher(context.Background(), c)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), tiles.Tile{X: 1, Y: 1, Zoom: 2})
	assert.Error(t, err)
}

func TestNewFetcher_MBTiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.mbtiles")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("create table tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob)")
	require.NoError(t, err)
	_, err = db.Exec("create table metadata (name text, value text)")
	require.NoError(t, err)

	tile := image.NewRGBA(image.Rect(0, 0, 256, 256))
	tile.Set(0, 0, color.RGBA{1, 2, 3, 255})
	f, err := os.CreateTemp(t.TempDir(), "tile*.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, tile))
	require.NoError(t, f.Close())
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	_, err = db.Exec("insert into tiles values (1, 0, 1, ?)", data)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c := testConfig(t)
	c.Source.Kind = config.SourceMBTiles
	c.Source.DSN = path
	c.Source.Fallback = false

	fetcher, closers, err := newFetcher(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, closers, 1)
	defer closers[0].Close()

	img, err := fetcher.Fetch(context.Background(), tiles.Tile{X: 0, Y: 0, Zoom: 1})
	require.NoError(t, err)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestReplay(t *testing.T) {
	c := testConfig(t)
	st, err := newStack(context.Background(), c, nil)
	require.NoError(t, err)
	defer st.Close()

	dir := t.TempDir()
	r := &replayer{
		vp:     newViewport(c),
		outDir: dir,
		wait:   5 * time.Second,
		tick:   5 * time.Millisecond,
	}
	r.engine = newEngine(c, r.vp, st.Cache, r.callbacks())

	sc := &script{Steps: []step{
		{Op: "drag", X: 160, Y: 120, DX: 20, DY: 10},
		{Op: "scroll", X: 160, Y: 120, Steps: 1},
		{Op: "key", Key: "enter"},
		{Op: "key", Key: "escape"},
		{Op: "click", X: 100, Y: 60},
		{Op: "plot"},
		{Op: "click", X: 200, Y: 60},
		{Op: "key", Key: "enter"},
		{Op: "click", X: 150, Y: 180},
		{Op: "key", Key: "enter"},
		{Op: "frame", Out: "final.png"},
	}}
	require.NoError(t, r.run(context.Background(), sc, nil))

	assert.Len(t, r.errs, 1, "finishing with two points fails")
	require.Len(t, r.features.Features, 1)
	assert.InDelta(t, 6000.0, r.features.Features[0].Properties["area_px"], 1e-3)
	assert.Equal(t, 13, r.vp.Zoom())

	_, err = os.Stat(filepath.Join(dir, "final.png"))
	assert.NoError(t, err)

	err = r.run(context.Background(), &script{Steps: []step{{Op: "jump"}}}, nil)
	assert.ErrorContains(t, err, "unknown op")
}
