package main

import (
	"context"
	"image"
	"image/png"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/olablt/gio-fieldmap/engine"
	"github.com/olablt/gio-fieldmap/render"
)

// settle renders frames until every visible tile is loaded, the wait expires
// or ctx is done, and returns the last frame.
func settle(ctx context.Context, e *engine.Engine, wait, tick time.Duration) (*image.RGBA, render.Stats) {
	img, stats := e.Frame()
	if stats.Complete() || wait <= 0 {
		return img, stats
	}
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return img, stats
		case <-deadline.C:
			log.Warnf("frame incomplete after %s: %d pending, %d missing", wait, stats.Pending, stats.Missing)
			return img, stats
		case <-ticker.C:
			img, stats = e.Frame()
			if stats.Complete() {
				return img, stats
			}
		}
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if fi, err := f.Stat(); err == nil {
		log.Infof("wrote %s (%s)", path, humanize.Bytes(uint64(fi.Size())))
	}
	return f.Close()
}

func tickInterval(hz int) time.Duration {
	if hz <= 0 {
		hz = 60
	}
	return time.Second / time.Duration(hz)
}
