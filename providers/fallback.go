package providers

import (
	"context"
	"errors"
	"image"

	log "github.com/sirupsen/logrus"

	"github.com/olablt/gio-fieldmap/tiles"
)

// Fallback serves tiles from primary and, when that fails, from fallback.
// Cancellation is passed through unchanged.
type Fallback struct {
	primary  tiles.Fetcher
	fallback tiles.Fetcher
}

func NewFallback(primary, fallback tiles.Fetcher) *Fallback {
	return &Fallback{primary: primary, fallback: fallback}
}

func (f *Fallback) Fetch(ctx context.Context, tile tiles.Tile) (image.Image, error) {
	img, err := f.primary.Fetch(ctx, tile)
	if err == nil && img != nil {
		return img, nil
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return nil, err
	}
	if errors.Is(err, ErrNotFound) {
		log.Debugf("tile %s not in primary source, using fallback", tile)
	} else {
		log.Warnf("primary source failed for %s: %v", tile, err)
	}
	return f.fallback.Fetch(ctx, tile)
}
