// Package providers implements tile suppliers for tiles.TileCache: remote
// URL templates, MBTiles databases, a shared Redis byte cache and generated
// debug tiles.
package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/olablt/gio-fieldmap/tiles"
)

// ErrNotFound is returned when a source has no data for a tile.
var ErrNotFound = errors.New("providers: tile not found")

// Source returns the encoded (PNG or JPEG) bytes of a tile.
type Source interface {
	Fetch(ctx context.Context, tile tiles.Tile) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, tile tiles.Tile) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context, tile tiles.Tile) ([]byte, error) {
	return f(ctx, tile)
}

// Decode turns a byte Source into an image Fetcher.
func Decode(src Source) tiles.Fetcher {
	return tiles.FetcherFunc(func(ctx context.Context, tile tiles.Tile) (image.Image, error) {
		data, err := src.Fetch(ctx, tile)
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("providers: decode %s: %w", tile, err)
		}
		return img, nil
	})
}
