package providers

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/olablt/gio-fieldmap/tiles"
)

// Shared collapses concurrent fetches of the same tile into one call to src.
// TileCache already deduplicates its own misses; Shared covers several
// caches reading through one source.
type Shared struct {
	src   Source
	group singleflight.Group
}

func NewShared(src Source) *Shared {
	return &Shared{src: src}
}

func (s *Shared) Fetch(ctx context.Context, tile tiles.Tile) ([]byte, error) {
	v, err, _ := s.group.Do(tile.String(), func() (any, error) {
		return s.src.Fetch(ctx, tile)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
