// Package viewport holds the map window state (center, zoom, screen rect) and
// the pointer controller that pans and zooms it.
package viewport

import (
	"image"
	"math"

	"github.com/olablt/gio-fieldmap/tiles"
)

const (
	DefaultMinZoom = 2
	DefaultMaxZoom = 18
)

// Viewport is the window onto the projected world. It is owned by the render
// thread and is not safe for concurrent use.
type Viewport struct {
	proj    tiles.Mercator
	center  tiles.LatLng
	zoom    int
	minZoom int
	maxZoom int
	rect    image.Rectangle
}

// Option configures a Viewport.
type Option func(*Viewport)

// WithTileSize sets the tile side in pixels.
func WithTileSize(size int) Option {
	return func(vp *Viewport) {
		vp.proj = tiles.Mercator{TileSize: size}
	}
}

// WithZoomRange sets the inclusive zoom bounds.
func WithZoomRange(minZoom, maxZoom int) Option {
	return func(vp *Viewport) {
		vp.minZoom = minZoom
		vp.maxZoom = maxZoom
	}
}

// New creates a viewport centered on center at zoom, rendering into rect.
func New(center tiles.LatLng, zoom int, rect image.Rectangle, opts ...Option) *Viewport {
	vp := &Viewport{
		proj:    tiles.Mercator{TileSize: tiles.DefaultTileSize},
		minZoom: DefaultMinZoom,
		maxZoom: DefaultMaxZoom,
		rect:    rect.Canon(),
	}
	for _, opt := range opts {
		opt(vp)
	}
	if vp.maxZoom < vp.minZoom {
		vp.minZoom, vp.maxZoom = vp.maxZoom, vp.minZoom
	}
	vp.SetCenter(center)
	vp.SetZoom(zoom)
	return vp
}

func (vp *Viewport) Center() tiles.LatLng { return vp.center }

func (vp *Viewport) Zoom() int { return vp.zoom }

func (vp *Viewport) Rect() image.Rectangle { return vp.rect }

func (vp *Viewport) Projection() tiles.Mercator { return vp.proj }

// ZoomRange returns the inclusive zoom bounds.
func (vp *Viewport) ZoomRange() (minZoom, maxZoom int) { return vp.minZoom, vp.maxZoom }

// SetCenter moves the center, clamping latitude and wrapping longitude.
func (vp *Viewport) SetCenter(ll tiles.LatLng) {
	vp.center = ll.Normalize()
}

// SetZoom sets the zoom clamped to the viewport's range and reports whether
// it changed.
func (vp *Viewport) SetZoom(zoom int) bool {
	zoom = vp.ClampZoom(zoom)
	if zoom == vp.zoom {
		return false
	}
	vp.zoom = zoom
	return true
}

// ClampZoom limits zoom to the viewport's range.
func (vp *Viewport) ClampZoom(zoom int) int {
	return max(vp.minZoom, min(zoom, vp.maxZoom))
}

// SetRect resizes the screen rectangle the viewport renders into.
func (vp *Viewport) SetRect(rect image.Rectangle) {
	vp.rect = rect.Canon()
}

// CenterPixel returns the world pixel of the center at the current zoom.
func (vp *Viewport) CenterPixel() tiles.Point {
	return vp.proj.Project(vp.center, vp.zoom)
}

// RectCenter returns the screen position of the rect's center.
func (vp *Viewport) RectCenter() tiles.Point {
	return tiles.Point{
		X: float64(vp.rect.Min.X) + float64(vp.rect.Dx())/2,
		Y: float64(vp.rect.Min.Y) + float64(vp.rect.Dy())/2,
	}
}

// Contains reports whether the screen position lies inside the rect.
func (vp *Viewport) Contains(p tiles.Point) bool {
	return p.X >= float64(vp.rect.Min.X) && p.X < float64(vp.rect.Max.X) &&
		p.Y >= float64(vp.rect.Min.Y) && p.Y < float64(vp.rect.Max.Y)
}

// ScreenToWorld converts a screen position to a world pixel at the current zoom.
func (vp *Viewport) ScreenToWorld(p tiles.Point) tiles.Point {
	return vp.CenterPixel().Add(p.Sub(vp.RectCenter()))
}

// ScreenToGeo returns the geographical point rendered at screen position p.
func (vp *Viewport) ScreenToGeo(p tiles.Point) tiles.LatLng {
	return vp.proj.Unproject(vp.ScreenToWorld(p), vp.zoom)
}

// GeoToScreen returns the screen position of ll, choosing the world copy
// nearest to the center.
func (vp *Viewport) GeoToScreen(ll tiles.LatLng) tiles.Point {
	world := vp.proj.WorldSize(vp.zoom)
	d := vp.proj.Project(ll, vp.zoom).Sub(vp.CenterPixel())
	d.X -= world * math.Round(d.X/world)
	return vp.RectCenter().Add(d)
}

// Pan moves the map content by the screen delta (dx, dy). The center is
// shifted in world pixels and converted back, since a constant pixel delta
// is not a constant lat/lng delta under Mercator.
func (vp *Viewport) Pan(dx, dy float64) {
	c := vp.CenterPixel().Sub(tiles.Pt(dx, dy))
	vp.SetCenter(vp.proj.Unproject(c, vp.zoom))
}

// Placement is a visible tile and the screen position of its top-left corner.
type Placement struct {
	Tile tiles.Tile
	Min  image.Point
}

// VisibleTiles returns the tiles covering the rect in row-major order.
// Columns wrap around the antimeridian; rows beyond the poles are skipped.
// When the rect is wider than the world a tile may be placed more than once.
func (vp *Viewport) VisibleTiles() []Placement {
	if vp.rect.Empty() {
		return nil
	}
	ts := float64(vp.tileSize())
	w, h := float64(vp.rect.Dx()), float64(vp.rect.Dy())
	c := vp.CenterPixel()
	left := c.X - w/2
	top := c.Y - h/2

	col0, col1 := int(math.Floor(left/ts)), int(math.Floor((left+w)/ts))
	row0, row1 := int(math.Floor(top/ts)), int(math.Floor((top+h)/ts))
	row0 = max(row0, 0)
	row1 = min(row1, tiles.Count(vp.zoom)-1)
	if row1 < row0 {
		return nil
	}

	// placement uses a whole-pixel origin so neighbouring tiles never gap
	originX := int(math.Floor(left))
	originY := int(math.Floor(top))
	size := vp.tileSize()

	placements := make([]Placement, 0, (col1-col0+1)*(row1-row0+1))
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			tile := tiles.Tile{X: col, Y: row, Zoom: vp.zoom}.Wrap()
			placements = append(placements, Placement{
				Tile: tile,
				Min: image.Point{
					X: vp.rect.Min.X + col*size - originX,
					Y: vp.rect.Min.Y + row*size - originY,
				},
			})
		}
	}
	return placements
}

func (vp *Viewport) tileSize() int {
	if vp.proj.TileSize <= 0 {
		return tiles.DefaultTileSize
	}
	return vp.proj.TileSize
}

// TileSize returns the tile side in pixels.
func (vp *Viewport) TileSize() int {
	return vp.tileSize()
}
