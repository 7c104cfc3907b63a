package tiles

import (
	"math"

	"github.com/golang/geo/s1"
)

const (
	// DefaultTileSize is the side of a square tile in pixels.
	DefaultTileSize = 256
	// MaxLatitude is the Web Mercator latitude bound, atan(sinh(π)) in degrees.
	MaxLatitude        = 85.05112878
	earthCircumference = 40075016.686 // meters at equator
)

// LatLng represents a geographical point
type LatLng struct {
	Lat, Lng float64
}

// Normalize clamps the latitude into the Web Mercator band and wraps the
// longitude into [-180, 180).
func (ll LatLng) Normalize() LatLng {
	return LatLng{Lat: ClampLat(ll.Lat), Lng: WrapLng(ll.Lng)}
}

// ClampLat limits lat to [-MaxLatitude, MaxLatitude].
func ClampLat(lat float64) float64 {
	return max(-MaxLatitude, min(lat, MaxLatitude))
}

// WrapLng wraps lng into [-180, 180).
func WrapLng(lng float64) float64 {
	w := math.Mod(lng+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

// Point is a pixel position, either in world space at some zoom or on screen.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Mercator is the spherical Web Mercator projection onto a square world of
// TileSize * 2^zoom pixels. The zero value uses DefaultTileSize.
type Mercator struct {
	TileSize int
}

func (m Mercator) tileSize() float64 {
	if m.TileSize <= 0 {
		return DefaultTileSize
	}
	return float64(m.TileSize)
}

// WorldSize returns the side of the projected world in pixels at zoom.
func (m Mercator) WorldSize(zoom int) float64 {
	return math.Ldexp(m.tileSize(), zoom)
}

// Project converts geographical coordinates to world pixel coordinates at
// the given zoom level. Out-of-band latitudes are clamped, never rejected.
func (m Mercator) Project(ll LatLng, zoom int) Point {
	ll = ll.Normalize()
	scale := m.WorldSize(zoom)
	sin := math.Sin(radians(ll.Lat))
	x := (ll.Lng + 180) / 360 * scale
	y := (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * scale
	return Point{X: x, Y: y}
}

// Unproject converts world pixel coordinates back to geographical coordinates.
func (m Mercator) Unproject(p Point, zoom int) LatLng {
	scale := m.WorldSize(zoom)
	lng := p.X/scale*360 - 180
	lat := s1.Angle(math.Atan(math.Sinh(math.Pi - 2*math.Pi*p.Y/scale))).Degrees()
	return LatLng{Lat: lat, Lng: WrapLng(lng)}
}

// TileAt returns the tile containing ll at zoom.
func (m Mercator) TileAt(ll LatLng, zoom int) Tile {
	p := m.Project(ll, zoom)
	ts := m.tileSize()
	t := Tile{X: int(math.Floor(p.X / ts)), Y: int(math.Floor(p.Y / ts)), Zoom: zoom}
	// the south pole edge projects exactly onto the world boundary
	t.Y = min(t.Y, Count(zoom)-1)
	return t.Wrap()
}

// MetersPerPixel calculates the meters per pixel at a given latitude and zoom level
func (m Mercator) MetersPerPixel(lat float64, zoom int) float64 {
	return earthCircumference * math.Cos(radians(ClampLat(lat))) / m.WorldSize(zoom)
}

func radians(deg float64) float64 {
	return (s1.Angle(deg) * s1.Degree).Radians()
}
