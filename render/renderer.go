// Package render composes map tiles and the polygon overlay into a frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/olablt/gio-fieldmap/overlay"
	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/viewport"
)

// TileSource is the part of tiles.TileCache the renderer reads. Get must
// not block.
type TileSource interface {
	Get(tile tiles.Tile) (image.Image, tiles.Status)
}

// Scene is everything drawn in one frame.
type Scene struct {
	Viewport *viewport.Viewport
	Tiles    TileSource
	Outline  []tiles.Point
	Marker   *tiles.Point
}

// Stats counts tile states seen while drawing a frame.
type Stats struct {
	Ready, Pending, Missing int
}

// Complete reports whether every visible tile was drawn from a raster.
func (s Stats) Complete() bool {
	return s.Pending == 0 && s.Missing == 0
}

type Renderer struct {
	style Style
}

type Option func(*Renderer)

func WithStyle(s Style) Option {
	return func(r *Renderer) { r.style = s }
}

func New(opts ...Option) *Renderer {
	r := &Renderer{style: DefaultStyle()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws scene into a new image whose bounds equal the viewport rect.
func (r *Renderer) Render(scene Scene) (*image.RGBA, Stats) {
	dst := image.NewRGBA(scene.Viewport.Rect())
	return dst, r.RenderInto(dst, scene)
}

// RenderInto draws scene into dst, clipped to the viewport rect. The output
// depends only on the tile rasters and the scene, never on timing.
func (r *Renderer) RenderInto(dst *image.RGBA, scene Scene) Stats {
	rect := scene.Viewport.Rect().Intersect(dst.Bounds())
	if rect.Empty() {
		return Stats{}
	}
	draw.Draw(dst, rect, image.NewUniform(r.style.Background), image.Point{}, draw.Src)

	stats := r.drawTiles(dst, rect, scene)
	if len(scene.Outline) >= 2 {
		r.drawOutline(dst, rect, scene.Outline)
	}
	for _, p := range scene.Outline {
		r.disc(dst, rect, p, r.style.VertexRadius, r.style.Vertex)
	}
	if len(scene.Outline) >= 3 {
		r.label(dst, rect, fmt.Sprintf("Plot area (pixel units): %d", int(overlay.Area(scene.Outline))))
	}
	if scene.Marker != nil {
		r.disc(dst, rect, *scene.Marker, r.style.MarkerRadius, r.style.Marker)
	}
	return stats
}

func (r *Renderer) drawTiles(dst *image.RGBA, clip image.Rectangle, scene Scene) Stats {
	var stats Stats
	size := scene.Viewport.TileSize()
	for _, p := range scene.Viewport.VisibleTiles() {
		bounds := image.Rectangle{Min: p.Min, Max: p.Min.Add(image.Pt(size, size))}
		tr := bounds.Intersect(clip)
		if tr.Empty() {
			continue
		}
		var (
			img    image.Image
			status = tiles.StatusMissing
		)
		if scene.Tiles != nil {
			img, status = scene.Tiles.Get(p.Tile)
		}
		switch {
		case status == tiles.StatusReady && img != nil:
			stats.Ready++
			sb := img.Bounds()
			if sb.Dx() == size && sb.Dy() == size {
				draw.Draw(dst, tr, img, sb.Min.Add(tr.Min.Sub(bounds.Min)), draw.Src)
			} else {
				sub := dst.SubImage(tr).(*image.RGBA)
				draw.ApproxBiLinear.Scale(sub, bounds, img, sb, draw.Src, nil)
			}
			continue
		case status == tiles.StatusPending:
			stats.Pending++
		default:
			stats.Missing++
		}
		r.placeholder(dst, bounds, tr)
	}
	return stats
}

// placeholder fills a tile's visible part with a flat colour and a grid
// aligned to the tile so it moves with the map.
func (r *Renderer) placeholder(dst *image.RGBA, bounds, visible image.Rectangle) {
	draw.Draw(dst, visible, image.NewUniform(r.style.Placeholder), image.Point{}, draw.Src)
	step := r.style.GridStep
	if step <= 0 {
		return
	}
	grid := image.NewUniform(r.style.Grid)
	for x := bounds.Min.X; x < bounds.Max.X; x += step {
		draw.Draw(dst, image.Rect(x, bounds.Min.Y, x+1, bounds.Max.Y).Intersect(visible), grid, image.Point{}, draw.Src)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		draw.Draw(dst, image.Rect(bounds.Min.X, y, bounds.Max.X, y+1).Intersect(visible), grid, image.Point{}, draw.Src)
	}
}

func (r *Renderer) drawOutline(dst *image.RGBA, clip image.Rectangle, pts []tiles.Point) {
	closed := len(pts) >= 3
	if closed {
		z := r.rasterizer(clip)
		moveTo(z, clip, pts[0])
		for _, p := range pts[1:] {
			lineTo(z, clip, p)
		}
		z.ClosePath()
		z.Draw(dst, clip, image.NewUniform(r.style.Fill), image.Point{})
	}

	z := r.rasterizer(clip)
	half := r.style.StrokeWidth / 2
	n := len(pts)
	if !closed {
		n--
	}
	for i := 0; i < n; i++ {
		segment(z, clip, pts[i], pts[(i+1)%len(pts)], half)
	}
	for _, p := range pts {
		circle(z, clip, p, half)
	}
	z.Draw(dst, clip, image.NewUniform(r.style.Stroke), image.Point{})
}

func (r *Renderer) disc(dst *image.RGBA, clip image.Rectangle, c tiles.Point, radius float64, col color.Color) {
	z := r.rasterizer(clip)
	circle(z, clip, c, radius)
	z.Draw(dst, clip, image.NewUniform(col), image.Point{})
}

func (r *Renderer) label(dst *image.RGBA, clip image.Rectangle, text string) {
	face := r.style.Face
	if face == nil {
		return
	}
	m := face.Metrics()
	w := font.MeasureString(face, text).Ceil()
	origin := clip.Min.Add(image.Pt(8, 8))
	box := image.Rect(origin.X-3, origin.Y-2, origin.X+w+3, origin.Y+m.Height.Ceil()+2).Intersect(clip)
	draw.Draw(dst, box, image.NewUniform(r.style.LabelBack), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst.SubImage(clip).(*image.RGBA),
		Src:  image.NewUniform(r.style.Label),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(origin.X), Y: fixed.I(origin.Y) + m.Ascent},
	}
	d.DrawString(text)
}

func (r *Renderer) rasterizer(clip image.Rectangle) *vector.Rasterizer {
	z := vector.NewRasterizer(clip.Dx(), clip.Dy())
	z.DrawOp = draw.Over
	return z
}

// Paths are built in clip-relative coordinates. Every shape is wound the
// same way so overlapping pieces of one pass add up instead of cancelling.

func moveTo(z *vector.Rasterizer, clip image.Rectangle, p tiles.Point) {
	z.MoveTo(float32(p.X)-float32(clip.Min.X), float32(p.Y)-float32(clip.Min.Y))
}

func lineTo(z *vector.Rasterizer, clip image.Rectangle, p tiles.Point) {
	z.LineTo(float32(p.X)-float32(clip.Min.X), float32(p.Y)-float32(clip.Min.Y))
}

func segment(z *vector.Rasterizer, clip image.Rectangle, a, b tiles.Point, half float64) {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return
	}
	n := tiles.Pt(-d.Y/l*half, d.X/l*half)
	moveTo(z, clip, a.Add(n))
	lineTo(z, clip, b.Add(n))
	lineTo(z, clip, b.Sub(n))
	lineTo(z, clip, a.Sub(n))
	z.ClosePath()
}

func circle(z *vector.Rasterizer, clip image.Rectangle, c tiles.Point, radius float64) {
	if radius <= 0 {
		return
	}
	const steps = 24
	moveTo(z, clip, c.Add(tiles.Pt(radius, 0)))
	for i := 1; i < steps; i++ {
		a := -2 * math.Pi * float64(i) / steps
		lineTo(z, clip, c.Add(tiles.Pt(radius*math.Cos(a), radius*math.Sin(a))))
	}
	z.ClosePath()
}
