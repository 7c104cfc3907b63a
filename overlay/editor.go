// Package overlay edits a field boundary polygon drawn over the map.
package overlay

import (
	"errors"
	"image"
	"math"

	"github.com/google/uuid"

	"github.com/olablt/gio-fieldmap/tiles"
)

// DefaultMargin keeps vertices this many pixels inside the map rect.
const DefaultMargin = 6

var ErrInsufficientPoints = errors.New("overlay: a polygon needs at least 3 points")

// Editor accumulates polygon vertices in screen space. Points are only
// pushed and popped; duplicates and self-intersections are accepted.
type Editor struct {
	rect   image.Rectangle
	margin float64
	points []tiles.Point
}

type Option func(*Editor)

// WithMargin overrides DefaultMargin.
func WithMargin(px float64) Option {
	return func(e *Editor) {
		e.margin = max(px, 0)
	}
}

func NewEditor(rect image.Rectangle, opts ...Option) *Editor {
	e := &Editor{rect: rect.Canon(), margin: DefaultMargin}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetRect changes the clamp rectangle. Points already recorded keep their
// positions.
func (e *Editor) SetRect(rect image.Rectangle) {
	e.rect = rect.Canon()
}

func (e *Editor) Rect() image.Rectangle { return e.rect }

// Clamp returns p moved inside the rect, at least margin pixels from every
// edge. A rect narrower than twice the margin pins to its middle.
func (e *Editor) Clamp(p tiles.Point) tiles.Point {
	return tiles.Point{
		X: clamp(p.X, float64(e.rect.Min.X)+e.margin, float64(e.rect.Max.X)-e.margin),
		Y: clamp(p.Y, float64(e.rect.Min.Y)+e.margin, float64(e.rect.Max.Y)-e.margin),
	}
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(v, hi))
}

// AddPoint clamps p and appends it, returning the stored point.
func (e *Editor) AddPoint(p tiles.Point) tiles.Point {
	p = e.Clamp(p)
	e.points = append(e.points, p)
	return p
}

// RemoveLast pops the newest point and reports whether there was one.
func (e *Editor) RemoveLast() bool {
	if len(e.points) == 0 {
		return false
	}
	e.points = e.points[:len(e.points)-1]
	return true
}

// Reset discards all points.
func (e *Editor) Reset() {
	e.points = e.points[:0]
}

func (e *Editor) Len() int { return len(e.points) }

// Points returns a copy of the vertices in insertion order.
func (e *Editor) Points() []tiles.Point {
	return append([]tiles.Point(nil), e.points...)
}

// Area returns the shoelace area in square pixels, or 0 below 3 points.
func (e *Editor) Area() float64 {
	return Area(e.points)
}

// Finish returns the current outline as a Polygon and clears the editor.
// With fewer than 3 points it returns ErrInsufficientPoints and keeps them.
func (e *Editor) Finish() (*Polygon, error) {
	if len(e.points) < 3 {
		return nil, ErrInsufficientPoints
	}
	poly := &Polygon{
		ID:     uuid.New(),
		Points: e.Points(),
		Area:   e.Area(),
	}
	e.Reset()
	return poly, nil
}

// Area computes the shoelace area of pts in square pixels.
func Area(pts []tiles.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}
