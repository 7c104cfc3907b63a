// Package engine runs a map session: it queues host input, applies it to the
// viewport and polygon editor on the render goroutine and draws frames.
package engine

import (
	"image"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/olablt/gio-fieldmap/overlay"
	"github.com/olablt/gio-fieldmap/render"
	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/viewport"
)

// Mode selects what a click does.
type Mode int

const (
	// ModeNavigate pans and zooms; a click selects a location.
	ModeNavigate Mode = iota
	// ModeEdit freezes the map; a click adds a polygon vertex.
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "navigate"
}

const DefaultClickSlop = 4

// Callbacks let the host react to session results. Any may be nil. They run
// on the goroutine calling Frame.
type Callbacks struct {
	OnLocate func(geo tiles.LatLng, screen tiles.Point)
	OnFinish func(poly *overlay.Polygon)
	OnError  func(err error)
}

type Engine struct {
	mu    sync.Mutex
	queue []Event

	vp       *viewport.Viewport
	ctrl     *viewport.Controller
	editor   *overlay.Editor
	src      render.TileSource
	renderer *render.Renderer
	cb       Callbacks

	mode      Mode
	clickSlop float64
	press     *tiles.Point
	selected  *tiles.LatLng
	frame     *image.RGBA
	stats     render.Stats
}

type Option func(*Engine)

func WithCallbacks(cb Callbacks) Option {
	return func(e *Engine) { e.cb = cb }
}

func WithController(opts ...viewport.ControllerOption) Option {
	return func(e *Engine) { e.ctrl = viewport.NewController(e.vp, opts...) }
}

func WithEditor(opts ...overlay.Option) Option {
	return func(e *Engine) { e.editor = overlay.NewEditor(e.vp.Rect(), opts...) }
}

func WithRenderer(r *render.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithClickSlop sets how far a press may travel and still count as a click.
func WithClickSlop(px float64) Option {
	return func(e *Engine) { e.clickSlop = max(px, 0) }
}

func New(vp *viewport.Viewport, src render.TileSource, opts ...Option) *Engine {
	e := &Engine{
		vp:        vp,
		src:       src,
		clickSlop: DefaultClickSlop,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ctrl == nil {
		e.ctrl = viewport.NewController(vp)
	}
	if e.editor == nil {
		e.editor = overlay.NewEditor(vp.Rect())
	}
	if e.renderer == nil {
		e.renderer = render.New()
	}
	return e
}

// Post queues ev for the next Frame. It is safe to call from any goroutine.
func (e *Engine) Post(ev ...Event) {
	e.mu.Lock()
	e.queue = append(e.queue, ev...)
	e.mu.Unlock()
}

func (e *Engine) drain() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.queue
	e.queue = nil
	return q
}

// Frame applies queued events and renders the scene. The returned image is
// reused by the next call.
func (e *Engine) Frame() (*image.RGBA, render.Stats) {
	for _, ev := range e.drain() {
		e.apply(ev)
	}
	rect := e.vp.Rect()
	if e.frame == nil || e.frame.Bounds() != rect {
		e.frame = image.NewRGBA(rect)
	}
	scene := render.Scene{
		Viewport: e.vp,
		Tiles:    e.src,
		Outline:  e.editor.Points(),
	}
	if e.mode == ModeNavigate && e.selected != nil {
		p := e.vp.GeoToScreen(*e.selected)
		scene.Marker = &p
	}
	e.stats = e.renderer.RenderInto(e.frame, scene)
	return e.frame, e.stats
}

func (e *Engine) apply(ev Event) {
	switch ev := ev.(type) {
	case PointerDown:
		if e.mode == ModeNavigate {
			if !e.ctrl.PointerDown(ev.Pos, ev.Button) {
				return
			}
		} else if ev.Button != viewport.ButtonPrimary || !e.vp.Contains(ev.Pos) {
			return
		}
		pos := ev.Pos
		e.press = &pos
	case PointerMove:
		if e.mode == ModeNavigate {
			e.ctrl.PointerMove(ev.Pos)
		}
	case PointerUp:
		if e.mode == ModeNavigate {
			e.ctrl.PointerUp(ev.Pos)
		}
		if e.press != nil && dist(*e.press, ev.Pos) <= e.clickSlop {
			e.click(*e.press)
		}
		e.press = nil
	case PointerCancel:
		e.ctrl.Cancel()
		e.press = nil
	case Scroll:
		if e.mode == ModeNavigate {
			e.ctrl.Scroll(ev.Pos, ev.Steps)
		}
	case Key:
		e.key(ev.Name)
	case Resize:
		e.vp.SetRect(ev.Rect)
		e.editor.SetRect(ev.Rect)
	}
}

func (e *Engine) click(pos tiles.Point) {
	switch e.mode {
	case ModeNavigate:
		pos = e.editor.Clamp(pos)
		geo := e.vp.ScreenToGeo(pos)
		e.selected = &geo
		log.WithField("zoom", e.vp.Zoom()).Debugf("selected %.5f,%.5f", geo.Lat, geo.Lng)
		if e.cb.OnLocate != nil {
			e.cb.OnLocate(geo, pos)
		}
	case ModeEdit:
		e.editor.AddPoint(pos)
	}
}

func (e *Engine) key(name KeyName) {
	switch e.mode {
	case ModeNavigate:
		if name == KeyEnter {
			e.BeginPlot()
		}
	case ModeEdit:
		switch name {
		case KeyBackspace:
			e.editor.RemoveLast()
		case KeyEnter:
			e.finish()
		case KeyEscape:
			e.editor.Reset()
			e.setMode(ModeNavigate)
		}
	}
}

// BeginPlot switches to edit mode with an empty outline, seeded with the
// selected location when there is one.
func (e *Engine) BeginPlot() {
	e.ctrl.Cancel()
	e.press = nil
	e.editor.Reset()
	if e.selected != nil {
		e.editor.AddPoint(e.vp.GeoToScreen(*e.selected))
	}
	e.setMode(ModeEdit)
}

func (e *Engine) finish() {
	poly, err := e.editor.Finish()
	if err != nil {
		log.Debugf("finish plot: %v", err)
		if e.cb.OnError != nil {
			e.cb.OnError(err)
		}
		return
	}
	log.WithField("id", poly.ID).Infof("plot finished: %d vertices, %.0f px²", len(poly.Points), poly.Area)
	e.setMode(ModeNavigate)
	if e.cb.OnFinish != nil {
		e.cb.OnFinish(poly)
	}
}

func (e *Engine) setMode(m Mode) {
	if e.mode != m {
		log.Debugf("mode %s -> %s", e.mode, m)
	}
	e.mode = m
}

func (e *Engine) Mode() Mode                   { return e.mode }
func (e *Engine) Viewport() *viewport.Viewport { return e.vp }
func (e *Engine) Editor() *overlay.Editor      { return e.editor }

// Selected returns the location picked in navigate mode.
func (e *Engine) Selected() (tiles.LatLng, bool) {
	if e.selected == nil {
		return tiles.LatLng{}, false
	}
	return *e.selected, true
}

// Stats returns the tile counts of the last frame.
func (e *Engine) Stats() render.Stats { return e.stats }

func dist(a, b tiles.Point) float64 {
	d := a.Sub(b)
	return math.Hypot(d.X, d.Y)
}
