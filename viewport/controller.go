package viewport

import (
	"math"

	"github.com/olablt/gio-fieldmap/tiles"
)

// State is the controller's gesture state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	}
	return "unknown"
}

// Button identifies a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonTertiary
)

// Controller turns pointer input into viewport changes. Drags are always
// recomputed from where they started so rounding never accumulates, and
// wheel zoom keeps the point under the cursor fixed on screen.
type Controller struct {
	vp        *Viewport
	state     State
	threshold float64
	step      int

	dragStart       tiles.Point // screen position of the press
	dragStartCenter tiles.Point // world pixel of the center at press time
	lastPos         tiles.Point
	moved           bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithDragThreshold sets how far in pixels the pointer must travel before a
// press turns into a pan. Zero pans immediately.
func WithDragThreshold(px float64) ControllerOption {
	return func(c *Controller) {
		c.threshold = max(px, 0)
	}
}

// WithZoomStep sets the zoom levels applied per wheel step.
func WithZoomStep(step int) ControllerOption {
	return func(c *Controller) {
		if step > 0 {
			c.step = step
		}
	}
}

func NewController(vp *Viewport, opts ...ControllerOption) *Controller {
	c := &Controller{vp: vp, step: 1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Viewport() *Viewport { return c.vp }

// Moved reports whether the current or last drag travelled past the threshold.
func (c *Controller) Moved() bool { return c.moved }

// PointerDown starts a drag when the primary button is pressed inside the
// viewport. It reports whether a drag began.
func (c *Controller) PointerDown(pos tiles.Point, btn Button) bool {
	if btn != ButtonPrimary || !c.vp.Contains(pos) {
		return false
	}
	c.state = Dragging
	c.dragStart = pos
	c.lastPos = pos
	c.dragStartCenter = c.vp.CenterPixel()
	c.moved = false
	return true
}

// PointerMove pans the viewport while dragging and reports whether the
// center changed.
func (c *Controller) PointerMove(pos tiles.Point) bool {
	if c.state != Dragging {
		return false
	}
	c.lastPos = pos
	d := pos.Sub(c.dragStart)
	if !c.moved {
		if math.Hypot(d.X, d.Y) <= c.threshold && (c.threshold > 0 || d == tiles.Point{}) {
			return false
		}
		c.moved = true
	}
	center := c.dragStartCenter.Sub(d)
	c.vp.SetCenter(c.vp.Projection().Unproject(center, c.vp.Zoom()))
	return true
}

// PointerUp ends a drag. It reports whether the gesture ended was a drag
// that never moved, which callers treat as a click.
func (c *Controller) PointerUp(pos tiles.Point) bool {
	if c.state != Dragging {
		return false
	}
	c.PointerMove(pos)
	c.state = Idle
	return !c.moved
}

// Cancel abandons a drag, leaving the viewport where it is.
func (c *Controller) Cancel() {
	c.state = Idle
}

// Scroll zooms by steps wheel notches (positive zooms in) around pos. Events
// outside the viewport and zooms clamped to no change are ignored. It
// reports whether the zoom changed.
func (c *Controller) Scroll(pos tiles.Point, steps int) bool {
	if steps == 0 || !c.vp.Contains(pos) {
		return false
	}
	anchor := c.vp.ScreenToGeo(pos)
	if !c.vp.SetZoom(c.vp.Zoom() + steps*c.step) {
		return false
	}
	// put the anchor back under the cursor
	offset := pos.Sub(c.vp.RectCenter())
	center := c.vp.Projection().Project(anchor, c.vp.Zoom()).Sub(offset)
	c.vp.SetCenter(c.vp.Projection().Unproject(center, c.vp.Zoom()))

	if c.state == Dragging {
		// restart the drag at the new zoom so it keeps tracking the pointer
		c.dragStart = c.lastPos
		c.dragStartCenter = c.vp.CenterPixel()
	}
	return true
}
