// Package mapview presents an engine session as a Gio widget.
package mapview

import (
	"image"
	"time"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/olablt/gio-fieldmap/engine"
	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/viewport"
)

// MapView feeds Gio pointer and key events to an engine and paints its
// frames. While tiles are still loading it asks for a redraw every tick.
type MapView struct {
	Engine *engine.Engine
	TickHz int

	size image.Point
}

func New(e *engine.Engine, tickHz int) *MapView {
	if tickHz <= 0 {
		tickHz = 60
	}
	return &MapView{Engine: e, TickHz: tickHz}
}

func (mv *MapView) Layout(gtx layout.Context) layout.Dimensions {
	tag := mv

	if mv.size != gtx.Constraints.Max {
		mv.size = gtx.Constraints.Max
		mv.Engine.Post(engine.Resize{Rect: image.Rectangle{Max: mv.size}})
	}

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  tag,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		if x, ok := ev.(pointer.Event); ok {
			mv.pointer(x)
		}
	}
	for {
		ev, ok := gtx.Event(
			key.Filter{Name: key.NameReturn},
			key.Filter{Name: key.NameEnter},
			key.Filter{Name: key.NameDeleteBackward},
			key.Filter{Name: key.NameEscape},
		)
		if !ok {
			break
		}
		if x, ok := ev.(key.Event); ok && x.State == key.Press {
			mv.key(x.Name)
		}
	}

	img, stats := mv.Engine.Frame()

	// Confine the area of interest to a gtx Max
	defer clip.Rect{Max: mv.size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, tag)

	paint.NewImageOp(img).Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)

	if !stats.Complete() {
		gtx.Execute(op.InvalidateCmd{At: gtx.Now.Add(time.Second / time.Duration(mv.TickHz))})
	}
	return layout.Dimensions{Size: mv.size}
}

func (mv *MapView) pointer(x pointer.Event) {
	pos := point(x.Position)
	switch x.Kind {
	case pointer.Press:
		mv.Engine.Post(engine.PointerDown{Pos: pos, Button: button(x.Buttons)})
	case pointer.Drag:
		mv.Engine.Post(engine.PointerMove{Pos: pos})
	case pointer.Release:
		mv.Engine.Post(engine.PointerUp{Pos: pos})
	case pointer.Cancel:
		mv.Engine.Post(engine.PointerCancel{})
	case pointer.Scroll:
		switch {
		case x.Scroll.Y < 0:
			mv.Engine.Post(engine.Scroll{Pos: pos, Steps: 1})
		case x.Scroll.Y > 0:
			mv.Engine.Post(engine.Scroll{Pos: pos, Steps: -1})
		}
	}
}

func (mv *MapView) key(name key.Name) {
	switch name {
	case key.NameReturn, key.NameEnter:
		mv.Engine.Post(engine.Key{Name: engine.KeyEnter})
	case key.NameDeleteBackward:
		mv.Engine.Post(engine.Key{Name: engine.KeyBackspace})
	case key.NameEscape:
		mv.Engine.Post(engine.Key{Name: engine.KeyEscape})
	}
}

func point(p f32.Point) tiles.Point {
	return tiles.Pt(float64(p.X), float64(p.Y))
}

// button maps Gio buttons to controller buttons. Touch presses carry no
// button and count as primary.
func button(b pointer.Buttons) viewport.Button {
	switch {
	case b.Contain(pointer.ButtonSecondary):
		return viewport.ButtonSecondary
	case b.Contain(pointer.ButtonTertiary):
		return viewport.ButtonTertiary
	default:
		return viewport.ButtonPrimary
	}
}
