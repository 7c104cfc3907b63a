package engine

import (
	"image"

	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/viewport"
)

// Event is a host input event in viewport screen coordinates.
type Event interface {
	isEvent()
}

type PointerDown struct {
	Pos    tiles.Point
	Button viewport.Button
}

type PointerMove struct {
	Pos tiles.Point
}

type PointerUp struct {
	Pos tiles.Point
}

// PointerCancel aborts a gesture without a click.
type PointerCancel struct{}

// Scroll is a wheel event. Positive Steps zoom in.
type Scroll struct {
	Pos   tiles.Point
	Steps int
}

type Key struct {
	Name KeyName
}

// Resize moves the map to a new screen rectangle.
type Resize struct {
	Rect image.Rectangle
}

type KeyName string

const (
	KeyEnter     KeyName = "enter"
	KeyBackspace KeyName = "backspace"
	KeyEscape    KeyName = "escape"
)

func (PointerDown) isEvent()   {}
func (PointerMove) isEvent()   {}
func (PointerUp) isEvent()     {}
func (PointerCancel) isEvent() {}
func (Scroll) isEvent()        {}
func (Key) isEvent()           {}
func (Resize) isEvent()        {}
