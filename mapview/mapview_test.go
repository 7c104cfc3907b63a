package mapview

import (
	"image"
	"testing"

	"gioui.org/f32"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"github.com/stretchr/testify/assert"

	"github.com/olablt/gio-fieldmap/engine"
	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/viewport"
)

func TestButton(t *testing.T) {
	assert.Equal(t, viewport.ButtonPrimary, button(pointer.ButtonPrimary))
	assert.Equal(t, viewport.ButtonPrimary, button(0))
	assert.Equal(t, viewport.ButtonSecondary, button(pointer.ButtonSecondary))
	assert.Equal(t, viewport.ButtonTertiary, button(pointer.ButtonTertiary))
}

func TestPointerAndKeyTranslation(t *testing.T) {
	vp := viewport.New(tiles.LatLng{Lat: 28.6139, Lng: 77.2090}, 12, image.Rect(0, 0, 800, 600))
	var located []tiles.Point
	e := engine.New(vp, nil, engine.WithCallbacks(engine.Callbacks{
		OnLocate: func(_ tiles.LatLng, screen tiles.Point) { located = append(located, screen) },
	}))
	mv := New(e, 0)
	assert.Equal(t, 60, mv.TickHz)

	mv.pointer(pointer.Event{Kind: pointer.Press, Position: f32.Pt(120, 80), Buttons: pointer.ButtonPrimary})
	mv.pointer(pointer.Event{Kind: pointer.Release, Position: f32.Pt(120, 80)})
	mv.pointer(pointer.Event{Kind: pointer.Scroll, Position: f32.Pt(400, 300), Scroll: f32.Pt(0, -1)})
	e.Frame()

	assert.Equal(t, []tiles.Point{{X: 120, Y: 80}}, located)
	assert.Equal(t, 13, vp.Zoom())

	mv.key(key.NameReturn)
	e.Frame()
	assert.Equal(t, engine.ModeEdit, e.Mode())
	mv.key(key.NameEscape)
	e.Frame()
	assert.Equal(t, engine.ModeNavigate, e.Mode())
}
