package render

import (
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Style holds the colours and sizes used to draw a frame.
type Style struct {
	Background  color.Color
	Placeholder color.Color
	Grid        color.Color
	GridStep    int

	Fill         color.Color
	Stroke       color.Color
	StrokeWidth  float64
	Vertex       color.Color
	VertexRadius float64

	Marker       color.Color
	MarkerRadius float64

	Label     color.Color
	LabelBack color.Color
	Face      font.Face
}

func DefaultStyle() Style {
	return Style{
		Background:  color.RGBA{14, 40, 22, 255},
		Placeholder: color.RGBA{80, 120, 80, 255},
		Grid:        color.RGBA{70, 100, 70, 255},
		GridStep:    64,

		Fill:         color.NRGBA{150, 210, 150, 90},
		Stroke:       color.RGBA{150, 210, 150, 255},
		StrokeWidth:  4,
		Vertex:       color.RGBA{0, 200, 0, 255},
		VertexRadius: 6,

		Marker:       color.RGBA{255, 220, 60, 255},
		MarkerRadius: 8,

		Label:     color.RGBA{230, 230, 230, 255},
		LabelBack: color.NRGBA{0, 0, 0, 140},
		Face:      basicfont.Face7x13,
	}
}
