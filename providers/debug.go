package providers

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/olablt/gio-fieldmap/tiles"
)

var (
	debugBackground = color.RGBA{200, 220, 255, 255}
	debugLabel      = color.RGBA{255, 255, 255, 220}
	debugBorder     = color.RGBA{100, 100, 100, 255}
)

// Debug draws a labelled placeholder for every tile: its z/x/y key and the
// lon/lat of its north-west corner. It never fails and needs no network.
type Debug struct {
	Size int
}

func NewDebug(size int) *Debug {
	if size <= 0 {
		size = tiles.DefaultTileSize
	}
	return &Debug{Size: size}
}

func (d *Debug) Fetch(ctx context.Context, tile tiles.Tile) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := d.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(debugBackground), image.Point{}, draw.Src)

	bound := tile.Maptile().Bound()
	lines := []string{
		tile.String(),
		fmt.Sprintf("%.3f,%.3f", bound.Min.Lon(), bound.Max.Lat()),
	}

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	padding := 6
	width := 0
	for _, line := range lines {
		width = max(width, font.MeasureString(face, line).Ceil())
	}
	height := lineHeight * len(lines)
	top := (size - height) / 2
	bg := image.Rect((size-width)/2-padding, top-padding, (size+width)/2+padding, top+height+padding)
	draw.Draw(img, bg, image.NewUniform(debugLabel), image.Point{}, draw.Over)

	dr := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for i, line := range lines {
		w := font.MeasureString(face, line).Ceil()
		dr.Dot = fixed.P((size-w)/2, top+(i+1)*lineHeight-face.Descent)
		dr.DrawString(line)
	}

	// frame
	border := image.NewUniform(debugBorder)
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, size, 1),
		image.Rect(0, size-1, size, size),
		image.Rect(0, 0, 1, size),
		image.Rect(size-1, 0, size, size),
	} {
		draw.Draw(img, r, border, image.Point{}, draw.Src)
	}
	return img, nil
}
