package cubemap

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Resize scales an image to the given dimensions with Catmull-Rom
// interpolation. Returns the source unchanged if it already matches.
func Resize(src *image.NRGBA, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cubemap: resize target %dx%d out of range", width, height)
	}
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return src, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, nil
}
