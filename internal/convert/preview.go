package convert

import (
	"image"
	"image/color"

	"spacepanel/internal/canvas"
)

var (
	previewWhite = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	previewBlack = color.NRGBA{A: 0xFF}
	previewRed   = color.NRGBA{R: 0xD0, G: 0x10, B: 0x10, A: 0xFF}
)

// Preview renders the canvas the way the panel shows it: red ink wins over
// black ink, everything else is white. The result has the logical
// (landscape) orientation.
func Preview(c *canvas.Canvas) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.Width(), c.Height()))
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			col := previewWhite
			switch {
			case c.Pixel(canvas.Red, x, y) == canvas.Ink:
				col = previewRed
			case c.Pixel(canvas.Black, x, y) == canvas.Ink:
				col = previewBlack
			}
			i := img.PixOffset(x, y)
			img.Pix[i+0] = col.R
			img.Pix[i+1] = col.G
			img.Pix[i+2] = col.B
			img.Pix[i+3] = col.A
		}
	}
	return img
}
