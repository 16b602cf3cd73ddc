// Package layout draws the panel's content onto a canvas: segment digits,
// fixed-cell text, character-wrapped text blocks and the two-column craft
// list.
package layout

import (
	"image"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"spacepanel/internal/canvas"
)

const (
	// CharWidth is the fixed horizontal cell of one character. Glyphs are
	// 7 px wide; the extra column keeps letters apart.
	CharWidth = 8
	// LineHeight is the vertical cell of one text line.
	LineHeight = 13
)

var face = basicfont.Face7x13

// TextWidth reports the pixel width of s in fixed character cells.
func TextWidth(s string) int {
	return utf8.RuneCountInString(s) * CharWidth
}

// DrawText draws s with the top-left corner of its first cell at (x, y).
// Only ink is written; the background is left untouched.
func DrawText(c *canvas.Canvas, p canvas.Plane, s string, x, y int) {
	cell := image.NewAlpha(image.Rect(0, 0, CharWidth, LineHeight))
	i := 0
	for _, r := range s {
		if r != ' ' {
			for j := range cell.Pix {
				cell.Pix[j] = 0
			}
			d := font.Drawer{
				Dst:  cell,
				Src:  image.Opaque,
				Face: face,
				Dot:  fixed.P(0, face.Ascent),
			}
			d.DrawString(string(r))
			blit(c, p, cell, x+i*CharWidth, y)
		}
		i++
	}
}

// DrawCentered draws s horizontally centred on centerX.
func DrawCentered(c *canvas.Canvas, p canvas.Plane, s string, centerX, y int) {
	DrawText(c, p, s, centerX-TextWidth(s)/2, y)
}

func blit(c *canvas.Canvas, p canvas.Plane, cell *image.Alpha, x, y int) {
	b := cell.Bounds()
	for py := b.Min.Y; py < b.Max.Y; py++ {
		for px := b.Min.X; px < b.Max.X; px++ {
			if cell.AlphaAt(px, py).A >= 0x80 {
				c.SetPixel(p, x+px, y+py, canvas.Ink)
			}
		}
	}
}
