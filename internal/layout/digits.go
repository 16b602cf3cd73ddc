package layout

import (
	"strconv"

	"spacepanel/internal/canvas"
)

const (
	DigitWidth  = 35
	DigitHeight = 50
)

type rect struct{ x, y, w, h int }

// Segment glyphs inside a 30x50 box; the remaining 5 px of the cell are
// spacing. Bars are 8 px thick.
var digitSegments = [10][]rect{
	{{0, 0, 30, 8}, {0, 0, 8, 50}, {22, 0, 8, 50}, {0, 42, 30, 8}},
	{{22, 0, 8, 50}},
	{{0, 0, 30, 8}, {22, 0, 8, 25}, {0, 21, 30, 8}, {0, 25, 8, 25}, {0, 42, 30, 8}},
	{{0, 0, 30, 8}, {22, 0, 8, 25}, {0, 21, 30, 8}, {22, 25, 8, 25}, {0, 42, 30, 8}},
	{{0, 0, 8, 25}, {22, 0, 8, 50}, {0, 21, 30, 8}},
	{{0, 0, 30, 8}, {0, 0, 8, 25}, {0, 21, 30, 8}, {22, 25, 8, 25}, {0, 42, 30, 8}},
	{{0, 0, 30, 8}, {0, 0, 8, 50}, {0, 21, 30, 8}, {22, 25, 8, 25}, {0, 42, 30, 8}},
	{{0, 0, 30, 8}, {22, 0, 8, 50}},
	{{0, 0, 30, 8}, {0, 0, 8, 50}, {22, 0, 8, 50}, {0, 21, 30, 8}, {0, 42, 30, 8}},
	{{0, 0, 30, 8}, {0, 0, 8, 25}, {22, 0, 8, 50}, {0, 21, 30, 8}, {0, 42, 30, 8}},
}

var minusSegment = rect{0, 21, 30, 8}

// DrawDigit draws one segment glyph with its cell's top-left corner at
// (x, y). ch is '0'..'9' or '-'; anything else draws nothing.
func DrawDigit(c *canvas.Canvas, p canvas.Plane, ch byte, x, y int) {
	var segs []rect
	switch {
	case ch >= '0' && ch <= '9':
		segs = digitSegments[ch-'0']
	case ch == '-':
		segs = []rect{minusSegment}
	}
	for _, r := range segs {
		c.FillRect(p, x+r.x, y+r.y, r.w, r.h, canvas.Ink)
	}
}

// NumberOrigins returns the x of every digit cell when value is drawn
// centred on centerX.
func NumberOrigins(value, centerX int) []int {
	n := len(strconv.Itoa(value))
	start := centerX - n*DigitWidth/2
	xs := make([]int, n)
	for i := range xs {
		xs[i] = start + i*DigitWidth
	}
	return xs
}

// DrawNumber draws value in segment digits centred on centerX, cells
// starting at y.
func DrawNumber(c *canvas.Canvas, p canvas.Plane, value, centerX, y int) {
	s := strconv.Itoa(value)
	for i, x := range NumberOrigins(value, centerX) {
		DrawDigit(c, p, s[i], x, y)
	}
}
