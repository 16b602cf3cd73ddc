// Package canvas implements the bit-packed monochrome drawing surface the
// panel is rendered on.
//
// Packing rule (shared with the hardware buffers):
//
//   - row-major, 8 pixels per byte, most significant bit first
//   - byteIndex = y*Stride + x/8
//   - mask      = 0x80 >> (x % 8)
//   - bit 1 = background (blank), bit 0 = ink
package canvas

import "fmt"

// Bit is the value of a single pixel in a plane.
type Bit uint8

const (
	Ink   Bit = 0
	Blank Bit = 1
)

// Fill returns the byte value with all eight pixels set to b.
func (b Bit) Fill() byte {
	if b == Ink {
		return 0x00
	}
	return 0xFF
}

// Bitmap is one bit-packed plane. The zero value is an empty 0x0 bitmap.
type Bitmap struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewBitmap allocates a width x height bitmap filled with Blank.
func NewBitmap(width, height int) *Bitmap {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("canvas: invalid bitmap size %dx%d", width, height))
	}
	stride := (width + 7) / 8
	b := &Bitmap{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
	b.Fill(Blank)
	return b
}

// ByteLen reports the plane size in bytes for the given dimensions.
func ByteLen(width, height int) int {
	return (width + 7) / 8 * height
}

// Fill sets every byte, padding bits included, to bit.
func (b *Bitmap) Fill(bit Bit) {
	v := bit.Fill()
	for i := range b.Pix {
		b.Pix[i] = v
	}
}

func (b *Bitmap) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Set writes a single pixel. Writes outside the bitmap are dropped.
func (b *Bitmap) Set(x, y int, bit Bit) {
	if !b.inBounds(x, y) {
		clipped("set", x, y, b.Width, b.Height)
		return
	}
	i := y*b.Stride + x/8
	mask := byte(0x80 >> uint(x%8))
	if bit == Ink {
		b.Pix[i] &^= mask
	} else {
		b.Pix[i] |= mask
	}
}

// At reads a single pixel. Reads outside the bitmap return Blank.
func (b *Bitmap) At(x, y int) Bit {
	if !b.inBounds(x, y) {
		clipped("get", x, y, b.Width, b.Height)
		return Blank
	}
	if b.Pix[y*b.Stride+x/8]&(0x80>>uint(x%8)) != 0 {
		return Blank
	}
	return Ink
}

// FillRect fills the w x h rectangle at (x, y), clipped to the bitmap.
func (b *Bitmap) FillRect(x, y, w, h int, bit Bit) {
	if w <= 0 || h <= 0 {
		return
	}
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, b.Width), min(y+h, b.Height)
	if x0 >= x1 || y0 >= y1 {
		clipped("fill", x, y, b.Width, b.Height)
		return
	}
	for yy := y0; yy < y1; yy++ {
		row := b.Pix[yy*b.Stride : (yy+1)*b.Stride]
		for xx := x0; xx < x1; {
			// Whole bytes when aligned, single bits at the edges.
			if xx%8 == 0 && xx+8 <= x1 {
				row[xx/8] = bit.Fill()
				xx += 8
				continue
			}
			mask := byte(0x80 >> uint(xx%8))
			if bit == Ink {
				row[xx/8] &^= mask
			} else {
				row[xx/8] |= mask
			}
			xx++
		}
	}
}

// Clone returns a deep copy of b.
func (b *Bitmap) Clone() *Bitmap {
	c := *b
	c.Pix = append([]byte(nil), b.Pix...)
	return &c
}
