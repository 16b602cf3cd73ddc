// Package convert moves pixels between the logical landscape canvas and the
// panel's native portrait addressing order.
package convert

import (
	"fmt"

	"spacepanel/internal/canvas"
)

// Rotate90 writes src rotated 90° clockwise into dst.
//
// src is the logical W x H plane, dst the physical H x W buffer. Logical
// pixel (x, y) lands on physical pixel (y, W-1-x). Every destination byte is
// assembled from scratch, so dst needs no pre-fill; padding bits past the
// last column are set to Blank.
func Rotate90(dst, src *canvas.Bitmap) error {
	if err := checkTransposed(dst, src); err != nil {
		return err
	}
	w := src.Width
	for py := 0; py < dst.Height; py++ {
		x := w - 1 - py
		srcMask := byte(0x80 >> uint(x%8))
		srcCol := x / 8
		row := dst.Pix[py*dst.Stride : (py+1)*dst.Stride]
		for bx := range row {
			var out byte
			for k := 0; k < 8; k++ {
				y := bx*8 + k
				// Physical column y is logical row y.
				if y >= src.Height || src.Pix[y*src.Stride+srcCol]&srcMask != 0 {
					out |= 0x80 >> uint(k)
				}
			}
			row[bx] = out
		}
	}
	return nil
}

// Rotate270 is the inverse of Rotate90: src is the physical H x W buffer,
// dst the logical W x H plane. Physical pixel (px, py) lands on logical
// pixel (W-1-py, px).
func Rotate270(dst, src *canvas.Bitmap) error {
	if err := checkTransposed(src, dst); err != nil {
		return err
	}
	w := dst.Width
	for y := 0; y < dst.Height; y++ {
		row := dst.Pix[y*dst.Stride : (y+1)*dst.Stride]
		srcMask := byte(0x80 >> uint(y%8))
		srcCol := y / 8
		for bx := range row {
			var out byte
			for k := 0; k < 8; k++ {
				x := bx*8 + k
				if x >= w || src.Pix[(w-1-x)*src.Stride+srcCol]&srcMask != 0 {
					out |= 0x80 >> uint(k)
				}
			}
			row[bx] = out
		}
	}
	return nil
}

// Portrait allocates the physical buffer for a logical plane and fills it
// via Rotate90.
func Portrait(src *canvas.Bitmap) *canvas.Bitmap {
	dst := canvas.NewBitmap(src.Height, src.Width)
	// Shapes match by construction.
	_ = Rotate90(dst, src)
	return dst
}

func checkTransposed(phys, logical *canvas.Bitmap) error {
	if phys == nil || logical == nil {
		return fmt.Errorf("convert: nil bitmap")
	}
	if phys.Width != logical.Height || phys.Height != logical.Width {
		return fmt.Errorf("convert: physical %dx%d is not the transpose of logical %dx%d",
			phys.Width, phys.Height, logical.Width, logical.Height)
	}
	if len(phys.Pix) != canvas.ByteLen(phys.Width, phys.Height) ||
		len(logical.Pix) != canvas.ByteLen(logical.Width, logical.Height) {
		return fmt.Errorf("convert: bitmap storage does not match its dimensions")
	}
	return nil
}
