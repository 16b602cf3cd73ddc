package canvas

import "fmt"

// Plane selects one colour channel of a Canvas.
type Plane int

const (
	Black Plane = iota
	Red
)

func (p Plane) String() string {
	switch p {
	case Black:
		return "black"
	case Red:
		return "red"
	default:
		return fmt.Sprintf("plane(%d)", int(p))
	}
}

// Canvas is the logical drawing surface: one or two planes of identical
// size. A plane the canvas does not have behaves like an out-of-range
// coordinate: writes are dropped and reads return Blank.
type Canvas struct {
	width  int
	height int
	planes []*Bitmap
}

// New allocates a canvas with the given number of planes (1 or 2), all
// cleared to Blank.
func New(width, height, planes int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: invalid size %dx%d", width, height)
	}
	if planes < 1 || planes > 2 {
		return nil, fmt.Errorf("canvas: unsupported plane count %d", planes)
	}
	c := &Canvas{width: width, height: height}
	for i := 0; i < planes; i++ {
		c.planes = append(c.planes, NewBitmap(width, height))
	}
	return c, nil
}

func (c *Canvas) Width() int { return c.width }
func (c *Canvas) Height() int { return c.height }

// Planes reports how many planes the canvas carries.
func (c *Canvas) Planes() int { return len(c.planes) }

// Bitmap returns the storage of plane p, or nil if the canvas has no such
// plane.
func (c *Canvas) Bitmap(p Plane) *Bitmap {
	if p < 0 || int(p) >= len(c.planes) {
		return nil
	}
	return c.planes[p]
}

func (c *Canvas) Clear(p Plane, bit Bit) {
	if b := c.Bitmap(p); b != nil {
		b.Fill(bit)
	}
}

func (c *Canvas) SetPixel(p Plane, x, y int, bit Bit) {
	if b := c.Bitmap(p); b != nil {
		b.Set(x, y, bit)
	}
}

func (c *Canvas) Pixel(p Plane, x, y int) Bit {
	if b := c.Bitmap(p); b != nil {
		return b.At(x, y)
	}
	return Blank
}

func (c *Canvas) FillRect(p Plane, x, y, w, h int, bit Bit) {
	if b := c.Bitmap(p); b != nil {
		b.FillRect(x, y, w, h, bit)
	}
}

// StrokeRect draws the one pixel wide outline of the w x h rectangle.
func (c *Canvas) StrokeRect(p Plane, x, y, w, h int, bit Bit) {
	if w <= 0 || h <= 0 {
		return
	}
	c.FillRect(p, x, y, w, 1, bit)
	c.FillRect(p, x, y+h-1, w, 1, bit)
	c.FillRect(p, x, y, 1, h, bit)
	c.FillRect(p, x+w-1, y, 1, h, bit)
}

// Clone returns a deep copy of c.
func (c *Canvas) Clone() *Canvas {
	out := &Canvas{width: c.width, height: c.height}
	for _, b := range c.planes {
		out.planes = append(out.planes, b.Clone())
	}
	return out
}
