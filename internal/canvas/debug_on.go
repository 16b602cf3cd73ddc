//go:build canvasdebug

package canvas

import "fmt"

// clipped panics in canvasdebug builds so layout mistakes surface during
// development instead of being swallowed.
func clipped(op string, x, y, w, h int) {
	panic(fmt.Sprintf("canvas: %s at (%d,%d) outside %dx%d", op, x, y, w, h))
}
