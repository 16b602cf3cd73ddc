//go:build !canvasdebug

package canvas

// clipped is a no-op in regular builds: drawing outside the surface is
// silently dropped so a layout mistake never takes the device down.
func clipped(op string, x, y, w, h int) {}
