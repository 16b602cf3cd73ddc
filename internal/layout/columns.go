package layout

import (
	"fmt"
	"unicode/utf8"

	"spacepanel/internal/canvas"
)

// Item is one row of the column list.
type Item struct {
	Label string
	Count int
}

// Columns places the two-column list. Each item takes two text lines
// (label, then "(count)") and advances by Pitch.
type Columns struct {
	LeftX  int
	RightX int
	TopY   int
	Pitch  int
	// MaxY is the bottom limit: an item is drawn only if it ends at or
	// above it.
	MaxY int
	// MaxLabel is the longest label drawn as is; longer ones are cut to
	// MaxLabel-1 characters plus ".".
	MaxLabel int
}

// SplitColumns splits items at ceil(n/2).
func SplitColumns(items []Item) (left, right []Item) {
	mid := (len(items) + 1) / 2
	return items[:mid], items[mid:]
}

// TruncateLabel shortens s to fit an n-character column.
func TruncateLabel(s string, n int) string {
	if n <= 1 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "."
}

// Draw renders items and reports how many were drawn. Items that would
// run past MaxY are dropped.
func (l Columns) Draw(c *canvas.Canvas, p canvas.Plane, items []Item) int {
	left, right := SplitColumns(items)
	return l.drawColumn(c, p, left, l.LeftX) + l.drawColumn(c, p, right, l.RightX)
}

func (l Columns) drawColumn(c *canvas.Canvas, p canvas.Plane, items []Item, x int) int {
	y := l.TopY
	drawn := 0
	for _, it := range items {
		if y+l.Pitch > l.MaxY {
			break
		}
		DrawText(c, p, TruncateLabel(it.Label, l.MaxLabel), x, y)
		DrawText(c, p, fmt.Sprintf("(%d)", it.Count), x, y+LineHeight)
		y += l.Pitch
		drawn++
	}
	return drawn
}
