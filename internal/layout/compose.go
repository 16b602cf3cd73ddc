package layout

import (
	"fmt"
	"strings"

	"spacepanel/internal/canvas"
	"spacepanel/internal/model"
)

// Logical (landscape) panel size.
const (
	Width  = 296
	Height = 128
)

// Landscape layout: two label columns around a boxed centre.
const columnWidth = 60

var monoColumns = Columns{
	LeftX:    2,
	RightX:   Width - columnWidth + 2,
	TopY:     5,
	Pitch:    2 * LineHeight,
	MaxY:     Height,
	MaxLabel: 6,
}

const (
	colorWrapChars = 35
	colorTopY      = 5
	colorBottomPad = 3
)

var colorFooter = []string{
	"Mensen in de ruimte",
	"Humans in Space",
	"Gens dans l'espace",
}

// Compose draws content onto c, picking the layout from the number of
// planes: two planes get the colour layout with a red number, one plane
// the landscape layout with label columns. c is cleared first.
func Compose(c *canvas.Canvas, content model.Content) {
	clearAll(c)
	if c.Planes() >= 2 {
		composeColor(c, content)
		return
	}
	composeMono(c, content)
}

func composeMono(c *canvas.Canvas, content model.Content) {
	cx := c.Width() / 2
	DrawNumber(c, canvas.Black, content.Count, cx, 25)
	DrawCentered(c, canvas.Black, "HUMANS IN SPACE", cx, 95)

	left := columnWidth + 5
	right := c.Width() - columnWidth - 5
	c.StrokeRect(canvas.Black, left, 15, right-left, 95, canvas.Ink)

	var items []Item
	for _, g := range content.GroupByLabel() {
		items = append(items, Item{Label: g.Label, Count: g.Count()})
	}
	monoColumns.Draw(c, canvas.Black, items)
}

func composeColor(c *canvas.Canvas, content model.Content) {
	cx := c.Width() / 2

	var parts []string
	for _, g := range content.GroupByLabel() {
		parts = append(parts, fmt.Sprintf("%s (%d)", g.Label, g.Count()))
	}
	lines := Wrap(strings.Fields(strings.Join(parts, "  ")), colorWrapChars)
	top := DrawTextBlock(c, canvas.Black, lines, cx, colorTopY, LineHeight)

	bottom := c.Height() - len(colorFooter)*LineHeight - colorBottomPad
	DrawTextBlock(c, canvas.Black, colorFooter, cx, bottom, LineHeight)

	y := top + (bottom-top-DigitHeight)/2
	DrawNumber(c, canvas.Red, content.Count, cx, y)
}

// ComposeUnavailable draws the screen shown when no content could be
// fetched. The headline goes on the red plane when there is one.
func ComposeUnavailable(c *canvas.Canvas) {
	clearAll(c)
	headline := canvas.Red
	if c.Planes() < 2 {
		headline = canvas.Black
	}
	DrawText(c, headline, "Connection Error", 80, 50)
	DrawText(c, canvas.Black, "Check network", 95, 70)
}

func clearAll(c *canvas.Canvas) {
	for p := 0; p < c.Planes(); p++ {
		c.Clear(canvas.Plane(p), canvas.Blank)
	}
}
