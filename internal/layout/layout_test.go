package layout

import (
	"reflect"
	"testing"

	"spacepanel/internal/canvas"
	"spacepanel/internal/model"
)

func newCanvas(t *testing.T, w, h, planes int) *canvas.Canvas {
	t.Helper()
	c, err := canvas.New(w, h, planes)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// inkBounds returns the bounding box of all ink on plane p, ok=false when
// the plane is blank.
func inkBounds(c *canvas.Canvas, p canvas.Plane) (x0, y0, x1, y1 int, ok bool) {
	x0, y0 = c.Width(), c.Height()
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			if c.Pixel(p, x, y) != canvas.Ink {
				continue
			}
			ok = true
			x0, y0 = min(x0, x), min(y0, y)
			x1, y1 = max(x1, x+1), max(y1, y+1)
		}
	}
	return
}

func TestNumberOrigins(t *testing.T) {
	tests := []struct {
		value, centerX int
		want           []int
	}{
		{12, 148, []int{113, 148}},
		{7, 148, []int{131}},
		{123, 148, []int{96, 131, 166}},
		{0, 0, []int{-17}},
		{-5, 100, []int{65, 100}},
	}
	for _, tt := range tests {
		if got := NumberOrigins(tt.value, tt.centerX); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("NumberOrigins(%d, %d) = %v, want %v", tt.value, tt.centerX, got, tt.want)
		}
	}
}

func TestDrawNumberCentering(t *testing.T) {
	c := newCanvas(t, Width, Height, 1)
	DrawNumber(c, canvas.Black, 12, 148, 25)

	checks := []struct {
		x, y int
		want canvas.Bit
	}{
		{135, 25, canvas.Ink},   // '1' bar at cell 113 + 22
		{142, 74, canvas.Ink},   // bottom right of the '1' bar
		{113, 25, canvas.Blank}, // '1' has no top bar
		{134, 25, canvas.Blank},
		{147, 25, canvas.Blank}, // gap between cells
		{148, 25, canvas.Ink},   // '2' top bar starts its cell
		{177, 25, canvas.Ink},
		{178, 25, canvas.Blank},
		{148, 24, canvas.Blank},
		{148, 75, canvas.Blank},
	}
	for _, ck := range checks {
		if got := c.Pixel(canvas.Black, ck.x, ck.y); got != ck.want {
			t.Errorf("Pixel(%d,%d) = %d, want %d", ck.x, ck.y, got, ck.want)
		}
	}
}

func TestDigitGlyphsStayInCell(t *testing.T) {
	for _, ch := range []byte("0123456789-") {
		c := newCanvas(t, 60, 70, 1)
		DrawDigit(c, canvas.Black, ch, 5, 5)
		x0, y0, x1, y1, ok := inkBounds(c, canvas.Black)
		if !ok {
			t.Errorf("digit %q drew nothing", ch)
			continue
		}
		if x0 < 5 || y0 < 5 || x1 > 5+DigitWidth || y1 > 5+DigitHeight {
			t.Errorf("digit %q ink box (%d,%d)-(%d,%d) leaves its cell", ch, x0, y0, x1, y1)
		}
	}
}

func TestDrawText(t *testing.T) {
	c := newCanvas(t, 60, 40, 1)
	DrawText(c, canvas.Black, "H", 10, 10)
	x0, y0, x1, y1, ok := inkBounds(c, canvas.Black)
	if !ok {
		t.Fatal("DrawText drew nothing")
	}
	if x0 < 10 || y0 < 10 || x1 > 10+CharWidth || y1 > 10+LineHeight {
		t.Errorf("glyph ink (%d,%d)-(%d,%d) leaves its cell", x0, y0, x1, y1)
	}

	blank := newCanvas(t, 60, 40, 1)
	DrawText(blank, canvas.Black, "   ", 0, 0)
	if _, _, _, _, ok := inkBounds(blank, canvas.Black); ok {
		t.Error("spaces drew ink")
	}

	if got := TextWidth("HUMANS IN SPACE"); got != 120 {
		t.Errorf("TextWidth = %d, want 120", got)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		max    int
		want   []string
	}{
		{"boundary", []string{"ISS", "(7)", "Shenzhou", "(3)"}, 10, []string{"ISS (7)", "Shenzhou", "(3)"}},
		{"exact fit", []string{"abcd", "efgh"}, 9, []string{"abcd efgh"}},
		{"long token in the middle", []string{"a", "verylongtokenhere", "b"}, 5, []string{"a", "verylongtokenhere", "b"}},
		{"long leading token", []string{"verylongtoken", "x"}, 5, []string{"verylongtoken", "x"}},
		{"empty tokens skipped", []string{"", "a", ""}, 5, []string{"a"}},
		{"nothing", nil, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.tokens, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Wrap = %q, want %q", got, tt.want)
			}
			for _, l := range got {
				if len(l) > tt.max && !contains(tt.tokens, l) {
					t.Errorf("line %q exceeds %d chars and is not a single token", l, tt.max)
				}
			}
		})
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func TestTruncateLabel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ISS", "ISS"},
		{"Soyuz", "Soyuz"},
		{"Shenzh", "Shenzh"},
		{"Tiangong", "Tiang."},
	}
	for _, tt := range tests {
		if got := TruncateLabel(tt.in, 6); got != tt.want {
			t.Errorf("TruncateLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColumnsSplitAndLimit(t *testing.T) {
	items := []Item{{"A", 1}, {"B", 2}, {"C", 3}, {"D", 4}, {"E", 5}}
	left, right := SplitColumns(items)
	if len(left) != 3 || len(right) != 2 {
		t.Fatalf("split = %d/%d, want 3/2", len(left), len(right))
	}

	c := newCanvas(t, 200, 60, 1)
	cols := Columns{LeftX: 0, RightX: 100, TopY: 0, Pitch: 26, MaxY: 60, MaxLabel: 6}
	if got := cols.Draw(c, canvas.Black, items); got != 4 {
		t.Errorf("drawn = %d, want 4 (third left item does not fit)", got)
	}
	_, _, _, y1, _ := inkBounds(c, canvas.Black)
	if y1 > 52 {
		t.Errorf("ink reaches y=%d, past the last drawn row", y1)
	}
}

func issContent(n int) model.Content {
	var entries []model.Entry
	for i := 0; i < n; i++ {
		entries = append(entries, model.Entry{Label: "ISS", Name: "crew"})
	}
	return model.Content{Count: n, Entries: entries}
}

func TestComposeMono(t *testing.T) {
	c := newCanvas(t, Width, Height, 1)
	c.Clear(canvas.Black, canvas.Ink) // stale frame must be wiped
	Compose(c, issContent(3))

	checks := []struct {
		x, y int
		want canvas.Bit
	}{
		{65, 15, canvas.Ink},   // box corner
		{230, 109, canvas.Ink}, // opposite corner
		{131, 25, canvas.Ink},  // '3' top bar
		{148, 10, canvas.Blank},
		{64, 60, canvas.Blank},
	}
	for _, ck := range checks {
		if got := c.Pixel(canvas.Black, ck.x, ck.y); got != ck.want {
			t.Errorf("Pixel(%d,%d) = %d, want %d", ck.x, ck.y, got, ck.want)
		}
	}

	// The label column sits left of the box.
	found := false
	for y := 5; y < 5+2*LineHeight && !found; y++ {
		for x := 2; x < 60; x++ {
			if c.Pixel(canvas.Black, x, y) == canvas.Ink {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("left column is empty")
	}
}

func TestComposeColor(t *testing.T) {
	c := newCanvas(t, Width, Height, 2)
	Compose(c, issContent(3))

	// One wrapped line on top ends at 18; the footer starts at 86, so the
	// number sits at 18 + (86-18-50)/2 = 27.
	if got := c.Pixel(canvas.Red, 131, 27); got != canvas.Ink {
		t.Errorf("red number top-left = %d, want Ink", got)
	}
	if got := c.Pixel(canvas.Red, 131, 26); got != canvas.Blank {
		t.Errorf("above red number = %d, want Blank", got)
	}
	if got := c.Pixel(canvas.Black, 131, 27); got != canvas.Blank {
		t.Error("number leaked into the black plane")
	}
	_, y0, _, y1, ok := inkBounds(c, canvas.Black)
	if !ok || y0 < colorTopY || y1 > Height-colorBottomPad {
		t.Errorf("black text spans y %d..%d", y0, y1)
	}
}

func TestComposeUnavailable(t *testing.T) {
	mono := newCanvas(t, Width, Height, 1)
	ComposeUnavailable(mono)
	x0, y0, _, _, ok := inkBounds(mono, canvas.Black)
	if !ok || x0 < 80 || y0 < 50 {
		t.Errorf("mono error screen ink starts at (%d,%d), ok=%v", x0, y0, ok)
	}

	color := newCanvas(t, Width, Height, 2)
	ComposeUnavailable(color)
	if _, y0, _, y1, ok := inkBounds(color, canvas.Red); !ok || y0 < 50 || y1 > 50+LineHeight {
		t.Errorf("red headline spans y %d..%d, ok=%v", y0, y1, ok)
	}
	if _, y0, _, _, ok := inkBounds(color, canvas.Black); !ok || y0 < 70 {
		t.Errorf("black hint starts at y %d, ok=%v", y0, ok)
	}
}
