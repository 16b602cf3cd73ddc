package layout

import (
	"unicode/utf8"

	"spacepanel/internal/canvas"
)

// Wrap packs tokens greedily into lines of at most maxChars characters,
// joining them with single spaces. A token longer than maxChars is never
// split or truncated; it gets a line of its own. Empty lines are never
// produced.
func Wrap(tokens []string, maxChars int) []string {
	var (
		lines []string
		cur   string
	)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if cur == "" {
			cur = tok
			continue
		}
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(tok) <= maxChars {
			cur += " " + tok
			continue
		}
		lines = append(lines, cur)
		cur = tok
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// DrawTextBlock draws lines centred on centerX, one every lineHeight pixels
// starting at y. It returns the y just below the last line.
func DrawTextBlock(c *canvas.Canvas, p canvas.Plane, lines []string, centerX, y, lineHeight int) int {
	for _, l := range lines {
		DrawCentered(c, p, l, centerX, y)
		y += lineHeight
	}
	return y
}
