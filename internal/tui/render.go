// Package tui provides the Bubble Tea game interface.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/recall/internal/format"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildDigitRunes styles a sequence in chunked groups separated by spaces.
func buildDigitRunes(seq string, chunk int, style lipgloss.Style) []styledRune {
	marks := make([]format.Mark, 0, len(seq))
	for _, r := range seq {
		marks = append(marks, format.Mark{Char: r})
	}
	return buildMarkRunes(marks, chunk, style, style)
}

// buildMarkRunes styles answer marks, chunked like the target.
func buildMarkRunes(marks []format.Mark, chunk int, okStyle, badStyle lipgloss.Style) []styledRune {
	lengths := format.ChunkLengths(len(marks), chunk)
	out := make([]styledRune, 0, len(marks)+len(lengths))
	pos := 0
	for gi, l := range lengths {
		if gi > 0 {
			out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		}
		for _, m := range marks[pos : pos+l] {
			style := okStyle
			if m.Mismatch {
				style = badStyle
			}
			out = append(out, styledRune{
				s:     style.Render(string(m.Char)),
				width: runewidth.RuneWidth(m.Char),
			})
		}
		pos += l
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at group separators so no line exceeds width.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
