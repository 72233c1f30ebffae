package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// roundColumn is one column of the plain rounds table. Level is the only
// right-aligned column.
type roundColumn struct {
	title string
	right bool
	width int
}

func roundColumnsFor(rows [][]string) []roundColumn {
	cols := make([]roundColumn, len(RoundTableHeaders))
	for i, title := range RoundTableHeaders {
		cols[i] = roundColumn{title: title, right: title == "Level", width: runewidth.StringWidth(title)}
	}
	for _, row := range rows {
		for i := range cols {
			if i < len(row) {
				cols[i].width = max(cols[i].width, runewidth.StringWidth(row[i]))
			}
		}
	}
	return cols
}

// roundTableLines lays out the header and rows with single-space gutters,
// measuring cells by terminal width so wide runes stay aligned.
func roundTableLines(rows [][]string) []string {
	cols := roundColumnsFor(rows)
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinRoundCells(cols, RoundTableHeaders))
	for _, row := range rows {
		lines = append(lines, joinRoundCells(cols, row))
	}
	return lines
}

func joinRoundCells(cols []roundColumn, cells []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if col.right {
			parts[i] = runewidth.FillLeft(cell, col.width)
		} else {
			parts[i] = runewidth.FillRight(cell, col.width)
		}
	}
	return strings.Join(parts, " ")
}
