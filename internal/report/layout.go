package report

import (
	"strings"

	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/width"
)

// Layout sizes columns and rows after a report has been assembled.
type Layout struct {
	MaxColumnWidth float64
	ColumnPadding  float64
	MinRowHeight   float64
	MaxRowHeight   float64
	LineHeight     float64
}

// DefaultLayout returns the stock report layout.
func DefaultLayout() Layout {
	return Layout{
		MaxColumnWidth: 40,
		ColumnPadding:  5,
		MinRowHeight:   15,
		MaxRowHeight:   60,
		LineHeight:     15,
	}
}

// ColumnWidth returns the column width for the widest cell of a column.
func (l Layout) ColumnWidth(displayWidth int) float64 {
	return min(float64(displayWidth), l.MaxColumnWidth) + l.ColumnPadding
}

// RowHeight returns the row height for cells whose text spans the given
// number of newlines at most.
func (l Layout) RowHeight(newlines int) float64 {
	h := l.LineHeight * float64(newlines+1)
	return max(min(h, l.MaxRowHeight), l.MinRowHeight)
}

// Apply sizes every column and row of sh and turns on wrapping for every
// cell, keeping any alignment already set.
func (l Layout) Apply(sh *xlsx.Sheet) {
	var widths []int
	for _, row := range sh.Rows {
		if row == nil {
			continue
		}
		newlines := 0
		for i, cell := range row.Cells {
			text := cell.String()
			if i >= len(widths) {
				widths = append(widths, make([]int, i-len(widths)+1)...)
			}
			widths[i] = max(widths[i], DisplayWidth(text))
			newlines = max(newlines, strings.Count(text, "\n"))
			wrap(cell)
		}
		row.SetHeight(l.RowHeight(newlines))
	}

	// Col ranges are 1-based.
	for i, w := range widths {
		sh.SetColWidth(i+1, i+1, l.ColumnWidth(w))
	}
}

// DisplayWidth returns the width of the longest line of s in terminal
// columns. Wide and fullwidth East Asian runes count as two columns.
func DisplayWidth(s string) int {
	widest := 0
	for line := range strings.SplitSeq(s, "\n") {
		n := 0
		for _, r := range line {
			switch width.LookupRune(r).Kind() {
			case width.EastAsianWide, width.EastAsianFullwidth:
				n += 2
			default:
				n++
			}
		}
		widest = max(widest, n)
	}
	return widest
}

func wrap(cell *xlsx.Cell) {
	style := cell.GetStyle()
	style.Alignment.WrapText = true
	style.ApplyAlignment = true
}
