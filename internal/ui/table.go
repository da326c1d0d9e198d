package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Column configures a column in the table.
type Column struct {
	Header       string
	MaxWidth     int    // 0 = unlimited
	Ellipsis     string // default: "…"
	PaddingRight int    // default: 2 spaces
}

// Table renders rows of plain text columns, left-aligned, with end
// truncation when a column has MaxWidth set.
type Table struct {
	columns []Column
	rows    [][]string

	ShowHeader    bool
	ShowSeparator bool
}

func NewTable(columns ...Column) *Table {
	for i := range columns {
		if columns[i].PaddingRight == 0 {
			columns[i].PaddingRight = 2
		}
		if columns[i].Ellipsis == "" {
			columns[i].Ellipsis = "…"
		}
	}
	return &Table{
		columns:       columns,
		ShowHeader:    true,
		ShowSeparator: true,
	}
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range t.columns {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Render(w io.Writer) {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		widths[i] = utf8.RuneCountInString(col.Header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			cell = t.truncate(i, cell)
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	if t.ShowHeader {
		for i, col := range t.columns {
			fmt.Fprint(w, pad(col.Header, widths[i]+col.PaddingRight))
		}
		fmt.Fprintln(w)
		if t.ShowSeparator {
			for i, col := range t.columns {
				fmt.Fprint(w, pad(strings.Repeat("-", widths[i]), widths[i]+col.PaddingRight))
			}
			fmt.Fprintln(w)
		}
	}

	for _, row := range t.rows {
		for i, cell := range row {
			fmt.Fprint(w, pad(t.truncate(i, cell), widths[i]+t.columns[i].PaddingRight))
		}
		fmt.Fprintln(w)
	}
}

func (t *Table) truncate(col int, cell string) string {
	max := t.columns[col].MaxWidth
	if max <= 0 || utf8.RuneCountInString(cell) <= max {
		return cell
	}
	ellipsis := t.columns[col].Ellipsis
	runes := []rune(cell)
	keep := max - utf8.RuneCountInString(ellipsis)
	if keep < 1 {
		keep = 1
	}
	return string(runes[:keep]) + ellipsis
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
