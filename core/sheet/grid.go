// Package sheet provides the read-only tabular model for submitted reports.
// A Grid is produced by an external file-processing collaborator; the
// validation engine never mutates it. Rows and columns are 1-indexed to match
// spreadsheet convention.
package sheet

import "strings"

// Grid is an immutable ordered sequence of rows, each an ordered sequence of
// cell values. Cells outside the grid's extent read as empty strings.
type Grid struct {
	name string
	rows [][]string
	cols int
}

// NewGrid builds a Grid from raw rows. The rows are copied so later mutation
// of the caller's slices cannot affect the grid.
func NewGrid(name string, rows [][]string) *Grid {
	copied := make([][]string, len(rows))
	cols := 0
	for i, row := range rows {
		copied[i] = make([]string, len(row))
		copy(copied[i], row)
		if len(row) > cols {
			cols = len(row)
		}
	}
	return &Grid{name: name, rows: copied, cols: cols}
}

// Name returns the sheet name.
func (g *Grid) Name() string {
	return g.name
}

// RowCount returns the number of rows in the grid.
func (g *Grid) RowCount() int {
	return len(g.rows)
}

// ColumnCount returns the width of the widest row.
func (g *Grid) ColumnCount() int {
	return g.cols
}

// Cell returns the value at the 1-indexed (row, column) coordinate. The
// second return value reports whether the coordinate lies within the grid's
// extent; an out-of-extent coordinate yields an empty value, not an error.
func (g *Grid) Cell(row, col int) (string, bool) {
	if row < 1 || col < 1 || row > len(g.rows) {
		return "", false
	}
	r := g.rows[row-1]
	if col > len(r) {
		return "", false
	}
	return r[col-1], true
}

// ColumnByHeader resolves a named field to a column number by matching the
// first row's values. Matching is case-insensitive on trimmed text. Returns
// false when no header matches.
func (g *Grid) ColumnByHeader(field string) (int, bool) {
	if len(g.rows) == 0 {
		return 0, false
	}
	want := strings.ToLower(strings.TrimSpace(field))
	for i, v := range g.rows[0] {
		if strings.ToLower(strings.TrimSpace(v)) == want {
			return i + 1, true
		}
	}
	return 0, false
}
