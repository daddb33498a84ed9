package rules

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/regsuite/filings/core/sheet"
)

// Span is an inclusive 1-indexed interval. Open means the end is unbounded
// (the "*" form), in which case End is ignored.
type Span struct {
	Start int
	End   int
	Open  bool
}

// Contains reports whether n falls within the span.
func (s Span) Contains(n int) bool {
	if n < s.Start {
		return false
	}
	return s.Open || n <= s.End
}

// Box is an inclusive rectangular cell bound such as A2:Z100.
type Box struct {
	StartRow int
	EndRow   int
	StartCol int
	EndCol   int
}

// Contains reports whether the 1-indexed (row, col) coordinate falls inside
// the box.
func (b Box) Contains(row, col int) bool {
	return row >= b.StartRow && row <= b.EndRow && col >= b.StartCol && col <= b.EndCol
}

// Address is a rule's addressing resolved into evaluable form. Exactly one
// of the addressing modes is authoritative: Cell, then Rows/Cols, then
// AllRows, then the single Field cell.
type Address struct {
	// Cell is set when the rule carries a cell range.
	Cell *Box

	// Rows is set when the rule carries a row range.
	Rows *Span

	// Cols is set when the rule carries a column range.
	Cols *Span

	// AllRows is set for full-column scans without range fields.
	AllRows bool

	// FieldCell is set when Field itself is a fixed cell reference.
	FieldCell *Box

	// FieldCol is the column resolved from Field as a column letter,
	// 0 when Field is not a bare column reference.
	FieldCol int
}

// addressing grammars, modeled as lexer + struct-tag parsers.

var rangeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Col", Pattern: `[A-Za-z]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Star", Pattern: `\*`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

//nolint:govet // participle grammar tags are not standard struct tags
type cellRefPart struct {
	Col string `parser:"@Col"`
	Row int    `parser:"@Int"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type cellRangeGrammar struct {
	Start cellRefPart  `parser:"@@"`
	End   *cellRefPart `parser:"( \":\" @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type rowBoundPart struct {
	Star string `parser:"  @Star"`
	Row  *int   `parser:"| @Int"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type rowRangeGrammar struct {
	Start int           `parser:"@Int"`
	End   *rowBoundPart `parser:"( \"-\" @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type colRangeGrammar struct {
	Start string  `parser:"@Col"`
	End   *string `parser:"( \"-\" @Col )?"`
}

var cellRangeParser = participle.MustBuild[cellRangeGrammar](
	participle.Lexer(rangeLexer),
	participle.Elide("Whitespace"),
)

var rowRangeParser = participle.MustBuild[rowRangeGrammar](
	participle.Lexer(rangeLexer),
	participle.Elide("Whitespace"),
)

var colRangeParser = participle.MustBuild[colRangeGrammar](
	participle.Lexer(rangeLexer),
	participle.Elide("Whitespace"),
)

// ParseCellRange parses a cell range expression such as "A2:Z100" or a
// single cell "B5" into an inclusive Box.
func ParseCellRange(expr string) (*Box, error) {
	parsed, err := cellRangeParser.ParseString("", strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid cell range %q: %w", expr, err)
	}
	startCol, err := sheet.ColumnToOrdinal(parsed.Start.Col)
	if err != nil {
		return nil, fmt.Errorf("invalid cell range %q: %w", expr, err)
	}
	box := &Box{
		StartRow: parsed.Start.Row,
		EndRow:   parsed.Start.Row,
		StartCol: startCol,
		EndCol:   startCol,
	}
	if parsed.End != nil {
		endCol, err := sheet.ColumnToOrdinal(parsed.End.Col)
		if err != nil {
			return nil, fmt.Errorf("invalid cell range %q: %w", expr, err)
		}
		box.EndRow = parsed.End.Row
		box.EndCol = endCol
	}
	if box.StartRow < 1 || box.EndRow < box.StartRow || box.EndCol < box.StartCol {
		return nil, fmt.Errorf("invalid cell range %q: end precedes start", expr)
	}
	return box, nil
}

// ParseRowRange parses a row range expression such as "2-100", "5", or
// "10-*" into a Span.
func ParseRowRange(expr string) (*Span, error) {
	parsed, err := rowRangeParser.ParseString("", strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid row range %q: %w", expr, err)
	}
	if parsed.Start < 1 {
		return nil, fmt.Errorf("invalid row range %q: rows are 1-indexed", expr)
	}
	span := &Span{Start: parsed.Start, End: parsed.Start}
	if parsed.End != nil {
		if parsed.End.Star != "" {
			span.Open = true
			span.End = 0
		} else if parsed.End.Row != nil {
			span.End = *parsed.End.Row
			if span.End < span.Start {
				return nil, fmt.Errorf("invalid row range %q: end precedes start", expr)
			}
		}
	}
	return span, nil
}

// ParseColumnRange parses a column range expression such as "A-Z", "B", or
// "C-E" into a Span of column ordinals.
func ParseColumnRange(expr string) (*Span, error) {
	parsed, err := colRangeParser.ParseString("", strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid column range %q: %w", expr, err)
	}
	start, err := sheet.ColumnToOrdinal(parsed.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid column range %q: %w", expr, err)
	}
	span := &Span{Start: start, End: start}
	if parsed.End != nil {
		end, err := sheet.ColumnToOrdinal(*parsed.End)
		if err != nil {
			return nil, fmt.Errorf("invalid column range %q: %w", expr, err)
		}
		if end < start {
			return nil, fmt.Errorf("invalid column range %q: end precedes start", expr)
		}
		span.End = end
	}
	return span, nil
}

// ParseFieldRef interprets a rule's Field as a fixed cell reference ("A27")
// or a bare column letter ("C"). Returns (nil, 0) when the field is neither,
// in which case the caller should treat it as a named column header.
func ParseFieldRef(field string) (*Box, int) {
	f := strings.TrimSpace(field)
	if f == "" {
		return nil, 0
	}
	if box, err := ParseCellRange(f); err == nil && box.StartRow == box.EndRow && box.StartCol == box.EndCol {
		return box, 0
	}
	// Bare column letters only up to two characters; longer alphabetic
	// fields are almost certainly header names.
	if len(f) <= 2 {
		if col, err := sheet.ColumnToOrdinal(f); err == nil {
			return nil, col
		}
	}
	return nil, 0
}

// ResolveAddress parses the rule's addressing fields into an Address,
// honoring the precedence CellRange > RowRange/ColumnRange > ApplyToAllRows
// > single field. Malformed expressions fail closed: an error is returned
// and the rule must be skipped, never treated as matching everything.
func ResolveAddress(r *Rule) (*Address, error) {
	addr := &Address{}

	if strings.TrimSpace(r.CellRange) != "" {
		box, err := ParseCellRange(r.CellRange)
		if err != nil {
			return nil, err
		}
		addr.Cell = box
		return addr, nil
	}

	hasRows := strings.TrimSpace(r.RowRange) != ""
	hasCols := strings.TrimSpace(r.ColumnRange) != ""
	if hasRows {
		span, err := ParseRowRange(r.RowRange)
		if err != nil {
			return nil, err
		}
		addr.Rows = span
	}
	if hasCols {
		span, err := ParseColumnRange(r.ColumnRange)
		if err != nil {
			return nil, err
		}
		addr.Cols = span
	}

	fieldCell, fieldCol := ParseFieldRef(r.Field)
	addr.FieldCell = fieldCell
	addr.FieldCol = fieldCol

	if hasRows || hasCols {
		return addr, nil
	}

	addr.AllRows = r.ApplyToAllRows
	return addr, nil
}

// Matches reports whether the address selects the 1-indexed (row, col)
// coordinate. AllRows and single-field addresses match on column alone;
// the orchestrator bounds rows by the grid extent.
func (a *Address) Matches(row, col int) bool {
	if a.Cell != nil {
		return a.Cell.Contains(row, col)
	}
	if a.Rows != nil || a.Cols != nil {
		if a.Rows != nil && !a.Rows.Contains(row) {
			return false
		}
		if a.Cols != nil && !a.Cols.Contains(col) {
			return false
		}
		if a.Cols == nil && a.FieldCol > 0 && col != a.FieldCol {
			return false
		}
		return true
	}
	if a.FieldCell != nil {
		return a.FieldCell.Contains(row, col)
	}
	if a.FieldCol > 0 {
		if col != a.FieldCol {
			return false
		}
		return a.AllRows || row == 1
	}
	return false
}
