// Package engine runs a submission's rule set against its sheet grids and
// aggregates the resulting violations into a submission verdict.
package engine

import (
	"github.com/google/uuid"

	"github.com/regsuite/filings/core/rules"
	"github.com/regsuite/filings/core/sheet"
	"github.com/regsuite/filings/internal/logging"
)

// Status is a submission's overall validation verdict.
type Status string

// Status constants. A submission fails iff it has at least one
// error-severity violation; warnings alone do not fail it.
const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Result records the evaluation of one (rule, coordinate) pair. Exactly one
// Result is produced per evaluated pair and never mutated afterwards.
type Result struct {
	// SubmissionID identifies the submission this result belongs to.
	SubmissionID string `json:"submission_id"`

	// RuleID is the evaluated rule's identifier.
	RuleID string `json:"rule_id,omitempty"`

	// Field is the rule's target field.
	Field string `json:"field"`

	// RuleType is the rule's category.
	RuleType rules.RuleType `json:"rule_type,omitempty"`

	// Condition is the rule's raw condition string.
	Condition string `json:"condition,omitempty"`

	// CellReference is the spreadsheet-style reference, e.g. "B5".
	CellReference string `json:"cell_reference,omitempty"`

	// CellValue is the resolved cell value; empty for absent cells.
	CellValue string `json:"cell_value"`

	// Message is the failure message; empty when the check passed.
	Message string `json:"message"`

	// Severity is the rule's severity.
	Severity rules.Severity `json:"severity"`

	// IsValid reports whether the cell satisfied the condition.
	IsValid bool `json:"is_valid"`

	// SheetName names the sheet the cell belongs to.
	SheetName string `json:"sheet_name,omitempty"`

	// RowNumber is the 1-indexed row.
	RowNumber int `json:"row_number,omitempty"`

	// ColumnNumber is the 1-indexed column.
	ColumnNumber int `json:"column_number,omitempty"`

	// ColumnName is the spreadsheet column letter, e.g. "A".
	ColumnName string `json:"column_name,omitempty"`
}

// Diagnostic records a rule-authoring problem (malformed addressing or an
// unresolvable field). Diagnostics are surfaced to reviewers but excluded
// from the submission's pass/fail determination.
type Diagnostic struct {
	RuleID    string `json:"rule_id"`
	Field     string `json:"field,omitempty"`
	SheetName string `json:"sheet_name,omitempty"`
	Message   string `json:"message"`
}

// Summary aggregates one validation run.
type Summary struct {
	// RunID uniquely identifies this validation run.
	RunID string `json:"run_id"`

	// SubmissionID identifies the validated submission.
	SubmissionID string `json:"submission_id"`

	// Status is passed or failed.
	Status Status `json:"status"`

	// ErrorCount is the number of failing error-severity results.
	ErrorCount int `json:"error_count"`

	// WarningCount is the number of failing warning-severity results.
	WarningCount int `json:"warning_count"`

	// Results holds one entry per evaluated (rule, coordinate) pair.
	Results []Result `json:"results"`

	// Diagnostics holds rule-authoring problems found during the run.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Passed reports whether the submission may proceed to report generation.
func (s *Summary) Passed() bool {
	return s.Status == StatusPassed
}

// coord is a concrete 1-indexed grid coordinate.
type coord struct {
	row int
	col int
}

// Run validates a single sheet grid against the rule set and returns the
// complete summary. Rules whose SheetID names a different sheet are skipped.
func Run(submissionID string, grid *sheet.Grid, ruleSet []rules.Rule) *Summary {
	return RunAll(submissionID, []*sheet.Grid{grid}, ruleSet)
}

// RunAll validates every sheet of a submission. Each applicable rule is
// expanded to its concrete coordinates, each coordinate's value is resolved
// from the grid (absent cells read as empty, and are still evaluated), and
// exactly one Result is emitted per (rule, coordinate) pair. A malformed
// rule yields a diagnostic and is skipped; it never aborts the run.
func RunAll(submissionID string, grids []*sheet.Grid, ruleSet []rules.Rule) *Summary {
	summary := &Summary{
		RunID:        uuid.New().String(),
		SubmissionID: submissionID,
		Results:      []Result{},
	}

	for _, grid := range grids {
		for i := range ruleSet {
			rule := &ruleSet[i]
			if !rule.AppliesToSheet(grid.Name()) {
				continue
			}
			evaluateRule(summary, rule, grid)
		}
	}

	for _, res := range summary.Results {
		if res.IsValid {
			continue
		}
		switch res.Severity {
		case rules.SeverityWarning:
			summary.WarningCount++
		default:
			summary.ErrorCount++
		}
	}

	if summary.ErrorCount > 0 {
		summary.Status = StatusFailed
	} else {
		summary.Status = StatusPassed
	}

	logging.ValidationRun(summary.RunID, submissionID, string(summary.Status),
		summary.ErrorCount, summary.WarningCount,
		"results", len(summary.Results),
		"diagnostics", len(summary.Diagnostics))
	return summary
}

// evaluateRule expands one rule against one grid and appends its results.
func evaluateRule(summary *Summary, rule *rules.Rule, grid *sheet.Grid) {
	addr, err := rules.ResolveAddress(rule)
	if err != nil {
		summary.Diagnostics = append(summary.Diagnostics, Diagnostic{
			RuleID:    rule.ID,
			Field:     rule.Field,
			SheetName: grid.Name(),
			Message:   err.Error(),
		})
		logging.RuleDiagnostic(rule.ID, grid.Name(), err)
		return
	}

	coords, ok := expand(addr, rule, grid)
	if !ok {
		summary.Diagnostics = append(summary.Diagnostics, Diagnostic{
			RuleID:    rule.ID,
			Field:     rule.Field,
			SheetName: grid.Name(),
			Message:   "field " + rule.Field + " does not resolve to a column",
		})
		return
	}

	cond := rules.ParseCondition(rule.Type, rule.Condition)

	for _, c := range coords {
		value, _ := grid.Cell(c.row, c.col)
		valid := cond.Evaluate(value, c.row, c.col)

		res := Result{
			SubmissionID:  summary.SubmissionID,
			RuleID:        rule.ID,
			Field:         rule.Field,
			RuleType:      rule.Type,
			Condition:     rule.Condition,
			CellReference: sheet.CellRef(c.row, c.col),
			CellValue:     value,
			Severity:      rule.Severity,
			IsValid:       valid,
			SheetName:     grid.Name(),
			RowNumber:     c.row,
			ColumnNumber:  c.col,
			ColumnName:    sheet.OrdinalToColumn(c.col),
		}
		if !valid {
			res.Message = rule.ErrorMessage
			if res.Message == "" {
				res.Message = "validation failed for " + rule.Field
			}
		}
		summary.Results = append(summary.Results, res)
	}
}

// expand resolves an address to the concrete coordinate set for the grid.
// Explicitly ranged coordinates beyond the grid extent are included, so a
// rule addressing row 27 of a 2-row sheet still evaluates (and fails) there.
// Returns ok=false when the rule's field cannot be resolved to a column yet
// a column is required.
func expand(addr *rules.Address, rule *rules.Rule, grid *sheet.Grid) ([]coord, bool) {
	// Cell range: every cell of the explicit box.
	if addr.Cell != nil {
		var coords []coord
		for r := addr.Cell.StartRow; r <= addr.Cell.EndRow; r++ {
			for c := addr.Cell.StartCol; c <= addr.Cell.EndCol; c++ {
				coords = append(coords, coord{r, c})
			}
		}
		return coords, true
	}

	fieldCol := addr.FieldCol
	if fieldCol == 0 && addr.FieldCell == nil {
		if col, found := grid.ColumnByHeader(rule.Field); found {
			fieldCol = col
		}
	}

	// Independent row/column ranges.
	if addr.Rows != nil || addr.Cols != nil {
		rowStart, rowEnd := 1, grid.RowCount()
		if addr.Rows != nil {
			rowStart = addr.Rows.Start
			rowEnd = addr.Rows.End
			if addr.Rows.Open {
				rowEnd = grid.RowCount()
				if rowEnd < rowStart {
					// Open range past the sheet's extent: the start
					// row is still addressed and must be evaluated.
					rowEnd = rowStart
				}
			}
		}

		var colStart, colEnd int
		switch {
		case addr.Cols != nil:
			colStart, colEnd = addr.Cols.Start, addr.Cols.End
			if addr.Cols.Open {
				colEnd = grid.ColumnCount()
				if colEnd < colStart {
					colEnd = colStart
				}
			}
		case fieldCol > 0:
			colStart, colEnd = fieldCol, fieldCol
		case addr.FieldCell != nil:
			colStart, colEnd = addr.FieldCell.StartCol, addr.FieldCell.EndCol
		default:
			// A row range needs its column from the field. An
			// unresolvable field is a rule-authoring error, never an
			// implicit scan of every column.
			return nil, false
		}

		var coords []coord
		for r := rowStart; r <= rowEnd; r++ {
			for c := colStart; c <= colEnd; c++ {
				coords = append(coords, coord{r, c})
			}
		}
		return coords, true
	}

	// Full-column scan.
	if addr.AllRows {
		col := fieldCol
		if col == 0 && addr.FieldCell != nil {
			col = addr.FieldCell.StartCol
		}
		if col == 0 {
			return nil, false
		}
		var coords []coord
		for r := 1; r <= grid.RowCount(); r++ {
			coords = append(coords, coord{r, col})
		}
		return coords, true
	}

	// Single-cell field reference.
	if addr.FieldCell != nil {
		return []coord{{addr.FieldCell.StartRow, addr.FieldCell.StartCol}}, true
	}
	if fieldCol > 0 {
		return []coord{{1, fieldCol}}, true
	}
	return nil, false
}
