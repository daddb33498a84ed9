package engine

import (
	"sort"
	"testing"

	"github.com/regsuite/filings/core/rules"
	"github.com/regsuite/filings/core/sheet"
)

func testGrid() *sheet.Grid {
	return sheet.NewGrid("Summary", [][]string{
		{"Name", "Revenue", "Currency"},
		{"Acme Ltd", "1200.50", "USD"},
		{"Beta GmbH", "", "EUR"},
		{"Gamma SA", "abc", ""},
	})
}

func failing(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.IsValid {
			out = append(out, r)
		}
	}
	return out
}

func TestRun_SingleCellRange(t *testing.T) {
	grid := testGrid()
	ruleSet := []rules.Rule{{
		ID:        "r1",
		Type:      rules.TypeCell,
		Field:     "Revenue",
		Condition: "NOT_EMPTY",
		Severity:  rules.SeverityError,
		CellRange: "B3:B3",
	}}

	summary := Run("sub-1", grid, ruleSet)

	if len(summary.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(summary.Results))
	}
	res := summary.Results[0]
	if res.IsValid {
		t.Error("B3 is empty, expected failure")
	}
	if res.CellReference != "B3" {
		t.Errorf("CellReference = %q, want B3", res.CellReference)
	}
	if res.RowNumber != 3 || res.ColumnNumber != 2 {
		t.Errorf("coordinate = (%d, %d), want (3, 2)", res.RowNumber, res.ColumnNumber)
	}
	if summary.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", summary.Status)
	}
}

// A rule whose field is a fixed cell reference beyond the grid's extent is
// still evaluated there and fails, rather than being silently dropped.
func TestRun_FieldCellBeyondExtent(t *testing.T) {
	grid := sheet.NewGrid("S1", [][]string{
		{"a", "b"},
		{"c", "d"},
	})
	ruleSet := []rules.Rule{{
		ID:        "r-a27",
		Type:      rules.TypeCell,
		Field:     "A27",
		Condition: "NOT_EMPTY",
		Severity:  rules.SeverityError,
	}}

	summary := Run("sub-2", grid, ruleSet)

	if len(summary.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(summary.Results))
	}
	res := summary.Results[0]
	if res.IsValid {
		t.Error("out-of-extent cell reads empty, expected failure")
	}
	if res.RowNumber != 27 {
		t.Errorf("RowNumber = %d, want 27", res.RowNumber)
	}
	if res.ColumnName != "A" {
		t.Errorf("ColumnName = %q, want A", res.ColumnName)
	}
	if res.CellValue != "" {
		t.Errorf("CellValue = %q, want empty", res.CellValue)
	}
	if len(summary.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v, want none", summary.Diagnostics)
	}
}

// An open row range starting past the last row still addresses its start row.
func TestRun_OpenRowRangePastExtent(t *testing.T) {
	grid := sheet.NewGrid("S1", [][]string{
		{"h"}, {"1"}, {"2"}, {"3"}, {"4"},
	})
	ruleSet := []rules.Rule{{
		ID:        "r-open",
		Type:      rules.TypeRequired,
		Field:     "A",
		Condition: "NOT_EMPTY",
		Severity:  rules.SeverityError,
		RowRange:  "10-*",
	}}

	summary := Run("sub-3", grid, ruleSet)

	if len(summary.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(summary.Results))
	}
	res := summary.Results[0]
	if res.RowNumber != 10 {
		t.Errorf("RowNumber = %d, want 10", res.RowNumber)
	}
	if res.IsValid {
		t.Error("row 10 of a 5-row sheet reads empty, expected failure")
	}
}

func TestRun_ApplyToAllRows(t *testing.T) {
	grid := testGrid()
	ruleSet := []rules.Rule{{
		ID:             "r-col",
		Type:           rules.TypeRequired,
		Field:          "Currency",
		Condition:      "NOT_EMPTY",
		Severity:       rules.SeverityError,
		ApplyToAllRows: true,
	}}

	summary := Run("sub-4", grid, ruleSet)

	if len(summary.Results) != grid.RowCount() {
		t.Fatalf("len(Results) = %d, want %d", len(summary.Results), grid.RowCount())
	}
	failed := failing(summary.Results)
	if len(failed) != 1 {
		t.Fatalf("failing results = %d, want 1", len(failed))
	}
	if failed[0].RowNumber != 4 {
		t.Errorf("failing RowNumber = %d, want 4", failed[0].RowNumber)
	}
	if failed[0].ColumnNumber != 3 {
		t.Errorf("failing ColumnNumber = %d, want 3", failed[0].ColumnNumber)
	}
}

func TestRun_AddressingPrecedence(t *testing.T) {
	// CellRange wins over the row range and the all-rows flag: only the
	// single boxed cell is evaluated.
	grid := testGrid()
	ruleSet := []rules.Rule{{
		ID:             "r-prec",
		Type:           rules.TypeCell,
		Field:          "Revenue",
		Condition:      "NOT_EMPTY",
		Severity:       rules.SeverityError,
		CellRange:      "B2",
		RowRange:       "1-4",
		ApplyToAllRows: true,
	}}

	summary := Run("sub-5", grid, ruleSet)

	if len(summary.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(summary.Results))
	}
	if summary.Results[0].CellReference != "B2" {
		t.Errorf("CellReference = %q, want B2", summary.Results[0].CellReference)
	}
	if !summary.Passed() {
		t.Error("B2 holds a value, expected pass")
	}
}

func TestRun_MalformedAddressingIsDiagnosed(t *testing.T) {
	grid := testGrid()
	ruleSet := []rules.Rule{
		{
			ID:        "r-bad",
			Type:      rules.TypeCell,
			Field:     "Revenue",
			Condition: "NOT_EMPTY",
			Severity:  rules.SeverityError,
			CellRange: "Z10:A1",
		},
		{
			ID:        "r-good",
			Type:      rules.TypeCell,
			Field:     "Revenue",
			Condition: "NOT_EMPTY",
			Severity:  rules.SeverityError,
			CellRange: "B2",
		},
	}

	summary := Run("sub-6", grid, ruleSet)

	if len(summary.Diagnostics) != 1 {
		t.Fatalf("len(Diagnostics) = %d, want 1", len(summary.Diagnostics))
	}
	if summary.Diagnostics[0].RuleID != "r-bad" {
		t.Errorf("diagnostic RuleID = %q, want r-bad", summary.Diagnostics[0].RuleID)
	}
	// The malformed rule is skipped entirely; the good rule still runs.
	if len(summary.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(summary.Results))
	}
	if summary.Results[0].RuleID != "r-good" {
		t.Errorf("RuleID = %q, want r-good", summary.Results[0].RuleID)
	}
	if summary.Status != StatusPassed {
		t.Errorf("Status = %q, want passed: diagnostics do not fail a run", summary.Status)
	}
}

func TestRun_UnresolvableFieldIsDiagnosed(t *testing.T) {
	grid := testGrid()
	ruleSet := []rules.Rule{{
		ID:             "r-missing",
		Type:           rules.TypeRequired,
		Field:          "NoSuchHeader",
		Condition:      "NOT_EMPTY",
		Severity:       rules.SeverityError,
		ApplyToAllRows: true,
	}}

	summary := Run("sub-7", grid, ruleSet)

	if len(summary.Results) != 0 {
		t.Fatalf("len(Results) = %d, want 0", len(summary.Results))
	}
	if len(summary.Diagnostics) != 1 {
		t.Fatalf("len(Diagnostics) = %d, want 1", len(summary.Diagnostics))
	}
}

// A row-range rule whose field matches no header is diagnosed and skipped;
// it never falls back to scanning every column of the sheet.
func TestRun_RowRangeUnresolvableFieldIsDiagnosed(t *testing.T) {
	grid := sheet.NewGrid("Summary", [][]string{
		{"Name", "Revenue", "Notes"},
		{"Acme Ltd", "1200.50", ""},
		{"Beta GmbH", "900.00", ""},
	})
	ruleSet := []rules.Rule{{
		ID:        "r-typo",
		Type:      rules.TypeRequired,
		Field:     "Revenu",
		Condition: "NOT_EMPTY",
		Severity:  rules.SeverityError,
		RowRange:  "2-3",
	}}

	summary := Run("sub-13", grid, ruleSet)

	if len(summary.Results) != 0 {
		t.Fatalf("len(Results) = %d, want 0", len(summary.Results))
	}
	if len(summary.Diagnostics) != 1 {
		t.Fatalf("len(Diagnostics) = %d, want 1", len(summary.Diagnostics))
	}
	if summary.Diagnostics[0].RuleID != "r-typo" {
		t.Errorf("diagnostic RuleID = %q, want r-typo", summary.Diagnostics[0].RuleID)
	}
	if summary.Status != StatusPassed {
		t.Errorf("Status = %q, want passed: a field typo must not fail the submission", summary.Status)
	}
}

func TestRun_SeverityAggregation(t *testing.T) {
	grid := sheet.NewGrid("S1", [][]string{
		{"", "", ""},
		{"", ""},
	})
	ruleSet := []rules.Rule{
		{ID: "e1", Type: rules.TypeCell, Field: "x", Condition: "NOT_EMPTY",
			Severity: rules.SeverityError, CellRange: "A1:C1"},
		{ID: "w1", Type: rules.TypeCell, Field: "y", Condition: "NOT_EMPTY",
			Severity: rules.SeverityWarning, CellRange: "A2:B2"},
	}

	summary := Run("sub-8", grid, ruleSet)

	if summary.ErrorCount != 3 {
		t.Errorf("ErrorCount = %d, want 3", summary.ErrorCount)
	}
	if summary.WarningCount != 2 {
		t.Errorf("WarningCount = %d, want 2", summary.WarningCount)
	}
	if summary.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", summary.Status)
	}
}

func TestRun_WarningsAloneDoNotFail(t *testing.T) {
	grid := sheet.NewGrid("S1", [][]string{{""}})
	ruleSet := []rules.Rule{{
		ID: "w-only", Type: rules.TypeCell, Field: "x", Condition: "NOT_EMPTY",
		Severity: rules.SeverityWarning, CellRange: "A1",
	}}

	summary := Run("sub-9", grid, ruleSet)

	if summary.WarningCount != 1 {
		t.Errorf("WarningCount = %d, want 1", summary.WarningCount)
	}
	if !summary.Passed() {
		t.Error("warnings alone must not fail the submission")
	}
}

func TestRun_SheetScoping(t *testing.T) {
	grids := []*sheet.Grid{
		sheet.NewGrid("Assets", [][]string{{""}}),
		sheet.NewGrid("Liabilities", [][]string{{""}}),
	}
	ruleSet := []rules.Rule{{
		ID: "scoped", Type: rules.TypeCell, Field: "x", Condition: "NOT_EMPTY",
		Severity: rules.SeverityError, CellRange: "A1", SheetID: "Assets",
	}}

	summary := RunAll("sub-10", grids, ruleSet)

	if len(summary.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(summary.Results))
	}
	if summary.Results[0].SheetName != "Assets" {
		t.Errorf("SheetName = %q, want Assets", summary.Results[0].SheetName)
	}
}

func TestRun_DefaultMessage(t *testing.T) {
	grid := sheet.NewGrid("S1", [][]string{{""}})
	ruleSet := []rules.Rule{{
		ID: "nomsg", Type: rules.TypeCell, Field: "TotalAssets",
		Condition: "NOT_EMPTY", Severity: rules.SeverityError, CellRange: "A1",
	}}

	summary := Run("sub-11", grid, ruleSet)

	if got := summary.Results[0].Message; got != "validation failed for TotalAssets" {
		t.Errorf("Message = %q", got)
	}
}

// Two runs of the same inputs agree on everything except the run id.
func TestRun_Deterministic(t *testing.T) {
	grid := testGrid()
	ruleSet := []rules.Rule{
		{ID: "r1", Type: rules.TypeRequired, Field: "Revenue",
			Condition: "NOT_EMPTY", Severity: rules.SeverityError, RowRange: "2-4"},
		{ID: "r2", Type: rules.TypeFormat, Field: "Revenue",
			Condition: "numeric", Severity: rules.SeverityWarning, RowRange: "2-4"},
	}

	a := Run("sub-12", grid, ruleSet)
	b := Run("sub-12", grid, ruleSet)

	if a.Status != b.Status || a.ErrorCount != b.ErrorCount || a.WarningCount != b.WarningCount {
		t.Fatalf("verdicts differ: %+v vs %+v", a, b)
	}
	if len(a.Results) != len(b.Results) {
		t.Fatalf("len(Results) = %d vs %d", len(a.Results), len(b.Results))
	}
	key := func(r Result) string { return r.RuleID + "/" + r.CellReference }
	ra, rb := append([]Result(nil), a.Results...), append([]Result(nil), b.Results...)
	sort.Slice(ra, func(i, j int) bool { return key(ra[i]) < key(ra[j]) })
	sort.Slice(rb, func(i, j int) bool { return key(rb[i]) < key(rb[j]) })
	for i := range ra {
		if ra[i] != rb[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, ra[i], rb[i])
		}
	}
}
