package rules

import "testing"

func TestParseCellRange(t *testing.T) {
	tests := []struct {
		in      string
		want    Box
		wantErr bool
	}{
		{"A2:Z100", Box{StartRow: 2, EndRow: 100, StartCol: 1, EndCol: 26}, false},
		{"B5", Box{StartRow: 5, EndRow: 5, StartCol: 2, EndCol: 2}, false},
		{"AA1:AB3", Box{StartRow: 1, EndRow: 3, StartCol: 27, EndCol: 28}, false},
		{" C1:C50 ", Box{StartRow: 1, EndRow: 50, StartCol: 3, EndCol: 3}, false},
		{"Z10:A1", Box{}, true},
		{"2-100", Box{}, true},
		{"", Box{}, true},
		{"A0:B2", Box{}, true},
		{"A2:Z", Box{}, true},
	}

	for _, tt := range tests {
		got, err := ParseCellRange(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCellRange(%q) = %+v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCellRange(%q) failed: %v", tt.in, err)
			continue
		}
		if *got != tt.want {
			t.Errorf("ParseCellRange(%q) = %+v, want %+v", tt.in, *got, tt.want)
		}
	}
}

func TestParseRowRange(t *testing.T) {
	tests := []struct {
		in      string
		want    Span
		wantErr bool
	}{
		{"2-100", Span{Start: 2, End: 100}, false},
		{"5", Span{Start: 5, End: 5}, false},
		{"10-*", Span{Start: 10, Open: true}, false},
		{"100-2", Span{}, true},
		{"0", Span{}, true},
		{"A-Z", Span{}, true},
		{"", Span{}, true},
		{"*-10", Span{}, true},
	}

	for _, tt := range tests {
		got, err := ParseRowRange(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRowRange(%q) = %+v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRowRange(%q) failed: %v", tt.in, err)
			continue
		}
		if *got != tt.want {
			t.Errorf("ParseRowRange(%q) = %+v, want %+v", tt.in, *got, tt.want)
		}
	}
}

func TestParseColumnRange(t *testing.T) {
	tests := []struct {
		in      string
		want    Span
		wantErr bool
	}{
		{"A-Z", Span{Start: 1, End: 26}, false},
		{"B", Span{Start: 2, End: 2}, false},
		{"C-E", Span{Start: 3, End: 5}, false},
		{"E-C", Span{}, true},
		{"1-5", Span{}, true},
		{"", Span{}, true},
	}

	for _, tt := range tests {
		got, err := ParseColumnRange(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColumnRange(%q) = %+v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColumnRange(%q) failed: %v", tt.in, err)
			continue
		}
		if *got != tt.want {
			t.Errorf("ParseColumnRange(%q) = %+v, want %+v", tt.in, *got, tt.want)
		}
	}
}

func TestParseFieldRef(t *testing.T) {
	tests := []struct {
		in       string
		wantCell bool
		wantCol  int
	}{
		{"A27", true, 0},
		{"B5", true, 0},
		{"C", false, 3},
		{"AA", false, 27},
		{"TotalAssets", false, 0},
		{"Total Assets", false, 0},
		{"", false, 0},
	}

	for _, tt := range tests {
		cell, col := ParseFieldRef(tt.in)
		if (cell != nil) != tt.wantCell {
			t.Errorf("ParseFieldRef(%q) cell = %v, want cell %v", tt.in, cell, tt.wantCell)
		}
		if col != tt.wantCol {
			t.Errorf("ParseFieldRef(%q) col = %d, want %d", tt.in, col, tt.wantCol)
		}
	}
}

func TestResolveAddress_Precedence(t *testing.T) {
	// CellRange wins over row/column ranges and ApplyToAllRows.
	rule := &Rule{
		Field:          "B",
		CellRange:      "B2:B2",
		RowRange:       "1-100",
		ColumnRange:    "A-Z",
		ApplyToAllRows: true,
	}
	addr, err := ResolveAddress(rule)
	if err != nil {
		t.Fatalf("ResolveAddress failed: %v", err)
	}
	if addr.Cell == nil {
		t.Fatal("expected cell range addressing")
	}
	if addr.Rows != nil || addr.Cols != nil {
		t.Error("cell range should suppress row/column ranges")
	}
	if !addr.Matches(2, 2) {
		t.Error("B2 should match B2:B2")
	}
	if addr.Matches(2, 3) || addr.Matches(3, 2) {
		t.Error("cells outside B2:B2 matched")
	}
}

func TestResolveAddress_MalformedFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"bad cell range", Rule{Field: "A", CellRange: "not-a-range"}},
		{"bad row range", Rule{Field: "A", RowRange: "ten-*"}},
		{"bad column range", Rule{Field: "A", ColumnRange: "1-9"}},
		{"reversed row range", Rule{Field: "A", RowRange: "9-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ResolveAddress(&tt.rule)
			if err == nil {
				t.Fatalf("ResolveAddress(%+v) = %+v, want error", tt.rule, addr)
			}
		})
	}
}

func TestAddress_RowAndColumnRanges(t *testing.T) {
	rule := &Rule{Field: "ignored", RowRange: "2-4", ColumnRange: "B-C"}
	addr, err := ResolveAddress(rule)
	if err != nil {
		t.Fatalf("ResolveAddress failed: %v", err)
	}

	tests := []struct {
		row, col int
		want     bool
	}{
		{2, 2, true},
		{4, 3, true},
		{1, 2, false},
		{5, 2, false},
		{3, 1, false},
		{3, 4, false},
	}
	for _, tt := range tests {
		if got := addr.Matches(tt.row, tt.col); got != tt.want {
			t.Errorf("Matches(%d,%d) = %v, want %v", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestAddress_OpenRowRange(t *testing.T) {
	rule := &Rule{Field: "A", RowRange: "10-*"}
	addr, err := ResolveAddress(rule)
	if err != nil {
		t.Fatalf("ResolveAddress failed: %v", err)
	}
	if !addr.Matches(10, 1) || !addr.Matches(5000, 1) {
		t.Error("open row range should match rows from 10 upward")
	}
	if addr.Matches(9, 1) {
		t.Error("open row range matched row below start")
	}
	if addr.Matches(10, 2) {
		t.Error("field column A should restrict matches to column 1")
	}
}
