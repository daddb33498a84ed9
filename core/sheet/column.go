package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnToOrdinal converts a spreadsheet column letter string to its
// 1-indexed ordinal ("A" = 1, "Z" = 26, "AA" = 27). Lowercase input is
// accepted. Returns an error for empty or non-alphabetic input.
func ColumnToOrdinal(letters string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(letters))
	if s == "" {
		return 0, fmt.Errorf("empty column reference")
	}
	n := 0
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column reference %q", letters)
		}
		n = n*26 + int(r-'A') + 1
	}
	return n, nil
}

// OrdinalToColumn converts a 1-indexed column ordinal to its spreadsheet
// letter form (1 = "A", 26 = "Z", 27 = "AA"). Returns "" for n < 1.
func OrdinalToColumn(n int) string {
	if n < 1 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// CellRef formats a 1-indexed (row, column) coordinate as a spreadsheet
// reference such as "B5".
func CellRef(row, col int) string {
	return OrdinalToColumn(col) + strconv.Itoa(row)
}
