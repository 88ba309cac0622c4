package sheets

import (
	"fmt"

	"github.com/ecomstack/ecomdash-sync/internal/normalize"
)

// ColumnLetter converts a 0-based column index to A1 letters: 0 -> A,
// 25 -> Z, 26 -> AA.
func ColumnLetter(n int) string {
	s := ""
	for n >= 0 {
		s = string(rune('A'+n%26)) + s
		n = n/26 - 1
	}
	return s
}

// RowRange addresses one full row: Orders!A5:AZ5.
func RowRange(sheet string, row int, lastCol int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, ColumnLetter(lastCol), row)
}

// ColumnRange addresses a single column's data rows, 1-based inclusive.
func ColumnRange(sheet string, col, startRow, endRow int) string {
	l := ColumnLetter(col)
	return fmt.Sprintf("%s!%s%d:%s%d", sheet, l, startRow, l, endRow)
}

// HeaderRange addresses the header row of a sheet.
func HeaderRange(sheet string) string {
	return fmt.Sprintf("%s!1:1", sheet)
}

// FindColumn returns the index of the first header cell matching any of the
// accepted alias spellings, compared case- and whitespace-insensitively, or
// -1 when none match.
func FindColumn(header []string, aliases []string) int {
	byNorm := make(map[string]int, len(header))
	for i, h := range header {
		k := normalize.NormalizeHeader(h)
		if _, ok := byNorm[k]; !ok {
			byNorm[k] = i
		}
	}
	for _, a := range aliases {
		if idx, ok := byNorm[normalize.NormalizeHeader(a)]; ok {
			return idx
		}
	}
	return -1
}
