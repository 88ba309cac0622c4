// Package sheetdiff classifies freshly produced rows against a snapshot of
// rows already persisted in a destination sheet, so callers can issue the
// minimal set of append and update writes.
package sheetdiff

import (
	"fmt"
	"strings"
)

// KeyFunc derives the dedup key for a row. Returning "" marks the row as
// keyless; keyless rows are ignored on both sides, which guards against
// stray blank rows in the sheet.
type KeyFunc func(row []string) string

// KeyColumn keys rows on a single column's trimmed value.
func KeyColumn(idx int) KeyFunc {
	return func(row []string) string {
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
}

// CompositeKey joins several columns' trimmed values. The key is empty when
// every part is empty.
func CompositeKey(idxs ...int) KeyFunc {
	return func(row []string) string {
		parts := make([]string, 0, len(idxs))
		empty := true
		for _, i := range idxs {
			var v string
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			if v != "" {
				empty = false
			}
			parts = append(parts, v)
		}
		if empty {
			return ""
		}
		return strings.Join(parts, "|")
	}
}

// Update is a targeted rewrite of an existing row.
type Update struct {
	// RowIndex is the 1-based sheet row the existing record occupies.
	RowIndex int
	Row      []string
}

// Result is the exact three-way partition of the incoming rows.
type Result struct {
	Appends [][]string
	Updates []Update
	Skips   [][]string
}

// Partition classifies each incoming row as append (key absent from the
// snapshot), update (key present, content differs), or skip (key present,
// content identical after normalization). Update positions are 1-based
// indexes into the snapshot as read, header rows included, so they can be
// used directly in A1 ranges.
func Partition(existing [][]string, incoming [][]string, key KeyFunc) Result {
	type slot struct {
		index int
		row   []string
	}

	byKey := make(map[string]slot, len(existing))
	for i, row := range existing {
		k := key(row)
		if k == "" {
			continue
		}
		if _, dup := byKey[k]; dup {
			// First occurrence wins, matching the sync tools' first-match
			// rule for duplicate master rows.
			continue
		}
		byKey[k] = slot{index: i + 1, row: row}
	}

	var res Result
	seen := make(map[string]bool, len(incoming))

	for _, row := range incoming {
		k := key(row)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true

		prev, ok := byKey[k]
		if !ok {
			res.Appends = append(res.Appends, row)
			continue
		}

		if rowsEqual(prev.row, row) {
			res.Skips = append(res.Skips, row)
			continue
		}

		res.Updates = append(res.Updates, Update{RowIndex: prev.index, Row: row})
	}

	return res
}

// rowsEqual compares field-by-field in column order after stringify+trim
// normalization, so type formatting differences alone never count as a
// change. Missing trailing cells compare equal to empty cells.
func rowsEqual(a, b []string) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if normalizeCell(a, i) != normalizeCell(b, i) {
			return false
		}
	}
	return true
}

func normalizeCell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Normalize stringifies and trims arbitrary cell values into the canonical
// comparison form used by Partition.
func Normalize(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
