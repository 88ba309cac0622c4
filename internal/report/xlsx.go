package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ecomstack/ecomdash-sync/internal/normalize"
)

// Report layout constants. Column indexes are 0-based positions in the
// exported XLSX.
const (
	ordersHeaderRows = 2
	salesHeaderRows  = 1

	invoiceDateCol   = 5
	paymentDateCol   = 6
	orderNotesCol    = 36
	completedDateCol = 41

	// ordersRowWidth is the exported column count; rows are padded to it so
	// positional writes stay aligned.
	ordersRowWidth = 42

	salesSKUCol = 2
	salesUPCCol = 3
)

var ordersDateCols = []int{invoiceDateCol, paymentDateCol, completedDateCol}

// ParseXLSX extracts the first worksheet as string rows.
func ParseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(names[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", names[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", names[0])
	}
	return rows, nil
}

// transformOrders reshapes the orders report for the masterfile: data rows
// are padded to the full column width, the three date columns become
// spreadsheet serials, order notes lose embedded line breaks, and rows sort
// by invoice date descending. The two header rows pass through untouched.
func transformOrders(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for i, row := range rows {
		if i < ordersHeaderRows {
			out = append(out, row)
			continue
		}

		row = padRow(row, ordersRowWidth)
		for _, col := range ordersDateCols {
			row[col] = serialCell(row[col])
		}
		row[orderNotesCol] = normalize.CleanText(row[orderNotesCol])
		out = append(out, row)
	}

	data := out[min(ordersHeaderRows, len(out)):]
	sort.SliceStable(data, func(i, j int) bool {
		return invoiceSerial(data[i]) > invoiceSerial(data[j])
	})

	return out
}

// transformSales keeps only data rows carrying a SKU or UPC and stamps
// every row with the requested range and the generation timestamp. The
// single header row gains matching column titles.
func transformSales(rows [][]string, from, to, generated string) [][]string {
	out := make([][]string, 0, len(rows))
	for i, row := range rows {
		if i < salesHeaderRows {
			out = append(out, append(row, "Start Date", "End Date", "Date Generated"))
			continue
		}
		if cellAt(row, salesSKUCol) == "" && cellAt(row, salesUPCCol) == "" {
			continue
		}
		out = append(out, append(row, from, to, generated))
	}
	return out
}

// serialCell converts one date cell to its spreadsheet serial string. A
// value that is already numeric is assumed to be a serial and kept; a parseable
// date converts; anything else clears to empty so a stale cell never
// survives as text.
func serialCell(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return text
	}
	if d, ok := normalize.ParseDate(text); ok {
		return strconv.FormatFloat(normalize.DateToExcelSerial(d), 'f', -1, 64)
	}
	return ""
}

func invoiceSerial(row []string) float64 {
	v, err := strconv.ParseFloat(cellAt(row, invoiceDateCol), 64)
	if err != nil {
		return 0
	}
	return v
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
