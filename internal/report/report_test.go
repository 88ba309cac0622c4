package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

type recordingGateway struct {
	readRows [][]string
	readErr  error

	appended [][]any
	updates  []sheets.ValueRange
	cleared  []string
}

func (g *recordingGateway) ReadRange(context.Context, string, string) ([][]string, error) {
	return g.readRows, g.readErr
}

func (g *recordingGateway) AppendRows(_ context.Context, _, _ string, rows [][]any, _ sheets.ValueInput) error {
	g.appended = append(g.appended, rows...)
	return nil
}

func (g *recordingGateway) UpdateRange(context.Context, string, string, [][]any, sheets.ValueInput) error {
	return nil
}

func (g *recordingGateway) BatchUpdate(_ context.Context, _ string, data []sheets.ValueRange, _ sheets.ValueInput) error {
	g.updates = append(g.updates, data...)
	return nil
}

func (g *recordingGateway) ClearRange(context.Context, string, string) error {
	return nil
}

func reportSheetCfg() config.SheetsConfig {
	return config.SheetsConfig{
		MasterfileID: "master",
		MasterRange:  "SalesMasterfile!A:AP",
		SalesSheet:   "SalesData",
	}
}

func TestTransformOrdersConvertsDatesAndSorts(t *testing.T) {
	rows := [][]string{
		{"Report", "Sales Orders"},
		{"ID", "Number", "", "", "", "Invoice Date", "Payment Date"},
		{"1001", "#1001", "", "", "", "1/15/2024", "1/16/2024"},
		{"1002", "#1002", "", "", "", "3/5/2024", ""},
	}

	out := transformOrders(rows)
	require.Len(t, out, 4)

	// header rows untouched
	assert.Equal(t, rows[0], out[0])
	assert.Equal(t, rows[1], out[1])

	// sorted by invoice date descending
	assert.Equal(t, "1002", out[2][0])
	assert.Equal(t, "45357", out[2][invoiceDateCol])
	assert.Equal(t, "1001", out[3][0])
	assert.Equal(t, "45307", out[3][invoiceDateCol])
	assert.Equal(t, "45308", out[3][paymentDateCol])

	// padded to full width
	assert.Len(t, out[2], ordersRowWidth)
	assert.Equal(t, "", out[2][completedDateCol])
}

func TestTransformOrdersCleansNotes(t *testing.T) {
	row := make([]string, ordersRowWidth)
	row[0] = "1001"
	row[orderNotesCol] = "line one\r\nline two\n"

	out := transformOrders([][]string{{"h"}, {"h"}, row})
	assert.Equal(t, "line one line two", out[2][orderNotesCol])
}

func TestSerialCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3/5/2024", "45357"},
		{"45357", "45357"}, // already a serial
		{"", ""},
		{"   ", ""},
		{"not a date", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, serialCell(tt.in), "input %q", tt.in)
	}
}

func TestTransformSalesFiltersAndStamps(t *testing.T) {
	rows := [][]string{
		{"ID", "Name", "SKU #", "UPC"},
		{"1", "With SKU", "SKU-1", ""},
		{"2", "With UPC only", "", "012345"},
		{"3", "Neither", "", ""},
	}

	out := transformSales(rows, "1/1/2024", "1/7/2024", "Jan 8 2024 9:00 AM")
	require.Len(t, out, 3)

	assert.Equal(t, []string{"ID", "Name", "SKU #", "UPC", "Start Date", "End Date", "Date Generated"}, out[0])
	assert.Equal(t, []string{"1", "With SKU", "SKU-1", "", "1/1/2024", "1/7/2024", "Jan 8 2024 9:00 AM"}, out[1])
	assert.Equal(t, "2", out[2][0])
}

func TestReportRowKeyIgnoresPlaceholder(t *testing.T) {
	assert.Equal(t, "1001", reportRowKey([]string{" 1001 "}))
	assert.Equal(t, "", reportRowKey([]string{"Date TypeCreate"}))
	assert.Equal(t, "", reportRowKey(nil))
}

func TestSplitA1Columns(t *testing.T) {
	sheet, endCol, err := splitA1Columns("SalesMasterfile!A:AP")
	require.NoError(t, err)
	assert.Equal(t, "SalesMasterfile", sheet)
	assert.Equal(t, "AP", endCol)

	_, _, err = splitA1Columns("NoRange")
	assert.Error(t, err)
}

func TestSyncOrdersPartitionsAppendsAndUpdates(t *testing.T) {
	gw := &recordingGateway{readRows: [][]string{
		{"ID", "Number"},
		{"1001", "#1001", "old"},
	}}
	e := NewExporter(nil, nil, gw, reportSheetCfg())

	rows := [][]string{
		{"h1"}, {"h2"},
		{"1001", "#1001", "new"},  // changed, updates row 2
		{"2002", "#2002", "x"},    // new, appends
		{"Date TypeCreate", "--"}, // placeholder, ignored
	}

	result, err := e.syncOrders(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Appended)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Skipped)

	require.Len(t, gw.updates, 1)
	assert.Equal(t, "SalesMasterfile!A2:AP2", gw.updates[0].Range)
	assert.Equal(t, []any{"1001", "#1001", "new"}, gw.updates[0].Rows[0])

	require.Len(t, gw.appended, 1)
	assert.Equal(t, []any{"2002", "#2002", "x"}, gw.appended[0])
}

func TestSyncOrdersWritesHeadersWhenEmpty(t *testing.T) {
	gw := &recordingGateway{}
	e := NewExporter(nil, nil, gw, reportSheetCfg())

	rows := [][]string{
		{"h1"}, {"h2"},
		{"1001", "#1001"},
	}

	result, err := e.syncOrders(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Appended)

	require.Len(t, gw.appended, 3)
	assert.Equal(t, []any{"h1"}, gw.appended[0])
	assert.Equal(t, []any{"1001", "#1001"}, gw.appended[2])
}

func TestSyncSalesAppendsOnlyNewIDs(t *testing.T) {
	gw := &recordingGateway{readRows: [][]string{{"ID"}, {"1"}}}
	e := NewExporter(nil, nil, gw, reportSheetCfg())

	rows := [][]string{
		{"header"},
		{"1", "already there"},
		{"2", "new"},
		{"2", "duplicate within report"},
	}

	result, err := e.syncSales(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Appended)
	assert.Equal(t, 1, result.Skipped)

	require.Len(t, gw.appended, 1)
	assert.Equal(t, []any{"2", "new"}, gw.appended[0])
}

type stubGenerator struct {
	report *GeneratedReport
	err    error

	mode Mode
	from string
	to   string
}

func (s *stubGenerator) Generate(_ context.Context, mode Mode, from, to string) (*GeneratedReport, error) {
	s.mode, s.from, s.to = mode, from, to
	return s.report, s.err
}

type stubDownloader struct {
	data []byte
	url  string
}

func (s *stubDownloader) Fetch(_ context.Context, url string) ([]byte, error) {
	s.url = url
	return s.data, nil
}

func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellStr(sheet, ref, cell))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestExporterRunOrders(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"Sales Orders Report"},
		{"ID", "Number", "", "", "", "Invoice Date"},
		{"1001", "#1001", "", "", "", "3/5/2024"},
	})

	gen := &stubGenerator{report: &GeneratedReport{
		DownloadURL: "https://dashboard.example.com/reports/r.xlsx",
		Timestamp:   "3/6/2024 8:00 AM",
	}}
	dl := &stubDownloader{data: data}
	gw := &recordingGateway{}

	e := NewExporter(gen, dl, gw, reportSheetCfg())
	result, err := e.Run(context.Background(), Params{Mode: ModeOrders, From: "3/1/2024", To: "3/6/2024"})
	require.NoError(t, err)

	assert.Equal(t, ModeOrders, result.Mode)
	assert.Equal(t, "3/6/2024 8:00 AM", result.Timestamp)
	assert.Equal(t, 1, result.Appended)
	assert.Equal(t, gen.from, "3/1/2024")
	assert.Equal(t, dl.url, "https://dashboard.example.com/reports/r.xlsx")

	// headers + the one data row, with the invoice date as a serial
	require.Len(t, gw.appended, 3)
	assert.Equal(t, "45357", gw.appended[2][invoiceDateCol])
}

func TestExporterRunRequiresDates(t *testing.T) {
	e := NewExporter(nil, nil, &recordingGateway{}, reportSheetCfg())
	_, err := e.Run(context.Background(), Params{Mode: ModeOrders})
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":       ModeOrders,
		"orders": ModeOrders,
		"Sales":  ModeSales,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMode("bogus")
	assert.Error(t, err)
}

func TestFindDownloadLink(t *testing.T) {
	html := `
	<table><tbody>
	  <tr>
	    <td>3/6/2024 8:05 AM</td><td>Sales Orders</td><td>Daily</td>
	    <td>In Progress</td><td></td>
	  </tr>
	  <tr>
	    <td>3/6/2024 8:00 AM</td><td>Sales Orders</td><td>Daily</td>
	    <td>Complete</td><td><a href="/reports/abc.xlsx">Download</a></td>
	  </tr>
	</tbody></table>`

	url, err := findDownloadLink(html, "3/6/2024 8:00 AM")
	require.NoError(t, err)
	assert.Equal(t, "/reports/abc.xlsx", url)

	url, err = findDownloadLink(html, "3/6/2024 8:05 AM")
	require.NoError(t, err)
	assert.Equal(t, "", url, "in-progress row has no link yet")

	url, err = findDownloadLink(strings.ReplaceAll(html, "abc.xlsx", "abc.csv"), "3/6/2024 8:00 AM")
	require.NoError(t, err)
	assert.Equal(t, "", url, "only .xlsx links count")
}
