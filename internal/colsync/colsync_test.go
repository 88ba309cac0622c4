package colsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

// fakeGateway serves reads from a range-keyed map; unknown ranges read
// empty, like a sheet region that has never been written.
type fakeGateway struct {
	reads map[string][][]string

	headerWrites [][][]any
	batches      [][]sheets.ValueRange
}

func key(spreadsheetID, a1 string) string { return spreadsheetID + "|" + a1 }

func (g *fakeGateway) ReadRange(_ context.Context, spreadsheetID, a1 string) ([][]string, error) {
	return g.reads[key(spreadsheetID, a1)], nil
}

func (g *fakeGateway) AppendRows(context.Context, string, string, [][]any, sheets.ValueInput) error {
	return nil
}

func (g *fakeGateway) UpdateRange(_ context.Context, _, a1 string, rows [][]any, _ sheets.ValueInput) error {
	if a1 == "Orders!1:1" {
		g.headerWrites = append(g.headerWrites, rows)
	}
	return nil
}

func (g *fakeGateway) BatchUpdate(_ context.Context, _ string, data []sheets.ValueRange, _ sheets.ValueInput) error {
	g.batches = append(g.batches, data)
	return nil
}

func (g *fakeGateway) ClearRange(context.Context, string, string) error { return nil }

func colSyncCfg() config.SheetsConfig {
	return config.SheetsConfig{
		MasterfileID:  "master",
		DestinationID: "dest",
		MasterRange:   "SalesMasterfile!A:AP",
		OrdersSheet:   "Orders",
	}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{reads: map[string][][]string{
		key("master", "SalesMasterfile!A:AP"): {
			{"EcomdashID", "InvoiceDate", "Email"},
			{"1001", "3/5/2024", "a@example.com"},
			{"1002", "", "b@example.com"},
			{"1001", "9/9/2024", "dup@example.com"}, // later duplicate, ignored
		},
		key("dest", "Orders!1:1"):  {{"orderId", "invoiceDate"}},
		key("dest", "Orders!A2:A"): {{"1001"}, {"1002"}, {"9999"}},
		key("dest", "Orders!B2:B4"): {
			{""}, {"KEEP"}, {""},
		},
	}}
}

func findRange(t *testing.T, data []sheets.ValueRange, a1 string) sheets.ValueRange {
	t.Helper()
	for _, vr := range data {
		if vr.Range == a1 {
			return vr
		}
	}
	t.Fatalf("no write for range %s", a1)
	return sheets.ValueRange{}
}

func TestRunFillsBlanksFromFirstMasterMatch(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, colSyncCfg(), config.ColSyncConfig{FillOnlyBlanks: true})

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount)
	assert.Equal(t, 1, result.DuplicateRows)
	assert.False(t, result.Overwrote)

	// paymentReceivedDate, completedDate, shipTo* are absent from master
	assert.Len(t, result.MissingColumns, 5)
	assert.Contains(t, result.MissingColumns, "paymentReceivedDate")
	assert.NotContains(t, result.MissingColumns, "invoiceDate")
	assert.NotContains(t, result.MissingColumns, "customerEmail")

	// every rule header except the pre-existing invoiceDate gets appended
	assert.Len(t, result.AddedHeaders, 6)
	require.Len(t, gw.headerWrites, 1)
	assert.Len(t, gw.headerWrites[0][0], 8)

	require.Len(t, gw.batches, 1)
	data := gw.batches[0]
	assert.Len(t, data, 7)

	invoice := findRange(t, data, "Orders!B2:B4")
	assert.Equal(t, []any{"2024/03/05"}, invoice.Rows[0], "blank fills from first master match, date canonicalized")
	assert.Equal(t, []any{"KEEP"}, invoice.Rows[1], "non-blank cell preserved")
	assert.Equal(t, []any{""}, invoice.Rows[2], "unmatched id stays blank")

	email := findRange(t, data, "Orders!E2:E4")
	assert.Equal(t, []any{"a@example.com"}, email.Rows[0])
	assert.Equal(t, []any{"b@example.com"}, email.Rows[1])
	assert.Equal(t, []any{""}, email.Rows[2])
}

func TestRunOverwriteReplacesExistingCells(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, colSyncCfg(), config.ColSyncConfig{FillOnlyBlanks: false})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Overwrote)

	invoice := findRange(t, gw.batches[0], "Orders!B2:B4")
	assert.Equal(t, []any{""}, invoice.Rows[1], "overwrite mode replaces KEEP with the master value")
}

func TestRunPrependsMissingOrderIDHeader(t *testing.T) {
	gw := newFakeGateway()
	gw.reads[key("dest", "Orders!1:1")] = [][]string{{"invoiceDate"}}
	s := New(gw, colSyncCfg(), config.ColSyncConfig{FillOnlyBlanks: true})

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, gw.headerWrites)
	first := gw.headerWrites[0][0]
	assert.Equal(t, "orderId", first[0])
	assert.Equal(t, "invoiceDate", first[1])
}

func TestRunFailsWithoutMasterIDColumn(t *testing.T) {
	gw := newFakeGateway()
	gw.reads[key("master", "SalesMasterfile!A:AP")] = [][]string{
		{"SomethingElse"},
		{"x"},
	}
	s := New(gw, colSyncCfg(), config.ColSyncConfig{FillOnlyBlanks: true})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order id column")
}

func TestRunNoDataRowsIsANoop(t *testing.T) {
	gw := newFakeGateway()
	gw.reads[key("dest", "Orders!A2:A")] = nil
	s := New(gw, colSyncCfg(), config.ColSyncConfig{FillOnlyBlanks: true})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
	assert.Empty(t, gw.batches)
}
