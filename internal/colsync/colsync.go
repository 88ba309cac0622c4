// Package colsync fills configured Orders-tab columns from masterfile
// values, row-aligned by orderId. No scraping happens here; it is a pure
// sheet-to-sheet maintenance pass.
package colsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/normalize"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

// Rule maps one destination column to its masterfile source. Transform, if
// set, runs on every copied value.
type Rule struct {
	DestHeader    string
	MasterAliases []string
	Transform     func(string) string
}

// columnRules is the fixed set of synced columns. Date columns canonicalize
// through FormatDate; the rest copy verbatim.
var columnRules = []Rule{
	{DestHeader: "invoiceDate", MasterAliases: []string{"InvoiceDate"}, Transform: normalize.FormatDate},
	{DestHeader: "paymentReceivedDate", MasterAliases: []string{"PaymentReceivedDate"}, Transform: normalize.FormatDate},
	{DestHeader: "completedDate", MasterAliases: []string{"CompletedDate"}, Transform: normalize.FormatDate},

	{DestHeader: "customerEmail", MasterAliases: []string{"Email"}},
	{DestHeader: "shipToCity", MasterAliases: []string{"ShippingCity"}},
	{DestHeader: "shipToState", MasterAliases: []string{"ShippingState"}},
	{DestHeader: "shipToCountry", MasterAliases: []string{"ShippingCountry"}},
}

// orderIDAliases are the accepted spellings of the id column on either
// side, matched case- and whitespace-insensitively.
var orderIDAliases = []string{"EcomdashID", "orderId"}

// Result summarizes one column sync pass.
type Result struct {
	RowCount       int      `json:"rowCount"`
	SyncedColumns  []string `json:"syncedColumns"`
	MissingColumns []string `json:"missingColumns"`
	AddedHeaders   []string `json:"addedHeaders"`
	DuplicateRows  int      `json:"duplicateRows"`
	Overwrote      bool     `json:"overwrote"`
}

type Syncer struct {
	gateway sheets.Gateway
	cfg     config.SheetsConfig
	opts    config.ColSyncConfig
	rules   []Rule
	logger  *slog.Logger
}

func New(gateway sheets.Gateway, cfg config.SheetsConfig, opts config.ColSyncConfig) *Syncer {
	return &Syncer{
		gateway: gateway,
		cfg:     cfg,
		opts:    opts,
		rules:   columnRules,
		logger:  slog.Default().With("component", "colsync"),
	}
}

// Run copies rule columns from the masterfile into the Orders tab. Rows
// align by orderId with the FIRST masterfile match winning; later
// duplicates only count. By default existing non-blank destination cells
// are preserved.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	master, err := s.gateway.ReadRange(ctx, s.cfg.MasterfileID, s.cfg.MasterRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read masterfile: %w", err)
	}
	if len(master) < 2 {
		return nil, fmt.Errorf("masterfile has no data rows")
	}

	masterHeader := master[0]
	masterIDCol := sheets.FindColumn(masterHeader, orderIDAliases)
	if masterIDCol == -1 {
		return nil, fmt.Errorf("masterfile has no order id column (tried %s)", strings.Join(orderIDAliases, ", "))
	}

	result := &Result{Overwrote: !s.opts.FillOnlyBlanks}

	ruleCols := make(map[string]int, len(s.rules))
	for _, rule := range s.rules {
		idx := sheets.FindColumn(masterHeader, rule.MasterAliases)
		if idx == -1 {
			result.MissingColumns = append(result.MissingColumns, rule.DestHeader)
			continue
		}
		ruleCols[rule.DestHeader] = idx
	}
	if len(result.MissingColumns) > 0 {
		s.logger.Warn("skipping columns not present in masterfile",
			"columns", strings.Join(result.MissingColumns, ", "))
	}

	masterMap, duplicates := s.buildMasterMap(master[1:], masterIDCol, ruleCols)
	result.DuplicateRows = duplicates
	if duplicates > 0 {
		s.logger.Info("duplicate master rows detected, first occurrence kept", "count", duplicates)
	}

	headers, idCol, err := s.ensureOrderIDHeader(ctx)
	if err != nil {
		return nil, err
	}

	orderIDs, err := s.destOrderIDs(ctx, idCol)
	if err != nil {
		return nil, err
	}
	result.RowCount = len(orderIDs)
	if len(orderIDs) == 0 {
		s.logger.Info("orders tab has no data rows, nothing to sync")
		return result, nil
	}

	headers, added, err := s.ensureRuleHeaders(ctx, headers)
	if err != nil {
		return nil, err
	}
	result.AddedHeaders = added

	data, synced, err := s.buildColumnWrites(ctx, headers, orderIDs, masterMap)
	if err != nil {
		return nil, err
	}
	result.SyncedColumns = synced

	if len(data) > 0 {
		if err := s.gateway.BatchUpdate(ctx, s.cfg.DestinationID, data, sheets.InputRaw); err != nil {
			return nil, fmt.Errorf("failed to write columns: %w", err)
		}
	}

	s.logger.Info("column sync finished",
		"rows", result.RowCount,
		"columns", strings.Join(result.SyncedColumns, ", "),
		"fill_only_blanks", s.opts.FillOnlyBlanks)
	return result, nil
}

// buildMasterMap keeps the first masterfile row per order id, already
// transformed per rule. The count of ignored later duplicates is returned.
func (s *Syncer) buildMasterMap(rows [][]string, idCol int, ruleCols map[string]int) (map[string]map[string]string, int) {
	masterMap := make(map[string]map[string]string, len(rows))
	duplicates := 0

	for _, row := range rows {
		oid := cellAt(row, idCol)
		if oid == "" {
			continue
		}
		if _, seen := masterMap[oid]; seen {
			duplicates++
			continue
		}

		values := make(map[string]string, len(s.rules))
		for _, rule := range s.rules {
			idx, ok := ruleCols[rule.DestHeader]
			if !ok {
				continue
			}
			v := cellAt(row, idx)
			if rule.Transform != nil && v != "" {
				v = rule.Transform(v)
			}
			values[rule.DestHeader] = v
		}
		masterMap[oid] = values
	}

	return masterMap, duplicates
}

// ensureOrderIDHeader reads the destination header row and guarantees an
// orderId column, prepending one when absent.
func (s *Syncer) ensureOrderIDHeader(ctx context.Context) ([]string, int, error) {
	rows, err := s.gateway.ReadRange(ctx, s.cfg.DestinationID, sheets.HeaderRange(s.cfg.OrdersSheet))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read orders header: %w", err)
	}

	var headers []string
	if len(rows) > 0 {
		headers = append(headers, rows[0]...)
	}

	idCol := sheets.FindColumn(headers, []string{"orderId"})
	if idCol == -1 {
		headers = append([]string{"orderId"}, headers...)
		if err := s.writeHeaderRow(ctx, headers); err != nil {
			return nil, 0, err
		}
		idCol = 0
	}

	return headers, idCol, nil
}

// ensureRuleHeaders appends any missing rule headers to the destination
// header row.
func (s *Syncer) ensureRuleHeaders(ctx context.Context, headers []string) ([]string, []string, error) {
	var added []string
	for _, rule := range s.rules {
		if sheets.FindColumn(headers, []string{rule.DestHeader}) == -1 {
			headers = append(headers, rule.DestHeader)
			added = append(added, rule.DestHeader)
		}
	}
	if len(added) > 0 {
		if err := s.writeHeaderRow(ctx, headers); err != nil {
			return nil, nil, err
		}
		s.logger.Info("added destination headers", "headers", strings.Join(added, ", "))
	}
	return headers, added, nil
}

func (s *Syncer) writeHeaderRow(ctx context.Context, headers []string) error {
	err := s.gateway.UpdateRange(ctx, s.cfg.DestinationID, sheets.HeaderRange(s.cfg.OrdersSheet),
		[][]any{sheets.StringRow(headers)}, sheets.InputRaw)
	if err != nil {
		return fmt.Errorf("failed to write orders header: %w", err)
	}
	return nil
}

// destOrderIDs reads the full id column below the header, preserving row
// order for positional alignment.
func (s *Syncer) destOrderIDs(ctx context.Context, idCol int) ([]string, error) {
	l := sheets.ColumnLetter(idCol)
	rows, err := s.gateway.ReadRange(ctx, s.cfg.DestinationID,
		fmt.Sprintf("%s!%s2:%s", s.cfg.OrdersSheet, l, l))
	if err != nil {
		return nil, fmt.Errorf("failed to read order id column: %w", err)
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = cellAt(row, 0)
	}
	return ids, nil
}

// buildColumnWrites produces one RAW column write per rule, preserving
// existing non-blank cells unless overwrite is on.
func (s *Syncer) buildColumnWrites(ctx context.Context, headers, orderIDs []string, masterMap map[string]map[string]string) ([]sheets.ValueRange, []string, error) {
	var (
		data   []sheets.ValueRange
		synced []string
	)

	for _, rule := range s.rules {
		colIdx := sheets.FindColumn(headers, []string{rule.DestHeader})
		if colIdx == -1 {
			continue
		}

		existing, err := s.readColumn(ctx, colIdx, len(orderIDs))
		if err != nil {
			return nil, nil, err
		}

		column := make([][]any, len(orderIDs))
		for i, oid := range orderIDs {
			candidate := ""
			if values, ok := masterMap[oid]; ok {
				candidate = values[rule.DestHeader]
			}

			if s.opts.FillOnlyBlanks && existing[i] != "" {
				column[i] = []any{existing[i]}
			} else {
				column[i] = []any{candidate}
			}
		}

		data = append(data, sheets.ValueRange{
			Range: sheets.ColumnRange(s.cfg.OrdersSheet, colIdx, 2, len(orderIDs)+1),
			Rows:  column,
		})
		synced = append(synced, rule.DestHeader)
	}

	return data, synced, nil
}

func (s *Syncer) readColumn(ctx context.Context, colIdx, rowCount int) ([]string, error) {
	rows, err := s.gateway.ReadRange(ctx, s.cfg.DestinationID,
		sheets.ColumnRange(s.cfg.OrdersSheet, colIdx, 2, rowCount+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read column %s: %w", sheets.ColumnLetter(colIdx), err)
	}

	out := make([]string, rowCount)
	for i := 0; i < rowCount && i < len(rows); i++ {
		out[i] = cellAt(rows[i], 0)
	}
	return out, nil
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
