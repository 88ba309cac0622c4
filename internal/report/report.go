// Package report drives the back-office Reporting UI to generate an XLSX
// export for a date range, downloads and reshapes it, and syncs the rows
// into the masterfile spreadsheet. Two tagged variants share the flow: the
// orders report diff-syncs with date serials, the sales report is a
// SKU-filtered append-only feed.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/sheetdiff"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

// Mode selects which report tile gets generated and how its rows are
// synced.
type Mode string

const (
	// ModeOrders generates the Sales Orders Report and diff-syncs it into
	// the masterfile tab, converting date columns to serials.
	ModeOrders Mode = "orders"
	// ModeSales generates the Sales Within Date Range report and appends
	// new rows to the sales tab, stamped with the requested range.
	ModeSales Mode = "sales"
)

// ParseMode maps a request string to a Mode. Empty input defaults to
// ModeOrders.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOrders, "":
		return ModeOrders, nil
	case ModeSales:
		return ModeSales, nil
	}
	return "", fmt.Errorf("unknown report mode %q", s)
}

// Params is one report request. From and To use the M/D/YYYY form the
// report form expects.
type Params struct {
	Mode Mode
	From string
	To   string
}

// GeneratedReport is what the UI drive yields: where to fetch the XLSX
// and the history timestamp identifying this generation.
type GeneratedReport struct {
	DownloadURL string
	Timestamp   string
}

// Generator produces a report through the back office and resolves its
// download location. The live implementation drives a browser.
type Generator interface {
	Generate(ctx context.Context, mode Mode, from, to string) (*GeneratedReport, error)
}

// Downloader fetches the report file bytes.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Result summarizes one export run.
type Result struct {
	Mode      Mode   `json:"mode"`
	Timestamp string `json:"timestamp"`
	Appended  int    `json:"appended"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
}

type Exporter struct {
	gen     Generator
	dl      Downloader
	gateway sheets.Gateway
	cfg     config.SheetsConfig
	logger  *slog.Logger
}

func NewExporter(gen Generator, dl Downloader, gateway sheets.Gateway, cfg config.SheetsConfig) *Exporter {
	return &Exporter{
		gen:     gen,
		dl:      dl,
		gateway: gateway,
		cfg:     cfg,
		logger:  slog.Default().With("component", "report"),
	}
}

// Run generates, downloads, reshapes and syncs one report.
func (e *Exporter) Run(ctx context.Context, params Params) (*Result, error) {
	if params.From == "" || params.To == "" {
		return nil, fmt.Errorf("from and to dates are required")
	}

	gen, err := e.gen.Generate(ctx, params.Mode, params.From, params.To)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}
	e.logger.Info("report generated", "mode", params.Mode, "timestamp", gen.Timestamp)

	data, err := e.dl.Fetch(ctx, gen.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download report: %w", err)
	}

	rows, err := ParseXLSX(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report file: %w", err)
	}

	var result *Result
	switch params.Mode {
	case ModeSales:
		result, err = e.syncSales(ctx, transformSales(rows, params.From, params.To, gen.Timestamp))
	default:
		result, err = e.syncOrders(ctx, transformOrders(rows))
	}
	if err != nil {
		return nil, err
	}

	result.Mode = params.Mode
	result.Timestamp = gen.Timestamp
	e.logger.Info("report synced",
		"mode", params.Mode,
		"appended", result.Appended,
		"updated", result.Updated,
		"skipped", result.Skipped)
	return result, nil
}

// placeholderID appears in the report's summary rows and must never be
// treated as an order id.
const placeholderID = "Date TypeCreate"

func reportRowKey(row []string) string {
	id := strings.TrimSpace(firstCell(row))
	if id == placeholderID {
		return ""
	}
	return id
}

func firstCell(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

// syncOrders diff-syncs the reshaped report against the masterfile tab:
// new ids append, changed rows rewrite in place, identical rows are left
// alone.
func (e *Exporter) syncOrders(ctx context.Context, rows [][]string) (*Result, error) {
	if len(rows) < ordersHeaderRows {
		return nil, fmt.Errorf("report file has no header rows")
	}

	sheet, endCol, err := splitA1Columns(e.cfg.MasterRange)
	if err != nil {
		return nil, err
	}

	existing, err := e.gateway.ReadRange(ctx, e.cfg.MasterfileID, e.cfg.MasterRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read masterfile: %w", err)
	}

	diff := sheetdiff.Partition(existing, rows[ordersHeaderRows:], reportRowKey)

	appends := diff.Appends
	if len(existing) == 0 && len(appends) > 0 {
		appends = append(rows[:ordersHeaderRows:ordersHeaderRows], appends...)
	}

	if len(diff.Updates) > 0 {
		data := make([]sheets.ValueRange, len(diff.Updates))
		for i, u := range diff.Updates {
			data[i] = sheets.ValueRange{
				Range: fmt.Sprintf("%s!A%d:%s%d", sheet, u.RowIndex, endCol, u.RowIndex),
				Rows:  [][]any{sheets.StringRow(u.Row)},
			}
		}
		if err := e.gateway.BatchUpdate(ctx, e.cfg.MasterfileID, data, sheets.InputUserEntered); err != nil {
			return nil, fmt.Errorf("failed to update masterfile rows: %w", err)
		}
	}

	if len(appends) > 0 {
		if err := e.gateway.AppendRows(ctx, e.cfg.MasterfileID, sheet+"!A1",
			sheets.StringRows(appends), sheets.InputUserEntered); err != nil {
			return nil, fmt.Errorf("failed to append masterfile rows: %w", err)
		}
	}

	return &Result{
		Appended: len(diff.Appends),
		Updated:  len(diff.Updates),
		Skipped:  len(diff.Skips),
	}, nil
}

// syncSales appends rows whose id is not yet present in the sales tab.
// Existing rows are never touched; the feed is append-only by design of
// the stamped range columns.
func (e *Exporter) syncSales(ctx context.Context, rows [][]string) (*Result, error) {
	if len(rows) < salesHeaderRows {
		return nil, fmt.Errorf("report file has no header row")
	}

	existing, err := e.gateway.ReadRange(ctx, e.cfg.MasterfileID, e.cfg.SalesSheet+"!A:A")
	if err != nil {
		return nil, fmt.Errorf("failed to read sales tab: %w", err)
	}

	present := make(map[string]bool, len(existing))
	for _, row := range existing {
		if id := strings.TrimSpace(firstCell(row)); id != "" {
			present[id] = true
		}
	}

	var appends [][]string
	skipped := 0
	for _, row := range rows[salesHeaderRows:] {
		id := reportRowKey(row)
		if id == "" {
			continue
		}
		if present[id] {
			skipped++
			continue
		}
		present[id] = true
		appends = append(appends, row)
	}

	added := len(appends)
	if len(existing) == 0 && added > 0 {
		appends = append(rows[:salesHeaderRows:salesHeaderRows], appends...)
	}

	if len(appends) > 0 {
		if err := e.gateway.AppendRows(ctx, e.cfg.MasterfileID, e.cfg.SalesSheet+"!A1",
			sheets.StringRows(appends), sheets.InputUserEntered); err != nil {
			return nil, fmt.Errorf("failed to append sales rows: %w", err)
		}
	}

	return &Result{Appended: added, Skipped: skipped}, nil
}

// splitA1Columns breaks "Sheet!A:AP" into the sheet name and the closing
// column letters, for building per-row update ranges.
func splitA1Columns(a1 string) (sheet, endCol string, err error) {
	bang := strings.Index(a1, "!")
	colon := strings.LastIndex(a1, ":")
	if bang < 0 || colon < bang {
		return "", "", fmt.Errorf("range %q is not in Sheet!A:Z form", a1)
	}
	return a1[:bang], a1[colon+1:], nil
}
