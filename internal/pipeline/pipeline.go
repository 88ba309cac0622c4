// Package pipeline drives the batch scrape-and-sync run: order ids come
// from the masterfile, each batch gets a fresh authenticated browser
// session, and every extracted order is appended to the destination
// spreadsheet unless its id is already present there.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/ecomdash"
	"github.com/ecomstack/ecomdash-sync/internal/normalize"
	"github.com/ecomstack/ecomdash-sync/internal/ratelimit"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

// Failure records one order that could not be scraped or written.
type Failure struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error"`
}

// Result aggregates one run. Per-order failures are informational; only
// batch-level errors make the run unsuccessful.
type Result struct {
	Processed   int       `json:"processed"`
	Batches     int       `json:"batches"`
	Successes   []string  `json:"successes"`
	Failures    []Failure `json:"failures"`
	BatchErrors []string  `json:"batchErrors"`
}

// OK reports whether the run completed with zero batch-level errors.
func (r *Result) OK() bool {
	return len(r.BatchErrors) == 0
}

type Pipeline struct {
	sessions ecomdash.SessionFactory
	gateway  sheets.Gateway
	sheetCfg config.SheetsConfig
	cfg      config.PipelineConfig
	dateMode normalize.DateMode
	limiter  *ratelimit.AdaptiveRateLimiter
	logger   *slog.Logger
}

func New(sessions ecomdash.SessionFactory, gateway sheets.Gateway, sheetCfg config.SheetsConfig, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		sessions: sessions,
		gateway:  gateway,
		sheetCfg: sheetCfg,
		cfg:      cfg,
		dateMode: normalize.DateString,
		limiter:  ratelimit.NewAdaptiveRateLimiter(cfg.OrderDelay, cfg.OrderDelay),
		logger:   slog.Default().With("component", "pipeline"),
	}
}

// SetDateMode switches the order-date output between canonical strings and
// spreadsheet serials.
func (p *Pipeline) SetDateMode(mode normalize.DateMode) {
	p.dateMode = mode
}

// Run executes the full scrape over every order id in the masterfile.
// Returns an error only when the id list itself cannot be read; everything
// downstream is captured in the Result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ids, err := p.readOrderIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read order ids: %w", err)
	}

	chunks := chunk(ids, p.cfg.BatchSize)
	result := &Result{
		Processed: len(ids),
		Batches:   len(chunks),
		Successes: []string{},
		Failures:  []Failure{},
	}

	p.logger.Info("run starting", "orders", len(ids), "batches", len(chunks))

	if err := p.ensureHeaders(ctx); err != nil {
		p.logger.Error("failed to write destination headers", "error", err)
		result.BatchErrors = append(result.BatchErrors, err.Error())
		return result, nil
	}

	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		p.logger.Info("batch starting", "batch", i+1, "of", len(chunks), "size", len(c))
		p.processBatch(ctx, c, result)
		p.logger.Info("batch finished", "batch", i+1, "of", len(chunks))

		if i < len(chunks)-1 {
			time.Sleep(p.cfg.BatchDelay)
		}
	}

	p.logger.Info("run finished",
		"successes", len(result.Successes),
		"failures", len(result.Failures),
		"batch_errors", len(result.BatchErrors))

	return result, nil
}

// processBatch opens one browser session for the chunk and walks its ids in
// order. Batch-level failures (launch, login) are recorded and the method
// returns so later batches still get their own attempt.
func (p *Pipeline) processBatch(ctx context.Context, ids []string, result *Result) {
	session, err := p.sessions.Open(ctx)
	if err != nil {
		p.logger.Error("batch session failed", "error", err)
		result.BatchErrors = append(result.BatchErrors, err.Error())
		return
	}
	defer session.Close()

	existing := p.existingOrderIDs(ctx)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return
		}

		if existing[id] {
			p.logger.Debug("order already present", "order_id", id)
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		if err := p.syncOrder(ctx, session, id); err != nil {
			p.logger.Error("order failed", "order_id", id, "error", err)
			result.Failures = append(result.Failures, Failure{OrderID: id, Error: err.Error()})
			p.limiter.RecordError()
			continue
		}

		// Protects against duplicate ids later in this run; concurrent
		// runs are out of scope.
		existing[id] = true
		result.Successes = append(result.Successes, id)
		p.limiter.RecordSuccess()
		p.logger.Info("order synced", "order_id", id)
	}
}

func (p *Pipeline) syncOrder(ctx context.Context, session ecomdash.Session, id string) error {
	reader, err := session.OrderReader(ctx, id)
	if err != nil {
		return err
	}

	order, err := ecomdash.ExtractOrder(reader, id)
	if err != nil {
		return err
	}

	dest := p.sheetCfg.DestinationID
	if err := p.gateway.AppendRows(ctx, dest, p.sheetCfg.OrdersSheet+"!A1",
		[][]any{orderRow(order, p.dateMode)}, sheets.InputUserEntered); err != nil {
		return fmt.Errorf("failed to append order row: %w", err)
	}
	if err := p.gateway.AppendRows(ctx, dest, p.sheetCfg.ProductsSheet+"!A1",
		productRows(order, p.dateMode), sheets.InputUserEntered); err != nil {
		return fmt.Errorf("failed to append product rows: %w", err)
	}
	if err := p.gateway.AppendRows(ctx, dest, p.sheetCfg.ItemizedSheet+"!A1",
		itemizedRows(order), sheets.InputUserEntered); err != nil {
		return fmt.Errorf("failed to append itemized rows: %w", err)
	}

	return nil
}

// ensureHeaders seeds the destination tabs when the orders tab has no
// header row yet. A pre-created destination that already carries headers
// but no data rows is left untouched; emptiness is decided from the header
// row itself, never from the data region.
func (p *Pipeline) ensureHeaders(ctx context.Context) error {
	rows, err := p.gateway.ReadRange(ctx, p.sheetCfg.DestinationID, sheets.HeaderRange(p.sheetCfg.OrdersSheet))
	if err != nil {
		p.logger.Warn("could not read destination header row, seeding headers", "error", err)
	} else if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] != "" {
		return nil
	}
	return p.writeHeaders(ctx)
}

// writeHeaders seeds the three destination tabs with their header rows.
func (p *Pipeline) writeHeaders(ctx context.Context) error {
	dest := p.sheetCfg.DestinationID
	for sheet, header := range map[string][]any{
		p.sheetCfg.OrdersSheet:   ordersHeader,
		p.sheetCfg.ProductsSheet: productsHeader,
		p.sheetCfg.ItemizedSheet: itemizedHeader,
	} {
		if err := p.gateway.AppendRows(ctx, dest, sheet+"!A1", [][]any{header}, sheets.InputRaw); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) readOrderIDs(ctx context.Context) ([]string, error) {
	rows, err := p.gateway.ReadRange(ctx, p.sheetCfg.MasterfileID, p.sheetCfg.OrderIDRange)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, row := range rows {
		if len(row) > 0 && row[0] != "" {
			ids = append(ids, row[0])
		}
	}
	return ids, nil
}

// existingOrderIDs snapshots the destination's id column. An unreadable
// destination (missing tab on first run) reads as empty.
func (p *Pipeline) existingOrderIDs(ctx context.Context) map[string]bool {
	set := make(map[string]bool)

	rows, err := p.gateway.ReadRange(ctx, p.sheetCfg.DestinationID, p.sheetCfg.OrdersSheet+"!A2:A")
	if err != nil {
		p.logger.Warn("could not read existing order ids, assuming none", "error", err)
		return set
	}

	for _, row := range rows {
		if len(row) > 0 && row[0] != "" {
			set[row[0]] = true
		}
	}
	return set
}

func chunk(ids []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var chunks [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}
