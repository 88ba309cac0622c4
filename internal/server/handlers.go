// Package server is the HTTP trigger shell: thin handlers that invoke the
// pipelines synchronously and report their aggregate results, plus an
// in-memory run log.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecomstack/ecomdash-sync/internal/colsync"
	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/pipeline"
	"github.com/ecomstack/ecomdash-sync/internal/report"
	"github.com/ecomstack/ecomdash-sync/internal/runlock"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

// PipelineRunner runs the order scrape pipeline.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// ReportRunner runs one report export.
type ReportRunner interface {
	Run(ctx context.Context, params report.Params) (*report.Result, error)
}

// ColumnSyncer runs the masterfile-to-orders column fill.
type ColumnSyncer interface {
	Run(ctx context.Context) (*colsync.Result, error)
}

type Handlers struct {
	pipeline PipelineRunner
	report   ReportRunner
	colsync  ColumnSyncer
	guard    runlock.Guard
	gateway  sheets.Gateway
	sheetCfg config.SheetsConfig
	runs     *RunLog
	logger   *slog.Logger
}

func NewHandlers(p PipelineRunner, r ReportRunner, c ColumnSyncer, guard runlock.Guard, gateway sheets.Gateway, sheetCfg config.SheetsConfig) *Handlers {
	return &Handlers{
		pipeline: p,
		report:   r,
		colsync:  c,
		guard:    guard,
		gateway:  gateway,
		sheetCfg: sheetCfg,
		runs:     NewRunLog(),
		logger:   slog.Default().With("component", "server"),
	}
}

// RunResponse is the scrape pipeline's HTTP result envelope.
type RunResponse struct {
	Success bool             `json:"success"`
	RunID   string           `json:"runId"`
	Message string           `json:"message"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Errors  []string         `json:"errors,omitempty"`
}

// Alive answers the root path with a static OK payload.
func (h *Handlers) Alive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ecomdash-sync is alive"))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run triggers the scrape pipeline synchronously. Overlapping triggers
// wait for the guard. The response is 200 only when no batch-level error
// occurred; per-order failures ride along as informational data.
func (h *Handlers) Run(w http.ResponseWriter, r *http.Request) {
	release, err := h.guard.Acquire(r.Context())
	if err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "could not acquire run lock: "+err.Error())
		return
	}
	defer release()

	runID := h.runs.Start("run")
	h.logger.Info("pipeline run triggered", "run_id", runID)

	// Detached from the request context: a client that gives up on the
	// long synchronous run must not cancel the scrape partway. The guard
	// above still honors disconnects while a trigger is queued.
	result, err := h.pipeline.Run(context.WithoutCancel(r.Context()))
	h.runs.Finish(runID, result, err)

	if err != nil {
		h.logger.Error("pipeline run failed", "run_id", runID, "error", err)
		h.respondJSON(w, http.StatusInternalServerError, RunResponse{
			RunID:   runID,
			Message: "run failed",
			Result:  result,
			Errors:  []string{err.Error()},
		})
		return
	}

	resp := RunResponse{
		Success: result.OK(),
		RunID:   runID,
		Message: fmt.Sprintf("synced %d of %d orders across %d batches", len(result.Successes), result.Processed, result.Batches),
		Result:  result,
		Errors:  result.BatchErrors,
	}
	status := http.StatusOK
	if !result.OK() {
		status = http.StatusInternalServerError
	}
	h.respondJSON(w, status, resp)
}

// AppendOrdersRequest carries pre-shaped rows for the append bridge.
type AppendOrdersRequest struct {
	Data [][]any `json:"data"`
}

// AppendOrders appends caller-provided rows to the orders tab verbatim.
// This is the ingest bridge for external tools that already produce
// sheet-shaped rows; values are stored literally.
func (h *Handlers) AppendOrders(w http.ResponseWriter, r *http.Request) {
	var req AppendOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Data) == 0 {
		h.respondError(w, http.StatusBadRequest, "data must contain at least one row")
		return
	}

	err := h.gateway.AppendRows(r.Context(), h.sheetCfg.DestinationID,
		h.sheetCfg.OrdersSheet+"!A1", req.Data, sheets.InputRaw)
	if err != nil {
		h.logger.Error("failed to append rows", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to append rows")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"appended": len(req.Data),
	})
}

// GenerateReport triggers a report export for the from/to range. The mode
// query selects the orders (default) or sales variant.
func (h *Handlers) GenerateReport(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		h.respondError(w, http.StatusBadRequest, "from and to query parameters are required")
		return
	}

	mode, err := report.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	release, err := h.guard.Acquire(r.Context())
	if err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "could not acquire run lock: "+err.Error())
		return
	}
	defer release()

	runID := h.runs.Start("generate-report")
	h.logger.Info("report export triggered", "run_id", runID, "mode", mode, "from", from, "to", to)

	result, err := h.report.Run(context.WithoutCancel(r.Context()), report.Params{Mode: mode, From: from, To: to})
	h.runs.Finish(runID, result, err)

	if err != nil {
		h.logger.Error("report export failed", "run_id", runID, "error", err)
		h.respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"runId":   runID,
			"error":   err.Error(),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"runId":   runID,
		"result":  result,
	})
}

// SyncColumns triggers the masterfile-to-orders column fill.
func (h *Handlers) SyncColumns(w http.ResponseWriter, r *http.Request) {
	release, err := h.guard.Acquire(r.Context())
	if err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "could not acquire run lock: "+err.Error())
		return
	}
	defer release()

	runID := h.runs.Start("sync-columns")
	h.logger.Info("column sync triggered", "run_id", runID)

	result, err := h.colsync.Run(context.WithoutCancel(r.Context()))
	h.runs.Finish(runID, result, err)

	if err != nil {
		h.logger.Error("column sync failed", "run_id", runID, "error", err)
		h.respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"runId":   runID,
			"error":   err.Error(),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"runId":   runID,
		"result":  result,
	})
}

// ListRuns returns the run log, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.List())
}

// GetRun returns one run record.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	rec, ok := h.runs.Get(runID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	h.respondJSON(w, http.StatusOK, rec)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
