package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomstack/ecomdash-sync/internal/colsync"
	"github.com/ecomstack/ecomdash-sync/internal/config"
	"github.com/ecomstack/ecomdash-sync/internal/pipeline"
	"github.com/ecomstack/ecomdash-sync/internal/report"
	"github.com/ecomstack/ecomdash-sync/internal/runlock"
	"github.com/ecomstack/ecomdash-sync/internal/sheets"
)

type stubPipeline struct {
	result *pipeline.Result
	err    error
	calls  int
}

func (s *stubPipeline) Run(context.Context) (*pipeline.Result, error) {
	s.calls++
	return s.result, s.err
}

type stubReport struct {
	result *report.Result
	err    error
	params report.Params
}

func (s *stubReport) Run(_ context.Context, params report.Params) (*report.Result, error) {
	s.params = params
	return s.result, s.err
}

type stubColsync struct {
	result *colsync.Result
	err    error
}

func (s *stubColsync) Run(context.Context) (*colsync.Result, error) {
	return s.result, s.err
}

type stubGateway struct {
	appended [][]any
	err      error
}

func (g *stubGateway) ReadRange(context.Context, string, string) ([][]string, error) {
	return nil, nil
}

func (g *stubGateway) AppendRows(_ context.Context, _, _ string, rows [][]any, _ sheets.ValueInput) error {
	if g.err != nil {
		return g.err
	}
	g.appended = append(g.appended, rows...)
	return nil
}

func (g *stubGateway) UpdateRange(context.Context, string, string, [][]any, sheets.ValueInput) error {
	return nil
}

func (g *stubGateway) BatchUpdate(context.Context, string, []sheets.ValueRange, sheets.ValueInput) error {
	return nil
}

func (g *stubGateway) ClearRange(context.Context, string, string) error { return nil }

func newTestServerWithGateway(p *stubPipeline, r *stubReport, c *stubColsync, g *stubGateway) *httptest.Server {
	if p == nil {
		p = &stubPipeline{result: &pipeline.Result{}}
	}
	if r == nil {
		r = &stubReport{result: &report.Result{}}
	}
	if c == nil {
		c = &stubColsync{result: &colsync.Result{}}
	}
	if g == nil {
		g = &stubGateway{}
	}
	cfg := config.SheetsConfig{DestinationID: "dest", OrdersSheet: "Orders"}
	h := NewHandlers(p, r, c, runlock.NewMutexGuard(), g, cfg)
	return httptest.NewServer(NewRouter(h))
}

func newTestServer(p *stubPipeline, r *stubReport, c *stubColsync) *httptest.Server {
	return newTestServerWithGateway(p, r, c, nil)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAliveAndHealth(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestRunSuccess(t *testing.T) {
	p := &stubPipeline{result: &pipeline.Result{
		Processed: 3,
		Batches:   1,
		Successes: []string{"1001", "1003"},
		Failures:  []pipeline.Failure{{OrderID: "1002", Error: "gone"}},
	}}
	ts := newTestServer(p, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/run")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[RunResponse](t, resp)
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.RunID)
	assert.Equal(t, 3, body.Result.Processed)
	assert.Len(t, body.Result.Failures, 1, "per-order failures are informational, not fatal")
	assert.Equal(t, 1, p.calls)
}

func TestRunBatchErrorsReturn500(t *testing.T) {
	p := &stubPipeline{result: &pipeline.Result{
		Batches:     2,
		BatchErrors: []string{"login rejected"},
	}}
	ts := newTestServer(p, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/run")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decode[RunResponse](t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, []string{"login rejected"}, body.Errors)
}

func TestRunPipelineError(t *testing.T) {
	p := &stubPipeline{err: errors.New("masterfile unreachable")}
	ts := newTestServer(p, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/run")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decode[RunResponse](t, resp)
	assert.Contains(t, body.Errors[0], "masterfile unreachable")
}

// disconnectPipeline cancels the request context mid-run, standing in for a
// client that hangs up while the synchronous run is in flight.
type disconnectPipeline struct {
	cancel  context.CancelFunc
	seenErr error
}

func (p *disconnectPipeline) Run(ctx context.Context) (*pipeline.Result, error) {
	p.cancel()
	p.seenErr = ctx.Err()
	return &pipeline.Result{Successes: []string{}, Failures: []pipeline.Failure{}}, nil
}

func TestRunSurvivesClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &disconnectPipeline{cancel: cancel}
	h := NewHandlers(p, &stubReport{}, &stubColsync{}, runlock.NewMutexGuard(), &stubGateway{}, config.SheetsConfig{})

	req := httptest.NewRequest(http.MethodGet, "/run", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Run(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, p.seenErr, "run context must outlive the request context")
}

func TestGenerateReportRequiresDates(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	for _, url := range []string{
		"/generate-report",
		"/generate-report?from=1/1/2024",
		"/generate-report?to=1/7/2024",
	} {
		resp, err := http.Get(ts.URL + url)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, url)
	}
}

func TestGenerateReportRejectsUnknownMode(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/generate-report?from=1/1/2024&to=1/7/2024&mode=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateReportPassesParams(t *testing.T) {
	r := &stubReport{result: &report.Result{Mode: report.ModeSales, Appended: 4}}
	ts := newTestServer(nil, r, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/generate-report?from=1/1/2024&to=1/7/2024&mode=sales")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, report.ModeSales, r.params.Mode)
	assert.Equal(t, "1/1/2024", r.params.From)
	assert.Equal(t, "1/7/2024", r.params.To)
}

func TestSyncColumns(t *testing.T) {
	c := &stubColsync{result: &colsync.Result{RowCount: 12}}
	ts := newTestServer(nil, nil, c)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sync-columns", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["success"])
}

func TestAppendOrders(t *testing.T) {
	g := &stubGateway{}
	ts := newTestServerWithGateway(nil, nil, nil, g)
	defer ts.Close()

	body := strings.NewReader(`{"data": [["1001", "#1001", "2024/03/05"], ["1002", "#1002", "2024/03/06"]]}`)
	resp, err := http.Post(ts.URL+"/append-orders", "application/json", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[map[string]any](t, resp)
	assert.Equal(t, float64(2), out["appended"])
	require.Len(t, g.appended, 2)
	assert.Equal(t, "1001", g.appended[0][0])
}

func TestAppendOrdersRejectsEmptyPayload(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	for _, body := range []string{`{}`, `{"data": []}`, `not json`} {
		resp, err := http.Post(ts.URL+"/append-orders", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestRunLogEndpoints(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/run")
	require.NoError(t, err)
	run := decode[RunResponse](t, resp)

	resp, err = http.Get(ts.URL + "/runs")
	require.NoError(t, err)
	runs := decode[[]RunRecord](t, resp)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].ID)
	assert.Equal(t, StatusSucceeded, runs[0].Status)
	assert.NotNil(t, runs[0].FinishedAt)

	resp, err = http.Get(ts.URL + "/runs/" + run.RunID)
	require.NoError(t, err)
	rec := decode[RunRecord](t, resp)
	assert.Equal(t, "run", rec.Operation)

	resp, err = http.Get(ts.URL + "/runs/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunLogNewestFirst(t *testing.T) {
	l := NewRunLog()
	first := l.Start("run")
	second := l.Start("sync-columns")

	records := l.List()
	require.Len(t, records, 2)
	assert.Equal(t, second, records[0].ID)
	assert.Equal(t, first, records[1].ID)
}

func TestRunLogFinishWithError(t *testing.T) {
	l := NewRunLog()
	id := l.Start("run")
	l.Finish(id, nil, errors.New("boom"))

	rec, ok := l.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "boom", rec.Error)
}
