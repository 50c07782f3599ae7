package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDislocations struct {
	latest    *domain.DislocationRun
	scanned   int
	scanErr   error
	latestErr error
}

func (f *fakeDislocations) Latest(context.Context) (domain.DislocationRun, error) {
	if f.latestErr != nil {
		return domain.DislocationRun{}, f.latestErr
	}
	if f.latest == nil {
		return domain.DislocationRun{}, domain.ErrNotFound
	}
	return *f.latest, nil
}

func (f *fakeDislocations) RunScan(context.Context) (domain.DislocationRun, error) {
	f.scanned++
	if f.scanErr != nil {
		return domain.DislocationRun{}, f.scanErr
	}
	run := domain.DislocationRun{ID: "fresh", Result: domain.DislocationResult{Meta: domain.DislocationMeta{MarketsScanned: 4}}}
	f.latest = &run
	return run, nil
}

func TestLatestScansWhenEmpty(t *testing.T) {
	svc := &fakeDislocations{}
	h := NewDislocationHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/dislocations", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.scanned != 1 {
		t.Errorf("scanned = %d, want 1", svc.scanned)
	}
	if rec.Header().Get("X-Run-ID") != "fresh" {
		t.Errorf("X-Run-ID = %q", rec.Header().Get("X-Run-ID"))
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"signals":[]`) || !strings.Contains(body, `"marketsScanned":4`) {
		t.Errorf("body = %s", body)
	}

	rec = httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/dislocations", nil))
	if svc.scanned != 1 {
		t.Errorf("second request rescanned; scanned = %d", svc.scanned)
	}
}

func TestLatestError(t *testing.T) {
	h := NewDislocationHandler(&fakeDislocations{latestErr: errors.New("redis down")}, discardLogger())
	rec := httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/dislocations", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestScan(t *testing.T) {
	svc := &fakeDislocations{}
	h := NewDislocationHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/dislocations/scan", nil))
	if rec.Code != http.StatusOK || svc.scanned != 1 {
		t.Errorf("status = %d scanned = %d", rec.Code, svc.scanned)
	}

	svc.scanErr = errors.New("boom")
	rec = httptest.NewRecorder()
	h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/dislocations/scan", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

type fakeRuns struct {
	opts domain.ListOpts
	runs map[string]domain.DislocationRun
}

func (f *fakeRuns) GetRun(_ context.Context, id string) (domain.DislocationRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return domain.DislocationRun{}, domain.ErrNotFound
	}
	return run, nil
}

func (f *fakeRuns) ListRuns(_ context.Context, opts domain.ListOpts) ([]domain.RunSummary, error) {
	f.opts = opts
	return nil, nil
}

type fakeAudit struct{ opts domain.ListOpts }

func (f *fakeAudit) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	f.opts = opts
	return []domain.AuditEntry{{ID: 1, Event: opts.Event}}, nil
}

func TestListRunsPagination(t *testing.T) {
	runs := &fakeRuns{}
	h := NewHistoryHandler(runs, nil, discardLogger())

	rec := httptest.NewRecorder()
	h.ListRuns(rec, httptest.NewRequest(http.MethodGet, "/api/dislocations/runs?limit=9999&offset=20", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if runs.opts.Limit != 500 || runs.opts.Offset != 20 {
		t.Errorf("opts = %+v, want limit 500 offset 20", runs.opts)
	}
	var body listRunsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Runs == nil || len(body.Runs) != 0 {
		t.Errorf("runs = %v, want empty array", body.Runs)
	}
}

func TestGetRun(t *testing.T) {
	runs := &fakeRuns{runs: map[string]domain.DislocationRun{"r1": {ID: "r1"}}}
	mux := http.NewServeMux()
	h := NewHistoryHandler(runs, nil, discardLogger())
	mux.HandleFunc("GET /api/dislocations/runs/{id}", h.GetRun)

	tests := []struct {
		path string
		want int
	}{
		{"/api/dislocations/runs/r1", http.StatusOK},
		{"/api/dislocations/runs/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestHistoryNotConfigured(t *testing.T) {
	h := NewHistoryHandler(nil, nil, discardLogger())
	for name, fn := range map[string]http.HandlerFunc{
		"runs":  h.ListRuns,
		"run":   h.GetRun,
		"audit": h.ListAudit,
	} {
		rec := httptest.NewRecorder()
		fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", name, rec.Code)
		}
	}
}

func TestListAuditEventFilter(t *testing.T) {
	audit := &fakeAudit{}
	h := NewHistoryHandler(nil, audit, discardLogger())

	rec := httptest.NewRecorder()
	h.ListAudit(rec, httptest.NewRequest(http.MethodGet, "/api/audit?event=scan.completed&limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if audit.opts.Event != "scan.completed" || audit.opts.Limit != 5 {
		t.Errorf("opts = %+v", audit.opts)
	}
}

func TestHealthCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	bad := func(context.Context) error { return errors.New("refused") }

	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]HealthCheck{"redis": ok}, discardLogger()).
		HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"redis":"up"`) {
		t.Errorf("healthy: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]HealthCheck{"redis": ok, "postgres": bad}, discardLogger()).
		HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"postgres":"down"`) {
		t.Errorf("degraded: %d %s", rec.Code, rec.Body.String())
	}
}

type fixedStatus struct{}

func (fixedStatus) Status() domain.ScanStatus {
	return domain.ScanStatus{Mode: "monitor", TotalRuns: 3}
}

type fixedClients int

func (f fixedClients) ClientCount() int { return int(f) }

func TestStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStatusHandler(fixedStatus{}, fixedClients(2)).GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var st domain.ScanStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Mode != "monitor" || st.TotalRuns != 3 || st.WSClients != 2 {
		t.Errorf("status = %+v", st)
	}
}
