package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// RunReader is the read side of the run store.
type RunReader interface {
	GetRun(ctx context.Context, id string) (domain.DislocationRun, error)
	ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.RunSummary, error)
}

// AuditReader is the read side of the audit log.
type AuditReader interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// HistoryHandler serves stored runs and the audit log. Either store may be
// nil when Postgres is not configured; its endpoints then answer 503.
type HistoryHandler struct {
	runs   RunReader
	audit  AuditReader
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(runs RunReader, audit AuditReader, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{runs: runs, audit: audit, logger: logger}
}

type listRunsResponse struct {
	Runs   []domain.RunSummary `json:"runs"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ListRuns returns stored run summaries, newest first.
// GET /api/dislocations/runs?limit=50&offset=0
func (h *HistoryHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}
	opts := parseListOpts(r)
	runs, err := h.runs.ListRuns(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}
	writeJSON(w, http.StatusOK, listRunsResponse{Runs: runs, Limit: opts.Limit, Offset: opts.Offset})
}

// GetRun returns one stored run with its signals.
// GET /api/dislocations/runs/{id}
func (h *HistoryHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}
	id := r.PathValue("id")
	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get run failed",
			slog.String("run_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListAudit returns audit entries, optionally for one event name.
// GET /api/audit?event=scan.completed&limit=50
func (h *HistoryHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log not configured")
		return
	}
	opts := parseListOpts(r)
	opts.Event = r.URL.Query().Get("event")

	entries, err := h.audit.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
