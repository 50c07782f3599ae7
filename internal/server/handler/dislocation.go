package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// DislocationService defines the methods the dislocation handler requires.
type DislocationService interface {
	Latest(ctx context.Context) (domain.DislocationRun, error)
	RunScan(ctx context.Context) (domain.DislocationRun, error)
}

// DislocationHandler serves the detection result endpoints.
type DislocationHandler struct {
	svc    DislocationService
	logger *slog.Logger
}

// NewDislocationHandler creates a DislocationHandler.
func NewDislocationHandler(svc DislocationService, logger *slog.Logger) *DislocationHandler {
	return &DislocationHandler{svc: svc, logger: logger}
}

// Latest returns the most recent {signals, meta}, scanning first when no
// run exists yet.
// GET /api/dislocations
func (h *DislocationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Latest(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		run, err = h.svc.RunScan(r.Context())
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: latest dislocations failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load dislocations")
		return
	}
	w.Header().Set("X-Run-ID", run.ID)
	writeJSON(w, http.StatusOK, run.Result)
}

// Scan runs a detection pass now and returns its result.
// POST /api/dislocations/scan
func (h *DislocationHandler) Scan(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.RunScan(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: scan failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	w.Header().Set("X-Run-ID", run.ID)
	writeJSON(w, http.StatusOK, run.Result)
}
