package handler

import (
	"net/http"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// StatusProvider reports the scanner's operational state.
type StatusProvider interface {
	Status() domain.ScanStatus
}

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// StatusHandler serves the backend status for dashboards.
type StatusHandler struct {
	status  StatusProvider
	clients ClientCounter // optional
}

// NewStatusHandler creates a StatusHandler. clients may be nil.
func NewStatusHandler(status StatusProvider, clients ClientCounter) *StatusHandler {
	return &StatusHandler{status: status, clients: clients}
}

// GetStatus responds with mode, uptime and last-run details.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()
	if h.clients != nil {
		st.WSClients = h.clients.ClientCount()
	}
	writeJSON(w, http.StatusOK, st)
}
