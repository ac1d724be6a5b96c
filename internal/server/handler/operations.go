package handler

import (
	"log/slog"
	"net/http"

	"github.com/flowponder/ponderd/internal/domain"
)

// OperationsHandler serves the client-side operation journal. The journal is
// a diagnostic record of what this client attempted; the ledger remains the
// source of truth for what actually happened.
type OperationsHandler struct {
	journal domain.OperationStore
	logger  *slog.Logger
}

// NewOperationsHandler creates an OperationsHandler.
func NewOperationsHandler(journal domain.OperationStore, logger *slog.Logger) *OperationsHandler {
	return &OperationsHandler{journal: journal, logger: logger}
}

// ListOperations returns journal records, newest first.
// GET /api/operations?limit=50&offset=0
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusNotImplemented, "operation journal not configured")
		return
	}

	recs, err := h.journal.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list operations failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list operations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"operations": recs,
		"total":      len(recs),
	})
}
