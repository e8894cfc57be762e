package api

import (
	"net/http"
	"strings"
)

// SummaryHandler handles per-employee summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleGetSummary handles GET /summary/{target_id} requests.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_summary"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if _, err := requireAdmin(r, op); err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	// Extract path parameter after /summary/
	target := strings.TrimPrefix(r.URL.Path, "/summary/")
	if target == "" || strings.Contains(target, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	sum, err := h.deps.Summary(r.Context(), target)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
