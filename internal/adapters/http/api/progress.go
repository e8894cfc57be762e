package api

import "net/http"

// ProgressHandler handles progress requests.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// HandleGetProgress handles GET /progress requests for the calling evaluator.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_progress"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, err := identityFrom(r, op)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	p, err := h.deps.Progress(r.Context(), id.UserID)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
