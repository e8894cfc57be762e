package api

import (
	"net/http"

	"github.com/okian/peerfeedback/internal/domain/types"
)

type rosterResponse struct {
	EvaluatorID string              `json:"evaluator_id"`
	Targets     []types.RosterEntry `json:"targets"`
}

// RosterHandler handles roster requests.
type RosterHandler struct {
	deps RosterDependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

// HandleGetRoster handles GET /roster requests for the calling evaluator.
func (h *RosterHandler) HandleGetRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_roster"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, err := identityFrom(r, op)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	targets, err := h.deps.Roster(r.Context(), id.UserID)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rosterResponse{EvaluatorID: id.UserID, Targets: targets})
}
