package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// maxAssessmentBody bounds the POST /assessments payload.
const maxAssessmentBody = 16 << 10

// assessmentRequest mirrors the OpenAPI schema for POST /assessments.
type assessmentRequest struct {
	TargetID string         `json:"target_id"`
	Ratings  map[string]int `json:"ratings"`
}

func (a assessmentRequest) validate() error {
	switch {
	case strings.TrimSpace(a.TargetID) == "":
		return errors.New("missing target_id")
	case len(a.Ratings) == 0:
		return errors.New("missing ratings")
	}
	return nil
}

// AssessmentHandler handles assessment submissions.
type AssessmentHandler struct {
	deps AssessmentDependencies
}

// NewAssessmentHandler creates a new assessment handler.
func NewAssessmentHandler(deps AssessmentDependencies) *AssessmentHandler {
	return &AssessmentHandler{deps: deps}
}

// HandlePostAssessment handles POST /assessments requests. The evaluator is
// always the caller.
func (h *AssessmentHandler) HandlePostAssessment(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_assessment"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	id, err := identityFrom(r, op)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}

	var req assessmentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAssessmentBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	a, err := h.deps.Submit(r.Context(), id.UserID, req.TargetID, req.Ratings)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
