package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/peerfeedback/internal/domain/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool       `json:"success"`
	User    model.User `json:"user"`
}

// LoginHandler handles login requests.
type LoginHandler struct {
	deps LoginDependencies
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(deps LoginDependencies) *LoginHandler {
	return &LoginHandler{deps: deps}
}

// HandleLogin handles POST /login requests.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	u, err := h.deps.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: u})
}
