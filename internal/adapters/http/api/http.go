// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/peerfeedback/internal/adapters/repository"
	service "github.com/okian/peerfeedback/internal/app"
	"github.com/okian/peerfeedback/internal/domain/aggregation"
	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/progress"
	"github.com/okian/peerfeedback/internal/domain/rating"
	"github.com/okian/peerfeedback/internal/domain/types"
	"github.com/okian/peerfeedback/pkg/logger"
)

// Dependencies required by HTTP handlers. Each handler depends only on the
// slice of this bundle it calls.
type Dependencies interface {
	LoginDependencies
	RosterDependencies
	ProgressDependencies
	AssessmentDependencies
	SummaryDependencies
	ReportDependencies
}

// LoginDependencies checks credentials.
type LoginDependencies interface {
	Login(ctx context.Context, username, password string) (model.User, error)
}

// RosterDependencies lists an evaluator's colleagues.
type RosterDependencies interface {
	Roster(ctx context.Context, evaluatorID string) ([]types.RosterEntry, error)
}

// ProgressDependencies computes an evaluator's completion.
type ProgressDependencies interface {
	Progress(ctx context.Context, evaluatorID string) (progress.Summary, error)
}

// AssessmentDependencies stores a rating.
type AssessmentDependencies interface {
	Submit(ctx context.Context, evaluatorID, targetID string, candidate map[string]int) (model.Assessment, error)
}

// SummaryDependencies aggregates one employee's ratings.
type SummaryDependencies interface {
	Summary(ctx context.Context, targetID string) (aggregation.Summary, error)
}

// ReportDependencies builds the administrator report.
type ReportDependencies interface {
	Report(ctx context.Context) (types.Report, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	cfg serverConfig

	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	loginHandler      *LoginHandler
	rosterHandler     *RosterHandler
	progressHandler   *ProgressHandler
	assessmentHandler *AssessmentHandler
	summaryHandler    *SummaryHandler
	reportHandler     *ReportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Server{
		cfg:               cfg,
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		loginHandler:      NewLoginHandler(deps),
		rosterHandler:     NewRosterHandler(deps),
		progressHandler:   NewProgressHandler(deps),
		assessmentHandler: NewAssessmentHandler(deps),
		summaryHandler:    NewSummaryHandler(deps),
		reportHandler:     NewReportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	throttle := RateLimitMiddleware(s.cfg.submitRate, s.cfg.submitBurst)

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/login", MetricsMiddleware(s.loginHandler.HandleLogin, "login"))
	mux.HandleFunc("/roster", MetricsMiddleware(s.rosterHandler.HandleGetRoster, "roster"))
	mux.HandleFunc("/progress", MetricsMiddleware(s.progressHandler.HandleGetProgress, "progress"))
	mux.HandleFunc("/assessments", MetricsMiddleware(throttle(s.assessmentHandler.HandlePostAssessment), "assessments"))
	mux.HandleFunc("/summary/", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("/report", MetricsMiddleware(s.reportHandler.HandleGetReport, "report"))
}

type errorResponse struct {
	Code     string              `json:"code"`
	Message  string              `json:"message"`
	Problems []rating.FieldError `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var verr *rating.ValidationError
	if errors.As(err, &verr) {
		resp.Problems = verr.Problems
	}
	writeJSON(w, status, resp)
}

// statusFor maps service and store errors onto HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, repository.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotEligible):
		return http.StatusForbidden, "not_eligible"
	case errors.Is(err, rating.ErrInvalidRating):
		return http.StatusBadRequest, "invalid_rating"
	case errors.Is(err, repository.ErrSelfAssessment):
		return http.StatusBadRequest, "self_assessment"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidIdentity),
		errors.Is(err, model.ErrInvalidAssessment):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrDuplicateAssessment):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, ErrThrottled):
		return http.StatusTooManyRequests, "throttled"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes err with the status statusFor picks. Server errors are logged
// with the operation that raised them.
func fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, Wrap(op, err))
}
