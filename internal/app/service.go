// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/okian/peerfeedback/internal/adapters/repository"
	"github.com/okian/peerfeedback/internal/domain/aggregation"
	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/progress"
	"github.com/okian/peerfeedback/internal/domain/rating"
	"github.com/okian/peerfeedback/internal/domain/types"
	"github.com/okian/peerfeedback/pkg/logger"
	"github.com/okian/peerfeedback/pkg/metrics"
)

const (
	tracerName = "github.com/okian/peerfeedback/internal/app"
	reportKey  = "report"

	defaultReportRefresh    = 30 * time.Second
	defaultMaxReportTargets = 5_000
)

// Service implements the API dependencies for the peer feedback system.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	logger logger.Logger
	tracer trace.Tracer
	now    func() time.Time

	// Configuration
	reportRefresh    time.Duration
	maxReportTargets int

	// Admin report cache; nil means stale. reportGen is bumped whenever
	// the cache is cleared so a rebuild that started earlier cannot
	// republish what it read.
	report    atomic.Pointer[types.Report]
	reportGen atomic.Uint64
	reportSF  singleflight.Group

	// Counters for GetStats
	submitted  atomic.Int64
	updated    atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tracer:           otel.Tracer(tracerName),
		now:              time.Now,
		reportRefresh:    defaultReportRefresh,
		maxReportTargets: defaultMaxReportTargets,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start checks the configuration and launches the background report refresh.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting peer feedback service...")

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.refreshLoop(context.WithoutCancel(ctx), s.stopCh)

	s.started = true
	s.logger.Info(ctx, "peer feedback service started",
		logger.Duration("reportRefresh", s.reportRefresh),
		logger.Int("maxReportTargets", s.maxReportTargets),
	)
	return nil
}

// Stop stops the refresh loop and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping peer feedback service...")

	close(s.stopCh)
	s.wg.Wait()

	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "peer feedback service stopped")
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// refreshLoop recomputes the admin report and pushes store totals on every tick.
func (s *Service) refreshLoop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.reportRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			users, assessments := s.store.Count(ctx)
			metrics.UpdateTotals(users, assessments)

			s.invalidateReport()
			if _, err := s.Report(ctx); err != nil {
				s.logger.Warn(ctx, "background report refresh failed", logger.Error(err))
			}
		}
	}
}

func (s *Service) invalidateReport() {
	s.reportGen.Add(1)
	s.report.Store(nil)
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(attrs...)
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Login checks credentials against the store.
func (s *Service) Login(ctx context.Context, username, password string) (_ model.User, err error) {
	ctx, span := s.startSpan(ctx, "Service.Login")
	defer func() { endSpan(span, err) }()

	if err := s.running(); err != nil {
		return model.User{}, err
	}

	u, err := s.store.Authenticate(ctx, username, password)
	switch {
	case errors.Is(err, repository.ErrInvalidCredentials):
		metrics.RecordLoginAttempt("invalid")
		return model.User{}, err
	case err != nil:
		metrics.RecordLoginAttempt("error")
		return model.User{}, err
	}
	metrics.RecordLoginAttempt("success")
	u.PasswordHash = ""
	return u, nil
}

// User returns one user without credentials.
func (s *Service) User(ctx context.Context, id string) (model.User, error) {
	if err := s.running(); err != nil {
		return model.User{}, err
	}
	if err := model.ValidateIdentity(id); err != nil {
		return model.User{}, err
	}
	u, err := s.store.GetUser(ctx, id)
	u.PasswordHash = ""
	return u, err
}

// Roster lists the colleagues evaluatorID may rate, flagging those already
// rated.
func (s *Service) Roster(ctx context.Context, evaluatorID string) (_ []types.RosterEntry, err error) {
	ctx, span := s.startSpan(ctx, "Service.Roster", attribute.String("evaluator.id", evaluatorID))
	defer func() { endSpan(span, err) }()

	if err := s.running(); err != nil {
		return nil, err
	}
	if err := model.ValidateIdentity(evaluatorID); err != nil {
		return nil, err
	}

	var (
		users     []model.User
		completed []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.store.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		completed, err = s.store.ListCompletedPairs(gctx, evaluatorID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !slices.ContainsFunc(users, func(u model.User) bool { return u.ID == evaluatorID }) {
		return nil, fmt.Errorf("evaluator %q: %w", evaluatorID, repository.ErrNotFound)
	}

	ids, err := progress.EligibleTargets(evaluatorID, users)
	if err != nil {
		return nil, err
	}
	done := model.NewPairSet(evaluatorID, completed)
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]types.RosterEntry, 0, len(ids))
	for _, id := range ids {
		u := byID[id]
		out = append(out, types.RosterEntry{
			ID:        u.ID,
			Name:      u.Name,
			Position:  u.Position,
			Evaluated: done.Has(model.Pair{EvaluatorID: evaluatorID, TargetID: id}),
		})
	}
	return out, nil
}

// Progress reports how far evaluatorID is through their roster.
func (s *Service) Progress(ctx context.Context, evaluatorID string) (_ progress.Summary, err error) {
	ctx, span := s.startSpan(ctx, "Service.Progress", attribute.String("evaluator.id", evaluatorID))
	defer func() { endSpan(span, err) }()

	if err := s.running(); err != nil {
		return progress.Summary{}, err
	}
	if err := model.ValidateIdentity(evaluatorID); err != nil {
		return progress.Summary{}, err
	}

	var roster, completed []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		roster, err = s.store.ListEligibleTargets(gctx, evaluatorID)
		return err
	})
	g.Go(func() (err error) {
		completed, err = s.store.ListCompletedPairs(gctx, evaluatorID)
		return err
	})
	if err := g.Wait(); err != nil {
		return progress.Summary{}, err
	}

	metrics.RecordProgressQuery()
	return progress.ComputeProgress(evaluatorID, roster, model.NewPairSet(evaluatorID, completed))
}

// Submit validates candidate and stores it as evaluatorID's assessment of
// targetID. The target must be on the evaluator's roster and administrators
// may not rate anyone.
func (s *Service) Submit(ctx context.Context, evaluatorID, targetID string, candidate map[string]int) (_ model.Assessment, err error) {
	ctx, span := s.startSpan(ctx, "Service.Submit",
		attribute.String("evaluator.id", evaluatorID),
		attribute.String("target.id", targetID))
	defer func() { endSpan(span, err) }()

	if err := s.running(); err != nil {
		return model.Assessment{}, err
	}

	reject := func(reason string, err error) (model.Assessment, error) {
		s.rejected.Add(1)
		metrics.RecordAssessmentRejected(reason)
		return model.Assessment{}, err
	}

	for _, id := range []string{evaluatorID, targetID} {
		if err := model.ValidateIdentity(id); err != nil {
			return reject("invalid_identity", err)
		}
	}
	if evaluatorID == targetID {
		return reject("self_assessment", repository.ErrSelfAssessment)
	}
	r, err := rating.ValidateRating(candidate)
	if err != nil {
		return reject("invalid_rating", err)
	}

	var (
		evaluator model.User
		roster    []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		evaluator, err = s.store.GetUser(gctx, evaluatorID)
		return err
	})
	g.Go(func() (err error) {
		roster, err = s.store.ListEligibleTargets(gctx, evaluatorID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Assessment{}, err
	}
	if evaluator.IsAdmin() {
		return reject("admin_evaluator", fmt.Errorf("evaluator %s is an administrator: %w", evaluatorID, ErrNotEligible))
	}
	if !slices.Contains(roster, targetID) {
		return reject("not_eligible", fmt.Errorf("%s -> %s: %w", evaluatorID, targetID, ErrNotEligible))
	}

	proposed := model.Assessment{
		ID:          uuid.NewString(),
		EvaluatorID: evaluatorID,
		TargetID:    targetID,
		Rating:      r,
		CreatedAt:   s.now().UTC(),
	}
	stored, err := s.store.InsertAssessment(ctx, proposed)
	switch {
	case errors.Is(err, repository.ErrDuplicateAssessment):
		s.duplicates.Add(1)
		metrics.RecordAssessmentDuplicate()
		return model.Assessment{}, err
	case err != nil:
		return model.Assessment{}, err
	}

	if stored.ID != proposed.ID {
		s.updated.Add(1)
		metrics.RecordAssessmentUpdated()
	} else {
		s.submitted.Add(1)
		metrics.RecordAssessmentSubmitted()
	}
	s.invalidateReport()

	s.logger.Debug(ctx, "assessment stored",
		logger.String("assessmentID", stored.ID),
		logger.String("evaluatorID", evaluatorID),
		logger.String("targetID", targetID),
		logger.Bool("updated", stored.ID != proposed.ID),
	)
	return stored, nil
}

// Summary aggregates every assessment of targetID.
func (s *Service) Summary(ctx context.Context, targetID string) (_ aggregation.Summary, err error) {
	ctx, span := s.startSpan(ctx, "Service.Summary", attribute.String("target.id", targetID))
	defer func() { endSpan(span, err) }()

	if err := s.running(); err != nil {
		return aggregation.Summary{}, err
	}
	if err := model.ValidateIdentity(targetID); err != nil {
		return aggregation.Summary{}, err
	}
	if _, err := s.store.GetUser(ctx, targetID); err != nil {
		return aggregation.Summary{}, err
	}

	assessments, err := s.store.ListAssessmentsFor(ctx, targetID)
	if err != nil {
		return aggregation.Summary{}, err
	}

	start := time.Now()
	sum, err := aggregation.SummarizeTarget(targetID, assessments)
	metrics.RecordSummaryLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		s.logger.Error(ctx, "summary failed", logger.String("targetID", targetID), logger.Error(err))
		return aggregation.Summary{}, err
	}
	span.SetAttributes(attribute.Int("assessments", sum.Assessments))
	return sum, nil
}

// Report returns the admin view. Concurrent callers share one computation and
// the result is served from cache until the next refresh or submission.
func (s *Service) Report(ctx context.Context) (types.Report, error) {
	if err := s.running(); err != nil {
		return types.Report{}, err
	}
	if r := s.report.Load(); r != nil {
		return *r, nil
	}

	v, err, _ := s.reportSF.Do(reportKey, func() (any, error) {
		if r := s.report.Load(); r != nil {
			return r, nil
		}
		gen := s.reportGen.Load()
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		r, err := s.buildReport(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.report.Store(r)
		if s.reportGen.Load() != gen {
			// Invalidated while building; r may miss that change.
			s.report.CompareAndSwap(r, nil)
		}
		return r, nil
	})
	if err != nil {
		return types.Report{}, err
	}
	return *v.(*types.Report), nil
}

func (s *Service) buildReport(ctx context.Context) (_ *types.Report, err error) {
	ctx, span := s.startSpan(ctx, "Service.buildReport")
	defer func() { endSpan(span, err) }()
	start := time.Now()

	var (
		users       []model.User
		assessments []model.Assessment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.store.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		assessments, err = s.store.ListAllAssessments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		ids    []string
		byID   = make(map[string]model.User, len(users))
		report = &types.Report{GeneratedAt: s.now().UTC()}
	)
	for _, u := range users {
		if u.IsAdmin() {
			continue
		}
		if _, dup := byID[u.ID]; dup {
			continue
		}
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}
	if len(ids) > s.maxReportTargets {
		s.logger.Warn(ctx, "report truncated",
			logger.Int("employees", len(ids)),
			logger.Int("max", s.maxReportTargets),
		)
		ids = ids[:s.maxReportTargets]
		report.Truncated = true
	}

	summaries, err := aggregation.SummarizeAll(ids, assessments)
	if err != nil {
		return nil, err
	}

	report.Coverage = progress.ComputeCoverage(users, assessments)
	report.Summaries = make([]types.ReportEntry, 0, len(summaries))
	for _, sum := range summaries {
		u := byID[sum.TargetID]
		report.Summaries = append(report.Summaries, types.ReportEntry{
			Name:     u.Name,
			Position: u.Position,
			Summary:  sum,
		})
	}

	metrics.RecordReportRefresh(float64(time.Since(start).Microseconds())/1000, len(report.Summaries))
	span.SetAttributes(attribute.Int("employees", len(report.Summaries)))
	return report, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"reportRefreshMs":  s.reportRefresh.Milliseconds(),
		"maxReportTargets": s.maxReportTargets,
		"submitted":        s.submitted.Load(),
		"updated":          s.updated.Load(),
		"duplicates":       s.duplicates.Load(),
		"rejected":         s.rejected.Load(),
	}

	if s.started {
		users, assessments := s.store.Count(context.Background())
		stats["totalUsers"] = users
		stats["totalAssessments"] = assessments
		metrics.UpdateTotals(users, assessments)

		if r := s.report.Load(); r != nil {
			stats["reportGeneratedAt"] = r.GeneratedAt
		}
	}

	return stats
}
