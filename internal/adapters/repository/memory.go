package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/progress"
	"github.com/okian/peerfeedback/pkg/metrics"
)

const backendMemory = "memory"

// MemoryStore is a mutex-guarded, in-process Store. Users are loaded once via
// PutUsers; assessments are indexed by (evaluator, target).
type MemoryStore struct {
	mu          sync.RWMutex
	users       []model.User
	byID        map[string]int
	byUsername  map[string]int
	assessments []model.Assessment
	pairs       map[model.Pair]int

	policy DuplicatePolicy
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:       make(map[string]int),
		byUsername: make(map[string]int),
		pairs:      make(map[model.Pair]int),
		policy:     PolicyReject,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutUsers adds users. IDs and usernames must be unique and roles known.
func (s *MemoryStore) PutUsers(users ...model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		if err := model.ValidateIdentity(u.ID); err != nil {
			return fmt.Errorf("user %q: %w", u.Name, err)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("user %q: unknown role %q", u.ID, u.Role)
		}
		if _, dup := s.byID[u.ID]; dup {
			return fmt.Errorf("user %q: duplicate id", u.ID)
		}
		if _, dup := s.byUsername[u.Username]; dup && u.Username != "" {
			return fmt.Errorf("user %q: duplicate username %q", u.ID, u.Username)
		}
		s.byID[u.ID] = len(s.users)
		if u.Username != "" {
			s.byUsername[u.Username] = len(s.users)
		}
		s.users = append(s.users, u)
	}
	return nil
}

// Close is a no-op; the store holds no background resources.
func (s *MemoryStore) Close() error { return nil }

func observeQuery(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(backendMemory, op, float64(time.Since(start).Microseconds())/1000)
}

// ListUsers returns a copy of every user.
func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	defer observeQuery("list_users", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.users), nil
}

// GetUser looks a user up by ID.
func (s *MemoryStore) GetUser(_ context.Context, id string) (model.User, error) {
	defer observeQuery("get_user", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	return s.users[i], nil
}

// ListEligibleTargets returns non-admin users other than evaluatorID.
func (s *MemoryStore) ListEligibleTargets(_ context.Context, evaluatorID string) ([]string, error) {
	defer observeQuery("list_targets", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return progress.EligibleTargets(evaluatorID, s.users)
}

// ListAssessmentsFor returns the assessments addressed to targetID.
func (s *MemoryStore) ListAssessmentsFor(_ context.Context, targetID string) ([]model.Assessment, error) {
	defer observeQuery("list_for_target", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Assessment
	for _, a := range s.assessments {
		if a.TargetID == targetID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListAllAssessments returns a copy of every assessment in insertion order.
func (s *MemoryStore) ListAllAssessments(_ context.Context) ([]model.Assessment, error) {
	defer observeQuery("list_all", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.assessments), nil
}

// ListCompletedPairs returns the targets evaluatorID has rated.
func (s *MemoryStore) ListCompletedPairs(_ context.Context, evaluatorID string) ([]string, error) {
	defer observeQuery("list_completed", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, a := range s.assessments {
		if a.EvaluatorID == evaluatorID {
			out = append(out, a.TargetID)
		}
	}
	return out, nil
}

// InsertAssessment validates and stores a, enforcing pair uniqueness under the
// configured policy. A missing ID is generated and a zero CreatedAt is set to
// the store clock.
func (s *MemoryStore) InsertAssessment(_ context.Context, a model.Assessment) (model.Assessment, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryInsertLatency(backendMemory, float64(time.Since(start).Microseconds())/1000)
	}()

	if a.EvaluatorID == a.TargetID && a.EvaluatorID != "" {
		return model.Assessment{}, ErrSelfAssessment
	}
	if err := a.Validate(); err != nil {
		return model.Assessment{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []string{a.EvaluatorID, a.TargetID} {
		if _, ok := s.byID[id]; !ok {
			return model.Assessment{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
		}
	}

	if i, ok := s.pairs[a.Pair()]; ok {
		if s.policy != PolicyUpdate {
			return model.Assessment{}, fmt.Errorf("%s -> %s: %w", a.EvaluatorID, a.TargetID, ErrDuplicateAssessment)
		}
		existing := &s.assessments[i]
		existing.Rating = a.Rating
		existing.CreatedAt = a.CreatedAt
		return *existing, nil
	}

	s.pairs[a.Pair()] = len(s.assessments)
	s.assessments = append(s.assessments, a)
	return a, nil
}

// Authenticate checks password against the user's bcrypt hash.
func (s *MemoryStore) Authenticate(_ context.Context, username, password string) (model.User, error) {
	defer observeQuery("authenticate", time.Now())

	s.mu.RLock()
	i, ok := s.byUsername[username]
	var u model.User
	if ok {
		u = s.users[i]
	}
	s.mu.RUnlock()

	if !ok || u.PasswordHash == "" {
		return model.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Count returns the number of users and assessments.
func (s *MemoryStore) Count(_ context.Context) (users, assessments int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.assessments)
}
