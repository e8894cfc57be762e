// Package postgres implements the gateway on PostgreSQL via pgx. Pair
// uniqueness is enforced by a UNIQUE (evaluator_id, target_id) constraint.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/peerfeedback/internal/adapters/repository"
	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/progress"
	"github.com/okian/peerfeedback/internal/domain/rating"
	"github.com/okian/peerfeedback/pkg/logger"
	"github.com/okian/peerfeedback/pkg/metrics"
)

const (
	backend = "postgres"

	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// Store is a repository.Store backed by a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	policy repository.DuplicatePolicy
	log    logger.Logger
	now    func() time.Time
}

var _ repository.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithDuplicatePolicy sets how a repeated pair is handled.
func WithDuplicatePolicy(p repository.DuplicatePolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open connects to dsn, checks the connection and applies the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	s := New(pool, opts...)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:   pool,
		policy: repository.PolicyReject,
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL()); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
}

// UpsertUsers writes users in one batch, replacing rows with the same id.
func (s *Store) UpsertUsers(ctx context.Context, users ...model.User) error {
	batch := &pgx.Batch{}
	for _, u := range users {
		if err := model.ValidateIdentity(u.ID); err != nil {
			return fmt.Errorf("user %q: %w", u.Name, err)
		}
		batch.Queue(`INSERT INTO users (id, username, name, role, position, password_hash)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, name = EXCLUDED.name,
	role = EXCLUDED.role, position = EXCLUDED.position, password_hash = EXCLUDED.password_hash`,
			u.ID, u.Username, u.Name, string(u.Role), u.Position, u.PasswordHash)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: upsert users: %w", err)
	}
	return nil
}

const selectUsersSQL = `SELECT id, COALESCE(username, ''), name, role, position, password_hash FROM users`

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &role, &u.Position, &u.PasswordHash); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	defer observe("list_users", time.Now())

	rows, err := s.pool.Query(ctx, selectUsersSQL+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetUser returns repository.ErrNotFound for an unknown id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	defer observe("get_user", time.Now())

	u, err := scanUser(s.pool.QueryRow(ctx, selectUsersSQL+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %q: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("postgres: get user: %w", err)
	}
	return u, nil
}

// ListEligibleTargets returns non-admin users other than evaluatorID.
func (s *Store) ListEligibleTargets(ctx context.Context, evaluatorID string) ([]string, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return progress.EligibleTargets(evaluatorID, users)
}

func (s *Store) queryAssessments(ctx context.Context, op, where string, args ...any) ([]model.Assessment, error) {
	defer observe(op, time.Now())

	rows, err := s.pool.Query(ctx, selectAssessmentsSQL(where), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		var (
			a      model.Assessment
			scores [rating.Count]int
		)
		dest := []any{&a.ID, &a.EvaluatorID, &a.TargetID}
		for i := range scores {
			dest = append(dest, &scores[i])
		}
		dest = append(dest, &a.CreatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("postgres: scan assessment: %w", err)
		}
		a.Rating = rating.FromScores(scores)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAssessmentsFor returns the assessments addressed to targetID.
func (s *Store) ListAssessmentsFor(ctx context.Context, targetID string) ([]model.Assessment, error) {
	return s.queryAssessments(ctx, "list_for_target", "target_id = $1", targetID)
}

// ListAllAssessments returns every assessment.
func (s *Store) ListAllAssessments(ctx context.Context) ([]model.Assessment, error) {
	return s.queryAssessments(ctx, "list_all", "")
}

// ListCompletedPairs returns the targets evaluatorID has rated.
func (s *Store) ListCompletedPairs(ctx context.Context, evaluatorID string) ([]string, error) {
	defer observe("list_completed", time.Now())

	rows, err := s.pool.Query(ctx, `SELECT target_id FROM assessments WHERE evaluator_id = $1 ORDER BY target_id`, evaluatorID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list completed: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// InsertAssessment stores a under the configured duplicate policy.
func (s *Store) InsertAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryInsertLatency(backend, float64(time.Since(start).Microseconds())/1000)
	}()

	if a.EvaluatorID == a.TargetID && a.EvaluatorID != "" {
		return model.Assessment{}, repository.ErrSelfAssessment
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

	args := []any{a.ID, a.EvaluatorID, a.TargetID}
	for _, v := range a.Rating.Scores() {
		args = append(args, v)
	}
	args = append(args, a.CreatedAt)

	err := s.pool.QueryRow(ctx, insertAssessmentSQL(s.policy == repository.PolicyUpdate), args...).Scan(&a.ID, &a.CreatedAt)
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return model.Assessment{}, fmt.Errorf("%s -> %s: %w", a.EvaluatorID, a.TargetID, repository.ErrDuplicateAssessment)
	case errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation:
		return model.Assessment{}, fmt.Errorf("%s -> %s: %w", a.EvaluatorID, a.TargetID, repository.ErrNotFound)
	case errors.As(err, &pgErr) && pgErr.Code == codeCheckViolation:
		return model.Assessment{}, fmt.Errorf("%w: %s", model.ErrInvalidAssessment, pgErr.ConstraintName)
	case err != nil:
		return model.Assessment{}, fmt.Errorf("postgres: insert assessment: %w", err)
	}
	return a, nil
}

// Authenticate checks password against the stored bcrypt hash.
func (s *Store) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	defer observe("authenticate", time.Now())

	u, err := scanUser(s.pool.QueryRow(ctx, selectUsersSQL+" WHERE username = $1", username))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, repository.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("postgres: authenticate: %w", err)
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return model.User{}, repository.ErrInvalidCredentials
	}
	return u, nil
}

// Count returns the number of users and assessments; failures are logged and
// reported as zero.
func (s *Store) Count(ctx context.Context) (users, assessments int) {
	err := s.pool.QueryRow(ctx, `SELECT (SELECT count(*) FROM users), (SELECT count(*) FROM assessments)`).Scan(&users, &assessments)
	if err != nil {
		s.log.Warn(ctx, "count failed", logger.String("backend", backend), logger.Error(err))
		return 0, 0
	}
	return users, assessments
}
