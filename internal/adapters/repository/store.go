// Package repository defines the data access gateway for users and
// assessments, and ships an in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/peerfeedback/internal/domain/model"
)

// Store provides read/write access to users and assessments. Implementations
// own the (evaluator, target) uniqueness guarantee.
type Store interface {
	// ListUsers returns every user, admins included.
	ListUsers(ctx context.Context) ([]model.User, error)
	// GetUser returns ErrNotFound when id is unknown.
	GetUser(ctx context.Context, id string) (model.User, error)
	// ListEligibleTargets returns the IDs evaluatorID may rate: no admins, not
	// the evaluator.
	ListEligibleTargets(ctx context.Context, evaluatorID string) ([]string, error)

	// ListAssessmentsFor returns the assessments addressed to targetID.
	ListAssessmentsFor(ctx context.Context, targetID string) ([]model.Assessment, error)
	// ListAllAssessments returns every stored assessment.
	ListAllAssessments(ctx context.Context) ([]model.Assessment, error)
	// ListCompletedPairs returns the target IDs evaluatorID has already rated.
	ListCompletedPairs(ctx context.Context, evaluatorID string) ([]string, error)

	// InsertAssessment stores a. A second assessment for the same pair fails
	// with ErrDuplicateAssessment or, under PolicyUpdate, replaces the rating
	// and timestamp of the first while keeping its ID. The stored record is
	// returned.
	InsertAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error)

	// Authenticate returns the user whose credentials match, or
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, username, password string) (model.User, error)

	// Count returns the number of users and assessments.
	Count(ctx context.Context) (users, assessments int)

	// Close releases background resources.
	Close() error
}
