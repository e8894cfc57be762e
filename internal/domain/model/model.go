// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/okian/peerfeedback/internal/domain/rating"
)

// maxIdentityLength bounds identity strings accepted from callers.
const maxIdentityLength = 128

// Role distinguishes administrators from employees who rate and are rated.
type Role string

// Known roles as supplied by the session provider.
const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// User is an employee or administrator. Users are created outside this
// service and are read-only here.
type User struct {
	ID           string `json:"id" yaml:"id"`
	Username     string `json:"username" yaml:"username"`
	Name         string `json:"name" yaml:"name"`
	Role         Role   `json:"role" yaml:"role"`
	Position     string `json:"position" yaml:"position"`
	PasswordHash string `json:"-" yaml:"password_hash"`
}

// IsAdmin reports whether the user holds the Admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Assessment is one evaluator's complete rating of one target.
type Assessment struct {
	ID          string        `json:"id"`
	EvaluatorID string        `json:"evaluator_id"`
	TargetID    string        `json:"target_id"`
	Rating      rating.Rating `json:"ratings"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Pair returns the (evaluator, target) key that must be unique per assessment.
func (a Assessment) Pair() Pair { return Pair{EvaluatorID: a.EvaluatorID, TargetID: a.TargetID} }

// Validate checks identities and the rating. Failures wrap ErrInvalidAssessment.
func (a Assessment) Validate() error {
	if err := ValidateIdentity(a.EvaluatorID); err != nil {
		return fmt.Errorf("%w: evaluator: %w", ErrInvalidAssessment, err)
	}
	if err := ValidateIdentity(a.TargetID); err != nil {
		return fmt.Errorf("%w: target: %w", ErrInvalidAssessment, err)
	}
	if a.EvaluatorID == a.TargetID {
		return fmt.Errorf("%w: evaluator %q rated themselves", ErrInvalidAssessment, a.EvaluatorID)
	}
	if err := a.Rating.Validate(); err != nil {
		return fmt.Errorf("%w: assessment %q: %w", ErrInvalidAssessment, a.ID, err)
	}
	return nil
}

// Pair identifies an evaluator -> target relation.
type Pair struct {
	EvaluatorID string
	TargetID    string
}

// PairSet is a set of completed evaluator -> target pairs.
type PairSet map[Pair]struct{}

// NewPairSet builds a set from the targets one evaluator has completed.
func NewPairSet(evaluatorID string, targetIDs []string) PairSet {
	s := make(PairSet, len(targetIDs))
	for _, t := range targetIDs {
		s.Add(Pair{EvaluatorID: evaluatorID, TargetID: t})
	}
	return s
}

// Add records p in the set.
func (s PairSet) Add(p Pair) { s[p] = struct{}{} }

// Has reports whether p is in the set.
func (s PairSet) Has(p Pair) bool {
	_, ok := s[p]
	return ok
}

// ValidateIdentity rejects empty, padded, oversized or control-character
// identities. Failures wrap ErrInvalidIdentity.
func ValidateIdentity(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentity)
	case strings.TrimSpace(id) != id:
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidIdentity, id)
	case len(id) > maxIdentityLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdentity, maxIdentityLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidIdentity, id)
		}
	}
	return nil
}
