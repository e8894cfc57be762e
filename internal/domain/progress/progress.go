// Package progress computes how far an evaluator is through their roster and
// how many employees have been rated at all.
package progress

import (
	"fmt"

	"github.com/okian/peerfeedback/internal/domain/model"
)

const percentScale = 100

// Summary is one evaluator's completion state.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
	// Percentage is unrounded; formatting is left to the presentation layer.
	Percentage float64 `json:"percentage"`
}

// Coverage is the administrator view of how many employees have been rated.
type Coverage struct {
	Total   int `json:"total"`
	Rated   int `json:"rated"`
	Unrated int `json:"unrated"`
}

// EligibleTargets returns the IDs evaluator may rate: every non-admin user
// other than the evaluator, in input order, without duplicates. Admins rate
// nobody, so an admin evaluator gets an empty roster.
func EligibleTargets(evaluatorID string, users []model.User) ([]string, error) {
	if err := model.ValidateIdentity(evaluatorID); err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}
	for _, u := range users {
		if u.ID == evaluatorID && u.IsAdmin() {
			return []string{}, nil
		}
	}
	seen := make(map[string]struct{}, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		if u.IsAdmin() || u.ID == evaluatorID {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u.ID)
	}
	return out, nil
}

// ComputeProgress counts the roster entries evaluatorID has completed. Completed pairs
// that reference targets no longer on the roster are ignored, so Remaining
// never goes negative. Duplicate roster entries count once and the
// evaluator's own ID is skipped, so Total is the number of distinct
// colleagues left to rate.
func ComputeProgress(evaluatorID string, roster []string, completed model.PairSet) (Summary, error) {
	if err := model.ValidateIdentity(evaluatorID); err != nil {
		return Summary{}, fmt.Errorf("evaluator: %w", err)
	}

	seen := make(map[string]struct{}, len(roster))
	var s Summary
	for _, target := range roster {
		if err := model.ValidateIdentity(target); err != nil {
			return Summary{}, fmt.Errorf("roster: %w", err)
		}
		if _, dup := seen[target]; dup || target == evaluatorID {
			continue
		}
		seen[target] = struct{}{}
		s.Total++
		if completed.Has(model.Pair{EvaluatorID: evaluatorID, TargetID: target}) {
			s.Completed++
		}
	}

	s.Remaining = max(0, s.Total-s.Completed)
	if s.Total > 0 {
		s.Percentage = float64(s.Completed) / float64(s.Total) * percentScale
	}
	return s, nil
}

// ComputeCoverage counts non-admin users and how many of them have received at
// least one assessment.
func ComputeCoverage(users []model.User, assessments []model.Assessment) Coverage {
	rated := make(map[string]struct{}, len(assessments))
	for _, a := range assessments {
		rated[a.TargetID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(users))
	var c Coverage
	for _, u := range users {
		if u.IsAdmin() {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		c.Total++
		if _, ok := rated[u.ID]; ok {
			c.Rated++
		}
	}
	c.Unrated = c.Total - c.Rated
	return c
}
