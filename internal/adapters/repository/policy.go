package repository

import (
	"fmt"
	"strings"
)

// DuplicatePolicy decides what happens when a pair is assessed twice.
type DuplicatePolicy int

const (
	// PolicyReject refuses the second assessment with ErrDuplicateAssessment.
	PolicyReject DuplicatePolicy = iota
	// PolicyUpdate replaces the earlier rating in place.
	PolicyUpdate
)

func (p DuplicatePolicy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicyUpdate:
		return "update"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseDuplicatePolicy accepts "reject" or "update".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return PolicyReject, nil
	case "update":
		return PolicyUpdate, nil
	default:
		return PolicyReject, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}
