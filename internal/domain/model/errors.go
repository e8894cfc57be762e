package model

import "errors"

// Sentinel kinds for domain model errors.
var (
	// ErrInvalidIdentity indicates a malformed user, evaluator or target identity.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidAssessment indicates an assessment record that fails validation.
	ErrInvalidAssessment = errors.New("invalid assessment")
)
