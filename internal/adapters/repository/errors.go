package repository

import "errors"

// Sentinel kinds for gateway errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateAssessment = errors.New("assessment already submitted for this pair")
	ErrSelfAssessment      = errors.New("evaluator cannot assess themselves")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnknownPolicy       = errors.New("unknown duplicate policy")
)
