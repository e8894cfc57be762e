package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoStore     = errors.New("service: no store configured")
	ErrNotStarted  = errors.New("service: not started")
	ErrNotEligible = errors.New("target is not on the evaluator's roster")
)
