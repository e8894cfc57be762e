package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithDuplicatePolicy sets how a repeated (evaluator, target) pair is handled.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(s *MemoryStore) {
		s.policy = p
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
