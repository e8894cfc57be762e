package service

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/peerfeedback/internal/adapters/repository"
	"github.com/okian/peerfeedback/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the gateway. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReportRefresh sets how often the admin report is recomputed in the
// background.
func WithReportRefresh(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reportRefresh = d
		}
	}
}

// WithMaxReportTargets caps how many employees one report covers.
func WithMaxReportTargets(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReportTargets = n
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock overrides the time source for assessment timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
