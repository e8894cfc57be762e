package api

import "golang.org/x/time/rate"

const (
	defaultSubmitRate  = 5
	defaultSubmitBurst = 10
)

type serverConfig struct {
	submitRate  rate.Limit
	submitBurst int
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		submitRate:  defaultSubmitRate,
		submitBurst: defaultSubmitBurst,
	}
}

// ServerOption configures the API server.
type ServerOption func(*serverConfig)

// WithSubmitRate sets the per-evaluator submission rate and burst. A zero
// rate disables throttling.
func WithSubmitRate(perSecond float64, burst int) ServerOption {
	return func(c *serverConfig) {
		if perSecond <= 0 {
			c.submitRate = rate.Inf
		} else {
			c.submitRate = rate.Limit(perSecond)
		}
		if burst > 0 {
			c.submitBurst = burst
		}
	}
}
