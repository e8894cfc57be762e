package simulate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/pkg/logger"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	retryBaseDelay          = 200 * time.Millisecond
	progressInterval        = time.Second
)

// submitAll sends the plan through a worker pool and returns the submissions
// the server accepted.
func submitAll(ctx context.Context, c *httpClient, cfg *Config, users map[string]model.User, plan []Submission, stats *Stats) []Submission {
	log := logger.Get()
	log.Info(ctx, "submitting assessments", logger.Int("submissions", len(plan)), logger.Int("workers", cfg.Workers))

	var (
		created, duplicate, throttled, failed atomic.Int64
		accepted                              = make([]bool, len(plan))
		lastReport                            atomic.Int64
		wg                                    sync.WaitGroup
	)

	jobs := make(chan int, cfg.Workers*workerChannelMultiplier)
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				s := plan[i]
				evaluator := users[s.EvaluatorID]
				outcome := submitOne(ctx, c, &evaluator, s, cfg.MaxRetries)
				switch outcome {
				case OutcomeCreated:
					created.Add(1)
					accepted[i] = true
				case OutcomeDuplicate:
					duplicate.Add(1)
				case OutcomeThrottled:
					throttled.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose {
					log.Info(ctx, "submitted",
						logger.String("evaluator", s.EvaluatorID),
						logger.String("target", s.TargetID),
						logger.String("outcome", outcome.String()),
					)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("created", int(created.Load())),
						logger.Int("duplicate", int(duplicate.Load())),
						logger.Int("failed", int(failed.Load())),
						logger.Int("of", len(plan)),
					)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range plan {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.Created = int(created.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Throttled = int(throttled.Load())
	stats.Failed = int(failed.Load())

	out := make([]Submission, 0, stats.Created)
	for i, ok := range accepted {
		if ok {
			out = append(out, plan[i])
		}
	}
	return out
}

// submitOne posts s, backing off exponentially while the server throttles.
func submitOne(ctx context.Context, c *httpClient, as *model.User, s Submission, maxRetries int) Outcome {
	body := map[string]any{"target_id": s.TargetID, "ratings": s.Ratings}
	delay := retryBaseDelay

	for attempt := 0; ; attempt++ {
		status, err := c.do(ctx, http.MethodPost, "/assessments", as, body, nil)
		switch {
		case err == nil && status == http.StatusCreated:
			return OutcomeCreated
		case status == http.StatusConflict:
			return OutcomeDuplicate
		case status == http.StatusTooManyRequests && attempt < maxRetries:
			select {
			case <-ctx.Done():
				return OutcomeFailed
			case <-time.After(delay):
			}
			delay *= 2
			continue
		case status == http.StatusTooManyRequests:
			return OutcomeThrottled
		default:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Get().Warn(ctx, "submission failed",
					logger.String("evaluator", s.EvaluatorID),
					logger.String("target", s.TargetID),
					logger.Error(err))
			}
			return OutcomeFailed
		}
	}
}
