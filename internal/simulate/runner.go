package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrMismatch is returned when the server's report disagrees with the local
// computation.
var ErrMismatch = errors.New("report does not match submitted ratings")

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting peer feedback simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("users", cfg.UsersFile),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	creds, err := LoadCredentials(cfg.UsersFile)
	if err != nil {
		return stats, err
	}

	c := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if _, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Log everyone in
	employees, admin, err := loginAll(ctx, c, creds)
	if err != nil {
		return stats, fmt.Errorf("login failed: %w", err)
	}
	stats.Evaluators = len(employees)

	// Step 3: Plan a rating for every open roster entry
	plan, err := buildPlan(ctx, c, employees, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
	if err != nil {
		return stats, fmt.Errorf("planning failed: %w", err)
	}
	stats.Planned = len(plan)

	// Step 4: Submit concurrently
	byID := make(map[string]model.User, len(employees))
	for _, u := range employees {
		byID[u.ID] = u
	}
	accepted := submitAll(ctx, c, cfg, byID, plan, stats)

	// Step 5: Verify the admin report
	mismatches, err := verifyReport(ctx, c, admin, accepted, stats)
	if err != nil {
		return stats, fmt.Errorf("report retrieval failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := savePlan(cfg.OutputFile, accepted); err != nil {
			log.Warn(ctx, "failed to save plan", logger.Error(err))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, stats)

	if len(mismatches) > 0 {
		for _, m := range mismatches {
			log.Error(ctx, "summary mismatch", logger.String("detail", m.String()))
		}
		return stats, fmt.Errorf("%w: %d fields differ", ErrMismatch, len(mismatches))
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// savePlan writes the accepted submissions as a JSON array.
func savePlan(filename string, accepted []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(accepted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Created+stats.Duplicate+stats.Throttled+stats.Failed) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("evaluators", stats.Evaluators),
		logger.Int("planned", stats.Planned),
		logger.Int("created", stats.Created),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("throttled", stats.Throttled),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Int("skipped", stats.Skipped),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond))
}
