package simulate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/peerfeedback/internal/domain/aggregation"
	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/rating"
	"github.com/okian/peerfeedback/internal/domain/types"
	"github.com/okian/peerfeedback/pkg/logger"
)

// Mismatch describes one employee whose server summary differs from the local
// computation.
type Mismatch struct {
	TargetID string
	Field    string
	Server   string
	Local    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %s: server %s, local %s", m.TargetID, m.Field, m.Server, m.Local)
}

// verifyReport fetches the admin report and compares every summary with one
// computed locally from accepted. Employees that already had assessments
// before this run cannot be recomputed and are skipped.
func verifyReport(ctx context.Context, c *httpClient, admin *model.User, accepted []Submission, stats *Stats) ([]Mismatch, error) {
	var report types.Report
	if _, err := c.do(ctx, http.MethodGet, "/report", admin, nil, &report); err != nil {
		return nil, err
	}

	byTarget := make(map[string][]model.Assessment)
	for i, s := range accepted {
		r, err := rating.ValidateRating(s.Ratings)
		if err != nil {
			return nil, fmt.Errorf("submission %d: %w", i, err)
		}
		byTarget[s.TargetID] = append(byTarget[s.TargetID], model.Assessment{
			ID:          fmt.Sprintf("local-%d", i),
			EvaluatorID: s.EvaluatorID,
			TargetID:    s.TargetID,
			Rating:      r,
		})
	}

	var mismatches []Mismatch
	for _, entry := range report.Summaries {
		server := entry.Summary
		own := byTarget[server.TargetID]
		if server.Assessments != len(own) {
			stats.Skipped++
			logger.Get().Debug(ctx, "skipping employee with earlier assessments",
				logger.String("target", server.TargetID),
				logger.Int("server", server.Assessments),
				logger.Int("local", len(own)))
			continue
		}
		local, err := aggregation.SummarizeTarget(server.TargetID, own)
		if err != nil {
			return nil, err
		}
		mismatches = append(mismatches, compareSummaries(server, local)...)
		stats.Verified++
	}

	if report.Truncated {
		logger.Get().Warn(ctx, "report was truncated; some employees were not verified")
	}
	return mismatches, nil
}

func compareSummaries(server, local aggregation.Summary) []Mismatch {
	var out []Mismatch
	for _, d := range rating.All() {
		if s, l := server.Dimension(d), local.Dimension(d); s != l {
			out = append(out, Mismatch{TargetID: server.TargetID, Field: d.String(), Server: s.String(), Local: l.String()})
		}
	}
	if server.Overall != local.Overall {
		out = append(out, Mismatch{TargetID: server.TargetID, Field: "overall", Server: server.Overall.String(), Local: local.Overall.String()})
	}
	return out
}
