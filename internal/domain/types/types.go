// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/peerfeedback/internal/domain/aggregation"
	"github.com/okian/peerfeedback/internal/domain/progress"
)

// RosterEntry is one colleague an evaluator may rate
type RosterEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  string `json:"position"`
	Evaluated bool   `json:"evaluated"`
}

// Report is the administrator view of every employee's results. Truncated is
// set when more employees exist than one report may hold.
type Report struct {
	Coverage    progress.Coverage `json:"coverage"`
	Summaries   []ReportEntry     `json:"summaries"`
	GeneratedAt time.Time         `json:"generated_at"`
	Truncated   bool              `json:"truncated"`
}

// ReportEntry pairs a summary with the employee it describes
type ReportEntry struct {
	Name     string              `json:"name"`
	Position string              `json:"position"`
	Summary  aggregation.Summary `json:"summary"`
}
