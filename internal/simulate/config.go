// Package simulate drives a running peer feedback service end to end: every
// seeded employee logs in, rates their whole roster concurrently, and the
// administrator report is checked against summaries computed locally from
// the submitted ratings.
package simulate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/peerfeedback/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	UsersFile  string        // YAML directory with plain passwords
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	MaxRetries int           // Retries per throttled submission
	OutputFile string        // Where the submitted plan is written; empty disables
	Verbose    bool          // Log every submission
}

// Credential is one seeded account.
type Credential struct {
	ID       string     `yaml:"id"`
	Username string     `yaml:"username"`
	Password string     `yaml:"password"`
	Role     model.Role `yaml:"role"`
}

// LoadCredentials reads the users file the server was seeded from.
func LoadCredentials(path string) ([]Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	var f struct {
		Users []Credential `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := f.Users[:0]
	for _, c := range f.Users {
		if c.Username == "" || c.Password == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no users with plain passwords", path)
	}
	return out, nil
}

// Submission is one planned assessment.
type Submission struct {
	EvaluatorID string         `json:"evaluator_id"`
	TargetID    string         `json:"target_id"`
	Ratings     map[string]int `json:"ratings"`
}

// Outcome classifies the server's answer to a submission.
type Outcome int

// Submission outcomes.
const (
	OutcomeCreated Outcome = iota
	OutcomeDuplicate
	OutcomeThrottled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeThrottled:
		return "throttled"
	default:
		return "failed"
	}
}

// Stats holds run statistics.
type Stats struct {
	Evaluators int
	Planned    int
	Created    int
	Duplicate  int
	Throttled  int
	Failed     int
	Verified   int
	Skipped    int
	StartTime  time.Time
	Duration   time.Duration
}
