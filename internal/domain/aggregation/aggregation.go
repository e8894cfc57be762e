// Package aggregation turns per-evaluator assessments into per-target score
// summaries.
//
// Each dimension mean is rounded to one decimal place, half away from zero.
// The overall score is the mean of those seven rounded means, rounded again.
// This two-stage rounding differs from averaging every raw score directly and
// is part of the contract: displayed results for existing data depend on it.
//
// All functions are pure and safe for concurrent use.
package aggregation

import (
	"encoding/json"
	"fmt"

	"github.com/okian/peerfeedback/internal/domain/model"
	"github.com/okian/peerfeedback/internal/domain/rating"
)

// Summary is the derived per-target view. An unevaluated target has
// Assessments == 0 and NoData in every dimension and in Overall.
type Summary struct {
	TargetID    string
	Assessments int
	Dimensions  [rating.Count]Score
	Overall     Score
}

// Unevaluated returns the summary for a target nobody has rated yet.
func Unevaluated(targetID string) Summary {
	return Summary{TargetID: targetID}
}

// Evaluated reports whether at least one assessment contributed.
func (s Summary) Evaluated() bool { return s.Assessments > 0 }

// Dimension returns the rounded mean for d.
func (s Summary) Dimension(d rating.Dimension) Score {
	if !d.Valid() {
		return NoData()
	}
	return s.Dimensions[d]
}

type summaryJSON struct {
	TargetID    string           `json:"target_id"`
	Assessments int              `json:"assessments"`
	Evaluated   bool             `json:"evaluated"`
	Dimensions  map[string]Score `json:"dimensions"`
	Overall     Score            `json:"overall"`
}

// MarshalJSON keys dimensions by canonical name.
func (s Summary) MarshalJSON() ([]byte, error) {
	out := summaryJSON{
		TargetID:    s.TargetID,
		Assessments: s.Assessments,
		Evaluated:   s.Evaluated(),
		Dimensions:  make(map[string]Score, rating.Count),
		Overall:     s.Overall,
	}
	for _, d := range rating.All() {
		out.Dimensions[d.String()] = s.Dimensions[d]
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Summary) UnmarshalJSON(b []byte) error {
	var in summaryJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = Summary{TargetID: in.TargetID, Assessments: in.Assessments, Overall: in.Overall}
	for name, score := range in.Dimensions {
		d, err := rating.ParseDimension(name)
		if err != nil {
			return err
		}
		s.Dimensions[d] = score
	}
	return nil
}

// SummarizeTarget computes the summary for targetID from the full, unfiltered
// assessment set. Records addressed to other targets are ignored; a record for
// targetID with an invalid rating fails the whole call with
// model.ErrInvalidAssessment before any mean is computed.
func SummarizeTarget(targetID string, assessments []model.Assessment) (Summary, error) {
	var own []model.Assessment
	for _, a := range assessments {
		if a.TargetID == targetID {
			own = append(own, a)
		}
	}
	return summarize(targetID, own)
}

// SummarizeAll computes one summary per target, in the order given. It scans
// the assessment set once.
func SummarizeAll(targetIDs []string, assessments []model.Assessment) ([]Summary, error) {
	byTarget := make(map[string][]model.Assessment, len(targetIDs))
	for _, id := range targetIDs {
		byTarget[id] = nil
	}
	for _, a := range assessments {
		if _, ok := byTarget[a.TargetID]; ok {
			byTarget[a.TargetID] = append(byTarget[a.TargetID], a)
		}
	}

	out := make([]Summary, 0, len(targetIDs))
	for _, id := range targetIDs {
		s, err := summarize(id, byTarget[id])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func summarize(targetID string, own []model.Assessment) (Summary, error) {
	if len(own) == 0 {
		return Unevaluated(targetID), nil
	}

	var sums [rating.Count]int
	for _, a := range own {
		if err := a.Rating.Validate(); err != nil {
			return Summary{}, fmt.Errorf("%w: assessment %q by %q: %w", model.ErrInvalidAssessment, a.ID, a.EvaluatorID, err)
		}
		for d, v := range a.Rating.Scores() {
			sums[d] += v
		}
	}

	s := Summary{TargetID: targetID, Assessments: len(own)}
	n := len(own)
	totalTenths := 0
	for d := range sums {
		tenths := roundDiv(10*sums[d], n)
		s.Dimensions[d] = FromTenths(tenths)
		totalTenths += tenths
	}
	s.Overall = FromTenths(roundDiv(totalTenths, rating.Count))
	return s, nil
}
