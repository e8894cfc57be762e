package rating

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// Score bounds on the canonical star-equivalent scale.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating holds one score per dimension on the 1-5 scale. The struct shape is
// closed: a rating cannot carry an eighth dimension or omit one of the seven.
// A zero field means the dimension was not rated.
type Rating struct {
	ServiceOrientation int `json:"service_orientation" dim:"service-orientation" validate:"required,min=1,max=5"`
	Accountability     int `json:"accountability" dim:"accountability" validate:"required,min=1,max=5"`
	Competence         int `json:"competence" dim:"competence" validate:"required,min=1,max=5"`
	Harmony            int `json:"harmony" dim:"harmony" validate:"required,min=1,max=5"`
	Loyalty            int `json:"loyalty" dim:"loyalty" validate:"required,min=1,max=5"`
	Adaptability       int `json:"adaptability" dim:"adaptability" validate:"required,min=1,max=5"`
	Collaboration      int `json:"collaboration" dim:"collaboration" validate:"required,min=1,max=5"`
}

// validate is shared; validator.Validate is safe for concurrent use once
// configured.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("dim")
	})
	return v
}()

// FromScores builds a Rating from scores in canonical dimension order.
func FromScores(scores [Count]int) Rating {
	return Rating{
		ServiceOrientation: scores[ServiceOrientation],
		Accountability:     scores[Accountability],
		Competence:         scores[Competence],
		Harmony:            scores[Harmony],
		Loyalty:            scores[Loyalty],
		Adaptability:       scores[Adaptability],
		Collaboration:      scores[Collaboration],
	}
}

// Uniform returns a rating with every dimension set to score.
func Uniform(score int) Rating {
	var s [Count]int
	for i := range s {
		s[i] = score
	}
	return FromScores(s)
}

// Scores returns the scores in canonical dimension order.
func (r Rating) Scores() [Count]int {
	return [Count]int{
		r.ServiceOrientation,
		r.Accountability,
		r.Competence,
		r.Harmony,
		r.Loyalty,
		r.Adaptability,
		r.Collaboration,
	}
}

// Score returns the score recorded for d, or 0 for an unknown dimension.
func (r Rating) Score(d Dimension) int {
	if !d.Valid() {
		return 0
	}
	return r.Scores()[d]
}

// Map returns the rating keyed by canonical dimension name.
func (r Rating) Map() map[string]int {
	s := r.Scores()
	out := make(map[string]int, Count)
	for i, v := range s {
		out[dimensionNames[i]] = v
	}
	return out
}

// Validate checks that all seven dimensions are present and within [1,5].
// The returned error is a *ValidationError wrapping ErrInvalidRating.
func (r Rating) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRating, err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		value, _ := fe.Value().(int)
		problem := ProblemOutOfRange
		if fe.Tag() == "required" {
			problem = ProblemMissing
		}
		out.add(fe.Field(), value, problem)
	}
	return out
}

// ValidateRating accepts a keyed candidate, typically decoded from JSON, and
// returns the typed Rating when exactly the seven dimensions are present and in
// range. Keys may use canonical, snake_case or legacy alias names.
func ValidateRating(candidate map[string]int) (Rating, error) {
	verr := &ValidationError{}
	var scores [Count]int
	var seen [Count]bool
	for key, value := range candidate {
		d, err := ParseDimension(key)
		if err != nil {
			verr.add(key, value, ProblemUnknown)
			continue
		}
		if seen[d] {
			verr.add(d.String(), value, ProblemDuplicate)
			continue
		}
		seen[d] = true
		scores[d] = value
	}
	for d := Dimension(0); d < Count; d++ {
		if !seen[d] {
			verr.add(d.String(), 0, ProblemMissing)
		}
	}
	if verr.hasProblems() {
		return Rating{}, verr
	}

	r := FromScores(scores)
	if err := r.Validate(); err != nil {
		return Rating{}, err
	}
	return r, nil
}
