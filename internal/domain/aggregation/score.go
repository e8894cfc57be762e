package aggregation

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// noDataLabel is how an unset Score renders as text.
const noDataLabel = "-"

// Score is a mean rounded to one decimal place, stored as an exact count of
// tenths. The zero Score carries no data and is distinct from a mean of 0.0.
type Score struct {
	tenths int
	valid  bool
}

// NoData returns the explicit "no assessments" marker.
func NoData() Score { return Score{} }

// FromTenths returns a Score of tenths/10.
func FromTenths(tenths int) Score { return Score{tenths: tenths, valid: true} }

// Valid reports whether the score carries data.
func (s Score) Valid() bool { return s.valid }

// Tenths returns the score in tenths; ok is false for NoData.
func (s Score) Tenths() (tenths int, ok bool) { return s.tenths, s.valid }

// Float64 returns the score as a float; ok is false for NoData.
func (s Score) Float64() (float64, bool) {
	if !s.valid {
		return 0, false
	}
	return float64(s.tenths) / 10, true
}

// String formats with one decimal place, or "-" for NoData.
func (s Score) String() string {
	if !s.valid {
		return noDataLabel
	}
	v, _ := s.Float64()
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// MarshalJSON encodes NoData as null and data as a one-decimal number.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.valid {
		return []byte("null"), nil
	}
	return []byte(s.String()), nil
}

// UnmarshalJSON accepts null or a number.
func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = NoData()
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("decode score: %w", err)
	}
	*s = FromTenths(int(math.Round(v * 10)))
	return nil
}

// roundDiv returns num/den rounded to the nearest integer with halves rounded
// away from zero. den must be positive.
func roundDiv(num, den int) int {
	if num >= 0 {
		return (2*num + den) / (2 * den)
	}
	return -((-2*num + den) / (2 * den))
}
