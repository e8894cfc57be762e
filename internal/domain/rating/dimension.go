// Package rating defines the fixed-shape seven dimension rating value object,
// its validation, and the star/score display conversions.
package rating

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Dimension is one of the seven behavioural criteria an evaluator rates.
type Dimension int

// Dimensions in canonical order.
const (
	ServiceOrientation Dimension = iota
	Accountability
	Competence
	Harmony
	Loyalty
	Adaptability
	Collaboration
)

// Count is the number of dimensions every rating carries.
const Count = 7

var dimensionNames = [Count]string{
	"service-orientation",
	"accountability",
	"competence",
	"harmony",
	"loyalty",
	"adaptability",
	"collaboration",
}

// Column names used by the legacy data store.
var dimensionAliases = [Count]string{
	"pelayanan",
	"akuntabel",
	"kompeten",
	"harmonis",
	"loyal",
	"adaptif",
	"kolaboratif",
}

var dimensionLookup = func() map[string]Dimension {
	m := make(map[string]Dimension, 2*Count)
	for i := 0; i < Count; i++ {
		m[dimensionNames[i]] = Dimension(i)
		m[dimensionAliases[i]] = Dimension(i)
	}
	return m
}()

// All returns every dimension in canonical order.
func All() []Dimension {
	out := make([]Dimension, Count)
	for i := range out {
		out[i] = Dimension(i)
	}
	return out
}

// Valid reports whether d is one of the seven known dimensions.
func (d Dimension) Valid() bool { return d >= 0 && d < Count }

// String returns the canonical hyphenated name, e.g. "service-orientation".
func (d Dimension) String() string {
	if !d.Valid() {
		return fmt.Sprintf("dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// Alias returns the legacy column name for d.
func (d Dimension) Alias() string {
	if !d.Valid() {
		return ""
	}
	return dimensionAliases[d]
}

// ParseDimension resolves a dimension from its canonical name, a snake_case or
// spaced variant of it, or its legacy alias. Matching is case-insensitive.
func ParseDimension(name string) (Dimension, error) {
	// Casers carry state; one per call keeps ParseDimension goroutine-safe.
	key := cases.Fold().String(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	if d, ok := dimensionLookup[key]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDimension, name)
}
