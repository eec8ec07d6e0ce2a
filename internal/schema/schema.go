// Package schema checks that a normalized model response is a usable mood score mapping.
package schema

import (
	"fmt"
	"sort"

	"github.com/satriahrh/mindwell/domain/entities"
)

// Tolerance band for the sum of all numeric values.
// TODO: revisit the band once scores from the audio prompt are calibrated.
const (
	MinScoreSum = 0.8
	MaxScoreSum = 1.2
	sumEpsilon  = 1e-9
)

// Error reports why a response does not match the mood score schema
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: %s: %s", e.Field, e.Reason)
}

// Validate returns obj unchanged as a mapping when it carries the required
// numeric moods and its numeric values sum to within the tolerance band
func Validate(obj any) (map[string]any, error) {
	m, ok := obj.(map[string]any)
	if !ok {
		return nil, &Error{Reason: fmt.Sprintf("expected an object, got %T", obj)}
	}

	for _, mood := range entities.RequiredMoods {
		v, present := m[mood]
		if !present {
			return nil, &Error{Field: mood, Reason: "missing"}
		}
		if _, numeric := entities.AsFloat(v); !numeric {
			return nil, &Error{Field: mood, Reason: fmt.Sprintf("expected a number, got %T", v)}
		}
	}

	sum := 0.0
	for _, key := range sortedKeys(m) {
		if f, numeric := entities.AsFloat(m[key]); numeric {
			sum += f
		}
	}
	if sum < MinScoreSum-sumEpsilon || sum > MaxScoreSum+sumEpsilon {
		return nil, &Error{Reason: fmt.Sprintf("scores sum to %.3f, outside [%.1f, %.1f]", sum, MinScoreSum, MaxScoreSum)}
	}

	return m, nil
}

// sortedKeys gives a stable summation order
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
