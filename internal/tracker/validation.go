package tracker

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/claude/mapty/internal/workout"
)

// Field names a form input.
type Field string

const (
	FieldType      Field = "type"
	FieldDistance  Field = "distance"
	FieldDuration  Field = "duration"
	FieldCadence   Field = "cadence"
	FieldElevation Field = "elevation"
)

// Submission is the raw form content, exactly as typed.
type Submission struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence"`
	Elevation string `json:"elevation"`
}

// ValidationError reports the first form field that failed validation.
type ValidationError struct {
	Field Field
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s", e.Field)
}

// Unwrap lets callers match validation failures with workout.ErrInvalidMetric.
func (e *ValidationError) Unwrap() error {
	return workout.ErrInvalidMetric
}

// input is a validated submission.
type input struct {
	kind      workout.Kind
	distance  float64
	duration  float64
	cadence   int
	elevation float64
}

// coerce converts a form value to a number. Surrounding whitespace is
// ignored and an empty value is 0; anything unparseable is NaN.
func coerce(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func integral(v float64) bool {
	return v == math.Trunc(v) && v <= math.MaxInt32
}

type check struct {
	field Field
	value float64
	ok    func(float64) bool
}

// validate checks sub field by field in form order. Each field that passes
// is reported to mark; the first one that fails is reported and ends
// validation.
func validate(sub Submission, mark func(f Field, ok bool)) (input, error) {
	kind, err := workout.ParseKind(strings.TrimSpace(sub.Type))
	if err != nil {
		mark(FieldType, false)
		return input{}, &ValidationError{Field: FieldType}
	}

	in := input{
		kind:     kind,
		distance: coerce(sub.Distance),
		duration: coerce(sub.Duration),
	}
	checks := []check{
		{FieldDistance, in.distance, positive},
		{FieldDuration, in.duration, positive},
	}
	switch kind {
	case workout.KindRunning:
		cadence := coerce(sub.Cadence)
		checks = append(checks, check{FieldCadence, cadence, func(v float64) bool {
			return positive(v) && integral(v)
		}})
		if positive(cadence) && integral(cadence) {
			in.cadence = int(cadence)
		}
	case workout.KindCycling:
		in.elevation = coerce(sub.Elevation)
		checks = append(checks, check{FieldElevation, in.elevation, finite})
	}

	for _, c := range checks {
		if !c.ok(c.value) {
			mark(c.field, false)
			return input{}, &ValidationError{Field: c.field}
		}
		mark(c.field, true)
	}
	return in, nil
}
