// Package workout defines the workout record: a common field set plus a
// variant-specific payload whose derived metrics are fixed at construction.
package workout

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

var (
	// ErrInvalidMetric is returned when a distance, duration, or derived
	// metric is not a finite positive number.
	ErrInvalidMetric = errors.New("invalid metric")
	// ErrInvalidCoordinates is returned when a latitude or longitude is not finite.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Kind is the discriminant of a workout variant.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind maps a stored or submitted type name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRunning, KindCycling:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown workout type %q", s)
	}
}

// Title returns the capitalised variant name used in labels.
func (k Kind) Title() string {
	switch k {
	case KindRunning:
		return "Running"
	case KindCycling:
		return "Cycling"
	default:
		return string(k)
	}
}

// Coords is a latitude/longitude pair in degrees.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coords) valid() bool {
	return isFinite(c.Lat) && isFinite(c.Lng)
}

// Details is the variant-specific payload. It is implemented only by
// Running and Cycling.
type Details interface {
	Kind() Kind
	sealed()
}

// Running holds the running-only input and its derived pace.
type Running struct {
	CadenceSPM   int
	PaceMinPerKm float64
}

func (Running) Kind() Kind { return KindRunning }
func (Running) sealed()    {}

// Cycling holds the cycling-only input and its derived speed.
type Cycling struct {
	ElevationGainM float64
	SpeedKmPerH    float64
}

func (Cycling) Kind() Kind { return KindCycling }
func (Cycling) sealed()    {}

// Workout is a single recorded workout. Everything except the click
// counter is fixed once the value is built.
type Workout struct {
	id          string
	createdAt   time.Time
	coords      Coords
	distanceKm  float64
	durationMin float64
	clicks      int
	label       string
	details     Details
}

// NewRunning builds a running workout created at createdAt.
func NewRunning(createdAt time.Time, coords Coords, distanceKm, durationMin float64, cadenceSPM int) (*Workout, error) {
	return build(createdAt, coords, distanceKm, durationMin, Running{CadenceSPM: cadenceSPM})
}

// NewCycling builds a cycling workout created at createdAt.
func NewCycling(createdAt time.Time, coords Coords, distanceKm, durationMin, elevationGainM float64) (*Workout, error) {
	return build(createdAt, coords, distanceKm, durationMin, Cycling{ElevationGainM: elevationGainM})
}

func build(createdAt time.Time, coords Coords, distanceKm, durationMin float64, input Details) (*Workout, error) {
	if !coords.valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinates, coords)
	}
	if !isPositive(distanceKm) {
		return nil, fmt.Errorf("%w: distance %v km", ErrInvalidMetric, distanceKm)
	}
	if !isPositive(durationMin) {
		return nil, fmt.Errorf("%w: duration %v min", ErrInvalidMetric, durationMin)
	}

	details, err := derive(input, distanceKm, durationMin)
	if err != nil {
		return nil, err
	}

	return &Workout{
		id:          IDFor(createdAt),
		createdAt:   createdAt,
		coords:      coords,
		distanceKm:  distanceKm,
		durationMin: durationMin,
		label:       Label(details.Kind(), createdAt),
		details:     details,
	}, nil
}

// derive fills in the variant's derived metric from the base inputs.
func derive(input Details, distanceKm, durationMin float64) (Details, error) {
	switch d := input.(type) {
	case Running:
		d.PaceMinPerKm = durationMin / distanceKm
		if !isPositive(d.PaceMinPerKm) {
			return nil, fmt.Errorf("%w: pace %v min/km", ErrInvalidMetric, d.PaceMinPerKm)
		}
		return d, nil
	case Cycling:
		d.SpeedKmPerH = distanceKm / (durationMin / 60)
		if !isPositive(d.SpeedKmPerH) {
			return nil, fmt.Errorf("%w: speed %v km/h", ErrInvalidMetric, d.SpeedKmPerH)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported workout details %T", input)
	}
}

// IDFor derives a workout id from its creation time: the last ten digits
// of the Unix millisecond timestamp. Two workouts created in the same
// millisecond get the same id.
func IDFor(t time.Time) string {
	s := strconv.FormatInt(t.UnixMilli(), 10)
	if len(s) > 10 {
		s = s[len(s)-10:]
	}
	return s
}

// Label formats the human-readable title, e.g. "Running on April 14".
func Label(k Kind, t time.Time) string {
	return fmt.Sprintf("%s on %s %d", k.Title(), t.Month(), t.Day())
}

func (w *Workout) ID() string            { return w.id }
func (w *Workout) CreatedAt() time.Time  { return w.createdAt }
func (w *Workout) Coords() Coords        { return w.coords }
func (w *Workout) DistanceKm() float64   { return w.distanceKm }
func (w *Workout) DurationMin() float64  { return w.durationMin }
func (w *Workout) Clicks() int           { return w.clicks }
func (w *Workout) Label() string         { return w.label }
func (w *Workout) Kind() Kind            { return w.details.Kind() }
func (w *Workout) Details() Details      { return w.details }

// Click counts one interaction with the workout.
func (w *Workout) Click() {
	w.clicks++
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isPositive(v float64) bool {
	return isFinite(v) && v > 0
}
