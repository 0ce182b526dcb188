package workout

import (
	"errors"
	"fmt"
	"time"
)

// Snapshot is the complete stored form of a workout, derived values
// included. It is what persistence and import exchange with this package.
type Snapshot struct {
	ID          string
	CreatedAt   time.Time
	Coords      Coords
	DistanceKm  float64
	DurationMin float64
	Clicks      int
	Label       string
	Details     Details
}

// Snapshot returns the workout's current stored form.
func (w *Workout) Snapshot() Snapshot {
	return Snapshot{
		ID:          w.id,
		CreatedAt:   w.createdAt,
		Coords:      w.coords,
		DistanceKm:  w.distanceKm,
		DurationMin: w.durationMin,
		Clicks:      w.clicks,
		Label:       w.label,
		Details:     w.details,
	}
}

// Restore rebuilds a workout from a snapshot. Derived values are taken
// as given and never recomputed.
func Restore(s Snapshot) (*Workout, error) {
	if s.ID == "" {
		return nil, errors.New("restoring workout: missing id")
	}
	if s.Details == nil {
		return nil, fmt.Errorf("restoring workout %s: missing details", s.ID)
	}
	if !s.Coords.valid() {
		return nil, fmt.Errorf("restoring workout %s: %w", s.ID, ErrInvalidCoordinates)
	}
	if !isPositive(s.DistanceKm) || !isPositive(s.DurationMin) {
		return nil, fmt.Errorf("restoring workout %s: %w", s.ID, ErrInvalidMetric)
	}
	if s.Clicks < 0 {
		return nil, fmt.Errorf("restoring workout %s: negative click count %d", s.ID, s.Clicks)
	}

	switch d := s.Details.(type) {
	case Running:
		if !isFinite(d.PaceMinPerKm) {
			return nil, fmt.Errorf("restoring workout %s: %w: pace", s.ID, ErrInvalidMetric)
		}
	case Cycling:
		if !isFinite(d.SpeedKmPerH) || !isFinite(d.ElevationGainM) {
			return nil, fmt.Errorf("restoring workout %s: %w: speed or elevation", s.ID, ErrInvalidMetric)
		}
	default:
		return nil, fmt.Errorf("restoring workout %s: unsupported details %T", s.ID, s.Details)
	}

	return &Workout{
		id:          s.ID,
		createdAt:   s.CreatedAt,
		coords:      s.Coords,
		distanceKm:  s.DistanceKm,
		durationMin: s.DurationMin,
		clicks:      s.Clicks,
		label:       s.Label,
		details:     s.Details,
	}, nil
}
