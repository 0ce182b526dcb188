package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/mapty/internal/workout"
)

// ErrCorruptState is returned when a stored blob cannot be turned back
// into workouts.
var ErrCorruptState = errors.New("corrupt workout state")

// record is the persisted form of one workout. Pointer fields distinguish
// "absent" from zero so missing required fields can be detected.
type record struct {
	Type        string     `json:"type"`
	ID          string     `json:"id"`
	CreatedAt   *time.Time `json:"createdAt"`
	Coordinates []float64  `json:"coordinates"`
	DistanceKm  *float64   `json:"distanceKm"`
	DurationMin *float64   `json:"durationMin"`
	ClickCount  *int       `json:"clickCount"`
	Label       *string    `json:"label"`

	CadenceSPM   *int     `json:"cadenceSpm,omitempty"`
	PaceMinPerKm *float64 `json:"paceMinPerKm,omitempty"`

	ElevationGainM *float64 `json:"elevationGainM,omitempty"`
	SpeedKmPerH    *float64 `json:"speedKmPerH,omitempty"`
}

// Encode serializes workouts, in order, as a JSON array.
func Encode(workouts []*workout.Workout) ([]byte, error) {
	records := make([]record, 0, len(workouts))
	for _, w := range workouts {
		records = append(records, toRecord(w.Snapshot()))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding workouts: %w", err)
	}
	return data, nil
}

// Decode parses a JSON array produced by Encode. Any malformed element
// fails the whole decode with ErrCorruptState.
func Decode(data []byte) ([]*workout.Workout, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: not a workout array", ErrCorruptState)
	}

	workouts := make([]*workout.Workout, 0, len(records))
	for i, r := range records {
		snap, err := r.snapshot()
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrCorruptState, i, err)
		}
		w, err := workout.Restore(snap)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrCorruptState, i, err)
		}
		workouts = append(workouts, w)
	}
	return workouts, nil
}

func toRecord(s workout.Snapshot) record {
	r := record{
		Type:        string(s.Details.Kind()),
		ID:          s.ID,
		CreatedAt:   &s.CreatedAt,
		Coordinates: []float64{s.Coords.Lat, s.Coords.Lng},
		DistanceKm:  &s.DistanceKm,
		DurationMin: &s.DurationMin,
		ClickCount:  &s.Clicks,
		Label:       &s.Label,
	}
	switch d := s.Details.(type) {
	case workout.Running:
		r.CadenceSPM = &d.CadenceSPM
		r.PaceMinPerKm = &d.PaceMinPerKm
	case workout.Cycling:
		r.ElevationGainM = &d.ElevationGainM
		r.SpeedKmPerH = &d.SpeedKmPerH
	}
	return r
}

func (r record) snapshot() (workout.Snapshot, error) {
	kind, err := workout.ParseKind(r.Type)
	if err != nil {
		return workout.Snapshot{}, err
	}
	switch {
	case r.ID == "":
		return workout.Snapshot{}, errors.New("missing id")
	case r.CreatedAt == nil:
		return workout.Snapshot{}, errors.New("missing createdAt")
	case len(r.Coordinates) != 2:
		return workout.Snapshot{}, fmt.Errorf("coordinates has %d values, want 2", len(r.Coordinates))
	case r.DistanceKm == nil || r.DurationMin == nil:
		return workout.Snapshot{}, errors.New("missing distance or duration")
	case r.ClickCount == nil:
		return workout.Snapshot{}, errors.New("missing clickCount")
	case r.Label == nil:
		return workout.Snapshot{}, errors.New("missing label")
	}

	var details workout.Details
	switch kind {
	case workout.KindRunning:
		if r.CadenceSPM == nil || r.PaceMinPerKm == nil {
			return workout.Snapshot{}, errors.New("running workout missing cadenceSpm or paceMinPerKm")
		}
		details = workout.Running{CadenceSPM: *r.CadenceSPM, PaceMinPerKm: *r.PaceMinPerKm}
	case workout.KindCycling:
		if r.ElevationGainM == nil || r.SpeedKmPerH == nil {
			return workout.Snapshot{}, errors.New("cycling workout missing elevationGainM or speedKmPerH")
		}
		details = workout.Cycling{ElevationGainM: *r.ElevationGainM, SpeedKmPerH: *r.SpeedKmPerH}
	}

	return workout.Snapshot{
		ID:          r.ID,
		CreatedAt:   *r.CreatedAt,
		Coords:      workout.Coords{Lat: r.Coordinates[0], Lng: r.Coordinates[1]},
		DistanceKm:  *r.DistanceKm,
		DurationMin: *r.DurationMin,
		Clicks:      *r.ClickCount,
		Label:       *r.Label,
		Details:     details,
	}, nil
}
