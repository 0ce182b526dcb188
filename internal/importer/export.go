package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/workout"
)

// legacyRecord is one workout as the browser version of the tracker kept
// it in localStorage.
type legacyRecord struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Coords      []float64 `json:"coords"`
	Distance    *float64  `json:"distance"`
	Duration    *float64  `json:"duration"`
	Clicks      int       `json:"clicks"`
	Description string    `json:"description"`

	Cadence *float64 `json:"cadence"`
	Pace    *float64 `json:"pace"`

	ElevationGain *float64 `json:"elevationGain"`
	Speed         *float64 `json:"speed"`
}

func (r legacyRecord) restore() (*workout.Workout, error) {
	kind, err := workout.ParseKind(r.Type)
	if err != nil {
		return nil, err
	}
	if r.ID == "" {
		return nil, errors.New("missing id")
	}
	created, err := time.Parse(time.RFC3339Nano, r.Date)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	if len(r.Coords) != 2 {
		return nil, fmt.Errorf("coords has %d values, want 2", len(r.Coords))
	}
	if r.Distance == nil || r.Duration == nil {
		return nil, errors.New("missing distance or duration")
	}
	label := r.Description
	if label == "" {
		label = workout.Label(kind, created)
	}

	var details workout.Details
	switch kind {
	case workout.KindRunning:
		if r.Cadence == nil || r.Pace == nil {
			return nil, errors.New("running workout missing cadence or pace")
		}
		details = workout.Running{CadenceSPM: int(*r.Cadence), PaceMinPerKm: *r.Pace}
	case workout.KindCycling:
		if r.ElevationGain == nil || r.Speed == nil {
			return nil, errors.New("cycling workout missing elevationGain or speed")
		}
		details = workout.Cycling{ElevationGainM: *r.ElevationGain, SpeedKmPerH: *r.Speed}
	}

	return workout.Restore(workout.Snapshot{
		ID:          r.ID,
		CreatedAt:   created,
		Coords:      workout.Coords{Lat: r.Coords[0], Lng: r.Coords[1]},
		DistanceKm:  *r.Distance,
		DurationMin: *r.Duration,
		Clicks:      r.Clicks,
		Label:       label,
		Details:     details,
	})
}

// isCurrentLayout reports whether an element uses the stored layout
// rather than the browser one.
func isCurrentLayout(raw json.RawMessage) bool {
	var probe struct {
		Coordinates json.RawMessage `json:"coordinates"`
		DistanceKm  json.RawMessage `json:"distanceKm"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Coordinates != nil || probe.DistanceKm != nil
}

// Rejected describes an element that could not be imported.
type Rejected struct {
	Index int
	Err   error
}

// ParseExport reads a workout export. It accepts a JSON array of workouts
// in either the stored or the browser layout, or a localStorage dump
// object whose "workouts" entry holds that array or its JSON text.
// Elements that cannot be restored are returned as rejected.
func ParseExport(data []byte) ([]*workout.Workout, []Rejected, error) {
	elems, err := exportElements(data)
	if err != nil {
		return nil, nil, err
	}

	var (
		out      []*workout.Workout
		rejected []Rejected
	)
	for i, raw := range elems {
		w, err := restoreElement(raw)
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Err: err})
			continue
		}
		out = append(out, w)
	}
	return out, rejected, nil
}

func exportElements(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty export")
	}

	if data[0] == '{' {
		var dump map[string]json.RawMessage
		if err := json.Unmarshal(data, &dump); err != nil {
			return nil, fmt.Errorf("parsing export: %w", err)
		}
		inner, ok := dump[storage.DefaultKey]
		if !ok {
			return nil, fmt.Errorf("export object has no %q entry", storage.DefaultKey)
		}
		// localStorage values are strings holding JSON.
		var text string
		if err := json.Unmarshal(inner, &text); err == nil {
			inner = json.RawMessage(text)
		}
		data = inner
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("parsing export: %w", err)
	}
	return elems, nil
}

func restoreElement(raw json.RawMessage) (*workout.Workout, error) {
	if isCurrentLayout(raw) {
		ws, err := storage.Decode(append(append([]byte{'['}, raw...), ']'))
		if err != nil {
			return nil, err
		}
		return ws[0], nil
	}
	var r legacyRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return r.restore()
}
