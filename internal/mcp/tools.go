package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/mapty/internal/store"
	"github.com/claude/mapty/internal/workout"
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List logged workouts with their derived metrics. Without a sort the workouts come in the order they were created."),
	mcp.WithString("sort", mcp.Description("Sort key. Omit for creation order."), mcp.Enum("distance", "duration")),
	mcp.WithString("order", mcp.Description("Sort direction. Defaults to 'asc'."), mcp.Enum("asc", "desc")),
	mcp.WithString("type", mcp.Description("Only return workouts of this type."), mcp.Enum("running", "cycling")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by id, including its location and click count."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id as shown by list_workouts")),
)

// workoutView is the tool-facing shape of a workout.
type workoutView struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Label          string    `json:"label"`
	CreatedAt      time.Time `json:"created_at"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	DistanceKm     float64   `json:"distance_km"`
	DurationMin    float64   `json:"duration_min"`
	Clicks         int       `json:"clicks"`
	CadenceSPM     *int      `json:"cadence_spm,omitempty"`
	PaceMinPerKm   *float64  `json:"pace_min_per_km,omitempty"`
	ElevationGainM *float64  `json:"elevation_gain_m,omitempty"`
	SpeedKmPerH    *float64  `json:"speed_km_per_h,omitempty"`
}

func viewOf(w *workout.Workout) workoutView {
	v := workoutView{
		ID:          w.ID(),
		Type:        string(w.Kind()),
		Label:       w.Label(),
		CreatedAt:   w.CreatedAt(),
		Lat:         w.Coords().Lat,
		Lng:         w.Coords().Lng,
		DistanceKm:  w.DistanceKm(),
		DurationMin: w.DurationMin(),
		Clicks:      w.Clicks(),
	}
	switch d := w.Details().(type) {
	case workout.Running:
		v.CadenceSPM = &d.CadenceSPM
		v.PaceMinPerKm = &d.PaceMinPerKm
	case workout.Cycling:
		v.ElevationGainM = &d.ElevationGainM
		v.SpeedKmPerH = &d.SpeedKmPerH
	}
	return v
}

// load reads the workouts into a store so they can be sorted and looked up.
func (h *handlers) load(ctx context.Context) (*store.Store, error) {
	ws, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	s := store.New()
	for _, w := range ws {
		if err := s.Add(w); err != nil {
			h.log.Warn("mcp: skipping workout", "id", w.ID(), "error", err)
		}
	}
	return s, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var kind workout.Kind
	if t := req.GetString("type", ""); t != "" {
		k, err := workout.ParseKind(t)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind = k
	}

	ascending := true
	switch req.GetString("order", "asc") {
	case "asc":
	case "desc":
		ascending = false
	default:
		return mcp.NewToolResultError("order must be asc or desc"), nil
	}

	s, err := h.load(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	ws := s.All()
	if sortBy := req.GetString("sort", ""); sortBy != "" {
		key, err := store.ParseSortKey(sortBy)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ws = s.SortedView(key, ascending)
	}

	views := make([]workoutView, 0, len(ws))
	for _, w := range ws {
		if kind != "" && w.Kind() != kind {
			continue
		}
		views = append(views, viewOf(w))
	}

	result, err := mcp.NewToolResultJSON(views)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	s, err := h.load(ctx)
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	w, err := s.FindByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("no workout with id " + id), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(viewOf(w))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
