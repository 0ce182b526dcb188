package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/mapty/internal/workout"
)

// typeSummary aggregates the workouts of one type.
type typeSummary struct {
	Count            int     `json:"count"`
	TotalDistanceKm  float64 `json:"total_distance_km"`
	TotalDurationMin float64 `json:"total_duration_min"`
	AvgPaceMinPerKm  float64 `json:"avg_pace_min_per_km,omitempty"`
	AvgSpeedKmPerH   float64 `json:"avg_speed_km_per_h,omitempty"`
	TotalElevationM  float64 `json:"total_elevation_gain_m,omitempty"`
}

func summarize(ws []*workout.Workout) map[string]*typeSummary {
	out := map[string]*typeSummary{}
	for _, w := range ws {
		s, ok := out[string(w.Kind())]
		if !ok {
			s = &typeSummary{}
			out[string(w.Kind())] = s
		}
		s.Count++
		s.TotalDistanceKm += w.DistanceKm()
		s.TotalDurationMin += w.DurationMin()
		if c, ok := w.Details().(workout.Cycling); ok {
			s.TotalElevationM += c.ElevationGainM
		}
	}
	// Averages are distance-weighted: total time over total distance.
	if s, ok := out[string(workout.KindRunning)]; ok && s.TotalDistanceKm > 0 {
		s.AvgPaceMinPerKm = s.TotalDurationMin / s.TotalDistanceKm
	}
	if s, ok := out[string(workout.KindCycling)]; ok && s.TotalDurationMin > 0 {
		s.AvgSpeedKmPerH = s.TotalDistanceKm / (s.TotalDurationMin / 60)
	}
	return out
}

func (h *handlers) summary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ws, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(map[string]any{
		"total":   len(ws),
		"by_type": summarize(ws),
	})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) allWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ws, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]workoutView, len(ws))
	for i, w := range ws {
		views[i] = viewOf(w)
	}
	data, err := json.Marshal(views)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
