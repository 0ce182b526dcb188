package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/mapty/internal/workout"
)

type staticSource struct {
	ws  []*workout.Workout
	err error
}

func (s staticSource) ListWorkouts(context.Context) ([]*workout.Workout, error) {
	return s.ws, s.err
}

var t0 = time.Date(2026, time.April, 14, 7, 0, 0, 0, time.UTC)

func fixtures(t *testing.T) []*workout.Workout {
	t.Helper()
	a, err := workout.NewRunning(t0, workout.Coords{Lat: 50, Lng: 30}, 5, 30, 170)
	if err != nil {
		t.Fatal(err)
	}
	b, err := workout.NewCycling(t0.Add(time.Second), workout.Coords{Lat: 51, Lng: 31}, 20, 60, -10)
	if err != nil {
		t.Fatal(err)
	}
	c, err := workout.NewRunning(t0.Add(2*time.Second), workout.Coords{Lat: 52, Lng: 32}, 3, 20, 160)
	if err != nil {
		t.Fatal(err)
	}
	return []*workout.Workout{a, b, c}
}

func newHandlers(src DataSource) *handlers {
	return &handlers{ds: src, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			return tc.Text
		case *mcp.TextContent:
			return tc.Text
		}
	}
	t.Fatalf("no text content in %+v", res)
	return ""
}

func decodeViews(t *testing.T, res *mcp.CallToolResult) []workoutView {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var views []workoutView
	if err := json.Unmarshal([]byte(resultText(t, res)), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return views
}

// TestListWorkoutsOrder verifies creation order, sorting, and direction.
func TestListWorkoutsOrder(t *testing.T) {
	ws := fixtures(t)
	h := newHandlers(staticSource{ws: ws})
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"creation order", nil, []string{ws[0].ID(), ws[1].ID(), ws[2].ID()}},
		{"distance asc", map[string]any{"sort": "distance"}, []string{ws[2].ID(), ws[0].ID(), ws[1].ID()}},
		{"duration desc", map[string]any{"sort": "duration", "order": "desc"}, []string{ws[1].ID(), ws[0].ID(), ws[2].ID()}},
		{"running only", map[string]any{"type": "running"}, []string{ws[0].ID(), ws[2].ID()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.listWorkouts(ctx, call(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			views := decodeViews(t, res)
			if len(views) != len(tt.want) {
				t.Fatalf("got %d workouts, want %d", len(views), len(tt.want))
			}
			for i, v := range views {
				if v.ID != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, v.ID, tt.want[i])
				}
			}
		})
	}
}

// TestListWorkoutsRejectsBadArgs verifies invalid arguments become tool errors.
func TestListWorkoutsRejectsBadArgs(t *testing.T) {
	h := newHandlers(staticSource{ws: fixtures(t)})
	for _, args := range []map[string]any{
		{"sort": "pace"},
		{"order": "sideways"},
		{"type": "swimming"},
	} {
		res, err := h.listWorkouts(context.Background(), call(args))
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Errorf("args %v: expected tool error", args)
		}
	}
}

// TestListWorkoutsSourceError verifies data source failures are reported, not returned.
func TestListWorkoutsSourceError(t *testing.T) {
	h := newHandlers(staticSource{err: errors.New("offline")})
	res, err := h.listWorkouts(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected tool error")
	}
}

// TestGetWorkout verifies lookup by id and the variant-specific fields.
func TestGetWorkout(t *testing.T) {
	ws := fixtures(t)
	h := newHandlers(staticSource{ws: ws})
	ctx := context.Background()

	res, err := h.getWorkout(ctx, call(map[string]any{"id": ws[1].ID()}))
	if err != nil {
		t.Fatal(err)
	}
	var v workoutView
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatal(err)
	}
	if v.Type != "cycling" || v.SpeedKmPerH == nil || *v.SpeedKmPerH != 20 {
		t.Errorf("view = %+v", v)
	}
	if v.PaceMinPerKm != nil || v.CadenceSPM != nil {
		t.Errorf("cycling view has running fields: %+v", v)
	}

	res, _ = h.getWorkout(ctx, call(map[string]any{"id": "missing"}))
	if !res.IsError {
		t.Error("missing id: expected tool error")
	}
	res, _ = h.getWorkout(ctx, call(nil))
	if !res.IsError {
		t.Error("no id: expected tool error")
	}
}

// TestSummaryResource verifies per-type totals and averages.
func TestSummaryResource(t *testing.T) {
	h := newHandlers(staticSource{ws: fixtures(t)})
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "mapty://summary"

	contents, err := h.summary(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents = %T", contents[0])
	}
	var got struct {
		Total  int                     `json:"total"`
		ByType map[string]*typeSummary `json:"by_type"`
	}
	if err := json.Unmarshal([]byte(text.Text), &got); err != nil {
		t.Fatal(err)
	}
	if got.Total != 3 {
		t.Errorf("total = %d, want 3", got.Total)
	}
	run := got.ByType["running"]
	if run == nil || run.Count != 2 || run.TotalDistanceKm != 8 || run.AvgPaceMinPerKm != 50.0/8 {
		t.Errorf("running = %+v", run)
	}
	ride := got.ByType["cycling"]
	if ride == nil || ride.AvgSpeedKmPerH != 20 || ride.TotalElevationM != -10 {
		t.Errorf("cycling = %+v", ride)
	}
}

// TestNewRegistersEverything verifies the server builds.
func TestNewRegistersEverything(t *testing.T) {
	s := New(staticSource{}, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if s == nil {
		t.Fatal("New returned nil")
	}
}
