package storage

import (
	"context"
	"fmt"

	"github.com/claude/mapty/internal/workout"
)

// DefaultKey is the key the workout collection is stored under.
const DefaultKey = "workouts"

// Workouts saves and loads the whole workout collection under one key.
type Workouts struct {
	backend Backend
	key     string
}

// NewWorkouts creates a Workouts adapter. An empty key means DefaultKey.
func NewWorkouts(backend Backend, key string) *Workouts {
	if key == "" {
		key = DefaultKey
	}
	return &Workouts{backend: backend, key: key}
}

// Save overwrites the stored collection with workouts, in order.
func (s *Workouts) Save(ctx context.Context, workouts []*workout.Workout) error {
	data, err := Encode(workouts)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("saving workouts: %w", err)
	}
	return nil
}

// Load returns the stored collection. A missing key yields nil and no
// error; an unreadable blob yields an error wrapping ErrCorruptState.
func (s *Workouts) Load(ctx context.Context) ([]*workout.Workout, error) {
	blob, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("loading workouts: %w", err)
	}
	if !ok {
		return nil, nil
	}
	workouts, err := Decode([]byte(blob))
	if err != nil {
		return nil, fmt.Errorf("loading workouts: %w", err)
	}
	return workouts, nil
}

// Clear removes the stored collection.
func (s *Workouts) Clear(ctx context.Context) error {
	if err := s.backend.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("clearing workouts: %w", err)
	}
	return nil
}

// ListWorkouts is Load under the name the MCP data source expects.
func (s *Workouts) ListWorkouts(ctx context.Context) ([]*workout.Workout, error) {
	return s.Load(ctx)
}
