package mcp

import (
	"context"

	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/workout"
)

// DataSource abstracts where workouts are read from. Both *storage.Workouts
// (local backend) and HTTPClient (remote via REST API) satisfy it.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]*workout.Workout, error)
}

// Compile-time check: *storage.Workouts satisfies DataSource.
var _ DataSource = (*storage.Workouts)(nil)
