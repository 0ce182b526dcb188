// Package store holds the canonical, insertion-ordered workout collection.
package store

import (
	"errors"
	"fmt"
	"sort"

	"github.com/claude/mapty/internal/workout"
)

var (
	// ErrNotFound is returned when no workout has the requested id.
	ErrNotFound = errors.New("workout not found")
	// ErrDuplicateID is returned when a workout id is already in the store.
	ErrDuplicateID = errors.New("duplicate workout id")
)

// SortKey selects the field a sorted view orders by.
type SortKey int

const (
	ByDistance SortKey = iota
	ByDuration
)

func (k SortKey) String() string {
	switch k {
	case ByDistance:
		return "distance"
	case ByDuration:
		return "duration"
	default:
		return fmt.Sprintf("SortKey(%d)", int(k))
	}
}

// ParseSortKey maps "distance" and "duration" (or "time") to a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch s {
	case "distance":
		return ByDistance, nil
	case "duration", "time":
		return ByDuration, nil
	default:
		return 0, fmt.Errorf("unknown sort key %q", s)
	}
}

// Store is the ordered workout collection with an id index. It is not
// safe for concurrent use.
type Store struct {
	items []*workout.Workout
	index map[string]int
}

// New returns an empty Store.
func New() *Store {
	return &Store{index: make(map[string]int)}
}

// Add appends w to the canonical order.
func (s *Store) Add(w *workout.Workout) error {
	if _, ok := s.index[w.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, w.ID())
	}
	s.index[w.ID()] = len(s.items)
	s.items = append(s.items, w)
	return nil
}

// RemoveByID removes and returns the workout with the given id.
func (s *Store) RemoveByID(id string) (*workout.Workout, error) {
	pos, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := s.items[pos]
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, id)
	s.reindex(pos)
	return removed, nil
}

// FindByID returns the workout with the given id.
func (s *Store) FindByID(id string) (*workout.Workout, error) {
	pos, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.items[pos], nil
}

// Replace removes the workout with id and appends w. On error the
// collection is left untouched.
func (s *Store) Replace(id string, w *workout.Workout) error {
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if w.ID() != id {
		if _, ok := s.index[w.ID()]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, w.ID())
		}
	}
	if _, err := s.RemoveByID(id); err != nil {
		return err
	}
	return s.Add(w)
}

// SortedView returns the workouts ordered by key. Ties keep their
// canonical relative order in both directions; the canonical order is
// not modified.
func (s *Store) SortedView(key SortKey, ascending bool) []*workout.Workout {
	view := s.All()
	value := func(w *workout.Workout) float64 {
		if key == ByDuration {
			return w.DurationMin()
		}
		return w.DistanceKm()
	}
	sort.SliceStable(view, func(i, j int) bool {
		if ascending {
			return value(view[i]) < value(view[j])
		}
		return value(view[i]) > value(view[j])
	})
	return view
}

// All returns the workouts in canonical order.
func (s *Store) All() []*workout.Workout {
	out := make([]*workout.Workout, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of workouts.
func (s *Store) Len() int {
	return len(s.items)
}

// Clear removes every workout.
func (s *Store) Clear() {
	s.items = nil
	s.index = make(map[string]int)
}

func (s *Store) reindex(from int) {
	for i := from; i < len(s.items); i++ {
		s.index[s.items[i].ID()] = i
	}
}
