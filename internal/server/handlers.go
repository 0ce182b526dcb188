package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/mapty/internal/screen"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/store"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/workout"
)

// eventResponse is returned by every event endpoint.
type eventResponse struct {
	Screen screen.Snapshot `json:"screen"`
	Error  string          `json:"error,omitempty"`
}

type position struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (p position) coords() (workout.Coords, bool) {
	if p.Lat == nil || p.Lng == nil {
		return workout.Coords{}, false
	}
	return workout.Coords{Lat: *p.Lat, Lng: *p.Lng}, true
}

// event runs fn under the event lock and replies with the resulting screen.
func (s *Server) event(w http.ResponseWriter, r *http.Request, name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	err := fn(r.Context())
	snap := s.screen.Snapshot()
	s.mu.Unlock()

	resp := eventResponse{Screen: snap}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		resp.Error = err.Error()
		if status >= http.StatusInternalServerError {
			s.log.Error("event failed", "event", name, "error", err)
		} else {
			s.log.Debug("event rejected", "event", name, "error", err)
		}
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workout.ErrInvalidMetric), errors.Is(err, workout.ErrInvalidCoordinates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrFormOpen),
		errors.Is(err, tracker.ErrFormClosed),
		errors.Is(err, tracker.ErrMapNotReady),
		errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.screen.Snapshot()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, eventResponse{Screen: snap})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	at, ok := decodePosition(w, r)
	if !ok {
		return
	}
	s.event(w, r, "position", func(ctx context.Context) error {
		return s.ctrl.Locate(ctx, at)
	})
}

func (s *Server) handlePositionError(w http.ResponseWriter, r *http.Request) {
	s.event(w, r, "position_error", s.ctrl.LocateFailed)
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	at, ok := decodePosition(w, r)
	if !ok {
		return
	}
	s.event(w, r, "map_click", func(ctx context.Context) error {
		return s.ctrl.MapClick(ctx, at)
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub tracker.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.event(w, r, "submit", func(ctx context.Context) error {
		return s.ctrl.Submit(ctx, sub)
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.event(w, r, "cancel", s.ctrl.Cancel)
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.event(w, r, "focus", func(ctx context.Context) error {
		return s.ctrl.Focus(ctx, id)
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.event(w, r, "edit", func(ctx context.Context) error {
		return s.ctrl.Edit(ctx, id)
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.event(w, r, "delete", func(ctx context.Context) error {
		return s.ctrl.Delete(ctx, id)
	})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s.event(w, r, "clear_all", s.ctrl.ClearAll)
}

func (s *Server) handleSortDistance(w http.ResponseWriter, r *http.Request) {
	s.event(w, r, "sort_distance", s.ctrl.SortByDistance)
}

func (s *Server) handleSortTime(w http.ResponseWriter, r *http.Request) {
	s.event(w, r, "sort_time", s.ctrl.SortByTime)
}

// handleListWorkouts returns the canonical collection in the stored layout.
func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, err := storage.Encode(s.store.All())
	s.mu.Unlock()
	if err != nil {
		s.log.Error("encoding workouts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func decodePosition(w http.ResponseWriter, r *http.Request) (workout.Coords, bool) {
	var p position
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return workout.Coords{}, false
	}
	at, ok := p.coords()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return workout.Coords{}, false
	}
	return at, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
