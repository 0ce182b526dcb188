// Package view keeps the rendered workout list and the map markers in step
// with the workout store.
package view

import (
	"html/template"
	"time"

	"github.com/claude/mapty/internal/workout"
)

// ListView is the container the workout list is rendered into.
type ListView interface {
	ClearItems()
	AppendItem(id string, fragment template.HTML)
}

// Marker is a placed map marker.
type Marker interface {
	BindPopup(p Popup)
}

// Map is the map widget.
type Map interface {
	CreateView(center workout.Coords, zoom int)
	AddTileLayer(t TileLayer)
	PlaceMarker(at workout.Coords) Marker
	RemoveMarker(m Marker)
	SetView(center workout.Coords, zoom int, opts ViewOptions)
	// ShowError replaces the map with a static message.
	ShowError(msg string)
}

// Source provides the canonical workout order.
type Source interface {
	All() []*workout.Workout
}

// Popup describes a marker popup.
type Popup struct {
	Content      string `json:"content"`
	ClassName    string `json:"class_name"`
	MaxWidth     int    `json:"max_width"`
	MinWidth     int    `json:"min_width"`
	AutoClose    bool   `json:"auto_close"`
	CloseOnClick bool   `json:"close_on_click"`
}

// TileLayer is the map's base layer.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// ViewOptions control how the map moves to a new view.
type ViewOptions struct {
	Animate     bool          `json:"animate"`
	PanDuration time.Duration `json:"pan_duration"`
}

// Glyph returns the icon used for a workout kind.
func Glyph(k workout.Kind) string {
	switch k {
	case workout.KindRunning:
		return "🏃‍♂️"
	case workout.KindCycling:
		return "🚴‍♀️"
	default:
		return ""
	}
}

// Synchronizer renders the list and markers from store state.
type Synchronizer struct {
	list    ListView
	m       Map
	source  Source
	markers []Marker
}

// NewSynchronizer wires a Synchronizer to its collaborators.
func NewSynchronizer(list ListView, m Map, source Source) *Synchronizer {
	return &Synchronizer{list: list, m: m, source: source}
}

// RenderList replaces every list item with one fragment per workout, in order.
func (s *Synchronizer) RenderList(workouts []*workout.Workout) error {
	s.list.ClearItems()
	for _, w := range workouts {
		html, err := Fragment(w)
		if err != nil {
			return err
		}
		s.list.AppendItem(w.ID(), html)
	}
	return nil
}

// RenderMarkers removes every marker this Synchronizer placed and places
// one per workout.
func (s *Synchronizer) RenderMarkers(workouts []*workout.Workout) {
	for _, m := range s.markers {
		s.m.RemoveMarker(m)
	}
	s.markers = s.markers[:0]

	for _, w := range workouts {
		marker := s.m.PlaceMarker(w.Coords())
		marker.BindPopup(Popup{
			Content:   Glyph(w.Kind()) + " " + w.Label(),
			ClassName: string(w.Kind()) + "-popup",
			MaxWidth:  250,
			MinWidth:  100,
		})
		s.markers = append(s.markers, marker)
	}
}

// CenterOn pans the map to c.
func (s *Synchronizer) CenterOn(c workout.Coords, zoom int) {
	s.m.SetView(c, zoom, ViewOptions{Animate: true, PanDuration: time.Second})
}

// Reconcile re-renders both the list and the markers in canonical order.
// Sorting re-renders only the list; this is for structural changes.
func (s *Synchronizer) Reconcile() error {
	all := s.source.All()
	if err := s.RenderList(all); err != nil {
		return err
	}
	s.RenderMarkers(all)
	return nil
}

// LoadMap creates the map view, adds the tile layer, and places a marker
// for every stored workout.
func (s *Synchronizer) LoadMap(center workout.Coords, zoom int, tiles TileLayer) {
	s.m.CreateView(center, zoom)
	s.m.AddTileLayer(tiles)
	s.RenderMarkers(s.source.All())
}

// ShowMapError replaces the map with msg.
func (s *Synchronizer) ShowMapError(msg string) {
	s.m.ShowError(msg)
}

// MarkerCount returns how many markers are currently placed.
func (s *Synchronizer) MarkerCount() int {
	return len(s.markers)
}
