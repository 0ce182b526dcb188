// Package screen keeps the state a browser needs to paint the tracker:
// list items, map markers and viewport, form styling, and pending speech.
package screen

import (
	"html/template"

	"github.com/google/uuid"

	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
	"github.com/claude/mapty/internal/workout"
)

// Form input classes applied by the frontend.
const (
	ClassSuccess = "form__input--success"
	ClassError   = "form__input--error"
)

// Item is one rendered list entry.
type Item struct {
	ID   string        `json:"id"`
	HTML template.HTML `json:"html"`
}

// Marker is a placed map marker.
type Marker struct {
	ID    string         `json:"id"`
	At    workout.Coords `json:"at"`
	Popup view.Popup     `json:"popup"`
}

// BindPopup implements view.Marker.
func (m *Marker) BindPopup(p view.Popup) { m.Popup = p }

// Viewport is where the map is looking.
type Viewport struct {
	Center     workout.Coords `json:"center"`
	Zoom       int            `json:"zoom"`
	Animate    bool           `json:"animate"`
	PanSeconds float64        `json:"pan_seconds"`
}

// MapState describes the map widget.
type MapState struct {
	Ready    bool           `json:"ready"`
	Viewport Viewport       `json:"viewport"`
	Tiles    view.TileLayer `json:"tiles"`
	Error    string         `json:"error,omitempty"`
	Markers  []Marker       `json:"markers"`
}

// FormState describes the workout form.
type FormState struct {
	Visible bool              `json:"visible"`
	Focus   string            `json:"focus,omitempty"`
	Classes map[string]string `json:"classes"`
}

// Speech is the latest announcement. Seq increases with every
// announcement so the frontend speaks each one once.
type Speech struct {
	Seq   uint64   `json:"seq"`
	Lines []string `json:"lines"`
}

// Snapshot is a copy of the whole screen.
type Snapshot struct {
	Items  []Item    `json:"items"`
	Map    MapState  `json:"map"`
	Form   FormState `json:"form"`
	Speech Speech    `json:"speech"`
}

// Screen implements the list, map, form and announcer collaborators. It
// is not safe for concurrent use.
type Screen struct {
	items   []Item
	markers []*Marker
	m       MapState
	form    FormState
	speech  Speech
}

var (
	_ view.ListView     = (*Screen)(nil)
	_ view.Map          = (*Screen)(nil)
	_ tracker.Form      = (*Screen)(nil)
	_ tracker.Announcer = (*Screen)(nil)
)

// New returns an empty Screen.
func New() *Screen {
	return &Screen{form: FormState{Classes: map[string]string{}}}
}

func (s *Screen) ClearItems() { s.items = nil }

func (s *Screen) AppendItem(id string, fragment template.HTML) {
	s.items = append(s.items, Item{ID: id, HTML: fragment})
}

func (s *Screen) CreateView(center workout.Coords, zoom int) {
	s.m.Ready = true
	s.m.Error = ""
	s.m.Viewport = Viewport{Center: center, Zoom: zoom}
}

func (s *Screen) AddTileLayer(t view.TileLayer) { s.m.Tiles = t }

func (s *Screen) PlaceMarker(at workout.Coords) view.Marker {
	mk := &Marker{ID: uuid.NewString(), At: at}
	s.markers = append(s.markers, mk)
	return mk
}

func (s *Screen) RemoveMarker(m view.Marker) {
	for i, mk := range s.markers {
		if view.Marker(mk) == m {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return
		}
	}
}

func (s *Screen) SetView(center workout.Coords, zoom int, opts view.ViewOptions) {
	s.m.Viewport = Viewport{
		Center:     center,
		Zoom:       zoom,
		Animate:    opts.Animate,
		PanSeconds: opts.PanDuration.Seconds(),
	}
}

// ShowError replaces the map with msg.
func (s *Screen) ShowError(msg string) {
	s.m.Ready = false
	s.m.Error = msg
}

// Show reveals the form with the distance input focused.
func (s *Screen) Show() {
	s.form.Visible = true
	s.form.Focus = string(tracker.FieldDistance)
}

// Hide hides the form and drops all field styling.
func (s *Screen) Hide() {
	s.form = FormState{Classes: map[string]string{}}
}

func (s *Screen) MarkInvalid(f tracker.Field) {
	s.form.Classes[string(f)] = ClassError
	s.form.Focus = string(f)
}

func (s *Screen) MarkValid(f tracker.Field) {
	s.form.Classes[string(f)] = ClassSuccess
}

// Announce replaces the pending speech with lines.
func (s *Screen) Announce(lines ...string) {
	s.speech.Seq++
	s.speech.Lines = append([]string(nil), lines...)
}

// Snapshot returns a deep copy of the current state.
func (s *Screen) Snapshot() Snapshot {
	snap := Snapshot{
		Items:  append([]Item{}, s.items...),
		Map:    s.m,
		Form:   s.form,
		Speech: Speech{Seq: s.speech.Seq, Lines: append([]string{}, s.speech.Lines...)},
	}
	snap.Map.Markers = make([]Marker, len(s.markers))
	for i, mk := range s.markers {
		snap.Map.Markers[i] = *mk
	}
	snap.Form.Classes = make(map[string]string, len(s.form.Classes))
	for k, v := range s.form.Classes {
		snap.Form.Classes[k] = v
	}
	return snap
}
