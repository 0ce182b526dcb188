package view

import (
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/claude/mapty/internal/store"
	"github.com/claude/mapty/internal/workout"
)

type fakeList struct {
	ids   []string
	html  []template.HTML
	clear int
}

func (l *fakeList) ClearItems() {
	l.ids, l.html = nil, nil
	l.clear++
}

func (l *fakeList) AppendItem(id string, fragment template.HTML) {
	l.ids = append(l.ids, id)
	l.html = append(l.html, fragment)
}

type fakeMarker struct {
	at    workout.Coords
	popup Popup
}

func (m *fakeMarker) BindPopup(p Popup) { m.popup = p }

type fakeMap struct {
	markers []*fakeMarker
	center  workout.Coords
	zoom    int
	opts    ViewOptions
	tiles   TileLayer
	created bool
	errMsg  string
}

func (m *fakeMap) CreateView(c workout.Coords, zoom int) {
	m.created, m.center, m.zoom = true, c, zoom
}
func (m *fakeMap) AddTileLayer(t TileLayer) { m.tiles = t }
func (m *fakeMap) PlaceMarker(at workout.Coords) Marker {
	mk := &fakeMarker{at: at}
	m.markers = append(m.markers, mk)
	return mk
}
func (m *fakeMap) RemoveMarker(mk Marker) {
	for i, x := range m.markers {
		if x == mk {
			m.markers = append(m.markers[:i], m.markers[i+1:]...)
			return
		}
	}
}
func (m *fakeMap) SetView(c workout.Coords, zoom int, opts ViewOptions) {
	m.center, m.zoom, m.opts = c, zoom, opts
}
func (m *fakeMap) ShowError(msg string) { m.errMsg = msg }

var created = time.Date(2026, time.April, 14, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (*store.Store, *fakeList, *fakeMap, *Synchronizer) {
	t.Helper()
	s := store.New()
	l := &fakeList{}
	m := &fakeMap{}
	return s, l, m, NewSynchronizer(l, m, s)
}

func mustRun(t *testing.T, at time.Time, c workout.Coords, distance, duration float64, cadence int) *workout.Workout {
	t.Helper()
	w, err := workout.NewRunning(at, c, distance, duration, cadence)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func mustRide(t *testing.T, at time.Time, c workout.Coords, distance, duration, elevation float64) *workout.Workout {
	t.Helper()
	w, err := workout.NewCycling(at, c, distance, duration, elevation)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

// TestReconcileRendersListAndMarkers verifies one list item and one marker
// per workout, with popups carrying glyph and label.
func TestReconcileRendersListAndMarkers(t *testing.T) {
	s, l, m, sync := newFixture(t)
	run := mustRun(t, created, workout.Coords{Lat: 50, Lng: 30}, 5, 30, 170)
	ride := mustRide(t, created.Add(time.Second), workout.Coords{Lat: 51, Lng: 31}, 20, 60, -10)
	s.Add(run)
	s.Add(ride)

	if err := sync.Reconcile(); err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(l.ids, ","); got != run.ID()+","+ride.ID() {
		t.Errorf("list ids = %s", got)
	}
	if len(m.markers) != 2 {
		t.Fatalf("markers = %d, want 2", len(m.markers))
	}
	if m.markers[0].at != (workout.Coords{Lat: 50, Lng: 30}) {
		t.Errorf("marker 0 at %v, want (50,30)", m.markers[0].at)
	}
	p := m.markers[0].popup
	if p.Content != "🏃‍♂️ Running on April 14" {
		t.Errorf("popup content = %q", p.Content)
	}
	if p.ClassName != "running-popup" || p.MaxWidth != 250 || p.MinWidth != 100 || p.AutoClose || p.CloseOnClick {
		t.Errorf("popup options = %+v", p)
	}
	if m.markers[1].popup.ClassName != "cycling-popup" {
		t.Errorf("popup class = %q, want cycling-popup", m.markers[1].popup.ClassName)
	}
}

// TestReconcileReplacesMarkers verifies markers are cleared before being
// re-placed, so repeated reconciles never accumulate markers.
func TestReconcileReplacesMarkers(t *testing.T) {
	s, _, m, sync := newFixture(t)
	a := mustRun(t, created, workout.Coords{Lat: 1, Lng: 1}, 5, 30, 170)
	b := mustRun(t, created.Add(time.Second), workout.Coords{Lat: 2, Lng: 2}, 5, 30, 170)
	s.Add(a)
	s.Add(b)
	sync.Reconcile()
	sync.Reconcile()
	if len(m.markers) != 2 || sync.MarkerCount() != 2 {
		t.Fatalf("markers = %d (tracked %d), want 2", len(m.markers), sync.MarkerCount())
	}

	s.RemoveByID(a.ID())
	sync.Reconcile()
	if len(m.markers) != 1 || m.markers[0].at != b.Coords() {
		t.Errorf("markers after delete = %+v", m.markers)
	}
}

// TestRenderListLeavesMarkers verifies a display-only render does not touch markers.
func TestRenderListLeavesMarkers(t *testing.T) {
	s, l, m, sync := newFixture(t)
	a := mustRun(t, created, workout.Coords{Lat: 1, Lng: 1}, 5, 30, 170)
	b := mustRun(t, created.Add(time.Second), workout.Coords{Lat: 2, Lng: 2}, 2, 10, 170)
	s.Add(a)
	s.Add(b)
	sync.Reconcile()
	first := m.markers[0]

	sync.RenderList(s.SortedView(store.ByDistance, true))
	if got := strings.Join(l.ids, ","); got != b.ID()+","+a.ID() {
		t.Errorf("sorted list = %s", got)
	}
	if len(m.markers) != 2 || m.markers[0] != first {
		t.Errorf("markers changed by RenderList")
	}
	if l.clear != 2 {
		t.Errorf("list cleared %d times, want 2", l.clear)
	}
}

// TestFragmentRunning verifies the running item shows distance, duration,
// pace to one decimal, cadence, and the id-keyed controls.
func TestFragmentRunning(t *testing.T) {
	w := mustRun(t, created, workout.Coords{}, 5, 32, 170)
	html, err := Fragment(w)
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	for _, want := range []string{
		`class="workout workout--running"`, `data-id="` + w.ID() + `"`,
		"Running on April 14", `>5<`, `>32<`, `>6.4<`, "min/km", `>170<`, "spm",
		"workout__btn--clear", "workout__btn--edit",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("fragment missing %q:\n%s", want, s)
		}
	}
}

// TestFragmentCycling verifies the cycling item shows speed and elevation.
func TestFragmentCycling(t *testing.T) {
	w := mustRide(t, created, workout.Coords{}, 20, 45, -12.5)
	html, err := Fragment(w)
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	for _, want := range []string{`workout--cycling`, `>26.7<`, "km/h", `>-12.5<`, ">m<"} {
		if !strings.Contains(s, want) {
			t.Errorf("fragment missing %q:\n%s", want, s)
		}
	}
}

// TestCenterOnAnimates verifies recentring uses an animated one-second pan.
func TestCenterOnAnimates(t *testing.T) {
	_, _, m, sync := newFixture(t)
	sync.CenterOn(workout.Coords{Lat: 5, Lng: 6}, 15)
	if m.center != (workout.Coords{Lat: 5, Lng: 6}) || m.zoom != 15 {
		t.Errorf("view = %v @%d", m.center, m.zoom)
	}
	if !m.opts.Animate || m.opts.PanDuration != time.Second {
		t.Errorf("opts = %+v", m.opts)
	}
}

// TestLoadMap verifies the map is created with tiles and stored markers.
func TestLoadMap(t *testing.T) {
	s, _, m, sync := newFixture(t)
	s.Add(mustRun(t, created, workout.Coords{Lat: 1, Lng: 1}, 5, 30, 170))
	sync.LoadMap(workout.Coords{Lat: 1, Lng: 1}, 13, TileLayer{URL: "tiles", Attribution: "osm"})
	if !m.created || m.zoom != 13 || m.tiles.URL != "tiles" {
		t.Errorf("map = %+v", m)
	}
	if len(m.markers) != 1 {
		t.Errorf("markers = %d, want 1", len(m.markers))
	}
}

// TestInitialView verifies the centring and zoom rules for the first view.
func TestInitialView(t *testing.T) {
	here := workout.Coords{Lat: 10, Lng: 20}

	c, z := InitialView(nil, here, 13)
	if c != here || z != 13 {
		t.Errorf("empty: %v @%d, want %v @13", c, z, here)
	}

	close1 := mustRun(t, created, workout.Coords{Lat: 50.001, Lng: 30.004}, 1, 1, 1)
	close2 := mustRun(t, created.Add(time.Second), workout.Coords{Lat: 50.011, Lng: 30.016}, 1, 1, 1)
	c, z = InitialView([]*workout.Workout{close1, close2}, here, 13)
	if c != (workout.Coords{Lat: 50.01, Lng: 30.01}) || z != 13 {
		t.Errorf("close: %v @%d, want (50.01,30.01) @13", c, z)
	}

	far := mustRun(t, created.Add(2*time.Second), workout.Coords{Lat: 50.2, Lng: 30}, 1, 1, 1)
	_, z = InitialView([]*workout.Workout{close1, far}, here, 13)
	if z != 12 {
		t.Errorf("wide lat zoom = %d, want 12", z)
	}

	wideLng := mustRun(t, created.Add(3*time.Second), workout.Coords{Lat: 50, Lng: 30.3}, 1, 1, 1)
	_, z = InitialView([]*workout.Workout{close1, wideLng}, here, 13)
	if z != 12 {
		t.Errorf("wide lng zoom = %d, want 12", z)
	}
}

// TestFormatting verifies number formatting used in list items.
func TestFormatting(t *testing.T) {
	if got := FormatNumber(5); got != "5" {
		t.Errorf("FormatNumber(5) = %q", got)
	}
	if got := FormatNumber(0.0001); got != "0.0001" {
		t.Errorf("FormatNumber(0.0001) = %q", got)
	}
	if got := FormatFixed1(6); got != "6.0" {
		t.Errorf("FormatFixed1(6) = %q", got)
	}
	if got := FormatFixed1(26.666); got != "26.7" {
		t.Errorf("FormatFixed1(26.666) = %q", got)
	}
}
