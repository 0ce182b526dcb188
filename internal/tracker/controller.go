// Package tracker turns user events into workout store mutations,
// persistence, and view updates.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/mapty/internal/observability"
	"github.com/claude/mapty/internal/store"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/view"
	"github.com/claude/mapty/internal/workout"
)

var (
	// ErrFormOpen is returned for events that need the form closed.
	ErrFormOpen = errors.New("workout form is open")
	// ErrFormClosed is returned for events that need the form open.
	ErrFormClosed = errors.New("workout form is closed")
	// ErrMapNotReady is returned for map events before the map has loaded.
	ErrMapNotReady = errors.New("map is not ready")
)

// Announcement texts.
const (
	MsgCreated    = "Workout created or changed"
	MsgDeleted    = "Workout deleted"
	MsgSortedDist = "Sorted by distance"
	MsgSortedTime = "Sorted by time"
	MsgAllDeleted = "All workouts deleted"
	MsgNoPosition = "❌  Could not get your position!"
)

const (
	defaultZoom  = 13
	defaultFocus = 15
)

// Mode is the controller state.
type Mode int

const (
	Idle Mode = iota
	FormOpen
)

func (m Mode) String() string {
	if m == FormOpen {
		return "form_open"
	}
	return "idle"
}

// Persister stores the whole workout collection.
type Persister interface {
	Save(ctx context.Context, workouts []*workout.Workout) error
	Load(ctx context.Context) ([]*workout.Workout, error)
	Clear(ctx context.Context) error
}

// Form is the workout entry form.
type Form interface {
	// Show reveals the form and focuses the distance input.
	Show()
	// Hide clears every input and its styling and hides the form.
	Hide()
	MarkInvalid(f Field)
	MarkValid(f Field)
}

// Announcer speaks short confirmations. Each call replaces whatever is
// still queued.
type Announcer interface {
	Announce(lines ...string)
}

// Options tune a Controller. Zero values select the defaults.
type Options struct {
	DefaultZoom int
	FocusZoom   int
	Tiles       view.TileLayer
	Now         func() time.Time
	Logger      *slog.Logger
}

// Controller owns the interaction state machine. It is not safe for
// concurrent use; callers deliver one event at a time.
type Controller struct {
	store   *store.Store
	persist Persister
	sync    *view.Synchronizer
	form    Form
	speech  Announcer

	logger      *slog.Logger
	now         func() time.Time
	defaultZoom int
	focusZoom   int
	tiles       view.TileLayer

	mode             Mode
	pending          workout.Coords
	editing          *workout.Workout
	sortedByDistance bool
	sortedByTime     bool
	mapReady         bool
}

// New creates a Controller. sync must be built over s.
func New(s *store.Store, p Persister, sync *view.Synchronizer, form Form, speech Announcer, opts Options) *Controller {
	c := &Controller{
		store:       s,
		persist:     p,
		sync:        sync,
		form:        form,
		speech:      speech,
		logger:      opts.Logger,
		now:         opts.Now,
		defaultZoom: opts.DefaultZoom,
		focusZoom:   opts.FocusZoom,
		tiles:       opts.Tiles,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.defaultZoom == 0 {
		c.defaultZoom = defaultZoom
	}
	if c.focusZoom == 0 {
		c.focusZoom = defaultFocus
	}
	return c
}

// Mode reports whether the form is open.
func (c *Controller) Mode() Mode { return c.mode }

// Pending returns the coordinates the open form will create a workout at.
func (c *Controller) Pending() workout.Coords { return c.pending }

// MapReady reports whether the map has loaded.
func (c *Controller) MapReady() bool { return c.mapReady }

// Start loads the stored workouts and renders the list. An unreadable
// collection is logged and replaced by an empty one.
func (c *Controller) Start(ctx context.Context) error {
	loaded, err := c.persist.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptState) {
			c.logger.Warn("stored workouts unreadable, starting empty", "error", err)
		} else {
			c.logger.Error("loading workouts", "error", err)
		}
		observability.RecordPersistenceFailure("load")
		loaded = nil
	}

	c.store.Clear()
	for _, w := range loaded {
		if err := c.store.Add(w); err != nil {
			c.logger.Warn("skipping stored workout", "id", w.ID(), "error", err)
		}
	}
	observability.SetWorkouts(c.store.Len())
	c.logger.Info("workouts loaded", "count", c.store.Len())

	return c.renderList(c.store.All())
}

// Locate loads the map around here, the user's position.
func (c *Controller) Locate(_ context.Context, here workout.Coords) error {
	center, zoom := view.InitialView(c.store.All(), here, c.defaultZoom)
	c.sync.LoadMap(center, zoom, c.tiles)
	c.mapReady = true
	c.logger.Debug("map loaded", "lat", center.Lat, "lng", center.Lng, "zoom", zoom)
	return nil
}

// LocateFailed shows the position error in place of the map.
func (c *Controller) LocateFailed(_ context.Context) error {
	c.sync.ShowMapError(MsgNoPosition)
	c.mapReady = false
	return nil
}

// MapClick opens the form for a new workout at at.
func (c *Controller) MapClick(_ context.Context, at workout.Coords) error {
	if !c.mapReady {
		return ErrMapNotReady
	}
	if c.mode == FormOpen {
		return ErrFormOpen
	}
	c.openForm(at)
	return nil
}

// Submit validates sub and, when valid, creates the workout at the
// pending coordinates.
func (c *Controller) Submit(ctx context.Context, sub Submission) error {
	if c.mode != FormOpen {
		return ErrFormClosed
	}

	in, err := validate(sub, c.mark)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			observability.RecordRejected(string(verr.Field))
		}
		return err
	}

	var w *workout.Workout
	switch in.kind {
	case workout.KindRunning:
		w, err = workout.NewRunning(c.now(), c.pending, in.distance, in.duration, in.cadence)
	case workout.KindCycling:
		w, err = workout.NewCycling(c.now(), c.pending, in.distance, in.duration, in.elevation)
	}
	if err != nil {
		return fmt.Errorf("creating workout: %w", err)
	}
	if err := c.store.Add(w); err != nil {
		return fmt.Errorf("adding workout: %w", err)
	}

	c.editing = nil
	c.save(ctx)
	c.closeForm()
	if err := c.reconcile(); err != nil {
		return err
	}
	observability.RecordCreated(string(w.Kind()))
	c.speech.Announce(MsgCreated)
	c.logger.Info("workout created", "id", w.ID(), "type", w.Kind())
	return nil
}

// Cancel closes the form. An abandoned edit gets its record back from
// storage, where the removal was never written.
func (c *Controller) Cancel(ctx context.Context) error {
	if c.mode != FormOpen {
		return ErrFormClosed
	}
	restored := c.editing != nil
	c.abandonEdit(ctx)
	c.closeForm()
	if restored {
		return c.reconcile()
	}
	return nil
}

// Focus centres the map on a workout and reads it out.
func (c *Controller) Focus(_ context.Context, id string) error {
	w, err := c.find(id)
	if err != nil {
		return err
	}
	if c.mapReady {
		c.sync.CenterOn(w.Coords(), c.focusZoom)
	}
	c.speech.Announce(readout(w)...)
	w.Click()
	return nil
}

// Delete removes a workout. An open form is abandoned first.
func (c *Controller) Delete(ctx context.Context, id string) error {
	abandoned := c.mode == FormOpen
	if abandoned {
		c.abandonEdit(ctx)
		c.closeForm()
	}

	removed, err := c.store.RemoveByID(id)
	if err != nil {
		c.logger.Error("deleting workout", "id", id, "error", err)
		if abandoned {
			if rerr := c.reconcile(); rerr != nil {
				return rerr
			}
		}
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}

	c.save(ctx)
	if err := c.reconcile(); err != nil {
		return err
	}
	observability.RecordDeleted()
	c.speech.Announce(MsgDeleted)
	c.logger.Info("workout deleted", "id", id)
	removed.Click()
	return nil
}

// Edit takes a workout out of the collection and opens the form at its
// position. The removal is only written once the form is submitted.
func (c *Controller) Edit(ctx context.Context, id string) error {
	if c.mode == FormOpen {
		return ErrFormOpen
	}
	w, err := c.find(id)
	if err != nil {
		return err
	}

	if c.mapReady {
		c.sync.CenterOn(w.Coords(), c.focusZoom)
	}
	c.speech.Announce(readout(w)...)

	if _, err := c.store.RemoveByID(id); err != nil {
		return fmt.Errorf("editing workout %s: %w", id, err)
	}
	c.editing = w
	if err := c.reconcile(); err != nil {
		return err
	}
	c.openForm(w.Coords())
	w.Click()
	return nil
}

// SortByDistance toggles the list between ascending distance and
// canonical order.
func (c *Controller) SortByDistance(_ context.Context) error {
	c.sortedByDistance = !c.sortedByDistance
	if err := c.sortList(store.ByDistance, c.sortedByDistance); err != nil {
		return err
	}
	c.speech.Announce(MsgSortedDist)
	return nil
}

// SortByTime toggles the list between ascending duration and canonical
// order.
func (c *Controller) SortByTime(_ context.Context) error {
	c.sortedByTime = !c.sortedByTime
	if err := c.sortList(store.ByDuration, c.sortedByTime); err != nil {
		return err
	}
	c.speech.Announce(MsgSortedTime)
	return nil
}

// ClearAll deletes every workout, stored and in memory.
func (c *Controller) ClearAll(ctx context.Context) error {
	c.store.Clear()
	if err := c.persist.Clear(ctx); err != nil {
		c.logger.Error("clearing workouts", "error", err)
		observability.RecordPersistenceFailure("clear")
	}
	c.editing = nil
	if c.mode == FormOpen {
		c.closeForm()
	}
	if err := c.reconcile(); err != nil {
		return err
	}
	c.speech.Announce(MsgAllDeleted)
	c.logger.Info("all workouts deleted")
	return nil
}

// ImportResult counts what Import did with each workout.
type ImportResult struct {
	Inserted   int `json:"inserted"`
	Duplicated int `json:"duplicated"`
}

// Import appends workouts whose id is not yet known, in order, and saves
// the collection once. It is refused while the form is open.
func (c *Controller) Import(ctx context.Context, ws []*workout.Workout) (ImportResult, error) {
	var res ImportResult
	if c.mode == FormOpen {
		return res, ErrFormOpen
	}
	for _, w := range ws {
		if err := c.store.Add(w); err != nil {
			res.Duplicated++
			continue
		}
		res.Inserted++
	}
	if res.Inserted == 0 {
		return res, nil
	}

	c.save(ctx)
	if err := c.reconcile(); err != nil {
		return res, err
	}
	c.speech.Announce(MsgCreated)
	c.logger.Info("workouts imported", "inserted", res.Inserted, "duplicated", res.Duplicated)
	return res, nil
}

func (c *Controller) find(id string) (*workout.Workout, error) {
	w, err := c.store.FindByID(id)
	if err != nil {
		c.logger.Error("looking up workout", "id", id, "error", err)
		return nil, fmt.Errorf("workout %s: %w", id, err)
	}
	return w, nil
}

func (c *Controller) mark(f Field, ok bool) {
	if ok {
		c.form.MarkValid(f)
	} else {
		c.form.MarkInvalid(f)
	}
}

func (c *Controller) openForm(at workout.Coords) {
	c.pending = at
	c.mode = FormOpen
	c.form.Show()
}

func (c *Controller) closeForm() {
	c.pending = workout.Coords{}
	c.mode = Idle
	c.form.Hide()
}

// abandonEdit puts the record held by an open edit back. The stored
// collection is authoritative; if it cannot be read, the held record is
// appended instead.
func (c *Controller) abandonEdit(ctx context.Context) {
	held := c.editing
	if held == nil {
		return
	}
	c.editing = nil

	stored, err := c.persist.Load(ctx)
	if err != nil {
		c.logger.Error("restoring edited workout", "id", held.ID(), "error", err)
		observability.RecordPersistenceFailure("load")
		if err := c.store.Add(held); err != nil {
			c.logger.Warn("re-adding edited workout", "id", held.ID(), "error", err)
		}
		return
	}

	c.store.Clear()
	for _, w := range stored {
		if err := c.store.Add(w); err != nil {
			c.logger.Warn("skipping stored workout", "id", w.ID(), "error", err)
		}
	}
	if _, err := c.store.FindByID(held.ID()); err != nil {
		c.logger.Warn("edited workout missing from storage, re-adding", "id", held.ID())
		c.store.Add(held)
	}
}

// save writes the collection. Failures are logged and counted only.
func (c *Controller) save(ctx context.Context) {
	if err := c.persist.Save(ctx, c.store.All()); err != nil {
		c.logger.Error("saving workouts", "error", err)
		observability.RecordPersistenceFailure("save")
	}
}

// reconcile re-renders list and markers in canonical order. The sort
// toggles are reset to match what is shown.
func (c *Controller) reconcile() error {
	c.sortedByDistance, c.sortedByTime = false, false
	observability.SetWorkouts(c.store.Len())
	if err := c.sync.Reconcile(); err != nil {
		c.logger.Error("rendering workouts", "error", err)
		return fmt.Errorf("rendering workouts: %w", err)
	}
	return nil
}

func (c *Controller) sortList(key store.SortKey, on bool) error {
	ws := c.store.All()
	if on {
		ws = c.store.SortedView(key, true)
	}
	return c.renderList(ws)
}

func (c *Controller) renderList(ws []*workout.Workout) error {
	if err := c.sync.RenderList(ws); err != nil {
		c.logger.Error("rendering workout list", "error", err)
		return fmt.Errorf("rendering workout list: %w", err)
	}
	return nil
}

// readout is the spoken description of w.
func readout(w *workout.Workout) []string {
	lines := []string{
		w.Label(),
		fmt.Sprintf("distance %s kilometers", view.FormatNumber(w.DistanceKm())),
		fmt.Sprintf("duration %s minutes", view.FormatNumber(w.DurationMin())),
	}
	switch d := w.Details().(type) {
	case workout.Running:
		lines = append(lines,
			fmt.Sprintf("pace %s minutes per kilometer", view.FormatFixed1(d.PaceMinPerKm)),
			fmt.Sprintf("cadence %d steps per minute", d.CadenceSPM),
		)
	case workout.Cycling:
		lines = append(lines,
			fmt.Sprintf("speed %s kilometers per hour", view.FormatFixed1(d.SpeedKmPerH)),
			fmt.Sprintf("elevation gain %s meters", view.FormatNumber(d.ElevationGainM)),
		)
	}
	return lines
}
