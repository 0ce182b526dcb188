package view

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"

	"github.com/claude/mapty/internal/workout"
)

var itemTmpl = template.Must(template.New("item").Parse(`<li class="workout workout--{{.Type}}" data-id="{{.ID}}">
  <h2 class="workout__title">{{.Label}}</h2>
  <div class="workout__details">
    <span class="workout__icon">{{.Glyph}}</span>
    <span class="workout__value">{{.Distance}}</span>
    <span class="workout__unit">km</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">⏱</span>
    <span class="workout__value">{{.Duration}}</span>
    <span class="workout__unit">min</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">⚡️</span>
    <span class="workout__value">{{.Rate}}</span>
    <span class="workout__unit">{{.RateUnit}}</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">{{.ExtraIcon}}</span>
    <span class="workout__value">{{.Extra}}</span>
    <span class="workout__unit">{{.ExtraUnit}}</span>
  </div>
  <div class="workout__control">
    <button class="workout__btn workout__btn--clear">🗑 Clear</button>
    <button class="workout__btn workout__btn--edit">📝 Edit</button>
  </div>
</li>`))

type itemData struct {
	Type, ID, Label, Glyph string
	Distance, Duration     string
	Rate, RateUnit         string
	ExtraIcon              string
	Extra, ExtraUnit       string
}

// Fragment renders the list item for w.
func Fragment(w *workout.Workout) (template.HTML, error) {
	d := itemData{
		Type:     string(w.Kind()),
		ID:       w.ID(),
		Label:    w.Label(),
		Glyph:    Glyph(w.Kind()),
		Distance: FormatNumber(w.DistanceKm()),
		Duration: FormatNumber(w.DurationMin()),
	}
	switch det := w.Details().(type) {
	case workout.Running:
		d.Rate, d.RateUnit = FormatFixed1(det.PaceMinPerKm), "min/km"
		d.ExtraIcon, d.Extra, d.ExtraUnit = "🦶🏼", strconv.Itoa(det.CadenceSPM), "spm"
	case workout.Cycling:
		d.Rate, d.RateUnit = FormatFixed1(det.SpeedKmPerH), "km/h"
		d.ExtraIcon, d.Extra, d.ExtraUnit = "⛰", FormatNumber(det.ElevationGainM), "m"
	default:
		return "", fmt.Errorf("rendering workout %s: unsupported details %T", w.ID(), det)
	}

	var buf bytes.Buffer
	if err := itemTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("rendering workout %s: %w", w.ID(), err)
	}
	return template.HTML(buf.String()), nil
}

// FormatNumber prints v with the fewest digits that round-trip, so 5 is
// "5" and 5.25 is "5.25".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatFixed1 prints v with one decimal, rounding halves away from zero.
func FormatFixed1(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
}
