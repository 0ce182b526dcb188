package view

import (
	"math"

	"github.com/claude/mapty/internal/workout"
)

// Spreads at or above these (in degrees) do not fit the default zoom.
const (
	wideLatSpan = 0.086
	wideLngSpan = 0.2
	wideZoom    = 12
)

// InitialView picks the first map view. With no workouts it is the user's
// position at zoom; otherwise it is the mean workout position rounded to
// two decimals, zoomed out to 12 when the workouts are spread wide.
func InitialView(workouts []*workout.Workout, here workout.Coords, zoom int) (workout.Coords, int) {
	if len(workouts) == 0 {
		return here, zoom
	}

	var sumLat, sumLng float64
	minLat, minLng := math.Inf(1), math.Inf(1)
	maxLat, maxLng := math.Inf(-1), math.Inf(-1)
	for _, w := range workouts {
		c := w.Coords()
		sumLat += c.Lat
		sumLng += c.Lng
		minLat, maxLat = math.Min(minLat, c.Lat), math.Max(maxLat, c.Lat)
		minLng, maxLng = math.Min(minLng, c.Lng), math.Max(maxLng, c.Lng)
	}
	n := float64(len(workouts))
	center := workout.Coords{
		Lat: round2(sumLat / n),
		Lng: round2(sumLng / n),
	}

	if maxLat-minLat >= wideLatSpan || maxLng-minLng >= wideLngSpan {
		zoom = wideZoom
	}
	return center, zoom
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
