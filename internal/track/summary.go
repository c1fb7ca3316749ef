package track

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the ride totals handed to persistence on save.
type Summary struct {
	DistanceKm     float64       `json:"distance_km"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	Moving         time.Duration `json:"moving_ns"`
	ElevationGainM float64       `json:"elevation_gain_m"`
	MaxSpeedKmh    float64       `json:"max_speed_kmh"`
	AvgSpeedKmh    float64       `json:"avg_speed_kmh"`
	Points         int           `json:"points"`
	Breaks         int           `json:"breaks"`
}

// Summarize computes the ride totals for t. Moving time excludes the gaps
// collapsed into break markers.
func Summarize(t *Track) Summary {
	n := t.Len()
	s := Summary{Points: n, Breaks: len(t.Breaks)}
	if n == 0 {
		return s
	}

	s.DistanceKm = t.TotalDistance() / 1000
	s.Elapsed = t.Points[n-1].Time.Sub(t.Points[0].Time)

	var paused time.Duration
	for _, b := range t.Breaks {
		if b <= 0 || b >= n {
			continue
		}
		paused += t.Points[b].Time.Sub(t.Points[b-1].Time)
	}
	s.Moving = s.Elapsed - paused
	if s.Moving < 0 {
		s.Moving = 0
	}

	deltas := make([]float64, 0, n)
	for i := 1; i < n; i++ {
		if d := t.Points[i].Elevation - t.Points[i-1].Elevation; d > 0 {
			deltas = append(deltas, d)
		}
	}
	s.ElevationGainM = floats.Sum(deltas)

	if n > 1 {
		s.MaxSpeedKmh = floats.Max(t.Speed)
	}
	if h := s.Moving.Hours(); h > 0 {
		s.AvgSpeedKmh = s.DistanceKm / h
	}
	return s
}

// Smooth applies a centred moving average of the given window, as the
// acceleration chart uses to tame point-to-point noise.
func Smooth(data []float64, window int) []float64 {
	out := make([]float64, len(data))
	if window <= 1 {
		copy(out, data)
		return out
	}
	half := window / 2
	up := (window + 1) / 2
	for i := range data {
		start := max(0, i-half)
		end := min(len(data), i+up)
		out[i] = stat.Mean(data[start:end], nil)
	}
	return out
}

// CornerPoint is one sample on the turn-angle vs speed scatter.
type CornerPoint struct {
	Index    int     `json:"idx"`
	AngleDeg float64 `json:"angle_deg"`
	SpeedKmh float64 `json:"speed_kmh"`
}

// Corners splits every index after the first into corners (turn angle above
// thresholdDeg) and straights.
func Corners(t *Track, thresholdDeg float64) (corners, straights []CornerPoint) {
	corners = []CornerPoint{}
	straights = []CornerPoint{}
	for i := 1; i < t.Len(); i++ {
		cp := CornerPoint{Index: i, AngleDeg: t.TurnAngle[i], SpeedKmh: t.Speed[i]}
		if math.IsNaN(cp.AngleDeg) {
			continue
		}
		if cp.AngleDeg > thresholdDeg {
			corners = append(corners, cp)
		} else {
			straights = append(straights, cp)
		}
	}
	return corners, straights
}
