package track

import (
	"fmt"

	"github.com/banshee-data/ride-replay/internal/monitoring"
)

var logger = monitoring.Component("Track")

// Track is the authoritative resampled trajectory with its derived series.
// It is built once per trace and must be treated as read-only afterwards.
type Track struct {
	Points             []Point   `json:"points"`
	CumulativeDistance []float64 `json:"cumulative_distance_m"`
	Speed              []float64 `json:"speed_kmh"`
	Acceleration       []float64 `json:"acceleration_ms2"`
	TurnAngle          []float64 `json:"turn_angle_deg"`
	Breaks             []int     `json:"breaks"`

	DegenerateIndices []int `json:"degenerate_indices"`
}

// Build resamples raw and derives its kinematics. On error nothing is
// returned; callers keep whatever track they already hold.
func Build(raw RawTrace, cfg Config) (*Track, error) {
	rs, err := Resample(raw, cfg)
	if err != nil {
		return nil, fmt.Errorf("resample trace: %w", err)
	}
	k := Derive(rs.Points)

	t := &Track{
		Points:             rs.Points,
		CumulativeDistance: k.CumulativeDistance,
		Speed:              k.Speed,
		Acceleration:       k.Acceleration,
		TurnAngle:          k.TurnAngle,
		Breaks:             rs.Breaks,
		DegenerateIndices:  k.DegenerateIndices,
	}
	if len(k.DegenerateIndices) > 0 {
		logger.Printf("recovered %d zero-duration samples (speed/accel set to 0)", len(k.DegenerateIndices))
	}
	logger.Printf("built track: raw=%d kept=%d breaks=%d distance=%.2fkm",
		len(raw), t.Len(), len(t.Breaks), t.TotalDistance()/1000)
	return t, nil
}

// Len returns the number of resampled points.
func (t *Track) Len() int {
	return len(t.Points)
}

// TotalDistance returns the cumulative distance at the last index in meters.
func (t *Track) TotalDistance() float64 {
	if len(t.CumulativeDistance) == 0 {
		return 0
	}
	return t.CumulativeDistance[len(t.CumulativeDistance)-1]
}

// ClampIndex bounds idx to [0, Len()). It reports whether clamping happened.
func (t *Track) ClampIndex(idx int) (int, bool) {
	switch {
	case t.Len() == 0:
		return 0, idx != 0
	case idx < 0:
		return 0, true
	case idx >= t.Len():
		return t.Len() - 1, true
	default:
		return idx, false
	}
}
