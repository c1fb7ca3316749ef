package track

import (
	"math"

	"github.com/banshee-data/ride-replay/internal/geo"
	"github.com/banshee-data/ride-replay/internal/units"
)

// Kinematics holds the per-index series derived from a resampled trajectory.
// All slices share the length of the input.
type Kinematics struct {
	CumulativeDistance []float64 // meters
	Speed              []float64 // km/h
	Acceleration       []float64 // m/s²
	TurnAngle          []float64 // degrees, 0..180

	// DegenerateIndices lists indices whose delta from the previous point
	// spans no time. Their speed and acceleration are 0.
	DegenerateIndices []int
}

// Derive computes distance, speed, acceleration and turn angle for pts.
func Derive(pts []Point) Kinematics {
	n := len(pts)
	k := Kinematics{
		CumulativeDistance: make([]float64, n),
		Speed:              make([]float64, n),
		Acceleration:       make([]float64, n),
		TurnAngle:          make([]float64, n),
		DegenerateIndices:  []int{},
	}

	for i := 1; i < n; i++ {
		d := geo.Distance(pts[i-1].LatLng(), pts[i].LatLng())
		k.CumulativeDistance[i] = k.CumulativeDistance[i-1] + d

		dt := pts[i].Time.Sub(pts[i-1].Time).Seconds()
		if dt <= 0 {
			k.DegenerateIndices = append(k.DegenerateIndices, i)
			continue
		}
		k.Speed[i] = units.MPSToKMPH(d / dt)
		k.Acceleration[i] = units.KMPHToMPS(k.Speed[i]-k.Speed[i-1]) / dt
	}

	for i := 1; i < n-1; i++ {
		k.TurnAngle[i] = turnAngle(pts[i-1], pts[i], pts[i+1])
	}

	return k
}

// turnAngle is the heading change at b, measured between the displacement
// vectors a→b and b→c in (lng, lat) space.
func turnAngle(a, b, c Point) float64 {
	x1, y1 := b.Lng-a.Lng, b.Lat-a.Lat
	x2, y2 := c.Lng-b.Lng, c.Lat-b.Lat
	m1 := math.Hypot(x1, y1)
	m2 := math.Hypot(x2, y2)
	if m1 == 0 || m2 == 0 {
		return 0
	}
	cos := (x1*x2 + y1*y2) / (m1 * m2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
