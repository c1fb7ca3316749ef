// Package track turns a recorded position trace into the resampled,
// kinematically annotated Track that the replay engine plays back.
package track

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/ride-replay/internal/geo"
)

// Point is one timestamped position and elevation sample.
type Point struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Elevation float64   `json:"ele"`
	Time      time.Time `json:"time"`
}

// LatLng returns the horizontal position of p.
func (p Point) LatLng() geo.LatLng {
	return geo.LatLng{Lat: p.Lat, Lng: p.Lng}
}

// Valid reports whether p survives basic ingestion checks: finite, non-zero
// coordinates and a timestamp.
func (p Point) Valid() bool {
	if p.Lat == 0 || p.Lng == 0 {
		return false
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return false
	}
	return !p.Time.IsZero()
}

// RawTrace is an ordered sequence of points as parsed from a source file.
type RawTrace []Point

// Valid returns the points that pass Point.Valid, preserving order.
func (r RawTrace) Valid() []Point {
	out := make([]Point, 0, len(r))
	for _, p := range r {
		if p.Valid() {
			if math.IsNaN(p.Elevation) || math.IsInf(p.Elevation, 0) {
				p.Elevation = 0
			}
			out = append(out, p)
		}
	}
	return out
}

// ErrEmptyTrace is matched by every *EmptyTraceError via errors.Is.
var ErrEmptyTrace = errors.New("trace has no usable points")

// EmptyTraceError reports a trace with no usable points after filtering.
type EmptyTraceError struct {
	Received int // points before filtering
}

func (e *EmptyTraceError) Error() string {
	return fmt.Sprintf("%v: %d received, 0 valid", ErrEmptyTrace, e.Received)
}

// Is lets errors.Is(err, ErrEmptyTrace) match.
func (e *EmptyTraceError) Is(target error) bool {
	return target == ErrEmptyTrace
}
