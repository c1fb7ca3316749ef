package track

import (
	"time"

	"github.com/banshee-data/ride-replay/internal/geo"
)

// Config holds the resampling thresholds.
type Config struct {
	// SampleInterval is the minimum gap between kept points.
	SampleInterval time.Duration

	// BreakTimeThreshold and BreakDistanceMeters together define a
	// stationary pause: a gap longer than the time threshold covering less
	// than the distance threshold is collapsed into a break marker.
	BreakTimeThreshold  time.Duration
	BreakDistanceMeters float64
}

// DefaultConfig returns the product defaults: 5s cadence, 180s / 20m breaks.
func DefaultConfig() Config {
	return Config{
		SampleInterval:      5 * time.Second,
		BreakTimeThreshold:  180 * time.Second,
		BreakDistanceMeters: 20,
	}
}

// Resampled is the output of Resample.
type Resampled struct {
	Points []Point
	// Breaks holds kept-sequence lengths at which a stationary pause was
	// collapsed, ascending and without duplicates.
	Breaks []int
}

// Resample reduces raw to the configured cadence and collapses stationary
// pauses. The raw trace's last point is always the last kept point.
func Resample(raw RawTrace, cfg Config) (Resampled, error) {
	pts := raw.Valid()
	if len(pts) == 0 {
		return Resampled{}, &EmptyTraceError{Received: len(raw)}
	}

	kept := make([]Point, 0, len(pts))
	breaks := []int{}
	kept = append(kept, pts[0])
	anchor := pts[0]

	for _, p := range pts[1:] {
		dt := p.Time.Sub(anchor.Time)
		if dt < cfg.SampleInterval {
			continue
		}
		moved := geo.Distance(anchor.LatLng(), p.LatLng())
		if dt > cfg.BreakTimeThreshold && moved < cfg.BreakDistanceMeters {
			at := len(kept)
			if n := len(breaks); n == 0 || breaks[n-1] != at {
				breaks = append(breaks, at)
			}
			continue
		}
		kept = append(kept, p)
		anchor = p
	}

	last := pts[len(pts)-1]
	if !kept[len(kept)-1].Time.Equal(last.Time) {
		kept = append(kept, last)
	}

	return Resampled{Points: kept, Breaks: breaks}, nil
}
