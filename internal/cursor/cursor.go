// Package cursor computes the per-index payload shared by every synchronized
// view and fans it out to registered sinks.
package cursor

import (
	"fmt"

	"github.com/banshee-data/ride-replay/internal/track"
)

// Channel selects which series the chart cursor follows.
type Channel string

const (
	Elevation Channel = "elevation"
	Speed     Channel = "speed"
)

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case Elevation, Speed:
		return c, nil
	default:
		return "", fmt.Errorf("unknown channel %q (want %q or %q)", s, Elevation, Speed)
	}
}

// Payload is the single cursor contract delivered to every sink.
type Payload struct {
	Index           int         `json:"index"`
	Point           track.Point `json:"point"`
	DistanceKm      float64     `json:"distance_km"`
	Elevation       float64     `json:"elevation_m"`
	SpeedKmh        float64     `json:"speed_kmh"`
	AccelerationMs2 float64     `json:"acceleration_ms2"`
	Channel         Channel     `json:"channel"`
	ChannelValue    float64     `json:"channel_value"`
}

// Compute builds the payload for idx on t. idx must already be in range.
func Compute(t *track.Track, idx int, ch Channel) Payload {
	p := Payload{
		Index:           idx,
		Point:           t.Points[idx],
		DistanceKm:      t.CumulativeDistance[idx] / 1000,
		Elevation:       t.Points[idx].Elevation,
		SpeedKmh:        t.Speed[idx],
		AccelerationMs2: t.Acceleration[idx],
		Channel:         ch,
	}
	if ch == Speed {
		p.ChannelValue = p.SpeedKmh
	} else {
		p.Channel = Elevation
		p.ChannelValue = p.Elevation
	}
	return p
}
