package cursor

import (
	"sync/atomic"

	"github.com/banshee-data/ride-replay/internal/playback"
	"github.com/banshee-data/ride-replay/internal/track"
)

// Event types carried by a Stream.
const (
	EventCursor    = "cursor"
	EventState     = "state"
	EventHighlight = "highlight"
	EventTrack     = "track"
)

// Event is one message queued for a remote client.
type Event struct {
	Type string
	Data interface{}
}

// TrackInfo is the lightweight notice sent to streams when a track loads.
type TrackInfo struct {
	Points     int     `json:"points"`
	DistanceKm float64 `json:"distance_km"`
	Breaks     int     `json:"breaks"`
}

// Stream is a buffered sink for a remote client. When the client falls
// behind, events are dropped rather than blocking the broadcaster.
type Stream struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewStream returns a stream buffering up to size events.
func NewStream(size int) *Stream {
	if size < 1 {
		size = 1
	}
	return &Stream{ch: make(chan Event, size)}
}

// C returns the event channel.
func (s *Stream) C() <-chan Event { return s.ch }

// Dropped returns the number of events discarded because the buffer was full.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

func (s *Stream) OnCursor(p Payload) { s.push(Event{Type: EventCursor, Data: p}) }

func (s *Stream) OnPlaybackStateChanged(st playback.Status) {
	s.push(Event{Type: EventState, Data: st})
}

func (s *Stream) OnHighlightChanged(indices []int) {
	s.push(Event{Type: EventHighlight, Data: indices})
}

func (s *Stream) OnTrackReady(t *track.Track) {
	s.push(Event{Type: EventTrack, Data: TrackInfo{
		Points:     t.Len(),
		DistanceKm: t.TotalDistance() / 1000,
		Breaks:     len(t.Breaks),
	}})
}

func (s *Stream) push(e Event) {
	select {
	case s.ch <- e:
	default:
		if n := s.dropped.Add(1); n%100 == 1 {
			logger.Printf("stream slow, dropped %s event (total dropped: %d)", e.Type, n)
		}
	}
}
