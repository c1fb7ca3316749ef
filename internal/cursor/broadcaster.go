package cursor

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/banshee-data/ride-replay/internal/monitoring"
	"github.com/banshee-data/ride-replay/internal/playback"
	"github.com/banshee-data/ride-replay/internal/track"
)

var logger = monitoring.Component("Cursor")

// Sink receives cursor payloads.
type Sink interface {
	OnCursor(Payload)
}

// TrackSink is implemented by sinks that redraw when a new track is loaded.
type TrackSink interface {
	OnTrackReady(*track.Track)
}

// StateSink is implemented by sinks that follow playback state.
type StateSink interface {
	OnPlaybackStateChanged(playback.Status)
}

// HighlightSink is implemented by sinks that draw the highlighted indices.
type HighlightSink interface {
	OnHighlightChanged([]int)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Payload)

func (f SinkFunc) OnCursor(p Payload) { f(p) }

type entry struct {
	id   string
	sink Sink
}

// Broadcaster fans events out to subscribed sinks. Delivery is synchronous
// and follows subscription order; one event reaches every sink before the
// next event is delivered.
type Broadcaster struct {
	mu    sync.RWMutex
	sinks []entry

	emitMu    sync.Mutex
	last      atomic.Pointer[Payload]
	lastState atomic.Pointer[playback.Status]
}

// Snapshot is the latest cursor and playback state seen by a broadcaster.
type Snapshot struct {
	Cursor *Payload
	State  *playback.Status
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers s and returns its id.
func (b *Broadcaster) Subscribe(s Sink) string {
	id := uuid.NewString()
	b.mu.Lock()
	b.sinks = append(b.sinks, entry{id: id, sink: s})
	n := len(b.sinks)
	b.mu.Unlock()
	logger.Printf("sink subscribed: %s (total: %d)", id, n)
	return id
}

// SubscribeSnapshot registers s and returns the latest cursor and state as
// of the moment s joined. Every event s receives is newer than the snapshot.
func (b *Broadcaster) SubscribeSnapshot(s Sink) (string, Snapshot) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	return b.Subscribe(s), Snapshot{Cursor: b.last.Load(), State: b.lastState.Load()}
}

// Unsubscribe removes the sink registered under id. It reports whether the
// id was known.
func (b *Broadcaster) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.sinks {
		if e.id == id {
			b.sinks = append(b.sinks[:i:i], b.sinks[i+1:]...)
			logger.Printf("sink unsubscribed: %s (remaining: %d)", id, len(b.sinks))
			return true
		}
	}
	return false
}

// Len returns the number of subscribed sinks.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sinks)
}

// Last returns the most recently broadcast payload.
func (b *Broadcaster) Last() (Payload, bool) {
	p := b.last.Load()
	if p == nil {
		return Payload{}, false
	}
	return *p, true
}

// Cursor delivers p to every sink.
func (b *Broadcaster) Cursor(p Payload) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	b.last.Store(&p)
	for _, e := range b.snapshot() {
		e.sink.OnCursor(p)
	}
}

// TrackReady notifies TrackSinks of a newly loaded track and forgets the
// previous cursor.
func (b *Broadcaster) TrackReady(t *track.Track) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	b.last.Store(nil)
	for _, e := range b.snapshot() {
		if s, ok := e.sink.(TrackSink); ok {
			s.OnTrackReady(t)
		}
	}
}

// StateChanged notifies StateSinks.
func (b *Broadcaster) StateChanged(st playback.Status) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	b.lastState.Store(&st)
	for _, e := range b.snapshot() {
		if s, ok := e.sink.(StateSink); ok {
			s.OnPlaybackStateChanged(st)
		}
	}
}

// HighlightChanged notifies HighlightSinks with the highlighted indices.
func (b *Broadcaster) HighlightChanged(indices []int) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	for _, e := range b.snapshot() {
		if s, ok := e.sink.(HighlightSink); ok {
			s.OnHighlightChanged(indices)
		}
	}
}

func (b *Broadcaster) snapshot() []entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]entry, len(b.sinks))
	copy(out, b.sinks)
	return out
}
