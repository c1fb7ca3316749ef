// Package playback implements the replay clock: a state machine that walks a
// cursor across a track at a configurable tick rate and speed multiplier.
package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/ride-replay/internal/monitoring"
	"github.com/banshee-data/ride-replay/internal/timeutil"
)

var logger = monitoring.Component("Playback")

// DefaultTickInterval is the frame delay of the replay clock (20 Hz).
const DefaultTickInterval = 50 * time.Millisecond

var (
	// ErrInvalidSpeedMultiplier is returned for non-positive or non-finite multipliers.
	ErrInvalidSpeedMultiplier = errors.New("speed multiplier must be a positive finite number")

	// ErrNotLoaded is returned by operations that need a loaded track.
	ErrNotLoaded = errors.New("no track loaded")

	// ErrClosed is returned when playing a player that has been closed.
	ErrClosed = errors.New("player closed")
)

// State is the playback machine state.
type State int

const (
	Idle State = iota
	Ready
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the player.
type Status struct {
	State           State   `json:"state"`
	CurrentIndex    int     `json:"current_index"`
	FractionalIndex float64 `json:"fractional_index"`
	Running         bool    `json:"running"`
	SpeedMultiplier float64 `json:"speed_multiplier"`
	Length          int     `json:"length"`
}

// Emitter receives the player's output. Calls are made with the player's
// lock held, in order; implementations must not call back into the Player.
type Emitter interface {
	EmitCursor(index int)
	EmitState(Status)
}

// Player is the playback state machine. All methods are safe for concurrent use.
type Player struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	interval time.Duration
	emitter  Emitter

	n       int
	state   State
	current int
	frac    float64
	mult    float64

	// gen increments whenever the clock is stopped so that a tick from a
	// cancelled run is discarded.
	gen    uint64
	done   chan struct{}
	closed bool
}

// New returns an Idle player. A nil clock uses the real clock and a
// non-positive interval uses DefaultTickInterval.
func New(clock timeutil.Clock, interval time.Duration, emitter Emitter) *Player {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Player{
		clock:    clock,
		interval: interval,
		emitter:  emitter,
		mult:     1,
	}
}

// Load resets the player for a track of n points: Ready at index 0.
func (p *Player) Load(n int) error {
	if n < 1 {
		return fmt.Errorf("load %d points: %w", n, ErrNotLoaded)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.n = n
	p.current = 0
	p.frac = 0
	p.state = Ready
	p.emitStateLocked()
	p.emitCursorLocked()
	return nil
}

// Play starts or resumes the clock. Playing from Ended restarts at index 0.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	switch p.state {
	case Idle:
		return ErrNotLoaded
	case Playing:
		return nil
	case Ended:
		p.current = 0
		p.emitCursorLocked()
	}
	p.frac = float64(p.current)
	p.state = Playing
	p.startLocked()
	logger.Printf("playing from %d at x%g", p.current, p.mult)
	p.emitStateLocked()
	return nil
}

// Pause stops the clock. It is a no-op unless the player is Playing.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Idle:
		return ErrNotLoaded
	case Playing:
		p.stopLocked()
		p.state = Paused
		logger.Printf("paused at %d", p.current)
		p.emitStateLocked()
	}
	return nil
}

// Seek stops the clock, moves the cursor to idx clamped to [0, n) and
// leaves the player Paused. It returns the index applied and whether idx
// had to be clamped.
func (p *Player) Seek(idx int) (int, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle {
		return 0, false, ErrNotLoaded
	}
	p.stopLocked()

	clamped := false
	switch {
	case idx < 0:
		idx, clamped = 0, true
	case idx >= p.n:
		idx, clamped = p.n-1, true
	}
	if clamped {
		logger.Printf("seek target out of range, clamped to %d (n=%d)", idx, p.n)
	}

	p.current = idx
	p.frac = float64(idx)
	p.state = Paused
	p.emitCursorLocked()
	p.emitStateLocked()
	return idx, clamped, nil
}

// SetSpeedMultiplier changes the cursor advance per tick. It takes effect
// from the next tick.
func (p *Player) SetSpeedMultiplier(m float64) error {
	if err := ValidateSpeedMultiplier(m); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mult = m
	if p.state != Idle {
		p.emitStateLocked()
	}
	return nil
}

// ValidateSpeedMultiplier reports whether m is usable as a multiplier.
func ValidateSpeedMultiplier(m float64) error {
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeedMultiplier, m)
	}
	return nil
}

// Step applies one tick synchronously. It reports whether the player was
// Playing when called.
func (p *Player) Step() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advanceLocked()
}

// Reemit sends the cursor at the current index again, ordered with the
// clock's own emissions. A closed player emits nothing.
func (p *Player) Reemit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Idle {
		return ErrNotLoaded
	}
	if !p.closed {
		p.emitCursorLocked()
	}
	return nil
}

// Status returns a snapshot of the player.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

// Close stops the clock for good. A closed player keeps reporting its last
// status but never advances or emits again.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
}

func (p *Player) advanceLocked() bool {
	if p.closed || p.state != Playing {
		return false
	}
	p.frac += p.mult
	idx := int(math.Floor(p.frac))
	if idx >= p.n {
		p.stopLocked()
		p.current = p.n - 1
		p.frac = float64(p.current)
		p.state = Ended
		logger.Printf("reached end of track (%d points)", p.n)
		p.emitStateLocked()
		return true
	}
	p.current = idx
	p.emitCursorLocked()
	return true
}

// tick is the clock goroutine's entry. It reports whether the run should
// continue.
func (p *Player) tick(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return false
	}
	p.advanceLocked()
	return p.state == Playing
}

func (p *Player) startLocked() {
	p.stopLocked()
	done := make(chan struct{})
	p.done = done
	gen := p.gen
	t := p.clock.NewTicker(p.interval)
	go p.run(gen, t, done)
}

func (p *Player) run(gen uint64, t timeutil.Ticker, done <-chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C():
			if !p.tick(gen) {
				return
			}
		}
	}
}

func (p *Player) stopLocked() {
	p.gen++
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
}

func (p *Player) statusLocked() Status {
	return Status{
		State:           p.state,
		CurrentIndex:    p.current,
		FractionalIndex: p.frac,
		Running:         p.state == Playing,
		SpeedMultiplier: p.mult,
		Length:          p.n,
	}
}

func (p *Player) emitCursorLocked() {
	if p.emitter != nil {
		p.emitter.EmitCursor(p.current)
	}
}

func (p *Player) emitStateLocked() {
	if p.emitter != nil {
		p.emitter.EmitState(p.statusLocked())
	}
}
