// Package replay owns the active ride: it builds tracks, swaps the track and
// its player together on load, and routes cursor, state and highlight events
// to the broadcaster.
package replay

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/ride-replay/internal/config"
	"github.com/banshee-data/ride-replay/internal/cursor"
	"github.com/banshee-data/ride-replay/internal/monitoring"
	"github.com/banshee-data/ride-replay/internal/playback"
	"github.com/banshee-data/ride-replay/internal/speedbin"
	"github.com/banshee-data/ride-replay/internal/timeutil"
	"github.com/banshee-data/ride-replay/internal/track"
)

var logger = monitoring.Component("Replay")

// ErrNoTrack is returned by operations that need a loaded track.
var ErrNoTrack = errors.New("no track loaded")

// ErrUnknownBin is returned when toggling a bin index outside the ladder.
var ErrUnknownBin = errors.New("unknown speed bin")

// Options configures a Session.
type Options struct {
	Clock              timeutil.Clock
	TickInterval       time.Duration
	Track              track.Config
	Bins               []speedbin.Bin
	Channel            cursor.Channel
	SpeedMultiplier    float64
	CornerThresholdDeg float64
	SmoothingWindow    int
}

// OptionsFromConfig maps the tuning file onto session options.
func OptionsFromConfig(cfg *config.TuningConfig) Options {
	return Options{
		TickInterval:       cfg.GetTickInterval(),
		Track:              cfg.TrackConfig(),
		Bins:               cfg.GetSpeedBins(),
		Channel:            cfg.GetActiveChannel(),
		SpeedMultiplier:    cfg.GetSpeedMultiplier(),
		CornerThresholdDeg: cfg.GetCornerThresholdDeg(),
		SmoothingWindow:    cfg.GetAccelSmoothingWindow(),
	}
}

// Session is the single active replay. Methods are safe for concurrent use.
// Sinks registered on the broadcaster must not call back into the Session.
type Session struct {
	opts       Options
	bc         *cursor.Broadcaster
	classifier *speedbin.Classifier
	channel    atomic.Value // cursor.Channel

	mu          sync.Mutex
	name        string
	track       *track.Track
	player      *playback.Player
	mult        float64
	selection   *speedbin.Selection
	highlighted []int
}

// New returns a Session with no track loaded.
func New(opts Options, bc *cursor.Broadcaster) (*Session, error) {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Track == (track.Config{}) {
		opts.Track = track.DefaultConfig()
	}
	if opts.Bins == nil {
		opts.Bins = speedbin.DefaultBins()
	}
	if opts.SpeedMultiplier <= 0 {
		opts.SpeedMultiplier = 1
	}
	if opts.Channel == "" {
		opts.Channel = cursor.Elevation
	}
	if _, err := cursor.ParseChannel(string(opts.Channel)); err != nil {
		return nil, err
	}
	if bc == nil {
		bc = cursor.NewBroadcaster()
	}
	classifier, err := speedbin.NewClassifier(opts.Bins)
	if err != nil {
		return nil, fmt.Errorf("speed bins: %w", err)
	}

	s := &Session{
		opts:        opts,
		bc:          bc,
		classifier:  classifier,
		mult:        opts.SpeedMultiplier,
		selection:   speedbin.NewSelection(),
		highlighted: []int{},
	}
	s.channel.Store(opts.Channel)
	return s, nil
}

// Broadcaster returns the event fan-out used by the session.
func (s *Session) Broadcaster() *cursor.Broadcaster { return s.bc }

// Classifier returns the speed-bin classifier.
func (s *Session) Classifier() *speedbin.Classifier { return s.classifier }

// Load builds a track from raw and makes it active. On error the current
// track and playback state are left untouched.
func (s *Session) Load(name string, raw track.RawTrace) (*track.Track, error) {
	t, err := track.Build(raw, s.opts.Track)
	if err != nil {
		logger.Printf("load %q failed: %v", name, err)
		return nil, fmt.Errorf("load %q: %w", name, err)
	}

	p := playback.New(s.opts.Clock, s.opts.TickInterval, &emitter{t: t, bc: s.bc, channel: s.Channel})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := p.SetSpeedMultiplier(s.mult); err != nil {
		return nil, err
	}
	if s.player != nil {
		s.player.Close()
	}
	s.name = name
	s.track = t
	s.player = p
	s.highlighted = s.classifier.Highlight(t.Speed, s.selection)

	s.bc.TrackReady(t)
	if err := p.Load(t.Len()); err != nil {
		return nil, err
	}
	s.bc.HighlightChanged(s.highlighted)
	logger.Printf("loaded %q: %d points, %.2f km", name, t.Len(), t.TotalDistance()/1000)
	return t, nil
}

// Track returns the active track and its name.
func (s *Session) Track() (*track.Track, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track == nil {
		return nil, "", ErrNoTrack
	}
	return s.track, s.name, nil
}

// Play starts or resumes playback.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return ErrNoTrack
	}
	return s.player.Play()
}

// Pause stops playback at the current index.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return ErrNoTrack
	}
	return s.player.Pause()
}

// Seek moves the cursor to idx, clamped to the track. It returns the index
// applied and whether clamping happened.
func (s *Session) Seek(idx int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return 0, false, ErrNoTrack
	}
	return s.player.Seek(idx)
}

// SeekDistance moves the cursor to the first index whose cumulative distance
// reaches km, as when a chart point is clicked.
func (s *Session) SeekDistance(km float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return 0, ErrNoTrack
	}
	idx := sort.SearchFloat64s(s.track.CumulativeDistance, km*1000)
	idx, _, err := s.player.Seek(idx)
	return idx, err
}

// SetSpeedMultiplier changes the playback speed. The value is kept for
// tracks loaded later.
func (s *Session) SetSpeedMultiplier(m float64) error {
	if err := playback.ValidateSpeedMultiplier(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mult = m
	if s.player != nil {
		return s.player.SetSpeedMultiplier(m)
	}
	return nil
}

// Channel returns the series the chart cursor follows.
func (s *Session) Channel() cursor.Channel {
	return s.channel.Load().(cursor.Channel)
}

// SetChannel switches the chart cursor series and re-sends the current
// cursor so every view picks up the change.
func (s *Session) SetChannel(ch cursor.Channel) error {
	if _, err := cursor.ParseChannel(string(ch)); err != nil {
		return err
	}
	s.channel.Store(ch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		return s.player.Reemit()
	}
	return nil
}

// Status returns the playback status; Idle when no track is loaded.
func (s *Session) Status() playback.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return playback.Status{State: playback.Idle, SpeedMultiplier: s.mult}
	}
	return s.player.Status()
}

// Cursor returns the payload at the current index.
func (s *Session) Cursor() (cursor.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return cursor.Payload{}, ErrNoTrack
	}
	return cursor.Compute(s.track, s.player.Status().CurrentIndex, s.Channel()), nil
}

// ToggleHighlight flips bin in the selection and returns the new membership
// with the highlighted indices.
func (s *Session) ToggleHighlight(bin int) (bool, []int, error) {
	if bin < 0 || bin >= s.classifier.Len() {
		return false, nil, fmt.Errorf("%w: %d (have %d)", ErrUnknownBin, bin, s.classifier.Len())
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	on := s.selection.Toggle(bin)
	if s.track != nil {
		s.highlighted = s.classifier.Highlight(s.track.Speed, s.selection)
	}
	s.bc.HighlightChanged(s.highlighted)
	return on, s.highlighted, nil
}

// Highlight returns the selected bins and highlighted indices.
func (s *Session) Highlight() (bins []int, indices []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Indices(), s.highlighted
}

// Summary returns the ride totals of the active track.
func (s *Session) Summary() (track.Summary, error) {
	t, _, err := s.Track()
	if err != nil {
		return track.Summary{}, err
	}
	return track.Summarize(t), nil
}

// Corners splits the active track into corner and straight samples.
func (s *Session) Corners() (corners, straights []track.CornerPoint, err error) {
	t, _, err := s.Track()
	if err != nil {
		return nil, nil, err
	}
	corners, straights = track.Corners(t, s.opts.CornerThresholdDeg)
	return corners, straights, nil
}

// SmoothedAcceleration returns the acceleration series after the configured
// moving average.
func (s *Session) SmoothedAcceleration() ([]float64, error) {
	t, _, err := s.Track()
	if err != nil {
		return nil, err
	}
	return track.Smooth(t.Acceleration, s.opts.SmoothingWindow), nil
}

// Close stops the playback clock.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Close()
	}
}

// emitter turns player indices into payloads for one track.
type emitter struct {
	t       *track.Track
	bc      *cursor.Broadcaster
	channel func() cursor.Channel
}

func (e *emitter) EmitCursor(idx int) {
	e.bc.Cursor(cursor.Compute(e.t, idx, e.channel()))
}

func (e *emitter) EmitState(st playback.Status) {
	e.bc.StateChanged(st)
}
