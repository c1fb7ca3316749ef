package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/ride-replay/internal/cursor"
	"github.com/banshee-data/ride-replay/internal/speedbin"
	"github.com/banshee-data/ride-replay/internal/track"
)

// DefaultConfigPath is the path to the canonical replay defaults file.
const DefaultConfigPath = "config/replay.defaults.json"

// TuningConfig holds the replay thresholds. Every field is optional; the
// Get* methods fall back to the built-in defaults for unset fields, so the
// same JSON works for startup files and runtime updates.
type TuningConfig struct {
	// Resampling
	SampleInterval     *string  `json:"sample_interval,omitempty"`      // duration string like "5s"
	BreakTimeThreshold *string  `json:"break_time_threshold,omitempty"` // duration string like "180s"
	BreakDistanceM     *float64 `json:"break_distance_m,omitempty"`

	// Playback
	TickInterval    *string  `json:"tick_interval,omitempty"` // duration string like "50ms"
	SpeedMultiplier *float64 `json:"speed_multiplier,omitempty"`
	ActiveChannel   *string  `json:"active_channel,omitempty"`

	// Analysis
	SpeedBins            []speedbin.Bin `json:"speed_bins,omitempty"`
	CornerThresholdDeg   *float64       `json:"corner_threshold_deg,omitempty"`
	AccelSmoothingWindow *int           `json:"accel_smoothing_window,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// built-in default.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		SampleInterval:       ptrString("5s"),
		BreakTimeThreshold:   ptrString("180s"),
		BreakDistanceM:       ptrFloat64(20),
		TickInterval:         ptrString("50ms"),
		SpeedMultiplier:      ptrFloat64(1),
		ActiveChannel:        ptrString(string(cursor.Elevation)),
		SpeedBins:            speedbin.DefaultBins(),
		CornerThresholdDeg:   ptrFloat64(20),
		AccelSmoothingWindow: ptrInt(15),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upward from the
// current directory. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	durations := []struct {
		name string
		val  *string
	}{
		{"sample_interval", c.SampleInterval},
		{"break_time_threshold", c.BreakTimeThreshold},
		{"tick_interval", c.TickInterval},
	}
	for _, d := range durations {
		if d.val == nil || *d.val == "" {
			continue
		}
		v, err := time.ParseDuration(*d.val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.val, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.val)
		}
	}

	if c.BreakDistanceM != nil && *c.BreakDistanceM < 0 {
		return fmt.Errorf("break_distance_m must be non-negative, got %f", *c.BreakDistanceM)
	}

	if c.SpeedMultiplier != nil && *c.SpeedMultiplier <= 0 {
		return fmt.Errorf("speed_multiplier must be positive, got %f", *c.SpeedMultiplier)
	}

	if c.ActiveChannel != nil {
		if _, err := cursor.ParseChannel(*c.ActiveChannel); err != nil {
			return fmt.Errorf("active_channel: %w", err)
		}
	}

	if c.SpeedBins != nil {
		if err := speedbin.Validate(c.SpeedBins); err != nil {
			return fmt.Errorf("speed_bins: %w", err)
		}
	}

	if c.CornerThresholdDeg != nil {
		if *c.CornerThresholdDeg < 0 || *c.CornerThresholdDeg > 180 {
			return fmt.Errorf("corner_threshold_deg must be between 0 and 180, got %f", *c.CornerThresholdDeg)
		}
	}

	if c.AccelSmoothingWindow != nil && *c.AccelSmoothingWindow < 1 {
		return fmt.Errorf("accel_smoothing_window must be at least 1, got %d", *c.AccelSmoothingWindow)
	}

	return nil
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetSampleInterval returns the sample_interval value or the default.
func (c *TuningConfig) GetSampleInterval() time.Duration {
	return parseDurationOr(c.SampleInterval, 5*time.Second)
}

// GetBreakTimeThreshold returns the break_time_threshold value or the default.
func (c *TuningConfig) GetBreakTimeThreshold() time.Duration {
	return parseDurationOr(c.BreakTimeThreshold, 180*time.Second)
}

// GetBreakDistanceM returns the break_distance_m value or the default.
func (c *TuningConfig) GetBreakDistanceM() float64 {
	if c.BreakDistanceM == nil {
		return 20
	}
	return *c.BreakDistanceM
}

// GetTickInterval returns the tick_interval value or the default.
func (c *TuningConfig) GetTickInterval() time.Duration {
	return parseDurationOr(c.TickInterval, 50*time.Millisecond)
}

// GetSpeedMultiplier returns the speed_multiplier value or the default.
func (c *TuningConfig) GetSpeedMultiplier() float64 {
	if c.SpeedMultiplier == nil || *c.SpeedMultiplier <= 0 {
		return 1
	}
	return *c.SpeedMultiplier
}

// GetActiveChannel returns the active_channel value or the default.
func (c *TuningConfig) GetActiveChannel() cursor.Channel {
	if c.ActiveChannel == nil {
		return cursor.Elevation
	}
	ch, err := cursor.ParseChannel(*c.ActiveChannel)
	if err != nil {
		return cursor.Elevation
	}
	return ch
}

// GetSpeedBins returns the speed_bins ladder or the default six-bin ladder.
func (c *TuningConfig) GetSpeedBins() []speedbin.Bin {
	if len(c.SpeedBins) == 0 {
		return speedbin.DefaultBins()
	}
	out := make([]speedbin.Bin, len(c.SpeedBins))
	copy(out, c.SpeedBins)
	return out
}

// GetCornerThresholdDeg returns the corner_threshold_deg value or the default.
func (c *TuningConfig) GetCornerThresholdDeg() float64 {
	if c.CornerThresholdDeg == nil {
		return 20
	}
	return *c.CornerThresholdDeg
}

// GetAccelSmoothingWindow returns the accel_smoothing_window value or the default.
func (c *TuningConfig) GetAccelSmoothingWindow() int {
	if c.AccelSmoothingWindow == nil {
		return 15
	}
	return *c.AccelSmoothingWindow
}

// TrackConfig returns the resampling thresholds.
func (c *TuningConfig) TrackConfig() track.Config {
	return track.Config{
		SampleInterval:      c.GetSampleInterval(),
		BreakTimeThreshold:  c.GetBreakTimeThreshold(),
		BreakDistanceMeters: c.GetBreakDistanceM(),
	}
}
