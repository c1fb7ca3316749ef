package track

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/banshee-data/ride-replay/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// straightLine returns n points spaced step meters apart along bearing,
// one every interval.
func straightLine(start geo.LatLng, n int, bearing, step float64, interval time.Duration) RawTrace {
	out := make(RawTrace, 0, n)
	pos := start
	for i := 0; i < n; i++ {
		out = append(out, Point{Lat: pos.Lat, Lng: pos.Lng, Elevation: 100, Time: t0.Add(time.Duration(i) * interval)})
		pos = geo.Destination(pos, bearing, step)
	}
	return out
}

func TestEndToEndConstantSpeed(t *testing.T) {
	raw := straightLine(geo.LatLng{Lat: 45.0, Lng: 7.0}, 6, 90, 25, 5*time.Second)

	tr, err := Build(raw, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 6, tr.Len())

	assert.Equal(t, 0.0, tr.Speed[0])
	assert.Equal(t, 0.0, tr.Acceleration[0])
	assert.Equal(t, 0.0, tr.TurnAngle[0])
	assert.Equal(t, 0.0, tr.TurnAngle[5])

	for i := 1; i <= 5; i++ {
		assert.InDelta(t, 18.0, tr.Speed[i], 0.01, "speed[%d]", i)
	}
	// The first moving sample accelerates from rest; after that speed is constant.
	for i := 2; i <= 5; i++ {
		assert.InDelta(t, 0.0, tr.Acceleration[i], 0.01, "acceleration[%d]", i)
	}
	for i := 1; i <= 4; i++ {
		assert.InDelta(t, 0.0, tr.TurnAngle[i], 0.5, "turnAngle[%d]", i)
	}
	assert.InDelta(t, 125.0, tr.CumulativeDistance[5], 0.01)
	assert.Empty(t, tr.Breaks)
}

func TestSeriesShareLength(t *testing.T) {
	raw := straightLine(geo.LatLng{Lat: -33.9, Lng: 18.4}, 40, 10, 12, time.Second)
	tr, err := Build(raw, DefaultConfig())
	require.NoError(t, err)

	n := tr.Len()
	assert.Len(t, tr.CumulativeDistance, n)
	assert.Len(t, tr.Speed, n)
	assert.Len(t, tr.Acceleration, n)
	assert.Len(t, tr.TurnAngle, n)
}

func TestMonotonicDistance(t *testing.T) {
	raw := RawTrace{}
	pos := geo.LatLng{Lat: 52.5, Lng: 13.4}
	for i := 0; i < 200; i++ {
		bearing := float64((i * 37) % 360)
		raw = append(raw, Point{Lat: pos.Lat, Lng: pos.Lng, Elevation: float64(i % 7), Time: t0.Add(time.Duration(i*3) * time.Second)})
		pos = geo.Destination(pos, bearing, float64(i%11))
	}

	tr, err := Build(raw, DefaultConfig())
	require.NoError(t, err)
	for i := 1; i < tr.Len(); i++ {
		assert.GreaterOrEqual(t, tr.CumulativeDistance[i], tr.CumulativeDistance[i-1])
	}
}

func TestResampleCadence(t *testing.T) {
	cfg := DefaultConfig()
	raw := straightLine(geo.LatLng{Lat: 40, Lng: -3.7}, 103, 45, 8, time.Second)

	rs, err := Resample(raw, cfg)
	require.NoError(t, err)
	require.Greater(t, len(rs.Points), 2)

	// Every gap except the one closing on the forced final point respects the cadence.
	for i := 1; i < len(rs.Points)-1; i++ {
		dt := rs.Points[i].Time.Sub(rs.Points[i-1].Time)
		assert.GreaterOrEqual(t, dt, cfg.SampleInterval, "gap before %d", i)
	}
	assert.True(t, rs.Points[len(rs.Points)-1].Time.Equal(raw[len(raw)-1].Time), "last point must be the raw end")
}

func TestResampleKeepsLastPointOnce(t *testing.T) {
	raw := straightLine(geo.LatLng{Lat: 40, Lng: -3.7}, 11, 0, 20, 5*time.Second)
	rs, err := Resample(raw, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, rs.Points, 11)
}

func TestBreakNonInflation(t *testing.T) {
	start := geo.LatLng{Lat: 48.85, Lng: 2.35}
	raw := straightLine(start, 3, 90, 25, 5*time.Second)
	anchor := raw[2]

	// A 200s stationary gap with 5m of drift, then riding resumes east of the anchor.
	drift := geo.Destination(anchor.LatLng(), 0, 5)
	raw = append(raw, Point{Lat: drift.Lat, Lng: drift.Lng, Elevation: 100, Time: anchor.Time.Add(200 * time.Second)})
	pos := anchor.LatLng()
	for i := 1; i <= 3; i++ {
		pos = geo.Destination(pos, 90, 25)
		raw = append(raw, Point{Lat: pos.Lat, Lng: pos.Lng, Elevation: 100, Time: anchor.Time.Add(time.Duration(200+5*i) * time.Second)})
	}

	tr, err := Build(raw, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, []int{3}, tr.Breaks)
	assert.Equal(t, 6, tr.Len(), "the stationary sample must not be kept")
	assert.InDelta(t, 125.0, tr.TotalDistance(), 0.05, "drift distance must not be counted")

	s := Summarize(tr)
	assert.Equal(t, 1, s.Breaks)
	assert.Equal(t, 225*time.Second, s.Elapsed)
	assert.Equal(t, 20*time.Second, s.Moving)
}

func TestBreakMarkersDeduplicated(t *testing.T) {
	start := geo.LatLng{Lat: 48.85, Lng: 2.35}
	raw := straightLine(start, 2, 90, 25, 5*time.Second)
	anchor := raw[1]
	for _, gap := range []int{200, 400} {
		raw = append(raw, Point{Lat: anchor.Lat, Lng: anchor.Lng, Time: anchor.Time.Add(time.Duration(gap) * time.Second)})
	}
	next := geo.Destination(anchor.LatLng(), 90, 50)
	raw = append(raw, Point{Lat: next.Lat, Lng: next.Lng, Time: anchor.Time.Add(405 * time.Second)})

	rs, err := Resample(raw, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, rs.Breaks)
	assert.Len(t, rs.Points, 3)
}

func TestRightAngleTurn(t *testing.T) {
	raw := RawTrace{
		{Lat: 10.000, Lng: 20.000, Time: t0},
		{Lat: 10.000, Lng: 20.001, Time: t0.Add(5 * time.Second)},
		{Lat: 10.001, Lng: 20.001, Time: t0.Add(10 * time.Second)},
	}
	k := Derive(raw)
	assert.InDelta(t, 90.0, k.TurnAngle[1], 1.0)
	assert.Equal(t, 0.0, k.TurnAngle[0])
	assert.Equal(t, 0.0, k.TurnAngle[2])
}

func TestStraightLineTurnAngle(t *testing.T) {
	raw := RawTrace{
		{Lat: 10.000, Lng: 20.000, Time: t0},
		{Lat: 10.001, Lng: 20.001, Time: t0.Add(5 * time.Second)},
		{Lat: 10.002, Lng: 20.002, Time: t0.Add(10 * time.Second)},
	}
	k := Derive(raw)
	assert.InDelta(t, 0.0, k.TurnAngle[1], 1e-6)
}

func TestTurnAngleZeroLengthVector(t *testing.T) {
	raw := RawTrace{
		{Lat: 10.000, Lng: 20.000, Time: t0},
		{Lat: 10.000, Lng: 20.000, Time: t0.Add(5 * time.Second)},
		{Lat: 10.001, Lng: 20.000, Time: t0.Add(10 * time.Second)},
	}
	k := Derive(raw)
	assert.Equal(t, 0.0, k.TurnAngle[1])
}

func TestDivideByZeroSafety(t *testing.T) {
	raw := RawTrace{
		{Lat: 10.000, Lng: 20.000, Time: t0},
		{Lat: 10.001, Lng: 20.000, Time: t0.Add(5 * time.Second)},
		{Lat: 10.002, Lng: 20.000, Time: t0.Add(5 * time.Second)},
	}
	k := Derive(raw)
	assert.Equal(t, []int{2}, k.DegenerateIndices)
	assert.Equal(t, 0.0, k.Speed[2])
	assert.Equal(t, 0.0, k.Acceleration[2])
	for i := range raw {
		for _, v := range []float64{k.Speed[i], k.Acceleration[i], k.TurnAngle[i], k.CumulativeDistance[i]} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "index %d produced %v", i, v)
		}
	}
}

func TestEmptyTrace(t *testing.T) {
	tests := []struct {
		name string
		raw  RawTrace
	}{
		{"nil", nil},
		{"zero coordinates", RawTrace{{Lat: 0, Lng: 0, Time: t0}}},
		{"missing timestamp", RawTrace{{Lat: 10, Lng: 10}}},
		{"NaN latitude", RawTrace{{Lat: math.NaN(), Lng: 10, Time: t0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Build(tt.raw, DefaultConfig())
			assert.Nil(t, tr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEmptyTrace))

			var empty *EmptyTraceError
			require.True(t, errors.As(err, &empty))
			assert.Equal(t, len(tt.raw), empty.Received)
		})
	}
}

func TestSinglePointTrace(t *testing.T) {
	tr, err := Build(RawTrace{{Lat: 10, Lng: 10, Elevation: 5, Time: t0}}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, []float64{0}, tr.Speed)

	s := Summarize(tr)
	assert.Equal(t, 0.0, s.DistanceKm)
	assert.Equal(t, time.Duration(0), s.Elapsed)
}

func TestSummarizeElevationGain(t *testing.T) {
	raw := straightLine(geo.LatLng{Lat: 46, Lng: 8}, 5, 0, 30, 5*time.Second)
	for i, ele := range []float64{100, 110, 105, 120, 119} {
		raw[i].Elevation = ele
	}
	tr, err := Build(raw, DefaultConfig())
	require.NoError(t, err)

	s := Summarize(tr)
	assert.InDelta(t, 25.0, s.ElevationGainM, 1e-9)
	assert.InDelta(t, 0.12, s.DistanceKm, 1e-4)
	assert.Equal(t, 20*time.Second, s.Elapsed)
	assert.Equal(t, s.Elapsed, s.Moving)
	assert.InDelta(t, 21.6, s.MaxSpeedKmh, 0.01)
}

func TestClampIndex(t *testing.T) {
	tr := &Track{Points: make([]Point, 4)}
	tests := []struct {
		in, want int
		clamped  bool
	}{
		{-3, 0, true},
		{0, 0, false},
		{3, 3, false},
		{4, 3, true},
		{100, 3, true},
	}
	for _, tt := range tests {
		got, clamped := tr.ClampIndex(tt.in)
		assert.Equal(t, tt.want, got, "ClampIndex(%d)", tt.in)
		assert.Equal(t, tt.clamped, clamped, "ClampIndex(%d) clamped", tt.in)
	}
}

func TestSmooth(t *testing.T) {
	data := []float64{0, 0, 3, 0, 0}
	got := Smooth(data, 3)
	assert.InDeltaSlice(t, []float64{0, 1, 1, 1, 0}, got, 1e-12)

	assert.Equal(t, data, Smooth(data, 1))
	assert.Empty(t, Smooth(nil, 15))
}

func TestCorners(t *testing.T) {
	tr := &Track{
		Points:    make([]Point, 5),
		TurnAngle: []float64{0, 5, 45, 20, 0},
		Speed:     []float64{0, 30, 25, 28, 31},
	}
	corners, straights := Corners(tr, 20)
	assert.Equal(t, []CornerPoint{{Index: 2, AngleDeg: 45, SpeedKmh: 25}}, corners)
	require.Len(t, straights, 3)
	assert.Equal(t, 1, straights[0].Index)
	assert.Equal(t, 3, straights[1].Index, "threshold itself counts as straight")
}
