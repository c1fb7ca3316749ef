package charts

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ride-replay/internal/cursor"
	"github.com/banshee-data/ride-replay/internal/geo"
	"github.com/banshee-data/ride-replay/internal/track"
)

func testView(t *testing.T, n int) View {
	t.Helper()
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	pos := geo.LatLng{Lat: 46.0, Lng: 7.5}
	raw := make(track.RawTrace, 0, n)
	for i := 0; i < n; i++ {
		raw = append(raw, track.Point{
			Lat:       pos.Lat,
			Lng:       pos.Lng,
			Elevation: 400 + float64(i%20),
			Time:      start.Add(time.Duration(5*i) * time.Second),
		})
		bearing := 0.0
		if i%10 == 9 {
			bearing = 90
		}
		pos = geo.Destination(pos, bearing, 30)
	}
	tr, err := track.Build(raw, track.DefaultConfig())
	require.NoError(t, err)

	corners, straights := track.Corners(tr, 20)
	return View{
		Name:        "test ride",
		Track:       tr,
		Cursor:      cursor.Compute(tr, tr.Len()/2, cursor.Elevation),
		Smoothed:    track.Smooth(tr.Acceleration, 5),
		Highlighted: []int{3, 4, 5},
		Corners:     corners,
		Straights:   straights,
	}
}

func TestSampled(t *testing.T) {
	tests := []struct {
		n       int
		wantLen int
	}{
		{0, 0},
		{1, 1},
		{maxPoints, maxPoints},
		{maxPoints + 1, maxPoints/2 + 1},
		{maxPoints + 2, maxPoints/2 + 2},
	}
	for _, tt := range tests {
		got := sampled(tt.n)
		assert.Len(t, got, tt.wantLen, "n=%d", tt.n)
		if tt.n > 0 {
			assert.Equal(t, 0, got[0])
			assert.Equal(t, tt.n-1, got[len(got)-1])
		}
	}
}

func TestRenderPage(t *testing.T) {
	v := testView(t, 40)

	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, v))
	html := buf.String()

	assert.Contains(t, html, AssetsHost)
	assert.Contains(t, html, "Ride Replay: test ride")
	for _, name := range []string{"elevation", "speed", "acceleration", "highlighted", "corners", "straights"} {
		assert.Contains(t, html, `"name":"`+name+`"`)
	}
}

func TestRenderSingleChart(t *testing.T) {
	v := testView(t, 30)
	for _, name := range []string{"profile", "acceleration", "corners"} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, name, v))
			assert.Contains(t, buf.String(), "echarts")
		})
	}

	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, "heart-rate", v), ErrUnknownChart)
}

func TestProfileMarksActiveChannel(t *testing.T) {
	v := testView(t, 20)
	v.Cursor = cursor.Compute(v.Track, 5, cursor.Speed)

	line := Profile(v)
	require.Len(t, line.MultiSeries, 2)
	assert.Nil(t, line.MultiSeries[0].MarkPoints, "elevation series is not the active channel")
	assert.NotNil(t, line.MultiSeries[1].MarkPoints)
}

func TestAccelerationIgnoresOutOfRangeHighlights(t *testing.T) {
	v := testView(t, 20)
	v.Highlighted = []int{-1, 2, 999}
	v.Smoothed = nil

	line := Acceleration(v)
	require.Len(t, line.MultiSeries, 2)
	hl, ok := line.MultiSeries[1].Data.([]opts.ScatterData)
	require.True(t, ok)
	assert.Len(t, hl, 1)
}

func TestRenderRequiresTrack(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderPage(&buf, View{}))
	assert.Error(t, Render(&buf, "profile", View{}))
	assert.Error(t, WriteProfileImage(&buf, View{}, "png"))
}

func TestWriteProfileImage(t *testing.T) {
	v := testView(t, 25)

	var png bytes.Buffer
	require.NoError(t, WriteProfileImage(&png, v, "png"))
	assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	var svg bytes.Buffer
	require.NoError(t, WriteProfileImage(&svg, v, "svg"))
	assert.Contains(t, svg.String(), "<svg")

	assert.Error(t, WriteProfileImage(&bytes.Buffer{}, v, "gif"))
}
