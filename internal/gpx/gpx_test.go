package gpx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Morning Loop</name>
    <trkseg>
      <trkpt lat="45.0000" lon="7.0000"><ele>240.5</ele><time>2025-06-01T08:00:00Z</time></trkpt>
      <trkpt lat="45.0002" lon="7.0000"><ele>241.0</ele><time>2025-06-01T08:00:05Z</time></trkpt>
      <trkpt lat="45.0004" lon="7.0000"><time>2025-06-01T08:00:10Z</time></trkpt>
      <trkpt lat="45.0006" lon="7.0000"><ele>243.0</ele></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleGPX))
	require.NoError(t, err)

	assert.Equal(t, "Morning Loop", f.Name)
	require.Len(t, f.Trace, 3)
	assert.Equal(t, 1, f.Skipped, "point without a timestamp must be skipped")

	assert.InDelta(t, 45.0002, f.Trace[1].Lat, 1e-9)
	assert.InDelta(t, 7.0, f.Trace[1].Lng, 1e-9)
	assert.InDelta(t, 241.0, f.Trace[1].Elevation, 1e-9)
	assert.Equal(t, 0.0, f.Trace[2].Elevation, "missing elevation reads as 0")
	assert.True(t, f.Trace[0].Time.Equal(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)))
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse(strings.NewReader("not xml at all"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse GPX")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evening.gpx")
	noName := strings.Replace(sampleGPX, "<name>Morning Loop</name>", "", 1)
	require.NoError(t, os.WriteFile(path, []byte(noName), 0o644))

	f, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "evening", f.Name)
	assert.Len(t, f.Trace, 3)
}

func TestParseFileRejectsExtension(t *testing.T) {
	_, err := ParseFile("/tmp/ride.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".gpx")
}

func TestSizeLimitAppliesToFiles(t *testing.T) {
	old := maxFileSize
	maxFileSize = len(sampleGPX) - 1
	t.Cleanup(func() { maxFileSize = old })

	_, err := Parse(strings.NewReader(sampleGPX))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	path := filepath.Join(t.TempDir(), "big.gpx")
	require.NoError(t, os.WriteFile(path, []byte(sampleGPX), 0o644))
	_, err = ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	maxFileSize = len(sampleGPX)
	f, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Morning Loop", f.Name)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "gone.gpx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
