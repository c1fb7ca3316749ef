// Package gpx reads GPS exchange files into raw traces.
package gpx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/banshee-data/ride-replay/internal/monitoring"
	"github.com/banshee-data/ride-replay/internal/track"
)

var logger = monitoring.Component("GPX")

// maxFileSize bounds uploads and files read from disk.
var maxFileSize = 32 * 1024 * 1024

// File is a parsed GPX document reduced to what replay needs.
type File struct {
	Name    string
	Trace   track.RawTrace
	Skipped int // points dropped for missing coordinates or timestamps
}

// Parse reads a GPX document from r. Track points are used when present;
// otherwise route points are.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(maxFileSize)+1))
	if err != nil {
		return nil, fmt.Errorf("read GPX: %w", err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("GPX too large (max %d bytes)", maxFileSize)
	}
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse GPX: %w", err)
	}
	return fromGPX(g), nil
}

// ParseFile reads and parses the GPX file at path. The file name without
// extension is used as a fallback title.
func ParseFile(path string) (*File, error) {
	clean := filepath.Clean(path)
	if ext := strings.ToLower(filepath.Ext(clean)); ext != ".gpx" {
		return nil, fmt.Errorf("file must have .gpx extension, got %q", ext)
	}
	fh, err := os.Open(clean)
	if err != nil {
		return nil, fmt.Errorf("read GPX file: %w", err)
	}
	defer fh.Close()
	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", clean, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(clean), filepath.Ext(clean))
	}
	return f, nil
}

func fromGPX(g *gpx.GPX) *File {
	f := &File{Name: g.Name}

	var pts []gpx.GPXPoint
	for _, trk := range g.Tracks {
		if f.Name == "" {
			f.Name = trk.Name
		}
		for _, seg := range trk.Segments {
			pts = append(pts, seg.Points...)
		}
	}
	if len(pts) == 0 {
		for _, rte := range g.Routes {
			if f.Name == "" {
				f.Name = rte.Name
			}
			pts = append(pts, rte.Points...)
		}
	}

	f.Trace = make(track.RawTrace, 0, len(pts))
	for _, p := range pts {
		tp := track.Point{
			Lat:  p.Latitude,
			Lng:  p.Longitude,
			Time: p.Timestamp,
		}
		if p.Elevation.NotNull() {
			tp.Elevation = p.Elevation.Value()
		}
		if !tp.Valid() {
			f.Skipped++
			continue
		}
		f.Trace = append(f.Trace, tp)
	}
	if f.Skipped > 0 {
		logger.Printf("skipped %d of %d points without usable position or time", f.Skipped, len(pts))
	}
	return f
}
