package charts

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Static image size, matching a wide profile strip.
const (
	imageWidth  = 12 * vg.Inch
	imageHeight = 4 * vg.Inch
)

// WriteProfileImage draws the elevation profile of v with the cursor marked
// and writes it in format ("png" or "svg").
func WriteProfileImage(w io.Writer, v View, format string) error {
	if v.Track == nil || v.Track.Len() == 0 {
		return fmt.Errorf("charts: no track to render")
	}
	switch format {
	case "png", "svg":
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}

	t := v.Track
	idx := sampled(t.Len())
	pts := make(plotter.XYs, 0, len(idx))
	for _, i := range idx {
		pts = append(pts, plotter.XY{X: km(t, i), Y: t.Points[i].Elevation})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Elevation Profile", v.Name)
	p.X.Label.Text = "Distance (km)"
	p.Y.Label.Text = "Elevation (m)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("elevation line: %w", err)
	}
	line.Color = color.RGBA{R: 0x54, G: 0x70, B: 0xc6, A: 0xff}
	line.Width = vg.Points(1.5)
	p.Add(line)

	ci, _ := t.ClampIndex(v.Cursor.Index)
	mark, err := plotter.NewScatter(plotter.XYs{{X: km(t, ci), Y: t.Points[ci].Elevation}})
	if err != nil {
		return fmt.Errorf("cursor mark: %w", err)
	}
	mark.GlyphStyle = draw.GlyphStyle{
		Color:  color.RGBA{R: 0xff, G: 0x30, B: 0x30, A: 0xff},
		Radius: vg.Points(4),
		Shape:  draw.CircleGlyph{},
	}
	p.Add(mark)
	p.Legend.Add("elevation", line)
	p.Legend.Add("cursor", mark)
	p.Legend.Top = true

	wt, err := p.WriterTo(imageWidth, imageHeight, format)
	if err != nil {
		return fmt.Errorf("draw profile: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
