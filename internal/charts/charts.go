// Package charts renders ride views: interactive go-echarts pages for the
// profile, acceleration and corner charts, and a static PNG elevation
// profile drawn with gonum/plot.
package charts

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/ride-replay/internal/cursor"
	"github.com/banshee-data/ride-replay/internal/track"
)

// AssetsHost serves the echarts javascript bundles.
const AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ErrUnknownChart is returned by Render for a chart name it does not know.
var ErrUnknownChart = errors.New("unknown chart")

// maxPoints bounds the samples drawn per series; longer tracks are strided.
const maxPoints = 4000

const (
	colorElevation = "#5470c6"
	colorSpeed     = "#91cc75"
	colorAccel     = "#fac858"
	colorHighlight = "#ee6666"
	colorCursor    = "#ff3030"
)

// View is everything a chart needs to draw the current replay frame.
type View struct {
	Name        string
	Track       *track.Track
	Cursor      cursor.Payload
	Smoothed    []float64 // smoothed acceleration; the raw series is drawn when unset
	Highlighted []int
	Corners     []track.CornerPoint
	Straights   []track.CornerPoint
}

func stride(n int) int {
	if n <= maxPoints {
		return 1
	}
	return (n + maxPoints - 1) / maxPoints
}

// sampled returns the indices drawn for a series of length n. The last index
// is always included so the line reaches the end of the ride.
func sampled(n int) []int {
	step := stride(n)
	out := make([]int, 0, n/step+1)
	for i := 0; i < n; i += step {
		out = append(out, i)
	}
	if n > 0 && out[len(out)-1] != n-1 {
		out = append(out, n-1)
	}
	return out
}

func km(t *track.Track, i int) float64 {
	return t.CumulativeDistance[i] / 1000
}

func initOpts(title string) opts.Initialization {
	return opts.Initialization{PageTitle: title, Width: "100%", Height: "420px", AssetsHost: AssetsHost}
}

// Profile builds the distance vs elevation and speed chart. The cursor is
// marked on the series of the active channel.
func Profile(v View) *charts.Line {
	t := v.Track
	idx := sampled(t.Len())
	elev := make([]opts.LineData, 0, len(idx))
	speed := make([]opts.LineData, 0, len(idx))
	for _, i := range idx {
		elev = append(elev, opts.LineData{Value: []interface{}{km(t, i), t.Points[i].Elevation}})
		speed = append(speed, opts.LineData{Value: []interface{}{km(t, i), t.Speed[i]}})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Ride Profile")),
		charts.WithTitleOpts(opts.Title{Title: "Profile", Subtitle: fmt.Sprintf("%s points=%d stride=%d", v.Name, t.Len(), stride(t.Len()))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Distance (km)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Elevation (m)", Scale: opts.Bool(true)}),
	)
	line.ExtendYAxis(opts.YAxis{Type: "value", Name: "Speed (km/h)", Position: "right"})

	mark := charts.WithMarkPointNameCoordItemOpts(opts.MarkPointNameCoordItem{
		Name:       "cursor",
		Coordinate: []interface{}{v.Cursor.DistanceKm, v.Cursor.ChannelValue},
		Value:      fmt.Sprintf("%.1f", v.Cursor.ChannelValue),
		Symbol:     "pin",
		SymbolSize: 40,
		ItemStyle:  &opts.ItemStyle{Color: colorCursor},
	})
	elevOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorElevation, Width: 2}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.2)}),
	}
	speedOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), YAxisIndex: 1}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorSpeed, Width: 1}),
	}
	if v.Cursor.Channel == cursor.Speed {
		speedOpts = append(speedOpts, mark)
	} else {
		elevOpts = append(elevOpts, mark)
	}
	line.AddSeries("elevation", elev, elevOpts...)
	line.AddSeries("speed", speed, speedOpts...)
	return line
}

// Acceleration builds the smoothed acceleration chart with highlighted
// samples overlaid as points.
func Acceleration(v View) *charts.Line {
	t := v.Track
	acc := v.Smoothed
	if len(acc) != t.Len() {
		acc = t.Acceleration
	}
	idx := sampled(t.Len())
	data := make([]opts.LineData, 0, len(idx))
	for _, i := range idx {
		data = append(data, opts.LineData{Value: []interface{}{km(t, i), acc[i]}})
	}

	hl := make([]opts.ScatterData, 0, len(v.Highlighted))
	for _, i := range v.Highlighted {
		if i < 0 || i >= t.Len() {
			continue
		}
		hl = append(hl, opts.ScatterData{Value: []interface{}{km(t, i), acc[i]}})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Ride Acceleration")),
		charts.WithTitleOpts(opts.Title{Title: "Acceleration", Subtitle: fmt.Sprintf("highlighted=%d", len(hl))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Distance (km)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Acceleration (m/s²)"}),
	)
	line.AddSeries("acceleration", data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorAccel, Width: 1}),
		charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{Name: "cursor", XAxis: v.Cursor.DistanceKm}),
	)

	scatter := charts.NewScatter()
	scatter.AddSeries("highlighted", hl,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorHighlight}),
	)
	line.Overlap(scatter)
	return line
}

// CornerScatter plots turn angle against speed, corners and straights as
// separate series.
func CornerScatter(v View) *charts.Scatter {
	toData := func(pts []track.CornerPoint) []opts.ScatterData {
		out := make([]opts.ScatterData, 0, len(pts))
		step := stride(len(pts))
		for i := 0; i < len(pts); i += step {
			p := pts[i]
			out = append(out, opts.ScatterData{Name: fmt.Sprintf("#%d", p.Index), Value: []interface{}{p.AngleDeg, p.SpeedKmh}})
		}
		return out
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Ride Corners")),
		charts.WithTitleOpts(opts.Title{Title: "Corners", Subtitle: fmt.Sprintf("corners=%d straights=%d", len(v.Corners), len(v.Straights))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: 180, Name: "Turn (°)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Speed (km/h)", NameLocation: "middle", NameGap: 35}),
	)
	scatter.AddSeries("straights", toData(v.Straights),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorElevation, Opacity: opts.Float(0.5)}),
	)
	scatter.AddSeries("corners", toData(v.Corners),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorHighlight}),
	)
	return scatter
}

// RenderPage writes an HTML page holding every chart of v.
func RenderPage(w io.Writer, v View) error {
	if v.Track == nil || v.Track.Len() == 0 {
		return fmt.Errorf("charts: no track to render")
	}
	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.SetPageTitle(fmt.Sprintf("Ride Replay: %s", v.Name))
	page.AddCharts(Profile(v), Acceleration(v), CornerScatter(v))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// Renderer is a single chart that can write itself as HTML.
type Renderer interface {
	Render(w io.Writer) error
}

// Render writes one chart by name: "profile", "acceleration" or "corners".
func Render(w io.Writer, name string, v View) error {
	if v.Track == nil || v.Track.Len() == 0 {
		return fmt.Errorf("charts: no track to render")
	}
	var r Renderer
	switch name {
	case "profile":
		r = Profile(v)
	case "acceleration":
		r = Acceleration(v)
	case "corners":
		r = CornerScatter(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
	return r.Render(w)
}
