package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/banshee-data/ride-replay/internal/charts"
	"github.com/banshee-data/ride-replay/internal/httputil"
)

// chartView gathers the session state the chart pages draw.
func (s *Server) chartView() (charts.View, error) {
	t, name, err := s.session.Track()
	if err != nil {
		return charts.View{}, err
	}
	p, err := s.session.Cursor()
	if err != nil {
		return charts.View{}, err
	}
	smoothed, err := s.session.SmoothedAcceleration()
	if err != nil {
		return charts.View{}, err
	}
	corners, straights, err := s.session.Corners()
	if err != nil {
		return charts.View{}, err
	}
	_, highlighted := s.session.Highlight()
	return charts.View{
		Name:        name,
		Track:       t,
		Cursor:      p,
		Smoothed:    smoothed,
		Highlighted: highlighted,
		Corners:     corners,
		Straights:   straights,
	}, nil
}

func (s *Server) handleChartPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	v, err := s.chartView()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := charts.RenderPage(&buf, v); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleChart serves /charts/{profile,acceleration,corners} as HTML and
// /charts/profile.png or .svg as a static image.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/charts/"), "/")
	if name == "" {
		s.handleChartPage(w, r)
		return
	}
	v, err := s.chartView()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var buf bytes.Buffer
	switch name {
	case "profile.png", "profile.svg":
		format := strings.TrimPrefix(name, "profile.")
		if err := charts.WriteProfileImage(&buf, v, format); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		if format == "png" {
			w.Header().Set("Content-Type", "image/png")
		} else {
			w.Header().Set("Content-Type", "image/svg+xml")
		}
	default:
		if err := charts.Render(&buf, name, v); err != nil {
			if errors.Is(err, charts.ErrUnknownChart) {
				httputil.NotFound(w, err.Error())
				return
			}
			httputil.InternalServerError(w, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, _ = w.Write(buf.Bytes())
}
