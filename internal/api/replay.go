package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/banshee-data/ride-replay/internal/cursor"
	"github.com/banshee-data/ride-replay/internal/gpx"
	"github.com/banshee-data/ride-replay/internal/httputil"
	"github.com/banshee-data/ride-replay/internal/playback"
	"github.com/banshee-data/ride-replay/internal/speedbin"
	"github.com/banshee-data/ride-replay/internal/track"
	"github.com/banshee-data/ride-replay/internal/units"
	"github.com/banshee-data/ride-replay/internal/uploads"
)

// maxUploadSize bounds GPX uploads, multipart overhead included.
const maxUploadSize = 32 << 20

// LoadResponse describes a newly loaded track.
type LoadResponse struct {
	Name       string  `json:"name"`
	Points     int     `json:"points"`
	DistanceKm float64 `json:"distance_km"`
	Breaks     int     `json:"breaks"`
	Skipped    int     `json:"skipped"`
}

// StatusResponse is the playback status with the active view settings.
type StatusResponse struct {
	playback.Status
	Channel     cursor.Channel `json:"channel"`
	Track       string         `json:"track,omitempty"`
	Bins        []int          `json:"selected_bins"`
	Highlighted int            `json:"highlighted"`
}

// CursorResponse is the cursor payload with its speed in the requested units.
type CursorResponse struct {
	cursor.Payload
	Speed float64    `json:"speed"`
	Units units.Unit `json:"units"`
}

// readUpload returns the GPX bytes and a display name from either a
// multipart "file" field or a raw request body.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("missing form file %q: %w", "file", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(hdr.Filename), filepath.Ext(hdr.Filename))
		}
		return data, name, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("request body is empty")
	}
	return data, name, nil
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	data, name, err := readUpload(w, r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	resp, ok := s.loadGPX(w, data, name)
	if !ok {
		return
	}

	path := ""
	if s.uploads != nil {
		if path, err = s.uploads.Save(resp.Name, data); err != nil {
			logger.Printf("failed to store upload for %q: %v", resp.Name, err)
		}
	}
	s.SetGPXPath(path)
	httputil.WriteJSONOK(w, resp)
}

// loadGPX parses data and makes it the active track. On failure it writes
// the error response and returns false.
func (s *Server) loadGPX(w http.ResponseWriter, data []byte, name string) (LoadResponse, bool) {
	f, err := gpx.Parse(bytes.NewReader(data))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return LoadResponse{}, false
	}
	if name == "" {
		name = f.Name
	}
	if name == "" {
		name = "ride"
	}

	t, err := s.session.Load(name, f.Trace)
	if err != nil {
		var empty *track.EmptyTraceError
		if errors.As(err, &empty) {
			httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return LoadResponse{}, false
		}
		writeSessionError(w, err)
		return LoadResponse{}, false
	}
	return LoadResponse{
		Name:       name,
		Points:     t.Len(),
		DistanceKm: t.TotalDistance() / 1000,
		Breaks:     len(t.Breaks),
		Skipped:    f.Skipped,
	}, true
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	t, name, err := s.session.Track()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"name":  name,
		"track": t,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	sum, err := s.session.Summary()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if r.URL.Query().Get("download") != "" {
		_, name, _ := s.session.Track()
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", uploads.SanitizeFilename(name)+"-summary.json"))
	}
	httputil.WriteJSONOK(w, sum)
}

func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	u, err := units.ParseUnit(r.URL.Query().Get("units"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, err := s.session.Cursor()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, CursorResponse{Payload: p, Speed: units.FromKMPH(p.SpeedKmh, u), Units: u})
}

func (s *Server) status() StatusResponse {
	bins, highlighted := s.session.Highlight()
	_, name, _ := s.session.Track()
	return StatusResponse{
		Status:      s.session.Status(),
		Channel:     s.session.Channel(),
		Track:       name,
		Bins:        bins,
		Highlighted: len(highlighted),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.status())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.session.Play(); err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.status())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.session.Pause(); err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.status())
}

// SeekRequest moves the cursor by index or by distance along the ride.
// Exactly one field must be set.
type SeekRequest struct {
	Index      *int     `json:"index,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req SeekRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var (
		idx     int
		clamped bool
		err     error
	)
	switch {
	case req.Index != nil && req.DistanceKm != nil:
		httputil.BadRequest(w, "set either index or distance_km, not both")
		return
	case req.Index != nil:
		idx, clamped, err = s.session.Seek(*req.Index)
	case req.DistanceKm != nil:
		idx, err = s.session.SeekDistance(*req.DistanceKm)
	default:
		httputil.BadRequest(w, "index or distance_km is required")
		return
	}
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"index":   idx,
		"clamped": clamped,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, map[string]float64{"multiplier": s.session.Status().SpeedMultiplier})
	case http.MethodPost:
		var req struct {
			Multiplier float64 `json:"multiplier"`
		}
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.session.SetSpeedMultiplier(req.Multiplier); err != nil {
			writeSessionError(w, err)
			return
		}
		httputil.WriteJSONOK(w, map[string]float64{"multiplier": req.Multiplier})
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, map[string]cursor.Channel{"channel": s.session.Channel()})
	case http.MethodPost:
		var req struct {
			Channel string `json:"channel"`
		}
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		ch, err := cursor.ParseChannel(req.Channel)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.session.SetChannel(ch); err != nil {
			writeSessionError(w, err)
			return
		}
		httputil.WriteJSONOK(w, map[string]cursor.Channel{"channel": ch})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// BinInfo is one rung of the speed ladder with its selection state.
type BinInfo struct {
	Index    int          `json:"index"`
	Bin      speedbin.Bin `json:"bin"`
	Selected bool         `json:"selected"`
}

func (s *Server) handleBins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	selected, _ := s.session.Highlight()
	on := make(map[int]bool, len(selected))
	for _, b := range selected {
		on[b] = true
	}
	bins := s.session.Classifier().Bins()
	out := make([]BinInfo, len(bins))
	for i, b := range bins {
		out[i] = BinInfo{Index: i, Bin: b, Selected: on[i]}
	}
	httputil.WriteJSONOK(w, out)
}

// HighlightResponse is the current highlight selection.
type HighlightResponse struct {
	Bins     []int    `json:"bins"`
	Indices  []int    `json:"indices"`
	Segments [][2]int `json:"segments"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req struct {
			Bin *int `json:"bin"`
		}
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if req.Bin == nil {
			httputil.BadRequest(w, "bin is required")
			return
		}
		if _, _, err := s.session.ToggleHighlight(*req.Bin); err != nil {
			writeSessionError(w, err)
			return
		}
	default:
		httputil.MethodNotAllowed(w)
		return
	}

	bins, indices := s.session.Highlight()
	httputil.WriteJSONOK(w, HighlightResponse{
		Bins:     bins,
		Indices:  indices,
		Segments: speedbin.Segments(indices),
	})
}

func (s *Server) handleCorners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	corners, straights, err := s.session.Corners()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"corners":   corners,
		"straights": straights,
	})
}
