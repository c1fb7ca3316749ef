package api

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/ride-replay/internal/db"
	"github.com/banshee-data/ride-replay/internal/httputil"
	"github.com/banshee-data/ride-replay/internal/track"
	"github.com/banshee-data/ride-replay/internal/uploads"
)

// SaveRideRequest names the active track's summary before it is stored.
type SaveRideRequest struct {
	Title string `json:"title"`
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "ride store not configured")
		return false
	}
	return true
}

// handleRides lists saved rides (GET) or saves the active track (POST).
func (s *Server) handleRides(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 0 {
				httputil.BadRequest(w, "Invalid 'limit' parameter")
				return
			}
			limit = n
		}
		rides, err := s.db.ListRides(limit)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, rides)

	case http.MethodPost:
		var req SaveRideRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		t, name, err := s.session.Track()
		if err != nil {
			writeSessionError(w, err)
			return
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = name
		}
		ride := db.RideFromSummary(title, s.currentGPXPath(), track.Summarize(t))
		if err := s.db.SaveRide(ride); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, ride)

	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleRide serves /api/rides/{id}.
func (s *Server) handleRide(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id, action, _ := strings.Cut(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/rides/"), "/"), "/")
	if id == "" {
		httputil.BadRequest(w, "ride id is required")
		return
	}
	switch action {
	case "":
	case "load":
		s.handleRideLoad(w, r, id)
		return
	default:
		httputil.NotFound(w, "unknown ride action")
		return
	}

	switch r.Method {
	case http.MethodGet:
		ride, err := s.db.GetRide(id)
		if errors.Is(err, db.ErrRideNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, ride)

	case http.MethodDelete:
		ride, err := s.db.GetRide(id)
		if err == nil {
			err = s.db.DeleteRide(id)
		}
		if errors.Is(err, db.ErrRideNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		if ride.GPXPath != "" && s.uploads != nil {
			if err := s.uploads.Remove(ride.GPXPath); err != nil {
				logger.Printf("ride %s deleted, GPX kept: %v", id, err)
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleRideLoad replays a saved ride from its stored GPX file.
func (s *Server) handleRideLoad(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	ride, err := s.db.GetRide(id)
	if errors.Is(err, db.ErrRideNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if ride.GPXPath == "" || s.uploads == nil {
		httputil.NotFound(w, "no GPX stored for ride "+id)
		return
	}

	data, err := s.uploads.Read(ride.GPXPath)
	switch {
	case errors.Is(err, uploads.ErrOutsideDir):
		httputil.WriteJSONError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, fs.ErrNotExist):
		httputil.NotFound(w, "GPX file for ride "+id+" is missing")
		return
	case err != nil:
		httputil.InternalServerError(w, err.Error())
		return
	}

	resp, ok := s.loadGPX(w, data, ride.Title)
	if !ok {
		return
	}
	s.SetGPXPath(ride.GPXPath)
	httputil.WriteJSONOK(w, resp)
}
