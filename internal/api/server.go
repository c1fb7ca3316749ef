// Package api exposes the replay session over HTTP: GPX loading, playback
// control, highlight selection, an event stream, saved rides and charts.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/ride-replay/internal/db"
	"github.com/banshee-data/ride-replay/internal/httputil"
	"github.com/banshee-data/ride-replay/internal/monitoring"
	"github.com/banshee-data/ride-replay/internal/playback"
	"github.com/banshee-data/ride-replay/internal/replay"
	"github.com/banshee-data/ride-replay/internal/speedbin"
	"github.com/banshee-data/ride-replay/internal/uploads"
)

var logger = monitoring.Component("API")

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server routes HTTP requests to a replay session and the ride store.
type Server struct {
	session *replay.Session
	db      *db.DB
	uploads *uploads.Store

	mu      sync.Mutex
	gpxPath string // where the active track's GPX was stored, if anywhere
}

// Options configures a Server.
type Options struct {
	// Uploads keeps a copy of every uploaded GPX file so saved rides can be
	// replayed. Nil disables it.
	Uploads *uploads.Store
}

// NewServer returns a server for session. store may be nil, in which case
// the ride endpoints answer 503.
func NewServer(session *replay.Session, store *db.DB, opts Options) *Server {
	return &Server{
		session: session,
		db:      store,
		uploads: opts.Uploads,
	}
}

// SetGPXPath records the on-disk source of the active track, as when a file
// is preloaded at startup.
func (s *Server) SetGPXPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpxPath = path
}

func (s *Server) currentGPXPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gpxPath
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/load", s.handleLoad)
	mux.HandleFunc("/api/track", s.handleTrack)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/cursor", s.handleCursor)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/play", s.handlePlay)
	mux.HandleFunc("/api/pause", s.handlePause)
	mux.HandleFunc("/api/seek", s.handleSeek)
	mux.HandleFunc("/api/speed", s.handleSpeed)
	mux.HandleFunc("/api/channel", s.handleChannel)
	mux.HandleFunc("/api/bins", s.handleBins)
	mux.HandleFunc("/api/highlight", s.handleHighlight)
	mux.HandleFunc("/api/corners", s.handleCorners)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/rides", s.handleRides)
	mux.HandleFunc("/api/rides/", s.handleRide)
	mux.HandleFunc("/charts", s.handleChartPage)
	mux.HandleFunc("/charts/", s.handleChart)
	return mux
}

// writeSessionError maps replay errors onto HTTP status codes.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, replay.ErrNoTrack), errors.Is(err, playback.ErrNotLoaded):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, replay.ErrUnknownBin),
		errors.Is(err, playback.ErrInvalidSpeedMultiplier),
		errors.Is(err, speedbin.ErrNoBins):
		httputil.BadRequest(w, err.Error())
	default:
		logger.Printf("request failed: %v", err)
		httputil.InternalServerError(w, err.Error())
	}
}
