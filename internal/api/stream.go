package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banshee-data/ride-replay/internal/cursor"
	"github.com/banshee-data/ride-replay/internal/httputil"
)

// streamBuffer is the number of events queued per client before drops.
const streamBuffer = 256

// handleStream sends session events as Server-Sent Events. The playback
// status and cursor as of subscription are sent first so a new client can
// draw immediately; every later event is newer than them.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	// Stands in when nothing has been broadcast yet. Read before subscribing
	// so it is older than anything the stream queues.
	initial := s.session.Status()
	stream := cursor.NewStream(streamBuffer)
	bc := s.session.Broadcaster()
	id, snap := bc.SubscribeSnapshot(stream)
	defer func() {
		bc.Unsubscribe(id)
		if n := stream.Dropped(); n > 0 {
			logger.Printf("stream %s closed, %d events dropped", id, n)
		}
	}()

	// Send initial ping to establish connection
	if _, err := w.Write([]byte(": ping\n\n")); err != nil {
		return
	}
	state := initial
	if snap.State != nil {
		state = *snap.State
	}
	if err := writeEvent(w, cursor.Event{Type: cursor.EventState, Data: state}); err != nil {
		return
	}
	if snap.Cursor != nil {
		if err := writeEvent(w, cursor.Event{Type: cursor.EventCursor, Data: *snap.Cursor}); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case ev := <-stream.C():
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev cursor.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
