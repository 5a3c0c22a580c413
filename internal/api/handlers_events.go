package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chis/kbcatalog/internal/events"
	"github.com/chis/kbcatalog/internal/logging"
)

// sseHeartbeat keeps idle SSE connections alive through proxies
const sseHeartbeat = 15 * time.Second

// handleEvents streams catalog events as Server-Sent Events.
// GET /api/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Prevent proxy buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Disable write deadline for this long-lived SSE connection
	rc := http.NewResponseController(w)
	rc.SetWriteDeadline(time.Time{})

	eventChan, unsubscribe := s.eventBus.Subscribe(events.Wildcard)
	defer unsubscribe()

	ctx := r.Context()
	logging.DebugContext(ctx, "SSE client connected")

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.DebugContext(ctx, "SSE client disconnected")
			return
		case <-heartbeat.C:
			// SSE comment, invisible to EventSource
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case event, ok := <-eventChan:
			if !ok {
				return
			}

			eventData, err := events.MarshalEvent(event)
			if err != nil {
				logging.ErrorContext(ctx, "Error marshaling event: %v", err)
				continue
			}

			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Seq, event.Type, eventData)
			flusher.Flush()
			heartbeat.Reset(sseHeartbeat)
		}
	}
}
