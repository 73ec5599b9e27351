package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Danish137/cerina-protocol-foundry/internal/engine"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// handleStream serves the session's workflow events as server-sent events.
//
// The protocol is push-only: on attach, one synthetic event carrying the
// current checkpoint is sent (so a reconnecting client is immediately
// consistent), then every subsequently published event is forwarded in
// publish order. Events published before the subscription attached are not
// replayed; get_state is the explicit backfill. The stream closes after a
// complete event or when the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.internalError(w, fmt.Errorf("response writer does not support streaming"))
		return
	}

	// Subscribe before reading the snapshot so no transition can fall in the
	// gap between the two.
	sub, err := s.client.SubscribeSessionEvents(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	defer sub.Close()

	session, err := s.engine.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			notFound(w)
			return
		}
		s.internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snapshot := &blackboard.Event{
		Kind:        snapshotKind(session),
		SessionID:   session.ID,
		Session:     session,
		TimestampMs: time.Now().UnixMilli(),
	}
	if err := writeSSE(w, snapshot); err != nil {
		return
	}
	flusher.Flush()

	if snapshot.Kind == blackboard.EventComplete {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
			if event.Kind == blackboard.EventComplete {
				return
			}

		case subErr, ok := <-sub.Errors():
			if !ok {
				return
			}
			s.log.Warn("event stream error", "session_id", id, "error", subErr)
		}
	}
}

// snapshotKind maps the current status to the event kind a late subscriber
// should see first.
func snapshotKind(s *blackboard.Session) blackboard.EventKind {
	switch {
	case s.Status.Terminal():
		return blackboard.EventComplete
	case s.Status == blackboard.StatusAwaitingApproval:
		return blackboard.EventHalted
	default:
		return blackboard.EventStateUpdate
	}
}

// writeSSE writes one event frame: "event: <kind>\ndata: <json>\n\n".
func writeSSE(w http.ResponseWriter, event *blackboard.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, payload)
	return err
}
