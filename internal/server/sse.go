package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ki9ng/PawPrint/internal/events"
)

const heartbeatEvery = 25 * time.Second

// handleStream is the server-sent events endpoint. Each client gets an
// init event with the full current picture, then every state change as
// it happens, with comment heartbeats to keep proxies from timing out
// the idle connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Subscribe before snapshotting so nothing slips between the init
	// picture and the first delivered change.
	sub := s.eng.Bus().Subscribe()
	defer s.eng.Bus().Unsubscribe(sub)

	st := s.eng.State()
	init := events.Event{Type: "init", Data: map[string]interface{}{
		"stations": st.Stations(),
		"messages": st.Messages(),
		"status":   st.Status(),
	}}
	if err := writeSSE(w, init); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
