package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/acetvpair/tvlink-go/internal/httputil"
	"github.com/acetvpair/tvlink-go/internal/notify"
)

// EventsHandler streams orchestrator-to-UI events over SSE.
type EventsHandler struct {
	broker *notify.Broker
}

func NewEventsHandler(broker *notify.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.broker.Subscribe()
	defer h.broker.Unsubscribe(sub)

	if err := h.sendEvent(w, flusher, notify.Event{Type: "connected"}); err != nil {
		return
	}

	ctx := r.Context()

	heartbeat := time.NewTicker(notify.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("ui event stream closed by client")
			return

		case <-sub.Done:
			log.Debug().Msg("ui event stream closed by broker")
			return

		case event := <-sub.Events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send ui event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
