package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/inabajunmr/autosequence/internal/api"
	"github.com/inabajunmr/autosequence/internal/capture"
)

var eventKinds = map[string]capture.EventKind{
	string(capture.EventInitiated):  capture.EventInitiated,
	string(capture.EventCompleted):  capture.EventCompleted,
	string(capture.EventRedirected): capture.EventRedirected,
	string(capture.EventErrored):    capture.EventErrored,
}

// handleEvents ingests one event or a batch. The whole payload is validated
// before any event is admitted so a malformed batch cannot half-apply.
func (s *APIServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "request body too large"})
		return
	}

	events, errMsg := decodeEvents(body)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: errMsg})
		return
	}

	now := time.Now()
	for _, ev := range events {
		if s.Metrics != nil {
			s.Metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
		}
		mutated := s.Controller.Handle(ev, now)
		if !mutated && ev.Kind != capture.EventInitiated && s.Controller.Recording() {
			if s.Metrics != nil {
				s.Metrics.UnmatchedTotal.Inc()
			}
		}
	}
	s.updateGauges()

	w.WriteHeader(http.StatusNoContent)
}

func decodeEvents(body []byte) ([]capture.NetworkEvent, string) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, "empty body"
	}

	var raw []api.NetworkEvent
	if trimmed[0] == '[' {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, "invalid JSON"
		}
	} else {
		var one api.NetworkEvent
		if err := json.Unmarshal(body, &one); err != nil {
			return nil, "invalid JSON"
		}
		raw = []api.NetworkEvent{one}
	}

	events := make([]capture.NetworkEvent, 0, len(raw))
	for _, e := range raw {
		kind, ok := eventKinds[e.Kind]
		if !ok {
			return nil, "unknown event kind: " + e.Kind
		}
		if e.URL == "" {
			return nil, "missing url"
		}
		events = append(events, capture.NetworkEvent{
			Kind:         kind,
			Method:       e.Method,
			URL:          e.URL,
			ResourceType: e.ResourceType,
			TabID:        e.TabID,
			StatusCode:   e.StatusCode,
			RedirectURL:  e.RedirectURL,
			Error:        e.Error,
		})
	}
	return events, ""
}
