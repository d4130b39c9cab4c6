// Package server implements the command API, the event ingest endpoint, and
// the live-update channel.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/inabajunmr/autosequence/internal/api"
	"github.com/inabajunmr/autosequence/internal/capture"
	"github.com/inabajunmr/autosequence/internal/contenttype"
	"github.com/inabajunmr/autosequence/internal/diagram"
	"github.com/inabajunmr/autosequence/internal/logging"
	"github.com/inabajunmr/autosequence/internal/notify"
	"github.com/inabajunmr/autosequence/internal/observability"
	"github.com/inabajunmr/autosequence/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIServer handles the capture command interface.
type APIServer struct {
	Controller *capture.Controller
	Hub        *notify.Hub
	Viewers    *ViewerRegistry
	Store      *store.Store
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	MaxEntries int
}

// Handler returns the HTTP handler for the capture API.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/events", s.handleEvents)
	mux.HandleFunc("POST /v1/recording/start", s.handleStartRecording)
	mux.HandleFunc("POST /v1/recording/stop", s.handleStopRecording)
	mux.HandleFunc("GET /v1/state", s.handleGetState)
	mux.HandleFunc("GET /v1/stats", s.handleGetStats)
	mux.HandleFunc("DELETE /v1/records", s.handleClearRecords)
	mux.HandleFunc("GET /v1/diagram", s.handleGetDiagram)
	mux.HandleFunc("POST /v1/viewers", s.handleRegisterViewer)
	mux.HandleFunc("DELETE /v1/viewers/{id}", s.handleUnregisterViewer)
	mux.HandleFunc("PUT /v1/viewers/{id}/filters", s.handleSetViewerFilters)
	mux.HandleFunc("GET /v1/live", s.handleLive)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *APIServer) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	s.Controller.Start()
	s.updateGauges()
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *APIServer) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	s.Controller.Stop()
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *APIServer) handleGetState(w http.ResponseWriter, r *http.Request) {
	requests, domains := s.Controller.Session().Counts()
	writeJSON(w, http.StatusOK, api.StateResponse{
		Recording:    s.Controller.Recording(),
		RequestCount: requests,
		DomainCount:  domains,
	})
}

func (s *APIServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	requests, domains := s.Controller.Session().Counts()
	writeJSON(w, http.StatusOK, api.StatsResponse{
		RequestCount: requests,
		DomainCount:  domains,
	})
}

func (s *APIServer) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	s.Controller.Clear()
	s.updateGauges()
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *APIServer) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	filter, errMsg := s.resolveFilter(r)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: errMsg})
		return
	}

	maxEntries := s.MaxEntries
	if q := r.URL.Query().Get("max"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid max parameter"})
			return
		}
		maxEntries = n
	}

	records := s.Controller.Session().Snapshot()
	text := diagram.Compile(records, filter, diagram.Options{
		MaxEntries: maxEntries,
		StartHint:  !s.Controller.Recording(),
	})

	if s.Metrics != nil {
		s.Metrics.DiagramsTotal.Inc()
	}
	if s.Store != nil {
		if err := s.Store.SaveDiagram(text); err != nil {
			s.Logger.Warn("failed to persist diagram", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, api.DiagramResponse{Diagram: text})
}

// resolveFilter builds the diagram filter from query parameters, or from a
// registered viewer's stored state when ?viewer= is given. Absent parameters
// leave an axis unfiltered; present-but-empty parameters select nothing.
func (s *APIServer) resolveFilter(r *http.Request) (diagram.Filter, string) {
	q := r.URL.Query()

	if viewerID := q.Get("viewer"); viewerID != "" {
		state, ok := s.Viewers.Filters(viewerID)
		if !ok {
			return diagram.Filter{}, "unknown viewer"
		}
		return state.Filter(), ""
	}

	var filter diagram.Filter
	if q.Has("domains") {
		filter.Domains = make(map[string]struct{})
		for _, d := range splitList(q.Get("domains")) {
			filter.Domains[d] = struct{}{}
		}
	}
	if q.Has("types") {
		filter.Types = make(map[contenttype.Category]struct{})
		for _, tp := range splitList(q.Get("types")) {
			if !contenttype.Valid(tp) {
				return diagram.Filter{}, "unknown content type: " + tp
			}
			filter.Types[contenttype.Category(tp)] = struct{}{}
		}
	}
	return filter, ""
}

func (s *APIServer) handleRegisterViewer(w http.ResponseWriter, r *http.Request) {
	id := s.Viewers.Register()
	s.Logger.Info("viewer registered", logging.Viewer(id))
	writeJSON(w, http.StatusOK, api.RegisterViewerResponse{ViewerID: id})
}

func (s *APIServer) handleUnregisterViewer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.Viewers.Unregister(id) {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "unknown viewer"})
		return
	}
	s.Logger.Info("viewer unregistered", logging.Viewer(id))
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *APIServer) handleSetViewerFilters(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req api.FilterStateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid JSON"})
		return
	}

	state := filterStateFromRequest(req)
	if !s.Viewers.SetFilters(id, state) {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "unknown viewer"})
		return
	}
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func filterStateFromRequest(req api.FilterStateRequest) diagram.FilterState {
	var state diagram.FilterState
	if req.SelectedDomains != nil {
		state.HasDomains = true
		state.SelectedDomains = *req.SelectedDomains
	}
	if req.SelectedTypes != nil {
		state.HasTypes = true
		state.SelectedTypes = *req.SelectedTypes
	}
	return state
}

func (s *APIServer) updateGauges() {
	if s.Metrics == nil {
		return
	}
	requests, domains := s.Controller.Session().Counts()
	s.Metrics.LedgerSize.Set(float64(requests))
	s.Metrics.DomainCount.Set(float64(domains))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
