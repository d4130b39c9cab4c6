package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/inabajunmr/autosequence/internal/api"
	"github.com/inabajunmr/autosequence/internal/diagram"
	"github.com/inabajunmr/autosequence/internal/logging"
	"github.com/inabajunmr/autosequence/internal/notify"
	"github.com/inabajunmr/autosequence/internal/observability"
	"go.uber.org/zap"
)

const liveWriteTimeout = 5 * time.Second

// ViewerRegistry tracks registered diagram viewers and their filter
// selections. A viewer exists from registration until explicit unregistration
// or its live connection closing, whichever comes first.
type ViewerRegistry struct {
	mu      sync.Mutex
	viewers map[string]*viewer

	hub      *notify.Hub
	metrics  *observability.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

type viewer struct {
	id      string
	filters diagram.FilterState

	// conn is nil until the viewer opens its live channel. One writer at a
	// time in gorilla/websocket.
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewViewerRegistry creates an empty registry publishing through hub.
func NewViewerRegistry(hub *notify.Hub, metrics *observability.Metrics, logger *zap.Logger) *ViewerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewerRegistry{
		viewers: make(map[string]*viewer),
		hub:     hub,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Register creates a viewer with default filters and returns its id.
func (vr *ViewerRegistry) Register() string {
	id := uuid.NewString()
	vr.mu.Lock()
	vr.viewers[id] = &viewer{id: id, filters: diagram.DefaultFilterState()}
	count := len(vr.viewers)
	vr.mu.Unlock()

	if vr.metrics != nil {
		vr.metrics.ConnectedViewers.Set(float64(count))
	}
	return id
}

// Unregister removes a viewer and closes its live connection. Returns false
// for unknown ids.
func (vr *ViewerRegistry) Unregister(id string) bool {
	vr.mu.Lock()
	v, ok := vr.viewers[id]
	if ok {
		delete(vr.viewers, id)
	}
	count := len(vr.viewers)
	vr.mu.Unlock()

	if !ok {
		return false
	}

	vr.hub.Unsubscribe(id)
	if v.conn != nil {
		_ = v.conn.Close()
	}
	if vr.metrics != nil {
		vr.metrics.ConnectedViewers.Set(float64(count))
	}
	return true
}

// SetFilters replaces a viewer's filter selection. Returns false for unknown
// ids.
func (vr *ViewerRegistry) SetFilters(id string, state diagram.FilterState) bool {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	v, ok := vr.viewers[id]
	if !ok {
		return false
	}
	v.filters = state
	return true
}

// Filters returns a viewer's current filter selection.
func (vr *ViewerRegistry) Filters(id string) (diagram.FilterState, bool) {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	v, ok := vr.viewers[id]
	if !ok {
		return diagram.FilterState{}, false
	}
	return v.filters, true
}

// Count returns the number of registered viewers.
func (vr *ViewerRegistry) Count() int {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	return len(vr.viewers)
}

// wsSink adapts a viewer's websocket connection to the fan-out hub.
type wsSink struct {
	v *viewer
}

func (s wsSink) Deliver(ev notify.Event) error {
	s.v.writeMu.Lock()
	defer s.v.writeMu.Unlock()
	_ = s.v.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return s.v.conn.WriteJSON(api.LiveMessage{Action: ev.Action, Data: ev.Record})
}

// handleLive upgrades a registered viewer's connection and subscribes it for
// push updates. The read loop accepts setFilters frames and detects close.
func (s *APIServer) handleLive(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("viewer")
	if id == "" {
		id = s.Viewers.Register()
	}

	s.Viewers.mu.Lock()
	v, ok := s.Viewers.viewers[id]
	s.Viewers.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "unknown viewer"})
		return
	}

	conn, err := s.Viewers.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	v.conn = conn

	s.Hub.Subscribe(id, wsSink{v: v})
	s.Logger.Info("live viewer connected", logging.Viewer(id))

	for {
		var msg api.LiveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Action == "setFilters" {
			state := filterStateFromRequest(api.FilterStateRequest{
				SelectedDomains: msg.SelectedDomains,
				SelectedTypes:   msg.SelectedTypes,
			})
			s.Viewers.SetFilters(id, state)
		}
	}

	s.Hub.Unsubscribe(id)
	s.Viewers.Unregister(id)
	s.Logger.Info("live viewer disconnected", logging.Viewer(id))
}
