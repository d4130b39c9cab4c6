package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inabajunmr/autosequence/internal/api"
	"github.com/inabajunmr/autosequence/internal/capture"
)

func dialLive(t *testing.T, ts *httptest.Server, viewerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/live"
	if viewerID != "" {
		url += "?viewer=" + viewerID
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLivePushesRecordLifecycle(t *testing.T) {
	s := setupTestAPIServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	id := s.Viewers.Register()
	conn := dialLive(t, ts, id)

	doRequest(t, s, "POST", "/v1/recording/start", "")
	doRequest(t, s, "POST", "/v1/events",
		`{"kind":"request-initiated","method":"GET","url":"https://api.example.com/users","resourceType":"xmlhttprequest","tabId":1}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg api.LiveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read added frame: %v", err)
	}
	if msg.Action != capture.ActionRequestAdded {
		t.Fatalf("action = %q, want %q", msg.Action, capture.ActionRequestAdded)
	}
	data, _ := json.Marshal(msg.Data)
	var rec capture.RequestRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Domain != "api.example.com" || rec.Method != "GET" {
		t.Errorf("record = %+v", rec)
	}

	doRequest(t, s, "POST", "/v1/events",
		`{"kind":"request-completed","url":"https://api.example.com/users","tabId":1,"statusCode":200}`)

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read completed frame: %v", err)
	}
	if msg.Action != capture.ActionRequestCompleted {
		t.Errorf("action = %q, want %q", msg.Action, capture.ActionRequestCompleted)
	}
}

func TestLiveRedirectsAndFailuresAreNotPushed(t *testing.T) {
	s := setupTestAPIServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialLive(t, ts, s.Viewers.Register())

	doRequest(t, s, "POST", "/v1/recording/start", "")
	doRequest(t, s, "POST", "/v1/events",
		`{"kind":"request-initiated","method":"GET","url":"https://api.example.com/old","resourceType":"xmlhttprequest","tabId":1}`)
	doRequest(t, s, "POST", "/v1/events",
		`{"kind":"request-redirected","url":"https://api.example.com/old","tabId":1,"statusCode":301,"redirectUrl":"https://api.example.com/new"}`)
	doRequest(t, s, "POST", "/v1/events",
		`{"kind":"request-initiated","method":"GET","url":"https://api.example.com/next","resourceType":"xmlhttprequest","tabId":1}`)

	// First frame is the first initiation; the redirect must not produce a
	// frame, so the second frame is the second initiation.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg api.LiveMessage
	for i := 0; i < 2; i++ {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if msg.Action != capture.ActionRequestAdded {
			t.Fatalf("frame %d action = %q, want %q", i, msg.Action, capture.ActionRequestAdded)
		}
	}
}

func TestLiveSetFiltersFrame(t *testing.T) {
	s := setupTestAPIServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	id := s.Viewers.Register()
	conn := dialLive(t, ts, id)

	domains := []string{"api.example.com"}
	types := []string{"xhr"}
	err := conn.WriteJSON(api.LiveMessage{
		Action:          "setFilters",
		SelectedDomains: &domains,
		SelectedTypes:   &types,
	})
	if err != nil {
		t.Fatalf("write setFilters: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		state, ok := s.Viewers.Filters(id)
		if ok && len(state.SelectedDomains) == 1 && state.SelectedDomains[0] == "api.example.com" {
			if len(state.SelectedTypes) != 1 || state.SelectedTypes[0] != "xhr" {
				t.Fatalf("types = %v", state.SelectedTypes)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("filters never applied: %+v", state)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLiveDisconnectUnregistersViewer(t *testing.T) {
	s := setupTestAPIServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	id := s.Viewers.Register()
	conn := dialLive(t, ts, id)
	if s.Viewers.Count() != 1 {
		t.Fatalf("count = %d after connect", s.Viewers.Count())
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Viewers.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("viewer still registered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
