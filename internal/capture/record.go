// Package capture implements the request ledger: the in-memory table of
// observed requests, correlation of completion/redirect/error events back to
// their originating request, and the recording state machine that gates
// admission.
package capture

// EventKind identifies one of the four network event kinds delivered by the
// browser event source.
type EventKind string

// Network event kinds.
const (
	EventInitiated  EventKind = "request-initiated"
	EventCompleted  EventKind = "request-completed"
	EventRedirected EventKind = "request-redirected"
	EventErrored    EventKind = "request-errored"
)

// Fan-out actions pushed to live viewers. Only creation and completion fan
// out; redirect and error transitions intentionally do not.
const (
	ActionRequestAdded     = "request-added"
	ActionRequestCompleted = "request-completed"
)

// NetworkEvent is a single event from the browser's network-interception API.
// Fields beyond Kind/URL/TabID are populated depending on the kind.
type NetworkEvent struct {
	Kind         EventKind
	Method       string
	URL          string
	ResourceType string
	TabID        int
	StatusCode   int
	RedirectURL  string
	Error        string
}

// RequestRecord is one observed outbound request. A record starts pending and
// makes at most one terminal transition: completed, redirected, or failed,
// all marked by Completed=true with StatusCode, RedirectURL, or Error
// distinguishing which.
type RequestRecord struct {
	ID           int64  `json:"id"`
	Method       string `json:"method"`
	URL          string `json:"url"`
	Domain       string `json:"domain"`
	ResourceType string `json:"type"`
	Timestamp    int64  `json:"timestamp"` // unix milliseconds
	TabID        int    `json:"tabId"`
	Completed    bool   `json:"completed"`
	StatusCode   int    `json:"statusCode,omitempty"`
	ResponseTime int64  `json:"responseTime,omitempty"` // milliseconds
	RedirectURL  string `json:"redirectUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Terminal reports whether the record has made its terminal transition and
// will no longer be touched by correlation.
func (r *RequestRecord) Terminal() bool { return r.Completed }
