// Package api defines the wire request and response types.
package api

// NetworkEvent is one event delivered by the browser event source. Kind is
// one of request-initiated, request-completed, request-redirected,
// request-errored.
type NetworkEvent struct {
	Kind         string `json:"kind"`
	Method       string `json:"method,omitempty"`
	URL          string `json:"url"`
	ResourceType string `json:"resourceType,omitempty"`
	TabID        int    `json:"tabId"`
	StatusCode   int    `json:"statusCode,omitempty"`
	RedirectURL  string `json:"redirectUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StateResponse is the response body for the capture state query.
type StateResponse struct {
	Recording    bool `json:"recording"`
	RequestCount int  `json:"requestCount"`
	DomainCount  int  `json:"domainCount"`
}

// StatsResponse is the response body for the stats query.
type StatsResponse struct {
	RequestCount int `json:"requestCount"`
	DomainCount  int `json:"domainCount"`
}

// SuccessResponse acknowledges a state-changing command.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// DiagramResponse carries compiled diagram text.
type DiagramResponse struct {
	Diagram string `json:"diagram"`
}

// RegisterViewerResponse is the response body for viewer registration.
type RegisterViewerResponse struct {
	ViewerID string `json:"viewerId"`
}

// FilterStateRequest sets a viewer's diagram filters. Null fields leave the
// axis unfiltered; empty arrays select nothing.
type FilterStateRequest struct {
	SelectedDomains *[]string `json:"selectedDomains"`
	SelectedTypes   *[]string `json:"selectedTypes"`
}

// LiveMessage is one frame on the live-update channel. Inbound frames from
// the viewer use Action "setFilters" with the filter fields; outbound frames
// use request-added / request-completed with Data set to the record.
type LiveMessage struct {
	Action          string    `json:"action"`
	Data            any       `json:"data,omitempty"`
	SelectedDomains *[]string `json:"selectedDomains,omitempty"`
	SelectedTypes   *[]string `json:"selectedTypes,omitempty"`
}

// ErrorResponse represents an API error result.
type ErrorResponse struct {
	Error string `json:"error"`
}
