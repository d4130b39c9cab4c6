// Package client is a small HTTP client for the capture API, used by the
// CLI subcommands.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/inabajunmr/autosequence/internal/api"
)

type Client struct {
	BaseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/")}
}

// DiagramQuery selects what the diagram endpoint compiles. The Has flags
// distinguish an absent axis (no filtering) from an explicit empty selection.
type DiagramQuery struct {
	Domains    []string
	Types      []string
	HasDomains bool
	HasTypes   bool
	Max        int
}

func (c *Client) StartRecording() error {
	return c.postCommand("/v1/recording/start")
}

func (c *Client) StopRecording() error {
	return c.postCommand("/v1/recording/stop")
}

func (c *Client) GetState() (*api.StateResponse, error) {
	var result api.StateResponse
	if err := c.getJSON("/v1/state", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetStats() (*api.StatsResponse, error) {
	var result api.StatsResponse
	if err := c.getJSON("/v1/stats", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ClearRecords() error {
	req, err := http.NewRequest("DELETE", c.BaseURL+"/v1/records", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return nil
}

func (c *Client) GetDiagram(q DiagramQuery) (string, error) {
	params := url.Values{}
	if q.HasDomains {
		params.Set("domains", strings.Join(q.Domains, ","))
	}
	if q.HasTypes {
		params.Set("types", strings.Join(q.Types, ","))
	}
	if q.Max > 0 {
		params.Set("max", strconv.Itoa(q.Max))
	}

	path := "/v1/diagram"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var result api.DiagramResponse
	if err := c.getJSON(path, &result); err != nil {
		return "", err
	}
	return result.Diagram, nil
}

func (c *Client) RegisterViewer() (string, error) {
	resp, err := http.Post(c.BaseURL+"/v1/viewers", "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp)
	}

	var result api.RegisterViewerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.ViewerID, nil
}

func (c *Client) UnregisterViewer(id string) error {
	req, err := http.NewRequest("DELETE", c.BaseURL+"/v1/viewers/"+id, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return nil
}

func (c *Client) SetViewerFilters(id string, filters api.FilterStateRequest) error {
	body, err := json.Marshal(filters)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("PUT", c.BaseURL+"/v1/viewers/"+id+"/filters", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return nil
}

func (c *Client) postCommand(path string) error {
	resp, err := http.Post(c.BaseURL+path, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return nil
}

func (c *Client) getJSON(path string, v any) error {
	resp, err := http.Get(c.BaseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("%s", errResp.Error)
}
