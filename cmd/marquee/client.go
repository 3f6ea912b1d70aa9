package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiClient is a thin HTTP wrapper over the daemon's control API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(address, token string) *apiClient {
	base := address
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type queryView struct {
	QueryID         string `json:"query_id"`
	Raw             string `json:"raw"`
	Source          string `json:"source"`
	NormalizedTitle string `json:"normalized_title"`
	NormalizedYear  int    `json:"normalized_year"`
	MovieID         int64  `json:"movie_id"`
	MovieTitle      string `json:"movie_title"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"error_message"`
	ChannelRef      string `json:"channel_ref"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type statusView struct {
	Queue struct {
		Total     int `json:"total"`
		Received  int `json:"received"`
		InFlight  int `json:"in_flight"`
		Suspended int `json:"suspended"`
		Done      int `json:"done"`
		Failed    int `json:"failed"`
	} `json:"queue"`
	Catalog struct {
		Records      int `json:"records"`
		QueryKeys    int `json:"query_keys"`
		Posters      int `json:"posters"`
		Publications int `json:"publications"`
	} `json:"catalog"`
}

func (c *apiClient) Submit(query, source string, yearHint int) (string, error) {
	payload := map[string]any{"query": query, "source": source, "year_hint": yearHint}
	var resp struct {
		QueryID string `json:"query_id"`
	}
	if err := c.do(http.MethodPost, "/api/queries", payload, &resp); err != nil {
		return "", err
	}
	return resp.QueryID, nil
}

func (c *apiClient) Query(queryID string) (*queryView, error) {
	var view queryView
	if err := c.do(http.MethodGet, "/api/queries/"+queryID, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) List(status string) ([]queryView, error) {
	path := "/api/queries"
	if status != "" {
		path += "?status=" + status
	}
	var resp struct {
		Queries []queryView `json:"queries"`
	}
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Queries, nil
}

func (c *apiClient) Select(queryID string, candidateID int64) error {
	payload := map[string]any{"candidate_id": candidateID}
	return c.do(http.MethodPost, "/api/queries/"+queryID+"/selection", payload, nil)
}

func (c *apiClient) Cancel(queryID string) error {
	return c.do(http.MethodDelete, "/api/queries/"+queryID, nil, nil)
}

func (c *apiClient) Status() (*statusView, error) {
	var view statusView
	if err := c.do(http.MethodGet, "/api/status", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) do(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the marquee daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
