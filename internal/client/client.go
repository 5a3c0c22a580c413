// Package client talks to a remote kbcatalog HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/chis/kbcatalog/internal/docker"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/output"
	"github.com/chis/kbcatalog/internal/storage"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer other than 404.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

// Client is a typed client for the catalog API.
type Client struct {
	baseURL string
	http    *req.Client
}

// New creates a client for the API at baseURL, e.g. http://localhost:3000.
func New(baseURL string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}

	httpClient := req.C().
		SetUserAgent("kbcatalog/"+output.Version).
		SetTimeout(30*time.Second).
		SetCommonHeader("Accept", "application/json")

	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// envelope mirrors output.Response with the data left undecoded.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends a request and decodes the envelope's data into data when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, data any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNoContent || data == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(resp.Bytes(), &env); err != nil {
		return fmt.Errorf("error unmarshal json: %w", err)
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return fmt.Errorf("error decoding %s response: %w", path, err)
	}
	return nil
}

// send executes the request and maps error statuses.
func (c *Client) send(ctx context.Context, method, path string, body any) (*req.Response, error) {
	fullURL := c.baseURL + path
	logging.DebugContext(ctx, "Making %s request to: %s", method, fullURL)

	r := c.http.R().SetContext(ctx)
	if body != nil {
		r.SetBodyJsonMarshal(body)
	}

	resp, err := r.Send(method, fullURL)
	if err != nil {
		return nil, fmt.Errorf("%s request failed for %s: %w", method, fullURL, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if !resp.IsSuccessState() {
		var env envelope
		_ = json.Unmarshal(resp.Bytes(), &env)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	return resp, nil
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var health map[string]any
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &health)
	return health, err
}

// Search runs a full-text search. An empty query lists every script.
func (c *Client) Search(ctx context.Context, query string) ([]storage.Script, error) {
	var body struct {
		Scripts []storage.Script `json:"scripts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/search?q="+url.QueryEscape(query), nil, &body)
	return body.Scripts, err
}

// Scripts lists scripts, optionally only those in state.
func (c *Client) Scripts(ctx context.Context, state string) ([]storage.Script, error) {
	path := "/api/scripts"
	if state != "" {
		path += "?state=" + url.QueryEscape(state)
	}
	var scripts []storage.Script
	err := c.do(ctx, http.MethodGet, path, nil, &scripts)
	return scripts, err
}

// Categories lists categories in display order.
func (c *Client) Categories(ctx context.Context) ([]storage.Category, error) {
	var categories []storage.Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &categories)
	return categories, err
}

// Category returns one category and its scripts.
func (c *Client) Category(ctx context.Context, slug string) (storage.Category, []storage.Script, error) {
	var body struct {
		Category storage.Category `json:"category"`
		Scripts  []storage.Script `json:"scripts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/categories/"+url.PathEscape(slug), nil, &body)
	return body.Category, body.Scripts, err
}

// Script fetches a script's detail by numeric id or by name. Each fetch
// counts as a view.
func (c *Client) Script(ctx context.Context, ref string) (storage.ScriptDetail, error) {
	path := "/api/scripts/by-name/" + url.PathEscape(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		path = "/api/scripts/" + strconv.FormatInt(id, 10)
	}

	var detail storage.ScriptDetail
	err := c.do(ctx, http.MethodGet, path, nil, &detail)
	return detail, err
}

// Stats returns aggregate catalog counts.
func (c *Client) Stats(ctx context.Context) (storage.Stats, error) {
	var stats storage.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats)
	return stats, err
}

// Transition moves a script to a new KCS state.
func (c *Client) Transition(ctx context.Context, id int64, state, actor string) (storage.Script, error) {
	body := map[string]string{"state": state, "actor": actor}
	var script storage.Script
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/scripts/%d/transition", id), body, &script)
	return script, err
}

// AddContributor records a contributor on a script.
func (c *Client) AddContributor(ctx context.Context, id int64, name, role string) (storage.Contributor, error) {
	body := map[string]string{"name": name, "role": role}
	var contributor storage.Contributor
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/scripts/%d/contributors", id), body, &contributor)
	return contributor, err
}

// DockerComponents lists the monitoring components. With live set the
// server attaches container state when its Docker daemon is reachable;
// the returned bool reports whether it did.
func (c *Client) DockerComponents(ctx context.Context, live bool) ([]docker.ComponentStatus, bool, error) {
	path := "/api/docker-components"
	if live {
		path += "?live=true"
	}
	var body struct {
		Components []docker.ComponentStatus `json:"components"`
		Live       bool                     `json:"live"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &body)
	return body.Components, body.Live, err
}

// RDF fetches a JSON-LD document: "catalog", "categories" or "scripts/<id>".
func (c *Client) RDF(ctx context.Context, resource string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/rdf/"+resource, nil)
	if err != nil {
		return nil, err
	}
	return resp.Bytes(), nil
}
