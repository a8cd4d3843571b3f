// Package restapi implements the service.Service interface against the task
// store's HTTP+JSON API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"todoctl/internal/config"
	"todoctl/internal/logging"
	"todoctl/internal/service"
)

const (
	// APITimeout is the default timeout for one store request.
	APITimeout = 10 * time.Second

	// RequestIDHeader carries a per-request correlation ID.
	RequestIDHeader = "X-Request-ID"
)

// Client implements service.Service over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
}

var _ service.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a client for cfg.BaseURL.
//
// When token.json exists its token is sent as a bearer token. If
// oauth_client.json exists too, an expired token is replaced through the
// client credentials grant. Without a token, requests are unauthenticated.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	httpClient := &http.Client{}

	if cfg.HasToken() {
		token, err := cfg.LoadToken()
		if err != nil {
			return nil, fmt.Errorf("%w: invalid token.json: %v", service.ErrAuth, err)
		}

		var src oauth2.TokenSource = oauth2.StaticTokenSource(token)
		if cfg.HasOAuthClient() {
			client, err := cfg.LoadOAuthClient()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", service.ErrAuth, err)
			}
			src = oauth2.ReuseTokenSource(token, client.Credentials().TokenSource(ctx))
		}
		httpClient = oauth2.NewClient(ctx, src)
	}

	return NewWithHTTPClient(cfg.BaseURL, httpClient, WithTimeout(cfg.RequestTimeout))
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL: u,
		http:    httpClient,
		timeout: APITimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns one page of tasks.
func (c *Client) List(ctx context.Context, params service.ListParams) (service.ListResult, error) {
	q := url.Values{}
	filter := params.Filter
	if filter == "" {
		filter = service.FilterAll
	}
	q.Set("status", string(filter))
	if params.Search != "" {
		q.Set("q", params.Search)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	q.Set("offset", strconv.Itoa(params.Offset))

	var resp wireList
	if err := c.do(ctx, http.MethodGet, q, nil, &resp, "v1", "tasks"); err != nil {
		return service.ListResult{}, err
	}

	items := make([]service.Task, len(resp.Items))
	for i, item := range resp.Items {
		items[i] = item.task()
	}
	return service.ListResult{
		Items:  items,
		Total:  resp.Total,
		Limit:  resp.Limit,
		Offset: resp.Offset,
	}, nil
}

// Create creates a task.
func (c *Client) Create(ctx context.Context, params service.CreateParams) (service.Task, error) {
	var resp wireTask
	if err := c.do(ctx, http.MethodPost, nil, params, &resp, "v1", "tasks"); err != nil {
		return service.Task{}, err
	}
	return resp.task(), nil
}

// Update applies a partial update. The store ignores a null description,
// so an empty description is sent as "" to clear it.
func (c *Client) Update(ctx context.Context, id int64, params service.UpdateParams) (service.Task, error) {
	body := map[string]any{}
	if params.Title != nil {
		body["title"] = *params.Title
	}
	if params.Description != nil {
		body["description"] = *params.Description
	}
	if params.IsDone != nil {
		body["is_done"] = *params.IsDone
	}

	var resp wireTask
	if err := c.do(ctx, http.MethodPatch, nil, body, &resp, "v1", "tasks", idSegment(id)); err != nil {
		return service.Task{}, err
	}
	return resp.task(), nil
}

// ToggleDone flips the completion flag of a task.
func (c *Client) ToggleDone(ctx context.Context, id int64) (service.Task, error) {
	var resp wireTask
	if err := c.do(ctx, http.MethodPatch, nil, nil, &resp, "v1", "tasks", idSegment(id), "toggle"); err != nil {
		return service.Task{}, err
	}
	return resp.task(), nil
}

// Delete deletes a task.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, nil, nil, nil, "v1", "tasks", idSegment(id))
}

func idSegment(id int64) string {
	return strconv.FormatInt(id, 10)
}

// do sends one request and decodes the JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method string, query url.Values, body, out any, path ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL.JoinPath(path...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	log := logging.FromContext(ctx)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("store request failed",
			"method", method, "path", u.Path, "request_id", requestID, "error", err)
		return wrapError(err)
	}
	defer resp.Body.Close()

	log.Debug("store request",
		"method", method,
		"path", u.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
