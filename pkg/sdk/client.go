package flagdeck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is the flagdeck SDK entry point. Safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	apiKey  string
	obs     *observer
}

// New creates a Client for the API served at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if baseURL == "" {
		return nil, errors.New("flagdeck: base URL required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("flagdeck: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("flagdeck: unsupported scheme %q", u.Scheme)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{baseURL: u, http: hc, apiKey: cfg.apiKey, obs: obs}, nil
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status   string            // "ok", "degraded"
	Checks   map[string]string // component -> "ok"/"error"/"empty"
	Records  int
	Sessions int
}

// Health reports server health. A degraded server is not an error.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	var w wireHealth
	resp, err := c.send(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return HealthStatus{}, fmt.Errorf("flagdeck: decode health: %w", err)
	}
	return HealthStatus{Status: w.Status, Checks: w.Checks, Records: w.Records, Sessions: w.Sessions}, nil
}

// CreateSession opens a new review session.
func (c *Client) CreateSession(ctx context.Context) (sess *Session, err error) {
	start := time.Now()
	defer func() { c.obs.observe("create_session", start, err) }()

	var w wireSession
	if err := c.doJSON(ctx, http.MethodPost, "/sessions", nil, &w); err != nil {
		return nil, err
	}
	return &Session{id: w.ID, client: c}, nil
}

// Session returns a handle for an existing session id. No request is made.
func (c *Client) Session(id string) *Session {
	return &Session{id: id, client: c}
}

// doJSON sends body as JSON and decodes a 2xx response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("flagdeck: decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request. Non-2xx responses other than 503 on /health become *APIError.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("flagdeck: encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("flagdeck: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flagdeck: %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	if path == "/health" && resp.StatusCode == http.StatusServiceUnavailable {
		return resp, nil
	}

	defer func() { _ = resp.Body.Close() }()
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var w wireError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&w); err == nil {
		apiErr.Code = w.Code
		apiErr.Message = w.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return nil, apiErr
}
