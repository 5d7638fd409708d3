package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventreview/internal/metrics"
	"eventreview/internal/models"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const userAgent = "eventreview/1.0"

// customTransport stamps every backend request with identifying headers.
type customTransport struct {
	Transport http.RoundTripper
}

// RoundTrip adds the user agent and a request id to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.New().String())
	}
	return t.Transport.RoundTrip(req)
}

// Client talks to the event review backend's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a backend client rooted at baseURL. When token is not
// empty every request carries it as an OAuth2 bearer token.
func NewClient(logger *slog.Logger, baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	httpClient := &http.Client{Transport: &customTransport{Transport: http.DefaultTransport}}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(u.String(), "/"),
		logger:     logger,
	}, nil
}

// ListEvents fetches the full event collection.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.do(ctx, "list_events", http.MethodGet, "/api/events", nil, &events); err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched events from backend", "count", len(events))
	return events, nil
}

// GetStats fetches the summary object.
func (c *Client) GetStats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	if err := c.do(ctx, "get_stats", http.MethodGet, "/api/events/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// PatchEvent applies a partial update to the occurrence named by req.RecurrenceID.
func (c *Client) PatchEvent(ctx context.Context, uid string, req PatchRequest) error {
	return c.do(ctx, "patch_event", http.MethodPatch, eventPath(uid), req, nil)
}

// UpdateStatus sets the tri-state review status of every occurrence of uid.
func (c *Client) UpdateStatus(ctx context.Context, uid string, status models.ReviewStatus) error {
	return c.do(ctx, "update_status", http.MethodPut, eventPath(uid)+"/status", StatusRequest{Status: WireStatus(status)}, nil)
}

// SetOverlay writes a field override.
func (c *Client) SetOverlay(ctx context.Context, uid string, req OverlayRequest) error {
	return c.do(ctx, "set_overlay", http.MethodPost, eventPath(uid)+"/overlay", req, nil)
}

// DeleteOverlay removes a field override.
func (c *Client) DeleteOverlay(ctx context.Context, uid, field string) error {
	return c.do(ctx, "delete_overlay", http.MethodDelete, eventPath(uid)+"/overlay/"+url.PathEscape(field), nil, nil)
}

func eventPath(uid string) string {
	return "/api/events/" + url.PathEscape(uid)
}

// do sends one JSON request. Any non-2xx status is returned as *StatusError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()
	status := 0
	defer func() { metrics.ObserveBackendRequest(op, status, start) }()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Sending backend request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
