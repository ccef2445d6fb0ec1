package overlay

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/teslashibe/go-balltrack/internal/httpc"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
)

// Client calls the overlay HTTP API of a running tracker.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL, e.g.
// "http://localhost:8090".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpc.Client,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// Status fetches the tracker status.
func (c *Client) Status(ctx context.Context) (tracking.Status, error) {
	var st tracking.Status
	err := httpc.GetJSON(ctx, c.http, c.url("/api/status"), &st)
	return st, err
}

// Tuning fetches the current tuning parameters.
func (c *Client) Tuning(ctx context.Context) (tracking.TuningParams, error) {
	var p tracking.TuningParams
	err := httpc.GetJSON(ctx, c.http, c.url("/api/tuning"), &p)
	return p, err
}

// SetTuning applies the non-zero fields of p and returns the result.
func (c *Client) SetTuning(ctx context.Context, p tracking.TuningParams) (tracking.TuningParams, error) {
	var out tracking.TuningParams
	err := httpc.PostJSON(ctx, c.http, c.url("/api/tuning"), p, &out)
	return out, err
}

// SetBackend switches the active backend.
func (c *Client) SetBackend(ctx context.Context, b tracking.Backend) error {
	return httpc.PostJSON(ctx, c.http, c.url("/api/backend/"+url.PathEscape(string(b))), nil, nil)
}

// Reset clears both backends.
func (c *Client) Reset(ctx context.Context) error {
	return httpc.PostJSON(ctx, c.http, c.url("/api/reset"), nil, nil)
}
