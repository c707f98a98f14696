// Package client is the typed HTTP client for the daemon's loopback API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rafabd1/Paleta/internal/clarify"
	"github.com/rafabd1/Paleta/internal/engine"
	"github.com/rafabd1/Paleta/internal/suggest"
	"github.com/rafabd1/Paleta/internal/types"
)

// APIError is a non-2xx reply from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

type Client struct {
	base string
	http *http.Client
}

// New creates a client for addr, either "host:port" or a full base URL.
func New(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	// long polls set their own deadline through the request context
	return &Client{base: base, http: &http.Client{Timeout: 45 * time.Second}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return apiError(resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decode %s", path)
}

// apiError maps the daemon's conflict replies back to the sentinels they
// came from.
func apiError(status int, msg string) error {
	if status == http.StatusConflict {
		if msg == "engine busy" {
			return engine.ErrEngineBusy
		}
		if msg == clarify.ErrNoPendingClarification.Error() {
			return clarify.ErrNoPendingClarification
		}
	}
	return &APIError{Status: status, Message: msg}
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) Suggest(ctx context.Context, text string) (suggest.Result, error) {
	var res suggest.Result
	err := c.do(ctx, http.MethodGet, "/suggest", url.Values{"text": {text}}, nil, &res)
	return res, err
}

type accepted struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// Submit sends text for execution. engine.ErrEngineBusy means retry later.
func (c *Client) Submit(ctx context.Context, text string) (string, error) {
	var a accepted
	err := c.do(ctx, http.MethodPost, "/submit", nil, map[string]string{"command": text}, &a)
	return a.ID, err
}

// Resolve answers the pending clarification.
func (c *Client) Resolve(ctx context.Context, r clarify.Resolution) (string, error) {
	var a accepted
	err := c.do(ctx, http.MethodPost, "/clarification", nil, r, &a)
	return a.ID, err
}

type slot struct {
	Available     bool                 `json:"available"`
	Result        *types.Result        `json:"result"`
	Clarification *types.Clarification `json:"clarification"`
}

func waitQuery(wait time.Duration) url.Values {
	if wait <= 0 {
		return nil
	}
	return url.Values{"wait": {wait.String()}}
}

// Result takes the pending result, waiting up to wait for one to arrive.
func (c *Client) Result(ctx context.Context, wait time.Duration) (types.Result, bool, error) {
	var s slot
	if err := c.do(ctx, http.MethodGet, "/results", waitQuery(wait), nil, &s); err != nil {
		return types.Result{}, false, err
	}
	if !s.Available || s.Result == nil {
		return types.Result{}, false, nil
	}
	return *s.Result, true, nil
}

// Clarification takes the pending clarification request, if any.
func (c *Client) Clarification(ctx context.Context, wait time.Duration) (types.Clarification, bool, error) {
	var s slot
	if err := c.do(ctx, http.MethodGet, "/clarification", waitQuery(wait), nil, &s); err != nil {
		return types.Clarification{}, false, err
	}
	if !s.Available || s.Clarification == nil {
		return types.Clarification{}, false, nil
	}
	return *s.Clarification, true, nil
}

// ShowPalette raises the palette flag.
func (c *Client) ShowPalette(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/palette/show", nil, nil, nil)
}

// PaletteRequested observes and lowers the palette flag.
func (c *Client) PaletteRequested(ctx context.Context) (bool, error) {
	var v struct {
		Show bool `json:"show"`
	}
	err := c.do(ctx, http.MethodGet, "/palette", nil, nil, &v)
	return v.Show, err
}

// RequestClose raises the close flag.
func (c *Client) RequestClose(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/close", nil, nil, nil)
}

// CloseRequested observes and lowers the close flag.
func (c *Client) CloseRequested(ctx context.Context) (bool, error) {
	var v struct {
		Close bool `json:"close"`
	}
	err := c.do(ctx, http.MethodGet, "/close", nil, nil, &v)
	return v.Close, err
}
