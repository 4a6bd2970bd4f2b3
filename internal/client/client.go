// Package client implements the copy engine's repository over syncpd's HTTP
// routes.
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

	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/api"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/logging"
)

// StatusError is a non-2xx response that maps to no domain error
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("syncpd returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("syncpd returned %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client
type Options struct {
	Endpoint   string
	Token      string
	Principal  string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// Client talks to one syncpd endpoint
type Client struct {
	base      string
	token     string
	principal string
	http      *http.Client
	log       *zap.Logger
}

// New creates a client for opts.Endpoint
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.NewValueError("invalid endpoint %q: want http(s)://host[:port]", opts.Endpoint)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		base:      strings.TrimRight(opts.Endpoint, "/"),
		token:     opts.Token,
		principal: opts.Principal,
		http:      httpClient,
		log:       logging.OrNop(opts.Log),
	}, nil
}

// As returns a client acting for principal
func (c *Client) As(principal string) *Client {
	clone := *c
	clone.principal = principal
	return &clone
}

// call posts in to route and decodes the response into out
func (c *Client) call(ctx context.Context, route string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("failed to encode %s request: %w", route, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+route, &body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", route, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.principal != "" {
		req.Header.Set(api.HeaderPrincipal, c.principal)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", route, err)
	}
	defer resp.Body.Close()

	c.log.Debug("syncpd call", zap.String(logging.FieldRoute, route), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var body api.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if err := body.Err(); err != nil {
		return err
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: body.Message}
}

// Health checks that the endpoint is reachable
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+api.RouteHealth, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}
