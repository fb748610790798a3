// Package platform calls the hosted platform functions that perform business
// actions and deliver notifications on behalf of workflow steps.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/siteflow/pkg/protocol"
)

const (
	defaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of a failed response ends up in the error.
	maxErrorBody = 4 << 10
)

// ErrMissingBaseURL is returned when a client is built without an endpoint.
var ErrMissingBaseURL = errors.New("platform base URL is required")

// StatusError reports a non-2xx response. Its message carries the status
// code so retry policies can match it.
type StatusError struct {
	Function   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d %s: %s", e.Function, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Client posts JSON to a platform function endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default client, e.g. to change the timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.http = client }
}

func NewClient(logger *slog.Logger, baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.With("module", "platform_client"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) invoke(ctx context.Context, function string, payload any) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", function, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+function, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", function, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", function, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		c.logger.WarnContext(ctx, "Platform function failed", "function", function, "status", resp.StatusCode)

		return nil, &StatusError{Function: function, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}

	var result any

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}

		return nil, fmt.Errorf("failed to decode %s response: %w", function, err)
	}

	return result, nil
}

var (
	_ protocol.ActionExecutor         = (*ActionClient)(nil)
	_ protocol.NotificationDispatcher = (*NotificationClient)(nil)
)
