// Package courierd is a minimal Go client for the courierd notification API.
// It authenticates with an API key and surfaces the server's stable error
// codes as typed errors.
package courierd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrUnauthorized covers missing, malformed, unknown, and expired keys.
	ErrUnauthorized = errors.New("courierd: unauthorized")
	// ErrForbidden means the key lacks the scope the operation requires.
	ErrForbidden = errors.New("courierd: insufficient scope")
	// ErrRateLimited means the key is over its quota.
	ErrRateLimited = errors.New("courierd: rate limit exceeded")
)

// Client talks to one courierd deployment.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given base URL and API key.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notification is a delivery request.
type Notification struct {
	Channel   string            `json:"channel"`
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SubmitResult reports an accepted notification.
type SubmitResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// RateLimitInfo carries the quota headers of the last response.
type RateLimitInfo struct {
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Submit sends a notification for delivery. On quota denial the returned
// RateLimitInfo describes the exceeded window.
func (c *Client) Submit(ctx context.Context, n *Notification) (*SubmitResult, *RateLimitInfo, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return nil, nil, fmt.Errorf("courierd: encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	rate := parseRateLimit(resp.Header)

	if resp.StatusCode == http.StatusAccepted {
		var result SubmitResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, rate, fmt.Errorf("courierd: decode response: %w", err)
		}
		return &result, rate, nil
	}

	var apiErr apiError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusBadRequest:
		return nil, rate, fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error)
	case http.StatusForbidden:
		return nil, rate, fmt.Errorf("%w: %s", ErrForbidden, apiErr.Error)
	case http.StatusTooManyRequests:
		return nil, rate, fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error)
	default:
		return nil, rate, fmt.Errorf("courierd: unexpected status %d: %s", resp.StatusCode, apiErr.Error)
	}
}

func parseRateLimit(h http.Header) *RateLimitInfo {
	limitStr := h.Get("X-RateLimit-Limit")
	if limitStr == "" {
		return nil
	}
	info := &RateLimitInfo{}
	info.Limit, _ = strconv.ParseInt(limitStr, 10, 64)
	info.Remaining, _ = strconv.ParseInt(h.Get("X-RateLimit-Remaining"), 10, 64)
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		info.ResetAt = time.Unix(reset, 0)
	}
	return info
}
