package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the default API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// defaultTimeout bounds a single response-creation request. Tool-calling
	// turns with large contexts can be slow, so this is deliberately generous.
	defaultTimeout = 120 * time.Second
)

// Client calls the Responses API over HTTP. It holds no conversation state;
// callers thread the previous-response identifier themselves. Construct
// instances with [New] and inject them where a conversation loop is built —
// there is no package-level shared client.
//
// Client is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithHTTPClient replaces the underlying HTTP client entirely. Useful for
// tests and custom transports; overrides WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New constructs a Client for the given API key and model. An empty model
// falls back to [DefaultModel].
func New(apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("chat: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Model returns the model identifier the client sends with each request.
func (c *Client) Model() string { return c.model }

// CreateResponse posts req to the /responses endpoint and decodes the result.
// If req.Model is empty the client's configured model is used.
//
// Failures are reported in three distinct shapes: a *[APIError] when the
// server answered non-200 with a structured error body, a wrapped transport
// error when the request never completed, and a wrapped decode error when the
// 200 body was malformed.
func (c *Client) CreateResponse(ctx context.Context, req *Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("chat: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat: http request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseError(httpResp)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("chat: decode response: %w", err)
	}
	return &resp, nil
}
