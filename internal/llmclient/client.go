// Package llmclient is a stripped single-turn client for the Anthropic
// Messages API, shared by the async validator and learning extractor when
// ANTHROPIC_API_KEY is present. It deliberately supports neither streaming
// nor tool use: both callers send one pinned prompt at temperature 0 and
// parse a JSON object out of the single text response.
//
// Configuration:
//   - ANTHROPIC_API_KEY: required to construct a client.
//   - ANTHROPIC_MODEL: optional. Defaults to claude-3-5-sonnet-20241022.
//   - ANTHROPIC_BASE_URL: optional override, for proxies and tests.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	DefaultBaseURL    = "https://api.anthropic.com/v1"
	DefaultModel      = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens  = 1024
	DefaultAPIVersion = "2023-06-01"
	DefaultTimeout    = 60 * time.Second
)

// Client is a minimal single-turn Anthropic Messages API client.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type response struct {
	Content []contentBlock `json:"content"`
}

// New creates a new client. apiKey must be non-empty; callers decide whether
// to fall back to a local heuristic when it is not.
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = DefaultModel
	}

	baseURL := os.Getenv("ANTHROPIC_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:    apiKey,
		model:     model,
		maxTokens: DefaultMaxTokens,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// SetBaseURL overrides the API base URL. Used in tests.
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

// Complete sends a single user turn with an optional system prompt at
// temperature 0 and returns the concatenated text of the response.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := request{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: 0,
		System:      system,
		Messages: []message{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: prompt}}},
		},
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", DefaultAPIVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", &TransportError{Err: fmt.Errorf("api error %d: %s", httpResp.StatusCode, string(body))}
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &MalformedResponseError{Err: err}
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// TransportError wraps a network or protocol error reaching the backend.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return fmt.Sprintf("llm transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError wraps a response that could not be parsed into the
// expected shape. Treated the same as a transport error by callers.
type MalformedResponseError struct{ Err error }

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("llm malformed response: %v", e.Err)
}
func (e *MalformedResponseError) Unwrap() error { return e.Err }
