package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/sparring/pkg/llm"
)

const (
	defaultMaxRetries = 3
	maxErrorBodyChars = 500
)

// Client implements the llm.Provider interface for OpenAI-compatible chat
// completion gateways. Rate-limited requests (HTTP 429) and transport
// failures are retried with exponential backoff (2^attempt seconds); any
// other non-2xx response fails immediately.
type Client struct {
	config     *llm.Config
	httpClient *http.Client
	maxRetries int

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// New creates a new OpenAI-compatible client with the given configuration.
func New(config *llm.Config) *Client {
	retries := config.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		maxRetries: retries,
		sleep:      time.Sleep,
	}
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []llm.Message       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *llm.ResponseFormat `json:"response_format,omitempty"`
	Tools          []llm.Tool          `json:"tools,omitempty"`
}

// chatResponse is the chat completions response body.
type chatResponse struct {
	Model   string         `json:"model"`
	Choices []choice       `json:"choices"`
	Usage   *responseUsage `json:"usage"`
}

type choice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type responseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// backoff returns the delay before retry number n (1-indexed): 2^n seconds.
func backoff(n int) time.Duration {
	return time.Duration(1<<uint(n)) * time.Second
}

// Complete sends a chat completion request and returns the full response.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if c.config.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	body, err := json.Marshal(chatRequest{
		Model:          model,
		Messages:       req.Messages,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: req.ResponseFormat,
		Tools:          req.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt >= c.maxRetries {
			return nil, lastErr
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		c.sleep(backoff(attempt + 1))
	}
}

// rateLimitError marks an HTTP 429 response as retryable.
type rateLimitError struct{ body string }

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (status 429): %s", e.body)
}

// transportError marks a network-level failure as retryable.
type transportError struct{ err error }

func (e *transportError) Error() string { return fmt.Sprintf("sending request: %v", e.err) }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	switch err.(type) {
	case *rateLimitError, *transportError:
		return true
	}
	return false
}

// send performs one HTTP round trip and parses the response.
func (c *Client) send(ctx context.Context, body []byte) (*llm.Response, error) {
	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{body: truncate(string(respBody), maxErrorBodyChars)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), maxErrorBodyChars))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	out := &llm.Response{
		Content: chatResp.Choices[0].Message.Content,
		Model:   chatResp.Model,
	}
	if chatResp.Usage != nil {
		out.Usage = &llm.Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:  chatResp.Usage.TotalTokens,
		}
	}
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
