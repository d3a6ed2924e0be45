package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrTimeout is returned when a background research job does not finish
// within the polling window.
var ErrTimeout = errors.New("research job timed out")

const (
	defaultPollInterval = 10 * time.Second
	defaultMaxPolls     = 120 // 20 minutes at the default interval
)

// AgentClient submits deep-research jobs to an OpenAI-compatible agents
// endpoint and polls them to completion.
type AgentClient struct {
	apiKey  string
	baseURL string
	agentID string
	client  *http.Client

	pollInterval time.Duration
	maxPolls     int
}

// NewAgentClient creates an AgentClient for the given agent id.
func NewAgentClient(baseURL, apiKey, agentID string) *AgentClient {
	return &AgentClient{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		agentID:      agentID,
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
}

type submitRequest struct {
	Input      string `json:"input"`
	AgentID    string `json:"agent_id"`
	Background bool   `json:"background"`
}

type interaction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output string `json:"output"`
	Error  string `json:"error"`
}

// Research submits the prompt as a background job and polls until it
// completes. Returns the agent's free-text report. The context is checked on
// every poll iteration so an abandoned pipeline stops promptly.
func (a *AgentClient) Research(ctx context.Context, prompt string) (string, error) {
	id, err := a.submit(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("submit research job: %w", err)
	}

	for i := 0; i < a.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.pollInterval):
		}

		job, err := a.poll(ctx, id)
		if err != nil {
			return "", fmt.Errorf("poll research job %s: %w", id, err)
		}
		switch job.Status {
		case "completed":
			return job.Output, nil
		case "failed", "cancelled":
			return "", fmt.Errorf("research job %s %s: %s", id, job.Status, job.Error)
		}
	}
	return "", ErrTimeout
}

func (a *AgentClient) submit(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(submitRequest{Input: prompt, AgentID: a.agentID, Background: true})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var job interaction
	if err := a.do(ctx, http.MethodPost, "/v1/interactions", body, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", fmt.Errorf("no interaction id in response")
	}
	return job.ID, nil
}

func (a *AgentClient) poll(ctx context.Context, id string) (*interaction, error) {
	var job interaction
	if err := a.do(ctx, http.MethodGet, "/v1/interactions/"+id, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (a *AgentClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("agent API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	return json.Unmarshal(respBody, out)
}
