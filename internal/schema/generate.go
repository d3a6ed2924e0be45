// internal/schema/generate.go
package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/pkg/llm"
)

// Caller is the cost-tracked completion interface the generator runs on.
// *costs.Tracker satisfies it.
type Caller interface {
	Complete(ctx context.Context, track costs.Track, req *llm.Request) (*llm.Response, error)
}

// MalformedResponseError indicates the model returned text that could not be
// parsed against the requested schema. For schema-enforced calls this is a
// hard error; there is no fallback extraction.
type MalformedResponseError struct {
	Schema  string
	Snippet string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v (got: %s)", e.Schema, e.Err, e.Snippet)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Generator issues schema-constrained generation calls and parses the results.
type Generator struct {
	caller Caller
	model  string
}

// NewGenerator creates a Generator that sends requests for the given model.
func NewGenerator(caller Caller, model string) *Generator {
	return &Generator{caller: caller, model: model}
}

// Generate sends prompt with def attached as a json_schema response format
// and unmarshals the response content into out.
func (g *Generator) Generate(ctx context.Context, track costs.Track, prompt string, def Definition, out any) error {
	resp, err := g.caller.Complete(ctx, track, &llm.Request{
		Model:          g.model,
		Messages:       []llm.Message{{Role: "user", Content: prompt}},
		ResponseFormat: llm.SchemaFormat(def.Name, def.Strict, def.Schema),
	})
	if err != nil {
		return fmt.Errorf("%s generation: %w", def.Name, err)
	}

	if err := json.Unmarshal([]byte(resp.Content), out); err != nil {
		return &MalformedResponseError{
			Schema:  def.Name,
			Snippet: snippet(resp.Content),
			Err:     err,
		}
	}
	return nil
}

// GenerateLoose sends prompt without schema enforcement and recovers the
// first JSON object from the response. Missing fields in out keep their zero
// values; callers default them rather than failing.
func (g *Generator) GenerateLoose(ctx context.Context, track costs.Track, prompt string, maxTokens int, out any) error {
	resp, err := g.caller.Complete(ctx, track, &llm.Request{
		Model:     g.model,
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return fmt.Errorf("loose generation: %w", err)
	}

	raw, ok := ExtractJSONObject(resp.Content)
	if !ok {
		return &MalformedResponseError{
			Schema:  "loose",
			Snippet: snippet(resp.Content),
			Err:     fmt.Errorf("no JSON object in response"),
		}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &MalformedResponseError{Schema: "loose", Snippet: snippet(raw), Err: err}
	}
	return nil
}

func snippet(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
