package research

import (
	"context"
	"errors"
	"testing"

	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/schema"
	"github.com/user/sparring/pkg/llm"
)

type fakeCaller struct {
	content string
	err     error
	lastReq *llm.Request
}

func (f *fakeCaller) Complete(_ context.Context, _ costs.Track, req *llm.Request) (*llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func TestExtractCitations(t *testing.T) {
	caller := &fakeCaller{content: `{"articles":[
		{"title":"Grid study","url":"https://journal.org/grid","summary":"a study","keyFindings":"costs fell 40%","source":"Energy Journal","publishedDate":"2025-11-01"},
		{"title":"No source name","url":"https://www.blog.example/post","summary":"s"}
	]}`}

	articles, err := ExtractCitations(context.Background(), caller, "gpt-test", costs.Track{}, "the report text")
	if err != nil {
		t.Fatalf("ExtractCitations failed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].Source != "Energy Journal" || articles[0].Content != "costs fell 40%" {
		t.Errorf("unexpected mapping: %+v", articles[0])
	}
	// Missing source name falls back to the URL host.
	if articles[1].Source != "blog.example" {
		t.Errorf("expected hostname fallback, got %q", articles[1].Source)
	}

	req := caller.lastReq
	if req.ResponseFormat == nil || req.ResponseFormat.JSONSchema.Name != "article_extraction" {
		t.Error("expected article_extraction schema on request")
	}
	if len(req.Tools) != 1 || req.Tools[0].Type != "web_search" {
		t.Errorf("expected web_search tool attached, got %+v", req.Tools)
	}
}

func TestExtractCitationsMalformed(t *testing.T) {
	caller := &fakeCaller{content: "not json"}
	_, err := ExtractCitations(context.Background(), caller, "gpt-test", costs.Track{}, "report")
	var malformed *schema.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}
