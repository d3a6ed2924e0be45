package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/schema"
	"github.com/user/sparring/internal/types"
	"github.com/user/sparring/pkg/llm"
)

const extractPrompt = `Extract every source cited in the research report below into the article list.
For each source include the title, URL, a one-paragraph summary, the key findings relevant to the topic, the publication name, and the publication date if stated.
Use the web search tool to fill in URLs or publication dates the report omits. Do not invent sources that the report does not mention.

Report:

%s`

// ExtractCitations turns a free-text research report into a verifiable
// article list with one schema-constrained call. A web search tool is
// attached so the model can recover URLs the report paraphrased away.
func ExtractCitations(ctx context.Context, caller schema.Caller, model string, track costs.Track, report string) ([]types.ResearchArticle, error) {
	resp, err := caller.Complete(ctx, track, &llm.Request{
		Model:          model,
		Messages:       []llm.Message{{Role: "user", Content: fmt.Sprintf(extractPrompt, report)}},
		ResponseFormat: llm.SchemaFormat(schema.Articles.Name, schema.Articles.Strict, schema.Articles.Schema),
		Tools:          []llm.Tool{{Type: "web_search"}},
	})
	if err != nil {
		return nil, fmt.Errorf("citation extraction: %w", err)
	}

	var payload schema.ArticlesPayload
	if err := json.Unmarshal([]byte(resp.Content), &payload); err != nil {
		return nil, &schema.MalformedResponseError{
			Schema:  schema.Articles.Name,
			Snippet: truncate(resp.Content, 200),
			Err:     err,
		}
	}

	articles := make([]types.ResearchArticle, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		articles = append(articles, types.ResearchArticle{
			Title:         a.Title,
			URL:           a.URL,
			Content:       a.KeyFindings,
			Summary:       a.Summary,
			Source:        sourceOrHost(a.Source, a.URL),
			PublishedDate: a.PublishedDate,
		})
	}
	return articles, nil
}

func sourceOrHost(source, url string) string {
	if source != "" {
		return source
	}
	return hostname(url)
}

// Extractor binds ExtractCitations to a caller and model so pipelines can
// depend on a single-method value.
type Extractor struct {
	caller schema.Caller
	model  string
}

// NewExtractor creates an Extractor issuing calls against the given model.
func NewExtractor(caller schema.Caller, model string) *Extractor {
	return &Extractor{caller: caller, model: model}
}

// Extract turns a free-text research report into an article list.
func (e *Extractor) Extract(ctx context.Context, track costs.Track, report string) ([]types.ResearchArticle, error) {
	return ExtractCitations(ctx, e.caller, e.model, track, report)
}
