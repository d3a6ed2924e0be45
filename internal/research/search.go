// Package research holds the adapters for the external research services:
// the search/scrape API, the deep-research background-job API, and the
// search-grounded citation extraction call.
package research

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

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/sparring/internal/types"
)

const maxArticleChars = 50000

// SearchClient talks to a Firecrawl-compatible search+scrape endpoint.
type SearchClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSearchClient creates a SearchClient against the given base URL,
// e.g. "https://api.firecrawl.dev".
func NewSearchClient(baseURL, apiKey string) *SearchClient {
	return &SearchClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type searchRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type searchResponse struct {
	Success bool           `json:"success"`
	Data    []searchResult `json:"data"`
}

type searchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Markdown    string `json:"markdown"`
	HTML        string `json:"html"`
	Metadata    struct {
		PublishedDate string `json:"publishedDate"`
	} `json:"metadata"`
}

// Search runs one search-and-scrape round trip and maps the results into
// research articles. Results whose content arrived as HTML are converted to
// markdown before storage.
func (s *SearchClient) Search(ctx context.Context, query string, limit int) ([]types.ResearchArticle, error) {
	if limit <= 0 {
		limit = 5
	}

	body, err := json.Marshal(searchRequest{
		Query:         query,
		Limit:         limit,
		ScrapeOptions: scrapeOptions{Formats: []string{"markdown"}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	articles := make([]types.ResearchArticle, 0, len(parsed.Data))
	for _, r := range parsed.Data {
		content := r.Markdown
		if content == "" && r.HTML != "" {
			md, err := htmltomarkdown.ConvertString(r.HTML)
			if err == nil {
				content = md
			}
		}
		if len(content) > maxArticleChars {
			content = content[:maxArticleChars] + "\n\n[Content truncated]"
		}
		articles = append(articles, types.ResearchArticle{
			Title:         r.Title,
			URL:           r.URL,
			Content:       content,
			Summary:       r.Description,
			Source:        hostname(r.URL),
			PublishedDate: r.Metadata.PublishedDate,
		})
	}
	return articles, nil
}

// hostname extracts the host for display as the article source. Falls back
// to the raw URL when parsing fails.
func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
