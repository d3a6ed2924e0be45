package prep

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/sparring/internal/types"
)

// Budgeter truncates research material to fit the generation prompts'
// context window.
type Budgeter struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
}

// NewBudgeter creates a Budgeter for the given model. Unknown models fall
// back to the cl100k_base encoding.
func NewBudgeter(model string, maxTokens int) (*Budgeter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Budgeter{tokenizer: enc, maxTokens: maxTokens}, nil
}

// Truncate cuts text at the token budget, keeping whole tokens.
func (b *Budgeter) Truncate(text string, budget int) string {
	tokens := b.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return b.tokenizer.Decode(tokens[:budget])
}

// ResearchExcerpt formats a research batch into the evidence block shared by
// all generation prompts, spending the token budget evenly across articles so
// one long scrape cannot crowd out the rest.
func (b *Budgeter) ResearchExcerpt(batch *types.ResearchBatch) string {
	if batch == nil || len(batch.Articles) == 0 {
		return "No research material is available. Work from general knowledge and say so when a claim needs verification."
	}

	perArticle := b.maxTokens / len(batch.Articles)
	if perArticle < 100 {
		perArticle = 100
	}

	var sb strings.Builder
	for i, a := range batch.Articles {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", i+1, a.Title, a.Source)
		if a.Summary != "" {
			sb.WriteString(a.Summary + "\n")
		}
		if a.Content != "" {
			sb.WriteString(b.Truncate(a.Content, perArticle) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
