package research

import (
	"context"
	"fmt"

	"github.com/user/sparring/internal/types"
)

// refreshLimits maps research intensity to how many articles a refresh
// search fetches. Unknown intensities get the basic limit.
var refreshLimits = map[string]int{
	"aggressive": 5,
	"deep":       10,
}

const defaultRefreshLimit = 3

// Refresher re-runs a topic search for a subject and appends the results as
// a new research batch. The scheduler uses it to keep long-lived subjects
// from arguing off stale material.
type Refresher struct {
	search *SearchClient
	store  types.ResearchStore
}

func NewRefresher(search *SearchClient, store types.ResearchStore) *Refresher {
	return &Refresher{search: search, store: store}
}

// Refresh searches for the subject's topic and appends a fresh batch. An
// empty result set appends nothing so the previous batch stays latest.
func (r *Refresher) Refresh(ctx context.Context, subject *types.Subject) error {
	limit, ok := refreshLimits[subject.ResearchIntensity]
	if !ok {
		limit = defaultRefreshLimit
	}

	query := subject.Topic
	if subject.Position != "" {
		query = subject.Topic + " " + subject.Position
	}

	articles, err := r.search.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("refresh search: %w", err)
	}
	if len(articles) == 0 {
		return nil
	}

	return r.store.AppendBatch(ctx, &types.ResearchBatch{
		ID:        types.NewBatchID(),
		SubjectID: subject.ID,
		Query:     query,
		Articles:  articles,
	})
}
