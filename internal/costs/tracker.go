// internal/costs/tracker.go
package costs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/sparring/internal/types"
	"github.com/user/sparring/pkg/llm"
)

// Track carries the attribution context persisted with each cost record.
type Track struct {
	UserID    string
	Phase     types.CostPhase
	SubjectID types.SubjectID
	SessionID types.SessionID
}

// Tracker wraps an llm.Provider with best-effort cost accounting. Callers
// receive exactly the outcome of the underlying call; usage reading, cost
// computation, and record persistence never fail the business call.
type Tracker struct {
	provider llm.Provider
	store    types.CostStore
	pricing  Pricing
	service  string
}

// NewTracker creates a Tracker around the given provider. The pricing table
// is injected here so tests can swap rates without process-wide mutation.
func NewTracker(provider llm.Provider, store types.CostStore, pricing Pricing) *Tracker {
	return &Tracker{
		provider: provider,
		store:    store,
		pricing:  pricing,
		service:  "openai",
	}
}

// Complete delegates to the underlying provider and records the estimated
// cost of the call on success.
func (t *Tracker) Complete(ctx context.Context, track Track, req *llm.Request) (*llm.Response, error) {
	resp, err := t.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	t.record(ctx, track, req, resp)
	return resp, nil
}

// record persists one cost entry. Some providers omit usage; in that case the
// call is returned untracked rather than guessed at.
func (t *Tracker) record(ctx context.Context, track Track, req *llm.Request, resp *llm.Response) {
	if resp.Usage == nil {
		slog.Debug("no usage in response, skipping cost record", "phase", track.Phase)
		return
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	cents := t.pricing.Cost(model, *resp.Usage)

	err := t.store.Append(ctx, &types.CostRecord{
		Service:   t.service,
		CostCents: cents,
		Phase:     track.Phase,
		UserID:    track.UserID,
		SubjectID: track.SubjectID,
		SessionID: track.SessionID,
		Details: fmt.Sprintf("model=%s in=%d out=%d",
			model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
	})
	if err != nil {
		slog.Error("cost record write failed", "phase", track.Phase, "user_id", track.UserID, "error", err)
	}
}
