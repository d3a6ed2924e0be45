package state

import (
	"context"
	"testing"

	"github.com/user/sparring/internal/types"
)

func TestCostAppendAndList(t *testing.T) {
	store := NewCostStore(t.TempDir())
	ctx := context.Background()

	records := []*types.CostRecord{
		{Service: "openai", CostCents: 3, Phase: types.PhasePrep, UserID: "user-1"},
		{Service: "openai", CostCents: 7, Phase: types.PhaseResearch, UserID: "user-1"},
		{Service: "firecrawl", CostCents: 2, Phase: types.PhaseResearch, UserID: "user-2"},
	}
	for _, rec := range records {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	mine, err := store.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 records for user-1, got %d", len(mine))
	}
	if mine[0].ID == "" || mine[0].CreatedAt.IsZero() {
		t.Error("expected id and timestamp assigned on append")
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records total, got %d", len(all))
	}
}

func TestCostListEmpty(t *testing.T) {
	store := NewCostStore(t.TempDir())
	records, err := store.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}
