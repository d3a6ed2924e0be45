package state

import (
	"context"
	"testing"

	"github.com/user/sparring/internal/types"
)

func TestProgressDefaultIdle(t *testing.T) {
	store := NewProgressStore(t.TempDir())

	rec, err := store.Get(context.Background(), "subj-1", types.PipelinePrimary)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Status != types.StageIdle {
		t.Errorf("expected idle status for unseen subject, got %s", rec.Status)
	}
}

func TestProgressSetAndGet(t *testing.T) {
	store := NewProgressStore(t.TempDir())
	ctx := context.Background()

	rec := &types.ProgressRecord{
		SubjectID: "subj-1",
		Kind:      types.PipelinePrimary,
		Status:    types.StageGenerating,
		Completed: []types.Stage{types.StageResearching, types.StageExtracting, types.StageSynthesizing},
	}
	if err := store.Set(ctx, rec); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "subj-1", types.PipelinePrimary)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != types.StageGenerating {
		t.Errorf("expected generating, got %s", got.Status)
	}
	if len(got.Completed) != 3 {
		t.Errorf("expected 3 completed stages, got %d", len(got.Completed))
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestProgressKindsIndependent(t *testing.T) {
	store := NewProgressStore(t.TempDir())
	ctx := context.Background()

	if err := store.Set(ctx, &types.ProgressRecord{
		SubjectID: "subj-1",
		Kind:      types.PipelinePrimary,
		Status:    types.StageError,
		Error:     "researching: boom",
	}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	generic, err := store.Get(ctx, "subj-1", types.PipelineGeneric)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if generic.Status != types.StageIdle {
		t.Errorf("generic pipeline progress should be independent, got %s", generic.Status)
	}

	primary, err := store.Get(ctx, "subj-1", types.PipelinePrimary)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if primary.Error != "researching: boom" {
		t.Errorf("expected error message preserved, got %q", primary.Error)
	}
}
