package state

import (
	"context"
	"testing"
	"time"

	"github.com/user/sparring/internal/types"
)

func TestSessionCreateAndExchanges(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	ctx := context.Background()

	session := &types.Session{SubjectID: "subj-1", UserID: "user-1", ScenarioType: "debate"}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected session id to be assigned")
	}

	turns := []*types.Exchange{
		{Speaker: "user", Text: "opening point"},
		{Speaker: "assistant", Text: "rebuttal"},
		{Speaker: "user", Text: "counter"},
	}
	for _, ex := range turns {
		if err := store.AppendExchange(ctx, session.ID, ex); err != nil {
			t.Fatalf("AppendExchange failed: %v", err)
		}
	}

	got, err := store.Exchanges(ctx, session.ID)
	if err != nil {
		t.Fatalf("Exchanges failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 exchanges, got %d", len(got))
	}
	if got[1].Speaker != "assistant" || got[1].Text != "rebuttal" {
		t.Errorf("unexpected second exchange: %+v", got[1])
	}
}

func TestSessionAppendExchangeMissingSession(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	err := store.AppendExchange(context.Background(), "missing", &types.Exchange{Speaker: "user", Text: "x"})
	if err == nil {
		t.Error("expected error appending to missing session")
	}
}

func TestSessionUpdateFinalize(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	ctx := context.Background()

	session := &types.Session{SubjectID: "subj-1", UserID: "user-1"}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := store.Update(ctx, session.ID, func(s *types.Session) error {
		s.DurationSec = 42
		s.Finalized = true
		now := time.Now()
		s.EndedAt = &now
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Finalized || got.DurationSec != 42 {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestSessionExchangesEmpty(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	ctx := context.Background()

	session := &types.Session{SubjectID: "subj-1"}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Exchanges(ctx, session.ID)
	if err != nil {
		t.Fatalf("Exchanges failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no exchanges, got %d", len(got))
	}
}
