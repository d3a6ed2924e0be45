package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/types"
	"github.com/user/sparring/pkg/llm"
)

type memSubjectStore struct {
	subjects map[types.SubjectID]*types.Subject
}

func (m *memSubjectStore) Create(_ context.Context, s *types.Subject) error {
	m.subjects[s.ID] = s
	return nil
}

func (m *memSubjectStore) Get(_ context.Context, id types.SubjectID) (*types.Subject, error) {
	s, ok := m.subjects[id]
	if !ok {
		return nil, fmt.Errorf("subject %s not found", id)
	}
	return s, nil
}

func (m *memSubjectStore) List(context.Context) ([]*types.Subject, error) { return nil, nil }

func (m *memSubjectStore) Patch(_ context.Context, id types.SubjectID, apply func(*types.Subject) error) error {
	return apply(m.subjects[id])
}

type memSessionStore struct {
	mu        sync.Mutex
	sessions  map[types.SessionID]*types.Session
	exchanges map[types.SessionID][]*types.Exchange
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions:  make(map[types.SessionID]*types.Session),
		exchanges: make(map[types.SessionID][]*types.Exchange),
	}
}

func (m *memSessionStore) Create(_ context.Context, s *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionStore) Get(_ context.Context, id types.SessionID) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	copied := *s
	return &copied, nil
}

func (m *memSessionStore) List(context.Context) ([]*types.Session, error) { return nil, nil }

func (m *memSessionStore) AppendExchange(_ context.Context, id types.SessionID, e *types.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges[id] = append(m.exchanges[id], e)
	return nil
}

func (m *memSessionStore) Exchanges(_ context.Context, id types.SessionID) ([]*types.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchanges[id], nil
}

func (m *memSessionStore) Update(_ context.Context, id types.SessionID, apply func(*types.Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	return apply(s)
}

// capturingCaller records every request; schema-constrained calls get canned
// analysis JSON, free-form calls get prose.
type capturingCaller struct {
	mu       sync.Mutex
	requests []*llm.Request
	quickErr error
	fullErr  error
}

func (c *capturingCaller) Complete(_ context.Context, _ costs.Track, req *llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)

	if req.ResponseFormat == nil {
		if c.quickErr != nil {
			return nil, c.quickErr
		}
		return &llm.Response{Content: "Strong open, weak close. Slow down next time."}, nil
	}
	if c.fullErr != nil {
		return nil, c.fullErr
	}
	switch req.ResponseFormat.JSONSchema.Name {
	case "debate_analysis":
		return &llm.Response{Content: `{"executiveSummary":"solid","momentAnalysis":[],"techniqueScorecard":[{"technique":"refutation","score":7}],"categoryScores":{"clash":7,"evidence":6,"rhetoric":8,"strategy":7}}`}, nil
	case "generic_analysis":
		return &llm.Response{Content: `{"executiveSummary":"solid","momentAnalysis":[],"skillsAssessment":[{"skill":"rapport","score":8}]}`}, nil
	}
	return nil, fmt.Errorf("unexpected schema %s", req.ResponseFormat.JSONSchema.Name)
}

func (c *capturingCaller) schemaNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var names []string
	for _, r := range c.requests {
		if r.ResponseFormat != nil {
			names = append(names, r.ResponseFormat.JSONSchema.Name)
		}
	}
	return names
}

func setup(t *testing.T, scenarioType string) (*Analyzer, *memSessionStore, *capturingCaller, types.SessionID) {
	t.Helper()
	subject := &types.Subject{
		ID:           types.NewSubjectID(),
		UserID:       "u1",
		Topic:        "Nuclear power",
		Position:     "for",
		ScenarioType: scenarioType,
	}
	subjects := &memSubjectStore{subjects: map[types.SubjectID]*types.Subject{subject.ID: subject}}

	sessions := newMemSessionStore()
	session := &types.Session{
		ID:           types.NewSessionID(),
		SubjectID:    subject.ID,
		UserID:       "u1",
		ScenarioType: scenarioType,
	}
	sessions.Create(context.Background(), session)
	sessions.AppendExchange(context.Background(), session.ID, &types.Exchange{Speaker: "user", Text: "We should build more plants."})
	sessions.AppendExchange(context.Background(), session.ID, &types.Exchange{Speaker: "assistant", Text: "What about the waste?"})

	caller := &capturingCaller{}
	return New(sessions, subjects, caller, "gpt-test", nil), sessions, caller, session.ID
}

func TestRunDebateDispatch(t *testing.T) {
	analyzer, sessions, caller, sessionID := setup(t, "debate")

	if err := analyzer.Run(context.Background(), sessionID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	names := caller.schemaNames()
	if len(names) != 1 || names[0] != "debate_analysis" {
		t.Errorf("expected debate_analysis schema, got %v", names)
	}

	session, _ := sessions.Get(context.Background(), sessionID)
	if session.QuickAnalysis == "" || session.QuickAnalysisAt == nil {
		t.Error("quick analysis not stored")
	}
	if len(session.FullAnalysis) == 0 || session.FullAnalysisAt == nil {
		t.Error("full analysis not stored")
	}
	if session.Framework != "debate" {
		t.Errorf("expected debate framework tag, got %q", session.Framework)
	}
}

func TestRunGenericDispatch(t *testing.T) {
	analyzer, sessions, caller, sessionID := setup(t, "sales_cold_call")

	if err := analyzer.Run(context.Background(), sessionID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	names := caller.schemaNames()
	if len(names) != 1 || names[0] != "generic_analysis" {
		t.Errorf("expected generic_analysis schema, got %v", names)
	}
	session, _ := sessions.Get(context.Background(), sessionID)
	if session.Framework != "generic" {
		t.Errorf("expected generic framework tag, got %q", session.Framework)
	}
}

func TestQuickFailureDoesNotBlockFull(t *testing.T) {
	analyzer, sessions, caller, sessionID := setup(t, "debate")
	caller.quickErr = errors.New("API error (status 500)")

	if err := analyzer.Run(context.Background(), sessionID); err != nil {
		t.Fatalf("Run must swallow quick failure: %v", err)
	}
	session, _ := sessions.Get(context.Background(), sessionID)
	if session.QuickAnalysis != "" {
		t.Error("failed quick analysis must not be stored")
	}
	if len(session.FullAnalysis) == 0 {
		t.Error("full analysis should still run after quick failure")
	}
}

func TestFullFailureSwallowed(t *testing.T) {
	analyzer, sessions, caller, sessionID := setup(t, "debate")
	caller.fullErr = errors.New("API error (status 500)")

	if err := analyzer.Run(context.Background(), sessionID); err != nil {
		t.Fatalf("Run must swallow full failure: %v", err)
	}
	session, _ := sessions.Get(context.Background(), sessionID)
	if len(session.FullAnalysis) != 0 || session.Framework != "" {
		t.Error("failed full analysis must leave the session untouched")
	}
}

func TestEmptyTranscriptSkipsAnalysis(t *testing.T) {
	analyzer, sessions, caller, _ := setup(t, "debate")

	empty := &types.Session{ID: types.NewSessionID(), SubjectID: firstSubjectID(analyzer), UserID: "u1"}
	sessions.Create(context.Background(), empty)

	if err := analyzer.Run(context.Background(), empty.ID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(caller.requests) != 0 {
		t.Error("no calls should be made for an empty transcript")
	}
}

func firstSubjectID(a *Analyzer) types.SubjectID {
	for id := range a.subjects.(*memSubjectStore).subjects {
		return id
	}
	return ""
}
