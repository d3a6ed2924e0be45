package prep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/types"
	"github.com/user/sparring/pkg/llm"
)

type memSubjectStore struct {
	mu       sync.Mutex
	subjects map[types.SubjectID]*types.Subject
	patches  int
}

func newMemSubjectStore(subjects ...*types.Subject) *memSubjectStore {
	m := &memSubjectStore{subjects: make(map[types.SubjectID]*types.Subject)}
	for _, s := range subjects {
		m.subjects[s.ID] = s
	}
	return m
}

func (m *memSubjectStore) Create(_ context.Context, s *types.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[s.ID] = s
	return nil
}

func (m *memSubjectStore) Get(_ context.Context, id types.SubjectID) (*types.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, fmt.Errorf("subject %s not found", id)
	}
	copied := *s
	return &copied, nil
}

func (m *memSubjectStore) List(_ context.Context) ([]*types.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Subject
	for _, s := range m.subjects {
		out = append(out, s)
	}
	return out, nil
}

func (m *memSubjectStore) Patch(_ context.Context, id types.SubjectID, apply func(*types.Subject) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return fmt.Errorf("subject %s not found", id)
	}
	if err := apply(s); err != nil {
		return err
	}
	m.patches++
	return nil
}

type memResearchStore struct {
	mu      sync.Mutex
	batches []*types.ResearchBatch
}

func (m *memResearchStore) AppendBatch(_ context.Context, b *types.ResearchBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, b)
	return nil
}

func (m *memResearchStore) Latest(_ context.Context, id types.SubjectID) (*types.ResearchBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.batches) - 1; i >= 0; i-- {
		if m.batches[i].SubjectID == id {
			return m.batches[i], nil
		}
	}
	return nil, nil
}

func (m *memResearchStore) List(_ context.Context, id types.SubjectID) ([]*types.ResearchBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.ResearchBatch
	for _, b := range m.batches {
		if b.SubjectID == id {
			out = append(out, b)
		}
	}
	return out, nil
}

type memProgressStore struct {
	mu      sync.Mutex
	history []*types.ProgressRecord
}

func (m *memProgressStore) Set(_ context.Context, r *types.ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *r
	m.history = append(m.history, &copied)
	return nil
}

func (m *memProgressStore) Get(_ context.Context, id types.SubjectID, kind types.PipelineKind) (*types.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].SubjectID == id && m.history[i].Kind == kind {
			return m.history[i], nil
		}
	}
	return &types.ProgressRecord{SubjectID: id, Kind: kind, Status: types.StageIdle}, nil
}

func (m *memProgressStore) statuses() []types.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Stage, len(m.history))
	for i, r := range m.history {
		out[i] = r.Status
	}
	return out
}

type fakeAgent struct {
	report string
	err    error
}

func (f *fakeAgent) Research(context.Context, string) (string, error) {
	return f.report, f.err
}

type fakeExtractor struct {
	articles []types.ResearchArticle
	err      error
}

func (f *fakeExtractor) Extract(context.Context, costs.Track, string) ([]types.ResearchArticle, error) {
	return f.articles, f.err
}

// scriptedCaller answers by schema name; requests without a response format
// (the brief polish call) get the plain content. Schema names listed in fail
// return an error instead.
type scriptedCaller struct {
	mu      sync.Mutex
	fail    map[string]bool
	prompts map[string]string
	plain   string
	planErr error
}

func newScriptedCaller() *scriptedCaller {
	return &scriptedCaller{
		fail:    make(map[string]bool),
		prompts: make(map[string]string),
		plain:   "# Polished brief\n\nGo win.",
	}
}

var cannedPayloads = map[string]string{
	"opening_statements": `{"openings":[{"text":"We begin","style":"direct"}]}`,
	"argument_frames":    `{"frames":[{"title":"Economics","summary":"cheaper"},{"title":"Safety","summary":"safer","evidenceIds":["r1"]}]}`,
	"receipts":           `{"receipts":[{"category":"statistic","claim":"40% cheaper","source":"Energy Journal"}]}`,
	"zingers":            `{"zingers":[{"text":"gotcha","useWhen":"pivot"}]}`,
	"closing_statements": `{"closings":[{"text":"In the end","style":"summary"}]}`,
	"opponent_intel":     `{"intel":[{"argument":"too expensive","likelihood":"certain"},{"argument":"waste","likelihood":"likely","counters":["storage works"]}]}`,
	"research_synthesis": `{"perspectives":[{"viewpoint":"pro","summary":"works"}],"consensusPoints":["emissions drop"],"contentionPoints":["cost"],"statistics":[],"quotes":[],"gaps":[],"strategicInsights":["lead with cost parity"]}`,
}

func (c *scriptedCaller) Complete(_ context.Context, _ costs.Track, req *llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.ResponseFormat == nil {
		if c.planErr != nil {
			return nil, c.planErr
		}
		c.prompts["polish"] = req.Messages[0].Content
		return &llm.Response{Content: c.plain}, nil
	}

	name := req.ResponseFormat.JSONSchema.Name
	c.prompts[name] = req.Messages[0].Content
	if c.fail[name] {
		return nil, errors.New("API error (status 500)")
	}
	payload, ok := cannedPayloads[name]
	if !ok {
		return nil, fmt.Errorf("no canned payload for schema %s", name)
	}
	return &llm.Response{Content: payload}, nil
}

func testSubject() *types.Subject {
	return &types.Subject{
		ID:           types.NewSubjectID(),
		UserID:       "u1",
		Topic:        "Nuclear power should replace coal",
		Position:     "for",
		ScenarioType: "debate",
		CreatedAt:    time.Now(),
	}
}

func testPipeline(t *testing.T, subject *types.Subject, caller *scriptedCaller, agent Researcher, extractor CitationExtractor) (*Pipeline, *memSubjectStore, *memResearchStore, *memProgressStore) {
	t.Helper()
	subjects := newMemSubjectStore(subject)
	research := &memResearchStore{}
	progress := &memProgressStore{}
	budget, err := NewBudgeter("gpt-4", 8000)
	if err != nil {
		t.Fatalf("NewBudgeter failed: %v", err)
	}
	p := NewPipeline(subjects, research, progress, agent, extractor, caller, budget, "gpt-test", nil)
	return p, subjects, research, progress
}

func TestRunHappyPath(t *testing.T) {
	subject := testSubject()
	caller := newScriptedCaller()
	agent := &fakeAgent{report: "long report"}
	extractor := &fakeExtractor{articles: []types.ResearchArticle{
		{Title: "Grid study", URL: "https://j.org/a", Content: "findings", Source: "j.org"},
	}}
	p, subjects, research, progress := testPipeline(t, subject, caller, agent, extractor)

	if err := p.Run(context.Background(), subject.ID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []types.Stage{
		types.StageResearching, types.StageExtracting, types.StageSynthesizing,
		types.StageGenerating, types.StageGeneratingBrief, types.StageStoring,
		types.StageComplete,
	}
	got := progress.statuses()
	if len(got) != len(want) {
		t.Fatalf("expected %d progress writes, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("progress[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	stored, _ := subjects.Get(context.Background(), subject.ID)
	if len(stored.Openings) != 1 || len(stored.Frames) != 2 || len(stored.Receipts) != 1 ||
		len(stored.Zingers) != 1 || len(stored.Closings) != 1 || len(stored.Intel) != 2 {
		t.Errorf("artifact counts wrong: %+v", stored)
	}
	if stored.Synthesis == nil || len(stored.Synthesis.StrategicInsights) != 1 {
		t.Error("synthesis not stored")
	}
	if stored.Brief == nil || stored.Brief.WordCount == 0 {
		t.Error("polished brief not stored with metadata")
	}

	// Item ids are fresh uuids, unique across the collection.
	seen := make(map[string]bool)
	for _, o := range stored.Openings {
		if o.ID == "" || seen[o.ID] {
			t.Errorf("bad opening id %q", o.ID)
		}
		seen[o.ID] = true
	}
	for _, f := range stored.Frames {
		if f.ID == "" || seen[f.ID] {
			t.Errorf("bad frame id %q", f.ID)
		}
		seen[f.ID] = true
		if f.EvidenceIDs == nil {
			t.Error("evidenceIds must be non-nil after normalization")
		}
	}
	for _, it := range stored.Intel {
		if it.Counters == nil {
			t.Error("counters must be non-nil after normalization")
		}
	}

	batches, _ := research.List(context.Background(), subject.ID)
	if len(batches) != 1 || len(batches[0].Articles) != 1 {
		t.Fatalf("expected one research batch with one article, got %v", batches)
	}
}

func TestRunGenerationAllOrNothing(t *testing.T) {
	subject := testSubject()
	caller := newScriptedCaller()
	caller.fail["zingers"] = true
	agent := &fakeAgent{report: "report"}
	extractor := &fakeExtractor{}
	p, subjects, research, progress := testPipeline(t, subject, caller, agent, extractor)

	err := p.Run(context.Background(), subject.ID)
	if err == nil {
		t.Fatal("expected run to fail when one generation call fails")
	}

	got := progress.statuses()
	last := got[len(got)-1]
	if last != types.StageError {
		t.Fatalf("expected terminal error status, got %s", last)
	}
	record, _ := progress.Get(context.Background(), subject.ID, types.PipelinePrimary)
	if !strings.HasPrefix(record.Error, "generating:") {
		t.Errorf("expected error attributed to generating stage, got %q", record.Error)
	}

	// Nothing persisted: no partial artifact sets, no batch.
	stored, _ := subjects.Get(context.Background(), subject.ID)
	if len(stored.Openings) != 0 || len(stored.Frames) != 0 {
		t.Error("partial generation output must not be stored")
	}
	if batches, _ := research.List(context.Background(), subject.ID); len(batches) != 0 {
		t.Error("research batch must not be stored on generation failure")
	}
}

func TestRunSynthesisFailureNonFatal(t *testing.T) {
	subject := testSubject()
	caller := newScriptedCaller()
	caller.fail["research_synthesis"] = true
	agent := &fakeAgent{report: "report"}
	extractor := &fakeExtractor{}
	p, subjects, _, progress := testPipeline(t, subject, caller, agent, extractor)

	if err := p.Run(context.Background(), subject.ID); err != nil {
		t.Fatalf("synthesis failure must not fail the run: %v", err)
	}

	record, _ := progress.Get(context.Background(), subject.ID, types.PipelinePrimary)
	if record.Status != types.StageComplete {
		t.Errorf("expected complete, got %s", record.Status)
	}
	stored, _ := subjects.Get(context.Background(), subject.ID)
	if stored.Synthesis != nil {
		t.Error("failed synthesis must not be stored")
	}
	// Generation proceeded against the placeholder context.
	if !strings.Contains(caller.prompts["opening_statements"], "synthesis unavailable") {
		t.Error("expected placeholder synthesis context in generation prompt")
	}
}

func TestRunBriefPolishFailureNonFatal(t *testing.T) {
	subject := testSubject()
	caller := newScriptedCaller()
	caller.planErr = errors.New("API error (status 500)")
	agent := &fakeAgent{report: "report"}
	extractor := &fakeExtractor{}
	p, subjects, _, _ := testPipeline(t, subject, caller, agent, extractor)

	if err := p.Run(context.Background(), subject.ID); err != nil {
		t.Fatalf("brief polish failure must not fail the run: %v", err)
	}
	stored, _ := subjects.Get(context.Background(), subject.ID)
	if stored.Brief != nil {
		t.Error("failed polish must not store a brief")
	}
	if len(stored.Openings) == 0 {
		t.Error("artifacts must still be stored when polish fails")
	}
}

func TestRunResearchFailureFatal(t *testing.T) {
	subject := testSubject()
	caller := newScriptedCaller()
	agent := &fakeAgent{err: errors.New("research job timed out")}
	extractor := &fakeExtractor{}
	p, _, _, progress := testPipeline(t, subject, caller, agent, extractor)

	if err := p.Run(context.Background(), subject.ID); err == nil {
		t.Fatal("expected research failure to fail the run")
	}
	record, _ := progress.Get(context.Background(), subject.ID, types.PipelinePrimary)
	if record.Status != types.StageError || !strings.HasPrefix(record.Error, "researching:") {
		t.Errorf("expected researching error, got %+v", record)
	}
}

func TestRunClearsDanglingSelections(t *testing.T) {
	subject := testSubject()
	subject.SelectedOpeningID = "stale-opening"
	subject.SelectedFrameIDs = []string{"stale-frame"}
	subject.SelectedClosingID = "stale-closing"
	caller := newScriptedCaller()
	agent := &fakeAgent{report: "report"}
	extractor := &fakeExtractor{}
	p, subjects, _, _ := testPipeline(t, subject, caller, agent, extractor)

	if err := p.Run(context.Background(), subject.ID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	stored, _ := subjects.Get(context.Background(), subject.ID)
	if stored.SelectedOpeningID != "" || stored.SelectedClosingID != "" || len(stored.SelectedFrameIDs) != 0 {
		t.Errorf("regeneration must clear dangling selections: %+v", stored)
	}
}

func TestResearchPromptIntensity(t *testing.T) {
	subject := testSubject()
	subject.ResearchIntensity = "basic"
	if got := researchPrompt(subject); !strings.Contains(got, "2-3 focused searches") {
		t.Errorf("basic intensity prompt missing effort block: %q", got)
	}
}
