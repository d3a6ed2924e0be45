// Package prep runs the artifact-generation pipelines: the research-backed
// primary pipeline for debate subjects and the single-call generic pipeline
// for roleplay subjects.
package prep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/sparring/internal/brief"
	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/schema"
	"github.com/user/sparring/internal/types"
	"github.com/user/sparring/pkg/llm"
)

// Researcher produces a free-text research report for a seed prompt.
// *research.AgentClient satisfies it.
type Researcher interface {
	Research(ctx context.Context, prompt string) (string, error)
}

// CitationExtractor turns a free-text report into a verifiable article list.
// *research.Extractor satisfies it.
type CitationExtractor interface {
	Extract(ctx context.Context, track costs.Track, report string) ([]types.ResearchArticle, error)
}

// Notifier delivers a short message to a subject's notify key. Delivery is
// best-effort; pipeline outcomes never depend on it.
type Notifier interface {
	Notify(key, message string) error
}

// Pipeline is the research-backed prep pipeline for debate subjects.
type Pipeline struct {
	subjects types.SubjectStore
	research types.ResearchStore
	progress types.ProgressStore

	agent     Researcher
	extractor CitationExtractor
	caller    schema.Caller
	gen       *schema.Generator
	budget    *Budgeter
	model     string

	notifier Notifier
}

// NewPipeline wires the primary pipeline. notifier may be nil.
func NewPipeline(
	subjects types.SubjectStore,
	research types.ResearchStore,
	progress types.ProgressStore,
	agent Researcher,
	extractor CitationExtractor,
	caller schema.Caller,
	budget *Budgeter,
	model string,
	notifier Notifier,
) *Pipeline {
	return &Pipeline{
		subjects:  subjects,
		research:  research,
		progress:  progress,
		agent:     agent,
		extractor: extractor,
		caller:    caller,
		gen:       schema.NewGenerator(caller, model),
		budget:    budget,
		model:     model,
		notifier:  notifier,
	}
}

// Run executes the full pipeline for the subject. Research, citation
// extraction, generation, and storage are fatal stages; synthesis and the
// final brief polish are not. Progress is persisted before each stage so
// clients can poll it.
func (p *Pipeline) Run(ctx context.Context, subjectID types.SubjectID) error {
	subject, err := p.subjects.Get(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("load subject: %w", err)
	}

	prog := newProgress(p.progress, subjectID, types.PipelinePrimary)
	prepTrack := costs.Track{UserID: subject.UserID, Phase: types.PhasePrep, SubjectID: subject.ID}
	researchTrack := costs.Track{UserID: subject.UserID, Phase: types.PhaseResearch, SubjectID: subject.ID}

	// Research.
	prog.enter(ctx, types.StageResearching)
	report, err := p.agent.Research(ctx, researchPrompt(subject))
	if err != nil {
		return prog.fail(ctx, types.StageResearching, err)
	}

	// Citation extraction.
	prog.enter(ctx, types.StageExtracting)
	articles, err := p.extractor.Extract(ctx, researchTrack, report)
	if err != nil {
		return prog.fail(ctx, types.StageExtracting, err)
	}
	batch := &types.ResearchBatch{
		ID:        types.NewBatchID(),
		SubjectID: subject.ID,
		Query:     subject.Topic,
		Articles:  articles,
		CreatedAt: time.Now(),
	}
	excerpt := p.budget.ResearchExcerpt(batch)

	// Synthesis. Failure downgrades the generation context, never the run.
	prog.enter(ctx, types.StageSynthesizing)
	synthesis := p.synthesize(ctx, prepTrack, subject, excerpt)
	material := excerpt + "\n" + synthesisBlock(synthesis)

	// Six-way generation, all-or-nothing.
	prog.enter(ctx, types.StageGenerating)
	artifacts, err := p.generate(ctx, prepTrack, subject, material)
	if err != nil {
		return prog.fail(ctx, types.StageGenerating, err)
	}

	// Brief polish. Failure leaves the subject without a polished brief.
	prog.enter(ctx, types.StageGeneratingBrief)
	polished := p.polish(ctx, prepTrack, subject, artifacts)

	// Storage: subject patch and research batch append.
	prog.enter(ctx, types.StageStoring)
	if err := p.store(ctx, subject.ID, artifacts, synthesis, polished, batch); err != nil {
		return prog.fail(ctx, types.StageStoring, err)
	}

	prog.enter(ctx, types.StageComplete)
	p.notify(subject, "Prep is ready for: "+subject.Topic)
	return nil
}

// artifactSet holds one generation round's output before storage.
type artifactSet struct {
	openings []types.Opening
	frames   []types.Frame
	receipts []types.Receipt
	zingers  []types.Zinger
	closings []types.Closing
	intel    []types.IntelItem
}

func (p *Pipeline) generate(ctx context.Context, track costs.Track, subject *types.Subject, material string) (*artifactSet, error) {
	var set artifactSet
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var payload schema.OpeningsPayload
		if err := p.gen.Generate(gctx, track, openingsPrompt(subject, material), schema.Openings, &payload); err != nil {
			return err
		}
		set.openings = toOpenings(payload.Openings)
		return nil
	})
	g.Go(func() error {
		var payload schema.FramesPayload
		if err := p.gen.Generate(gctx, track, framesPrompt(subject, material), schema.Frames, &payload); err != nil {
			return err
		}
		set.frames = toFrames(payload.Frames)
		return nil
	})
	g.Go(func() error {
		var payload schema.ReceiptsPayload
		if err := p.gen.Generate(gctx, track, receiptsPrompt(subject, material), schema.Receipts, &payload); err != nil {
			return err
		}
		set.receipts = toReceipts(payload.Receipts)
		return nil
	})
	g.Go(func() error {
		var payload schema.ZingersPayload
		if err := p.gen.Generate(gctx, track, zingersPrompt(subject, material), schema.Zingers, &payload); err != nil {
			return err
		}
		set.zingers = toZingers(payload.Zingers)
		return nil
	})
	g.Go(func() error {
		var payload schema.ClosingsPayload
		if err := p.gen.Generate(gctx, track, closingsPrompt(subject, material), schema.Closings, &payload); err != nil {
			return err
		}
		set.closings = toClosings(payload.Closings)
		return nil
	})
	g.Go(func() error {
		var payload schema.IntelPayload
		if err := p.gen.Generate(gctx, track, intelPrompt(subject, material), schema.Intel, &payload); err != nil {
			return err
		}
		set.intel = toIntel(payload.Intel)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &set, nil
}

func (p *Pipeline) synthesize(ctx context.Context, track costs.Track, subject *types.Subject, excerpt string) *types.ResearchSynthesis {
	var syn types.ResearchSynthesis
	err := p.gen.Generate(ctx, track, synthesisPrompt(subject, excerpt), schema.Synthesis, &syn)
	if err != nil {
		slog.Warn("research synthesis failed, continuing without it",
			"subject_id", subject.ID, "error", err)
		return nil
	}
	return &syn
}

// synthesisBlock renders the synthesis highlights for the generation prompts,
// or the placeholder when synthesis failed.
func synthesisBlock(syn *types.ResearchSynthesis) string {
	if syn == nil {
		return placeholderSynthesis
	}
	out := "Strategic insights from the research:\n"
	for _, insight := range syn.StrategicInsights {
		out += "- " + insight + "\n"
	}
	for _, point := range syn.ContentionPoints {
		out += "- contested: " + point + "\n"
	}
	return out
}

func (p *Pipeline) polish(ctx context.Context, track costs.Track, subject *types.Subject, set *artifactSet) *types.PolishedBrief {
	scratch := *subject
	applyArtifacts(&scratch, set)

	resp, err := p.caller.Complete(ctx, track, &llm.Request{
		Model:    p.model,
		Messages: []llm.Message{{Role: "user", Content: briefPolishPrompt(subject, briefDraft(&scratch))}},
	})
	if err != nil {
		slog.Warn("brief polish failed, storing prep without polished brief",
			"subject_id", subject.ID, "error", err)
		return nil
	}

	words, seconds := brief.Meta(resp.Content)
	return &types.PolishedBrief{
		Markdown:       resp.Content,
		WordCount:      words,
		ReadingTimeSec: seconds,
		GeneratedAt:    time.Now(),
	}
}

func (p *Pipeline) store(
	ctx context.Context,
	subjectID types.SubjectID,
	set *artifactSet,
	synthesis *types.ResearchSynthesis,
	polished *types.PolishedBrief,
	batch *types.ResearchBatch,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.subjects.Patch(gctx, subjectID, func(s *types.Subject) error {
			applyArtifacts(s, set)
			if synthesis != nil {
				s.Synthesis = synthesis
			}
			if polished != nil {
				s.Brief = polished
			}
			reconcileSelections(s)
			return nil
		})
	})
	g.Go(func() error {
		return p.research.AppendBatch(gctx, batch)
	})
	return g.Wait()
}

func applyArtifacts(s *types.Subject, set *artifactSet) {
	s.Openings = set.openings
	s.Frames = set.frames
	s.Receipts = set.receipts
	s.Zingers = set.zingers
	s.Closings = set.closings
	s.Intel = set.intel
}

func (p *Pipeline) notify(subject *types.Subject, message string) {
	if p.notifier == nil || subject.NotifyKey == "" {
		return
	}
	if err := p.notifier.Notify(subject.NotifyKey, message); err != nil {
		slog.Warn("notification failed", "subject_id", subject.ID, "error", err)
	}
}

// progressWriter persists stage transitions, accumulating completed stages.
type progressWriter struct {
	store     types.ProgressStore
	subjectID types.SubjectID
	kind      types.PipelineKind
	completed []types.Stage
	current   types.Stage
}

func newProgress(store types.ProgressStore, subjectID types.SubjectID, kind types.PipelineKind) *progressWriter {
	return &progressWriter{store: store, subjectID: subjectID, kind: kind}
}

// enter marks the previous stage completed and persists the new one. Store
// failures are logged; losing a progress write must not kill the run.
func (w *progressWriter) enter(ctx context.Context, stage types.Stage) {
	if w.current != "" && w.current != types.StageComplete {
		w.completed = append(w.completed, w.current)
	}
	w.current = stage
	w.write(ctx, stage, "")
}

// fail records the terminal error state and returns a wrapped error.
func (w *progressWriter) fail(ctx context.Context, stage types.Stage, err error) error {
	w.write(ctx, types.StageError, fmt.Sprintf("%s: %v", stage, err))
	return fmt.Errorf("%s: %w", stage, err)
}

func (w *progressWriter) write(ctx context.Context, status types.Stage, errMsg string) {
	record := &types.ProgressRecord{
		SubjectID: w.subjectID,
		Kind:      w.kind,
		Status:    status,
		Error:     errMsg,
		Completed: w.completed,
		UpdatedAt: time.Now(),
	}
	if err := w.store.Set(ctx, record); err != nil {
		slog.Error("progress write failed", "subject_id", w.subjectID, "stage", status, "error", err)
	}
}
