// Package analysis produces post-session coaching feedback: a quick
// free-text read delivered right after the call, and a full structured
// scorecard generated in the background.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/schema"
	"github.com/user/sparring/internal/types"
	"github.com/user/sparring/pkg/llm"
)

const quickMaxTokens = 500

// Notifier delivers a short message to a subject's notify key.
type Notifier interface {
	Notify(key, message string) error
}

// Analyzer runs both analysis passes for finalized sessions. Every pass is
// best-effort: a failed analysis is logged and left absent so a later sweep
// can retry it.
type Analyzer struct {
	sessions types.SessionStore
	subjects types.SubjectStore
	caller   schema.Caller
	gen      *schema.Generator
	model    string
	notifier Notifier
}

// New creates an Analyzer. notifier may be nil.
func New(sessions types.SessionStore, subjects types.SubjectStore, caller schema.Caller, model string, notifier Notifier) *Analyzer {
	return &Analyzer{
		sessions: sessions,
		subjects: subjects,
		caller:   caller,
		gen:      schema.NewGenerator(caller, model),
		model:    model,
		notifier: notifier,
	}
}

// Run executes the quick and full passes for the session. Returns an error
// only when the session or its transcript cannot be loaded; analysis
// failures themselves are swallowed.
func (a *Analyzer) Run(ctx context.Context, sessionID types.SessionID) error {
	session, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	subject, err := a.subjects.Get(ctx, session.SubjectID)
	if err != nil {
		return fmt.Errorf("load subject: %w", err)
	}
	exchanges, err := a.sessions.Exchanges(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	if len(exchanges) == 0 {
		slog.Info("skipping analysis, empty transcript", "session_id", sessionID)
		return nil
	}
	transcript := formatTranscript(exchanges)

	a.quick(ctx, session, subject, transcript)
	a.full(ctx, session, subject, transcript)
	return nil
}

// Full runs only the structured pass. Used by the retry sweep for sessions
// whose quick analysis already exists.
func (a *Analyzer) Full(ctx context.Context, sessionID types.SessionID) error {
	session, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	subject, err := a.subjects.Get(ctx, session.SubjectID)
	if err != nil {
		return fmt.Errorf("load subject: %w", err)
	}
	exchanges, err := a.sessions.Exchanges(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	if len(exchanges) == 0 {
		return nil
	}
	a.full(ctx, session, subject, formatTranscript(exchanges))
	return nil
}

func (a *Analyzer) quick(ctx context.Context, session *types.Session, subject *types.Subject, transcript string) {
	track := costs.Track{
		UserID:    session.UserID,
		Phase:     types.PhaseAnalysis,
		SubjectID: session.SubjectID,
		SessionID: session.ID,
	}
	resp, err := a.caller.Complete(ctx, track, &llm.Request{
		Model:     a.model,
		Messages:  []llm.Message{{Role: "user", Content: quickPrompt(subject, transcript)}},
		MaxTokens: quickMaxTokens,
	})
	if err != nil {
		slog.Error("quick analysis failed", "session_id", session.ID, "error", err)
		return
	}

	now := time.Now()
	err = a.sessions.Update(ctx, session.ID, func(s *types.Session) error {
		s.QuickAnalysis = resp.Content
		s.QuickAnalysisAt = &now
		return nil
	})
	if err != nil {
		slog.Error("quick analysis store failed", "session_id", session.ID, "error", err)
	}
}

func (a *Analyzer) full(ctx context.Context, session *types.Session, subject *types.Subject, transcript string) {
	def, framework := dispatch(subject.ScenarioType)
	track := costs.Track{
		UserID:    session.UserID,
		Phase:     types.PhaseAnalysis,
		SubjectID: session.SubjectID,
		SessionID: session.ID,
	}

	var result json.RawMessage
	if err := a.gen.Generate(ctx, track, fullPrompt(subject, transcript), def, &result); err != nil {
		slog.Error("full analysis failed", "session_id", session.ID, "framework", framework, "error", err)
		return
	}

	now := time.Now()
	err := a.sessions.Update(ctx, session.ID, func(s *types.Session) error {
		s.FullAnalysis = result
		s.Framework = framework
		s.FullAnalysisAt = &now
		return nil
	})
	if err != nil {
		slog.Error("full analysis store failed", "session_id", session.ID, "error", err)
		return
	}

	if a.notifier != nil && subject.NotifyKey != "" {
		if err := a.notifier.Notify(subject.NotifyKey, "Session analysis is ready for: "+subject.Topic); err != nil {
			slog.Warn("analysis notification failed", "session_id", session.ID, "error", err)
		}
	}
}

// dispatch picks the analysis schema for the subject's scenario type. Debate
// sessions get the technique scorecard; everything else gets the flat skills
// assessment.
func dispatch(scenarioType string) (schema.Definition, string) {
	if scenarioType == "debate" {
		return schema.DebateAnalysis, "debate"
	}
	return schema.GenericAnalysis, "generic"
}

func formatTranscript(exchanges []*types.Exchange) string {
	var sb strings.Builder
	for _, e := range exchanges {
		fmt.Fprintf(&sb, "%s: %s\n", e.Speaker, e.Text)
	}
	return sb.String()
}

func quickPrompt(subject *types.Subject, transcript string) string {
	return fmt.Sprintf(`You are a conversation coach. The speaker just finished a practice session on: %s (their position: %s).

Transcript:

%s

In 3-5 sentences, tell the speaker the single strongest moment, the single weakest moment, and the one change that would most improve their next attempt. Plain prose, no headings.`,
		subject.Topic, subject.Position, transcript)
}

func fullPrompt(subject *types.Subject, transcript string) string {
	return fmt.Sprintf(`You are a conversation coach producing a structured review of a practice session on: %s (the speaker's position: %s, scenario: %s).

Transcript:

%s

Score only what the transcript supports; cite the speaker's own words as evidence.`,
		subject.Topic, subject.Position, subject.ScenarioType, transcript)
}
