// Package scheduler runs the periodic sweep that retries analysis for
// finalized sessions that never received one.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/sparring/internal/types"
)

// FullAnalyzer re-runs the structured analysis pass for one session.
// *analysis.Analyzer satisfies it.
type FullAnalyzer interface {
	Full(ctx context.Context, sessionID types.SessionID) error
}

// SubjectRefresher appends a fresh research batch for one subject.
// *research.Refresher satisfies it.
type SubjectRefresher interface {
	Refresh(ctx context.Context, subject *types.Subject) error
}

// refreshStaleAfter is how old a subject's latest research batch must be
// before the sweep re-searches the topic.
const refreshStaleAfter = 24 * time.Hour

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Sweeper periodically finds finalized sessions missing a full analysis and
// re-triggers it. Analysis calls are best-effort, so a crashed daemon or a
// flaky provider leaves gaps that the sweep closes.
type Sweeper struct {
	sessions types.SessionStore
	analyzer FullAnalyzer
	schedule string
	cron     *cron.Cron

	// Optional research refresh pass, enabled via SetRefresh.
	subjects  types.SubjectStore
	research  types.ResearchStore
	refresher SubjectRefresher
}

// New creates a Sweeper firing on the given cron schedule,
// e.g. "@every 10m".
func New(sessions types.SessionStore, analyzer FullAnalyzer, schedule string) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		analyzer: analyzer,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// SetRefresh enables the research refresh pass: debate subjects whose latest
// batch has gone stale get their topic re-searched on each sweep. Must be
// called before Start.
func (s *Sweeper) SetRefresh(subjects types.SubjectStore, research types.ResearchStore, refresher SubjectRefresher) {
	s.subjects = subjects
	s.research = research
	s.refresher = refresher
}

// Start registers the sweep and starts the cron ticker.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("analysis sweep scheduled", "schedule", s.schedule)
	return nil
}

// Stop stops the cron ticker.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep runs one pass over the session store. Individual failures are logged
// and skipped; the next sweep picks them up again.
func (s *Sweeper) Sweep(ctx context.Context) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		slog.Error("analysis sweep list failed", "error", err)
		return
	}

	for _, session := range sessions {
		if !session.Finalized || len(session.FullAnalysis) > 0 {
			continue
		}
		slog.Info("re-triggering full analysis", "session_id", session.ID)
		if err := s.analyzer.Full(ctx, session.ID); err != nil {
			slog.Error("analysis retry failed", "session_id", session.ID, "error", err)
		}
	}

	if s.refresher != nil {
		s.refreshResearch(ctx)
	}
}

// refreshResearch re-searches debate subjects whose latest batch is older
// than refreshStaleAfter. Subjects that were never researched are left to
// the prep pipeline.
func (s *Sweeper) refreshResearch(ctx context.Context) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		slog.Error("research refresh list failed", "error", err)
		return
	}

	for _, subject := range subjects {
		if subject.ScenarioType != "debate" {
			continue
		}
		latest, err := s.research.Latest(ctx, subject.ID)
		if err != nil {
			slog.Error("research refresh lookup failed", "subject_id", subject.ID, "error", err)
			continue
		}
		if latest == nil || time.Since(latest.CreatedAt) < refreshStaleAfter {
			continue
		}
		slog.Info("refreshing stale research", "subject_id", subject.ID)
		if err := s.refresher.Refresh(ctx, subject); err != nil {
			slog.Error("research refresh failed", "subject_id", subject.ID, "error", err)
		}
	}
}
