package prep

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/user/sparring/internal/types"
)

// ErrRunInProgress is returned when a pipeline run is already in flight for
// the subject. The lease is held server-side; concurrent triggers from any
// client are rejected, not merely advised against.
var ErrRunInProgress = errors.New("prep run already in progress for subject")

// Runner serializes pipeline runs per subject and bounds total concurrency
// across subjects.
type Runner struct {
	primary *Pipeline
	generic *GenericPipeline

	sem *semaphore.Weighted

	mu       sync.Mutex
	inflight map[types.SubjectID]bool
}

// NewRunner creates a Runner allowing up to maxConcurrent simultaneous runs.
func NewRunner(primary *Pipeline, generic *GenericPipeline, maxConcurrent int64) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Runner{
		primary:  primary,
		generic:  generic,
		sem:      semaphore.NewWeighted(maxConcurrent),
		inflight: make(map[types.SubjectID]bool),
	}
}

// Trigger starts the pipeline for the subject in the background. Returns
// ErrRunInProgress without side effects when the subject already has a run
// in flight. The run itself detaches from the caller's context.
func (r *Runner) Trigger(ctx context.Context, subject *types.Subject) error {
	r.mu.Lock()
	if r.inflight[subject.ID] {
		r.mu.Unlock()
		return ErrRunInProgress
	}
	r.inflight[subject.ID] = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.inflight, subject.ID)
			r.mu.Unlock()
		}()

		runCtx := context.Background()
		if err := r.sem.Acquire(runCtx, 1); err != nil {
			return
		}
		defer r.sem.Release(1)

		var err error
		if subject.ScenarioType == "debate" {
			err = r.primary.Run(runCtx, subject.ID)
		} else {
			err = r.generic.Run(runCtx, subject.ID)
		}
		if err != nil {
			slog.Error("prep run failed", "subject_id", subject.ID, "scenario", subject.ScenarioType, "error", err)
		}
	}()
	return nil
}

// Running reports whether the subject currently holds the run lease.
func (r *Runner) Running(subjectID types.SubjectID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[subjectID]
}
