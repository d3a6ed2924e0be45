package prep

import (
	"context"
	"testing"
	"time"
)

// blockingAgent holds a research call open until released so tests can
// observe the in-flight lease.
type blockingAgent struct {
	started  chan struct{}
	release  chan struct{}
	reported string
}

func (b *blockingAgent) Research(context.Context, string) (string, error) {
	close(b.started)
	<-b.release
	return b.reported, nil
}

func TestTriggerRejectsConcurrentRuns(t *testing.T) {
	subject := testSubject()
	caller := newScriptedCaller()
	agent := &blockingAgent{started: make(chan struct{}), release: make(chan struct{}), reported: "report"}
	p, _, _, _ := testPipeline(t, subject, caller, agent, &fakeExtractor{})
	runner := NewRunner(p, nil, 4)

	if err := runner.Trigger(context.Background(), subject); err != nil {
		t.Fatalf("first trigger failed: %v", err)
	}
	<-agent.started

	if err := runner.Trigger(context.Background(), subject); err != ErrRunInProgress {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if !runner.Running(subject.ID) {
		t.Error("Running should report the held lease")
	}

	close(agent.release)
	waitFor(t, func() bool { return !runner.Running(subject.ID) })

	// Lease released; a new run is accepted.
	agent.started = make(chan struct{})
	agent.release = make(chan struct{})
	if err := runner.Trigger(context.Background(), subject); err != nil {
		t.Fatalf("trigger after release failed: %v", err)
	}
	<-agent.started
	close(agent.release)
	waitFor(t, func() bool { return !runner.Running(subject.ID) })
}

func TestTriggerRoutesByScenarioType(t *testing.T) {
	subject := testSubject()
	subject.ScenarioType = "sales_cold_call"
	caller := newScriptedCaller()
	caller.plain = `{"talkingPoints":["value first"],"openingApproach":"warm","closingApproach":"ask","keyPhrases":["roi"],"objectionResponses":[]}`

	subjects := newMemSubjectStore(subject)
	progress := &memProgressStore{}
	generic := NewGenericPipeline(subjects, progress, caller, "gpt-test", nil)
	runner := NewRunner(nil, generic, 4)

	if err := runner.Trigger(context.Background(), subject); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	waitFor(t, func() bool { return !runner.Running(subject.ID) })

	stored, _ := subjects.Get(context.Background(), subject.ID)
	if stored.Generic == nil {
		t.Fatal("generic prep not stored; non-debate subjects must use the generic pipeline")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
