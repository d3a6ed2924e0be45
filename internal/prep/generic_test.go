package prep

import (
	"context"
	"testing"

	"github.com/user/sparring/internal/types"
)

func TestGenericRunStoresPrep(t *testing.T) {
	subject := testSubject()
	subject.ScenarioType = "healthcare_difficult_news"
	caller := newScriptedCaller()
	// Response wrapped in prose; the loose path recovers the object.
	caller.plain = "Here is the plan:\n```json\n{\"talkingPoints\":[\"lead with empathy\",\"state the facts\"],\"openingApproach\":\"sit down first\",\"closingApproach\":\"agree next steps\",\"keyPhrases\":[\"I want to be direct with you\"],\"objectionResponses\":[{\"objection\":\"are you sure\",\"response\":\"here is how we confirmed\"}]}\n```"

	subjects := newMemSubjectStore(subject)
	progress := &memProgressStore{}
	p := NewGenericPipeline(subjects, progress, caller, "gpt-test", nil)

	if err := p.Run(context.Background(), subject.ID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stored, _ := subjects.Get(context.Background(), subject.ID)
	prep := stored.Generic
	if prep == nil {
		t.Fatal("generic prep not stored")
	}
	if len(prep.TalkingPoints) != 2 || prep.TalkingPoints[0].ID == "" {
		t.Errorf("talking points wrong: %+v", prep.TalkingPoints)
	}
	if prep.OpeningApproach != "sit down first" || prep.ClosingApproach != "agree next steps" {
		t.Errorf("approaches wrong: %+v", prep)
	}
	if len(prep.ObjectionResponses) != 1 || prep.ObjectionResponses[0].Objection != "are you sure" {
		t.Errorf("objection responses wrong: %+v", prep.ObjectionResponses)
	}

	record, _ := progress.Get(context.Background(), subject.ID, types.PipelineGeneric)
	if record.Status != types.StageComplete {
		t.Errorf("expected complete, got %s", record.Status)
	}
}

func TestGenericRunMissingFieldsDefaulted(t *testing.T) {
	subject := testSubject()
	subject.ScenarioType = "pitch_investor"
	caller := newScriptedCaller()
	caller.plain = `{"openingApproach":"hook them"}`

	subjects := newMemSubjectStore(subject)
	p := NewGenericPipeline(subjects, &memProgressStore{}, caller, "gpt-test", nil)

	if err := p.Run(context.Background(), subject.ID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	stored, _ := subjects.Get(context.Background(), subject.ID)
	prep := stored.Generic
	if prep.TalkingPoints == nil || prep.KeyPhrases == nil || prep.ObjectionResponses == nil {
		t.Error("absent collections must default to empty, not nil")
	}
}

func TestGenericRunMalformedIsFatal(t *testing.T) {
	subject := testSubject()
	subject.ScenarioType = "sales_renewal"
	caller := newScriptedCaller()
	caller.plain = "I cannot produce JSON."

	subjects := newMemSubjectStore(subject)
	progress := &memProgressStore{}
	p := NewGenericPipeline(subjects, progress, caller, "gpt-test", nil)

	if err := p.Run(context.Background(), subject.ID); err == nil {
		t.Fatal("expected malformed response to fail the run")
	}
	record, _ := progress.Get(context.Background(), subject.ID, types.PipelineGeneric)
	if record.Status != types.StageError {
		t.Errorf("expected error status, got %s", record.Status)
	}
}
