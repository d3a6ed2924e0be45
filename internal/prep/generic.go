package prep

import (
	"context"
	"fmt"

	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/schema"
	"github.com/user/sparring/internal/types"
)

const genericMaxTokens = 4000

// genericPayload is the free-form JSON shape the generic prompt requests.
// Recovered defensively, so every field tolerates absence.
type genericPayload struct {
	TalkingPoints      []string `json:"talkingPoints"`
	OpeningApproach    string   `json:"openingApproach"`
	ClosingApproach    string   `json:"closingApproach"`
	KeyPhrases         []string `json:"keyPhrases"`
	ObjectionResponses []struct {
		Objection string `json:"objection"`
		Response  string `json:"response"`
	} `json:"objectionResponses"`
}

// GenericPipeline is the single-call prep pipeline for roleplay subjects
// (sales, pitch, healthcare). No research round; one loose generation call.
type GenericPipeline struct {
	subjects types.SubjectStore
	progress types.ProgressStore
	gen      *schema.Generator
	notifier Notifier
}

// NewGenericPipeline wires the generic pipeline. notifier may be nil.
func NewGenericPipeline(subjects types.SubjectStore, progress types.ProgressStore, caller schema.Caller, model string, notifier Notifier) *GenericPipeline {
	return &GenericPipeline{
		subjects: subjects,
		progress: progress,
		gen:      schema.NewGenerator(caller, model),
		notifier: notifier,
	}
}

// Run executes the generic pipeline for the subject.
func (p *GenericPipeline) Run(ctx context.Context, subjectID types.SubjectID) error {
	subject, err := p.subjects.Get(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("load subject: %w", err)
	}

	prog := newProgress(p.progress, subjectID, types.PipelineGeneric)
	track := costs.Track{UserID: subject.UserID, Phase: types.PhasePrep, SubjectID: subject.ID}

	prog.enter(ctx, types.StageGenerating)
	var payload genericPayload
	if err := p.gen.GenerateLoose(ctx, track, genericPrompt(subject), genericMaxTokens, &payload); err != nil {
		return prog.fail(ctx, types.StageGenerating, err)
	}
	prep := toGenericPrep(&payload)

	prog.enter(ctx, types.StageStoring)
	err = p.subjects.Patch(ctx, subjectID, func(s *types.Subject) error {
		s.Generic = prep
		return nil
	})
	if err != nil {
		return prog.fail(ctx, types.StageStoring, err)
	}

	prog.enter(ctx, types.StageComplete)
	if p.notifier != nil && subject.NotifyKey != "" {
		_ = p.notifier.Notify(subject.NotifyKey, "Prep is ready for: "+subject.Topic)
	}
	return nil
}

// toGenericPrep assigns fresh item ids and guarantees non-nil collections.
func toGenericPrep(payload *genericPayload) *types.GenericPrep {
	prep := &types.GenericPrep{
		TalkingPoints:      make([]types.TalkingPoint, 0, len(payload.TalkingPoints)),
		OpeningApproach:    payload.OpeningApproach,
		ClosingApproach:    payload.ClosingApproach,
		KeyPhrases:         make([]types.KeyPhrase, 0, len(payload.KeyPhrases)),
		ObjectionResponses: make([]types.ObjectionResponse, 0, len(payload.ObjectionResponses)),
	}
	for _, t := range payload.TalkingPoints {
		prep.TalkingPoints = append(prep.TalkingPoints, types.TalkingPoint{ID: types.NewItemID(), Text: t})
	}
	for _, k := range payload.KeyPhrases {
		prep.KeyPhrases = append(prep.KeyPhrases, types.KeyPhrase{ID: types.NewItemID(), Text: k})
	}
	for _, o := range payload.ObjectionResponses {
		prep.ObjectionResponses = append(prep.ObjectionResponses, types.ObjectionResponse{
			ID:        types.NewItemID(),
			Objection: o.Objection,
			Response:  o.Response,
		})
	}
	return prep
}
