// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// Subject is one practice scenario instance: a topic, a counterpart, sparse
// optional context fields, and the generated prep artifacts. Pipeline stages
// patch it incrementally; it is never replaced wholesale.
type Subject struct {
	ID                SubjectID `json:"id"`
	UserID            string    `json:"user_id"`
	Topic             string    `json:"topic"`
	Position          string    `json:"position"`
	ScenarioType      string    `json:"scenario_type"`
	ResearchIntensity string    `json:"research_intensity,omitempty"`

	// Sparse optional context, filled in by the user before prep.
	AudienceDescription string `json:"audience_description,omitempty"`
	AudienceDisposition string `json:"audience_disposition,omitempty"`
	OpponentName        string `json:"opponent_name,omitempty"`
	OpponentBackground  string `json:"opponent_background,omitempty"`
	OpponentStyle       string `json:"opponent_style,omitempty"`
	ResearchNotes       string `json:"research_notes,omitempty"`
	ToneDirective       string `json:"tone_directive,omitempty"`
	ExtraDirectives     string `json:"extra_directives,omitempty"`

	// Notification target for pipeline completion, e.g. "telegram:12345".
	NotifyKey string `json:"notify_key,omitempty"`

	// Generated prep artifacts.
	Openings  []Opening          `json:"openings,omitempty"`
	Frames    []Frame            `json:"frames,omitempty"`
	Receipts  []Receipt          `json:"receipts,omitempty"`
	Zingers   []Zinger           `json:"zingers,omitempty"`
	Closings  []Closing          `json:"closings,omitempty"`
	Intel     []IntelItem        `json:"intel,omitempty"`
	Generic   *GenericPrep       `json:"generic,omitempty"`
	Synthesis *ResearchSynthesis `json:"synthesis,omitempty"`
	Brief     *PolishedBrief     `json:"brief,omitempty"`

	// Selection ids must reference ids present in the matching collection.
	SelectedOpeningID string   `json:"selected_opening_id,omitempty"`
	SelectedFrameIDs  []string `json:"selected_frame_ids,omitempty"`
	SelectedClosingID string   `json:"selected_closing_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Opening is a candidate opening statement.
type Opening struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

// Frame is an argument frame with optional links to evidence receipts.
type Frame struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	EvidenceIDs []string `json:"evidenceIds"`
}

// Receipt is one evidence item, grouped by category.
type Receipt struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Claim    string `json:"claim"`
	Source   string `json:"source,omitempty"`
	Quote    string `json:"quote,omitempty"`
}

// Zinger is a short rehearsed line with a usage cue.
type Zinger struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	UseWhen string `json:"use_when,omitempty"`
}

// Closing is a candidate closing statement.
type Closing struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

// IntelItem is an anticipated opponent argument with prepared counters.
type IntelItem struct {
	ID         string    `json:"id"`
	Argument   string    `json:"argument"`
	Likelihood string    `json:"likelihood,omitempty"`
	Counters   []Counter `json:"counters"`
}

// Counter is one prepared response to an anticipated argument.
type Counter struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// GenericPrep holds the reduced artifact set produced by the non-research
// pipeline for roleplay categories (sales, pitch, healthcare).
type GenericPrep struct {
	TalkingPoints      []TalkingPoint      `json:"talking_points"`
	OpeningApproach    string              `json:"opening_approach"`
	ClosingApproach    string              `json:"closing_approach"`
	KeyPhrases         []KeyPhrase         `json:"key_phrases"`
	ObjectionResponses []ObjectionResponse `json:"objection_responses"`
}

type TalkingPoint struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type KeyPhrase struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ObjectionResponse struct {
	ID        string `json:"id"`
	Objection string `json:"objection"`
	Response  string `json:"response"`
}

// ResearchArticle is one source document gathered during research.
type ResearchArticle struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	Summary       string `json:"summary"`
	Source        string `json:"source"`
	PublishedDate string `json:"publishedDate,omitempty"`
}

// ResearchBatch is one immutable research run appended to a subject.
// Multiple batches accumulate; the most recent wins for downstream readers.
type ResearchBatch struct {
	ID        BatchID           `json:"id"`
	SubjectID SubjectID         `json:"subject_id"`
	Query     string            `json:"query"`
	Articles  []ResearchArticle `json:"articles"`
	CreatedAt time.Time         `json:"created_at"`
}

// ResearchSynthesis is a structured digest of a research batch. Its absence
// never blocks artifact generation.
type ResearchSynthesis struct {
	Perspectives      []Perspective `json:"perspectives"`
	ConsensusPoints   []string      `json:"consensusPoints"`
	ContentionPoints  []string      `json:"contentionPoints"`
	Statistics        []Statistic   `json:"statistics"`
	Quotes            []Quote       `json:"quotes"`
	Gaps              []string      `json:"gaps"`
	StrategicInsights []string      `json:"strategicInsights"`
}

type Perspective struct {
	Viewpoint string `json:"viewpoint"`
	Summary   string `json:"summary"`
}

type Statistic struct {
	Claim  string `json:"claim"`
	Source string `json:"source,omitempty"`
}

type Quote struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

// PolishedBrief is the final synthesized narrative stored on the subject.
type PolishedBrief struct {
	Markdown       string    `json:"markdown"`
	WordCount      int       `json:"word_count"`
	ReadingTimeSec int       `json:"reading_time_sec"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// PipelineKind distinguishes progress records per subject.
type PipelineKind string

const (
	PipelinePrimary PipelineKind = "primary"
	PipelineGeneric PipelineKind = "generic"
)

// Stage is a pipeline progress status value.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageResearching     Stage = "researching"
	StageExtracting      Stage = "extracting"
	StageSynthesizing    Stage = "synthesizing"
	StageGenerating      Stage = "generating"
	StageGeneratingBrief Stage = "generating_strategic_brief"
	StageStoring         Stage = "storing"
	StageComplete        Stage = "complete"
	StageError           Stage = "error"
)

// ProgressRecord tracks one pipeline run's stage per subject and kind.
type ProgressRecord struct {
	SubjectID SubjectID    `json:"subject_id"`
	Kind      PipelineKind `json:"kind"`
	Status    Stage        `json:"status"`
	Error     string       `json:"error,omitempty"`
	Completed []Stage      `json:"completed,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CostPhase labels which part of the product incurred an external API cost.
type CostPhase string

const (
	PhaseResearch CostPhase = "research"
	PhasePrep     CostPhase = "prep"
	PhaseDebate   CostPhase = "debate"
	PhaseAnalysis CostPhase = "analysis"
)

// CostRecord is an append-only entry tracking external API spend in cents.
type CostRecord struct {
	ID        CostID    `json:"id"`
	Service   string    `json:"service"`
	CostCents int       `json:"cost_cents"`
	Phase     CostPhase `json:"phase"`
	UserID    string    `json:"user_id"`
	SubjectID SubjectID `json:"subject_id,omitempty"`
	SessionID SessionID `json:"session_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one live practice conversation against the voice platform.
type Session struct {
	ID           SessionID `json:"id"`
	SubjectID    SubjectID `json:"subject_id"`
	UserID       string    `json:"user_id"`
	ScenarioType string    `json:"scenario_type"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// ClientDurationSec is reported by the client before the platform's
	// end-of-call report arrives and takes precedence over it.
	ClientDurationSec int  `json:"client_duration_sec,omitempty"`
	DurationSec       int  `json:"duration_sec,omitempty"`
	Finalized         bool `json:"finalized"`

	RecordingURL string `json:"recording_url,omitempty"`

	QuickAnalysis   string          `json:"quick_analysis,omitempty"`
	QuickAnalysisAt *time.Time      `json:"quick_analysis_at,omitempty"`
	FullAnalysis    json.RawMessage `json:"full_analysis,omitempty"`
	// Framework tags which analysis schema produced FullAnalysis
	// ("debate" or "generic") so the client renders the correct view.
	Framework      string     `json:"framework,omitempty"`
	FullAnalysisAt *time.Time `json:"full_analysis_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Exchange is one turn of a live session transcript, appended by the voice
// platform webhook and immutable once written.
type Exchange struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}
