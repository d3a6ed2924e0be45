// internal/schema/definitions.go
package schema

import "encoding/json"

// Definition names a JSON schema passed to the gateway as a response-format
// constraint. One definition exists per generation task.
type Definition struct {
	Name   string
	Strict bool
	Schema json.RawMessage
}

// Payload types for the generation tasks. Item ids are assigned by the
// pipeline after parsing, never by the model.

type OpeningsPayload struct {
	Openings []GeneratedOpening `json:"openings"`
}

type GeneratedOpening struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

type FramesPayload struct {
	Frames []GeneratedFrame `json:"frames"`
}

type GeneratedFrame struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	EvidenceIDs []string `json:"evidenceIds"`
}

type ReceiptsPayload struct {
	Receipts []GeneratedReceipt `json:"receipts"`
}

type GeneratedReceipt struct {
	Category string `json:"category"`
	Claim    string `json:"claim"`
	Source   string `json:"source"`
	Quote    string `json:"quote"`
}

type ZingersPayload struct {
	Zingers []GeneratedZinger `json:"zingers"`
}

type GeneratedZinger struct {
	Text    string `json:"text"`
	UseWhen string `json:"useWhen"`
}

type ClosingsPayload struct {
	Closings []GeneratedClosing `json:"closings"`
}

type GeneratedClosing struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

type IntelPayload struct {
	Intel []GeneratedIntel `json:"intel"`
}

type GeneratedIntel struct {
	Argument   string   `json:"argument"`
	Likelihood string   `json:"likelihood"`
	Counters   []string `json:"counters"`
}

type ArticlesPayload struct {
	Articles []GeneratedArticle `json:"articles"`
}

type GeneratedArticle struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Summary       string `json:"summary"`
	KeyFindings   string `json:"keyFindings"`
	Source        string `json:"source"`
	PublishedDate string `json:"publishedDate"`
}

// Openings forces 3-5 candidate opening statements with a style label.
var Openings = Definition{
	Name:   "opening_statements",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"openings": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"text": {"type": "string"},
						"style": {"type": "string", "enum": ["direct", "narrative", "provocative", "measured"]}
					},
					"required": ["text", "style"],
					"additionalProperties": false
				}
			}
		},
		"required": ["openings"],
		"additionalProperties": false
	}`),
}

// Frames forces argument frames with optional links into the receipts list.
var Frames = Definition{
	Name:   "argument_frames",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"frames": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"title": {"type": "string"},
						"summary": {"type": "string"},
						"evidenceIds": {"type": "array", "items": {"type": "string"}}
					},
					"required": ["title", "summary"],
					"additionalProperties": false
				}
			}
		},
		"required": ["frames"],
		"additionalProperties": false
	}`),
}

// Receipts forces evidence items grouped by category.
var Receipts = Definition{
	Name:   "receipts",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"receipts": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"category": {"type": "string", "enum": ["statistic", "study", "quote", "event", "precedent"]},
						"claim": {"type": "string"},
						"source": {"type": "string"},
						"quote": {"type": "string"}
					},
					"required": ["category", "claim", "source"],
					"additionalProperties": false
				}
			}
		},
		"required": ["receipts"],
		"additionalProperties": false
	}`),
}

// Zingers forces short rehearsed lines with a usage cue.
var Zingers = Definition{
	Name:   "zingers",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"zingers": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"text": {"type": "string"},
						"useWhen": {"type": "string"}
					},
					"required": ["text", "useWhen"],
					"additionalProperties": false
				}
			}
		},
		"required": ["zingers"],
		"additionalProperties": false
	}`),
}

// Closings forces candidate closing statements.
var Closings = Definition{
	Name:   "closing_statements",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"closings": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"text": {"type": "string"},
						"style": {"type": "string", "enum": ["callback", "vision", "challenge", "summary"]}
					},
					"required": ["text", "style"],
					"additionalProperties": false
				}
			}
		},
		"required": ["closings"],
		"additionalProperties": false
	}`),
}

// Intel forces anticipated opponent arguments, each with prepared counters.
var Intel = Definition{
	Name:   "opponent_intel",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"intel": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"argument": {"type": "string"},
						"likelihood": {"type": "string", "enum": ["certain", "likely", "possible"]},
						"counters": {"type": "array", "items": {"type": "string"}}
					},
					"required": ["argument", "likelihood"],
					"additionalProperties": false
				}
			}
		},
		"required": ["intel"],
		"additionalProperties": false
	}`),
}

// Articles forces the research agent's report into a verifiable source list.
var Articles = Definition{
	Name:   "article_extraction",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"articles": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"title": {"type": "string"},
						"url": {"type": "string"},
						"summary": {"type": "string"},
						"keyFindings": {"type": "string"},
						"source": {"type": "string"},
						"publishedDate": {"type": "string"}
					},
					"required": ["title", "url", "summary"],
					"additionalProperties": false
				}
			}
		},
		"required": ["articles"],
		"additionalProperties": false
	}`),
}

// Synthesis forces the structured research digest.
var Synthesis = Definition{
	Name:   "research_synthesis",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"perspectives": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"viewpoint": {"type": "string"},
						"summary": {"type": "string"}
					},
					"required": ["viewpoint", "summary"],
					"additionalProperties": false
				}
			},
			"consensusPoints": {"type": "array", "items": {"type": "string"}},
			"contentionPoints": {"type": "array", "items": {"type": "string"}},
			"statistics": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"claim": {"type": "string"},
						"source": {"type": "string"}
					},
					"required": ["claim"],
					"additionalProperties": false
				}
			},
			"quotes": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"text": {"type": "string"},
						"speaker": {"type": "string"}
					},
					"required": ["text"],
					"additionalProperties": false
				}
			},
			"gaps": {"type": "array", "items": {"type": "string"}},
			"strategicInsights": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["perspectives", "consensusPoints", "contentionPoints", "strategicInsights"],
		"additionalProperties": false
	}`),
}

// DebateAnalysis scores a completed debate session: technique scorecard plus
// the four-part category scoring. Only used when the subject's scenario type
// is "debate"; forcing this shape onto a sales call would produce meaningless
// scores, hence the separate generic schema below.
var DebateAnalysis = Definition{
	Name:   "debate_analysis",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"executiveSummary": {"type": "string"},
			"momentAnalysis": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"moment": {"type": "string"},
						"assessment": {"type": "string"},
						"suggestion": {"type": "string"}
					},
					"required": ["moment", "assessment"],
					"additionalProperties": false
				}
			},
			"techniqueScorecard": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"technique": {"type": "string"},
						"score": {"type": "integer", "minimum": 1, "maximum": 10},
						"evidence": {"type": "string"}
					},
					"required": ["technique", "score"],
					"additionalProperties": false
				}
			},
			"categoryScores": {
				"type": "object",
				"properties": {
					"clash": {"type": "integer", "minimum": 1, "maximum": 10},
					"evidence": {"type": "integer", "minimum": 1, "maximum": 10},
					"rhetoric": {"type": "integer", "minimum": 1, "maximum": 10},
					"strategy": {"type": "integer", "minimum": 1, "maximum": 10}
				},
				"required": ["clash", "evidence", "rhetoric", "strategy"],
				"additionalProperties": false
			}
		},
		"required": ["executiveSummary", "momentAnalysis", "techniqueScorecard", "categoryScores"],
		"additionalProperties": false
	}`),
}

// GenericAnalysis scores non-debate sessions with a flat skills list. Shares
// the executiveSummary/momentAnalysis shape with DebateAnalysis.
var GenericAnalysis = Definition{
	Name:   "generic_analysis",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"executiveSummary": {"type": "string"},
			"momentAnalysis": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"moment": {"type": "string"},
						"assessment": {"type": "string"},
						"suggestion": {"type": "string"}
					},
					"required": ["moment", "assessment"],
					"additionalProperties": false
				}
			},
			"skillsAssessment": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"skill": {"type": "string"},
						"score": {"type": "integer", "minimum": 1, "maximum": 10},
						"feedback": {"type": "string"}
					},
					"required": ["skill", "score"],
					"additionalProperties": false
				}
			}
		},
		"required": ["executiveSummary", "momentAnalysis", "skillsAssessment"],
		"additionalProperties": false
	}`),
}
