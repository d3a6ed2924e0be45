// Package brief builds the strategic-brief narrative shared by every
// generation prompt. Build is deterministic and side-effect-free so the
// pipeline can recompute it at any stage without re-fetching state.
package brief

import (
	"fmt"
	"strings"

	"github.com/user/sparring/internal/types"
)

// dispositionLeads maps the audience disposition to its lead-in phrasing.
var dispositionLeads = map[string]string{
	"hostile":   "The audience is hostile to this position and will need to be disarmed before they will listen",
	"skeptical": "The audience is skeptical and will demand evidence before accepting claims",
	"friendly":  "The audience is friendly to this position and mainly needs to be energized",
	"neutral":   "The audience is neutral and open to being persuaded by the stronger case",
}

// Build composes up to four narrative sections from the subject's sparse
// context fields: position, audience, opponent intel, user directives.
// A section whose backing fields are all empty is omitted. Ordering is fixed
// and no section references another.
func Build(s *types.Subject) string {
	var sections []string

	if pos := positionSection(s); pos != "" {
		sections = append(sections, pos)
	}
	if aud := audienceSection(s); aud != "" {
		sections = append(sections, aud)
	}
	if opp := opponentSection(s); opp != "" {
		sections = append(sections, opp)
	}
	if dir := directivesSection(s); dir != "" {
		sections = append(sections, dir)
	}

	return strings.Join(sections, "\n\n")
}

func positionSection(s *types.Subject) string {
	if s.Topic == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The speaker is preparing a %s on the topic: %s.", scenarioNoun(s.ScenarioType), s.Topic)
	if s.Position != "" {
		fmt.Fprintf(&b, " Their position: %s.", s.Position)
	}
	return b.String()
}

func scenarioNoun(scenarioType string) string {
	switch {
	case scenarioType == "debate" || scenarioType == "":
		return "debate"
	case strings.HasPrefix(scenarioType, "sales"):
		return "sales conversation"
	case strings.HasPrefix(scenarioType, "pitch"):
		return "pitch"
	case strings.HasPrefix(scenarioType, "healthcare"):
		return "healthcare conversation"
	default:
		return "practice conversation"
	}
}

func audienceSection(s *types.Subject) string {
	if s.AudienceDescription == "" && s.AudienceDisposition == "" {
		return ""
	}
	var parts []string
	if lead, ok := dispositionLeads[s.AudienceDisposition]; ok {
		parts = append(parts, lead+".")
	}
	if s.AudienceDescription != "" {
		parts = append(parts, "Audience: "+s.AudienceDescription+".")
	}
	return strings.Join(parts, " ")
}

func opponentSection(s *types.Subject) string {
	if s.OpponentName == "" && s.OpponentBackground == "" && s.OpponentStyle == "" {
		return ""
	}
	var parts []string
	if s.OpponentName != "" {
		parts = append(parts, "The counterpart is "+s.OpponentName+".")
	}
	if s.OpponentBackground != "" {
		parts = append(parts, "Background: "+s.OpponentBackground+".")
	}
	if s.OpponentStyle != "" {
		parts = append(parts, "Their style: "+s.OpponentStyle+".")
	}
	return strings.Join(parts, " ")
}

func directivesSection(s *types.Subject) string {
	if s.ResearchNotes == "" && s.ToneDirective == "" && s.ExtraDirectives == "" {
		return ""
	}
	var parts []string
	if s.ToneDirective != "" {
		parts = append(parts, "The speaker wants a "+s.ToneDirective+" tone.")
	}
	if s.ResearchNotes != "" {
		parts = append(parts, "Notes from the speaker's own research: "+s.ResearchNotes+".")
	}
	if s.ExtraDirectives != "" {
		parts = append(parts, "Additional directives: "+s.ExtraDirectives+".")
	}
	return strings.Join(parts, " ")
}

// IntensityInstructions returns the research-effort block appended to the
// deep-research agent's seed prompt. Unknown intensities get the basic block.
func IntensityInstructions(intensity string) string {
	switch intensity {
	case "aggressive":
		return "Run 5-7 targeted searches covering the strongest arguments on both sides, " +
			"recent developments, and the most-cited statistics. Prefer primary sources."
	case "deep":
		return "Run 10+ exhaustive searches with cross-verification: both sides' strongest cases, " +
			"academic literature, recent news, expert commentary, and opposition research. " +
			"Verify every statistic against a second source before including it."
	default:
		return "Run 2-3 focused searches covering the core arguments and one or two key statistics. " +
			"Speed matters more than completeness."
	}
}

const wordsPerMinute = 200

// Meta computes the stored metadata for a polished brief.
func Meta(markdown string) (wordCount, readingTimeSec int) {
	wordCount = len(strings.Fields(markdown))
	readingTimeSec = wordCount * 60 / wordsPerMinute
	if wordCount > 0 && readingTimeSec == 0 {
		readingTimeSec = 1
	}
	return wordCount, readingTimeSec
}
