package prep

import (
	"fmt"
	"strings"

	"github.com/user/sparring/internal/brief"
	"github.com/user/sparring/internal/types"
)

// researchPrompt seeds the deep-research agent: the strategic context plus an
// effort block scaled to the subject's research intensity.
func researchPrompt(s *types.Subject) string {
	return fmt.Sprintf(`Research the following topic for someone preparing to argue a position.

%s

Gather the strongest arguments on BOTH sides, key statistics with sources, notable quotes from credible figures, and recent developments. For every claim note where it came from.

%s`, brief.Build(s), brief.IntensityInstructions(s.ResearchIntensity))
}

func openingsPrompt(s *types.Subject, excerpt string) string {
	return generationPrompt(s, excerpt,
		"Write 3-5 candidate opening statements the speaker could deliver, each 60-120 words, each with a distinct style (direct, narrative, provocative, or measured). Openings must stake out the position immediately.")
}

func framesPrompt(s *types.Subject, excerpt string) string {
	return generationPrompt(s, excerpt,
		"Identify 3-5 argument frames: the distinct lenses through which the position is strongest. Each frame needs a short title and a summary of how to argue it. Where a frame rests on a specific piece of evidence from the research, reference it.")
}

func receiptsPrompt(s *types.Subject, excerpt string) string {
	return generationPrompt(s, excerpt,
		"Extract 5-10 receipts: concrete pieces of evidence the speaker can cite from memory. Classify each as statistic, study, quote, event, or precedent. Include the source. Only use evidence actually present in the research material.")
}

func zingersPrompt(s *types.Subject, excerpt string) string {
	return generationPrompt(s, excerpt,
		"Write 4-6 zingers: short rehearsed lines (one or two sentences) the speaker can deploy at the right moment. For each, state when to use it.")
}

func closingsPrompt(s *types.Subject, excerpt string) string {
	return generationPrompt(s, excerpt,
		"Write 3-5 candidate closing statements, each 60-120 words, each with a distinct style (callback, vision, challenge, or summary).")
}

func intelPrompt(s *types.Subject, excerpt string) string {
	return generationPrompt(s, excerpt,
		"Anticipate the 4-8 arguments the opposing side is most likely to make, rated certain/likely/possible. For each, prepare 1-3 counters the speaker can use.")
}

func generationPrompt(s *types.Subject, excerpt, task string) string {
	return fmt.Sprintf(`You are a debate and argumentation coach preparing a speaker.

%s

Research material:

%s

Task: %s`, brief.Build(s), excerpt, task)
}

// synthesisPrompt digests a research batch into the structured synthesis.
func synthesisPrompt(s *types.Subject, excerpt string) string {
	return fmt.Sprintf(`Synthesize the research material below into a structured digest for someone preparing to argue a position.

%s

Research material:

%s

Capture the distinct perspectives, points of consensus and contention, the most citable statistics and quotes, gaps in the research, and strategic insights for the speaker.`,
		brief.Build(s), excerpt)
}

// placeholderSynthesis stands in when the synthesis call failed; generation
// proceeds against the raw research excerpt instead.
const placeholderSynthesis = "Research synthesis unavailable; rely on the raw research material above."

// briefPolishPrompt rewrites the assembled prep into the final narrative brief.
func briefPolishPrompt(s *types.Subject, draft string) string {
	return fmt.Sprintf(`Rewrite the preparation notes below into a single polished strategic brief in markdown. Keep every substantive point, cut repetition, and order it for a speaker skimming five minutes before they go on.

%s

Preparation notes:

%s`, brief.Build(s), draft)
}

// briefDraft assembles the generated artifacts into the raw draft handed to
// the polish call.
func briefDraft(s *types.Subject) string {
	var sb strings.Builder

	if len(s.Openings) > 0 {
		sb.WriteString("## Openings\n")
		for _, o := range s.Openings {
			fmt.Fprintf(&sb, "- (%s) %s\n", o.Style, o.Text)
		}
	}
	if len(s.Frames) > 0 {
		sb.WriteString("\n## Argument frames\n")
		for _, f := range s.Frames {
			fmt.Fprintf(&sb, "- %s: %s\n", f.Title, f.Summary)
		}
	}
	if len(s.Receipts) > 0 {
		sb.WriteString("\n## Receipts\n")
		for _, r := range s.Receipts {
			fmt.Fprintf(&sb, "- [%s] %s (%s)\n", r.Category, r.Claim, r.Source)
		}
	}
	if len(s.Zingers) > 0 {
		sb.WriteString("\n## Zingers\n")
		for _, z := range s.Zingers {
			fmt.Fprintf(&sb, "- %s (use when: %s)\n", z.Text, z.UseWhen)
		}
	}
	if len(s.Intel) > 0 {
		sb.WriteString("\n## Opponent intel\n")
		for _, it := range s.Intel {
			fmt.Fprintf(&sb, "- [%s] %s\n", it.Likelihood, it.Argument)
			for _, c := range it.Counters {
				fmt.Fprintf(&sb, "  - counter: %s\n", c.Text)
			}
		}
	}
	if len(s.Closings) > 0 {
		sb.WriteString("\n## Closings\n")
		for _, c := range s.Closings {
			fmt.Fprintf(&sb, "- (%s) %s\n", c.Style, c.Text)
		}
	}
	return sb.String()
}

// genericPrompt is the single-call template for the non-research roleplay
// pipeline. The response is free-form JSON recovered defensively.
func genericPrompt(s *types.Subject) string {
	return fmt.Sprintf(`You are a conversation coach preparing someone for a %s.

%s

Respond with a JSON object of this shape:
{
  "talkingPoints": ["..."],
  "openingApproach": "...",
  "closingApproach": "...",
  "keyPhrases": ["..."],
  "objectionResponses": [{"objection": "...", "response": "..."}]
}

Give 4-6 talking points, 3-5 key phrases, and 3-6 objection responses tailored to the scenario.`,
		scenarioLabel(s.ScenarioType), brief.Build(s))
}

func scenarioLabel(scenarioType string) string {
	switch {
	case strings.HasPrefix(scenarioType, "sales"):
		return "sales conversation"
	case strings.HasPrefix(scenarioType, "pitch"):
		return "investor or stakeholder pitch"
	case strings.HasPrefix(scenarioType, "healthcare"):
		return "difficult healthcare conversation"
	default:
		return "practice conversation"
	}
}
