package stage

import (
	"fmt"
	"strings"

	"github.com/specloom/specloom/internal/session"
)

const factsSystemPrompt = `You are a research analyst. Extract structured observations from a problem-discovery interview transcript.

You MUST respond with valid JSON matching this schema:
{
  "facts": [
    {
      "id": "f1",
      "type": "fact|pain|frequency|workaround",
      "content": "one observation in the respondent's terms",
      "evidence": "short quote or paraphrase from the transcript",
      "severity": "high|medium|low"
    }
  ]
}

Rules:
- Extract every distinct observation, even minor ones.
- "pain" is something that costs the respondent time, money, or morale.
- "frequency" captures how often something happens.
- "workaround" is what they do about a pain today.
- Severity reflects impact on the respondent, not your opinion of the product.`

const hypothesesSystemPrompt = `You are a product strategist. Derive testable hypotheses from extracted interview facts.

You MUST respond with valid JSON matching this schema:
{
  "hypotheses": [
    {
      "id": "h1",
      "title": "short hypothesis name",
      "description": "what we believe and why",
      "supportingFacts": ["f1", "f3"],
      "counterEvidence": "anything in the facts that cuts against this",
      "unverifiedPoints": ["what we still need to learn"]
    }
  ]
}

Rules:
- Every hypothesis must cite at least one fact ID from the input.
- Prefer a few strong hypotheses over many weak ones.
- Note counter-evidence honestly; an unchallenged hypothesis is a red flag.`

const requirementsSystemPrompt = `You are a product manager. Turn interview facts and hypotheses into a product requirements document.

You MUST respond with valid JSON matching this schema:
{
  "problemStatement": "the problem in one or two sentences",
  "targetUsers": "who has this problem",
  "coreFeatures": [
    {"id": "r1", "name": "feature name", "description": "what it does", "priority": "must|should|could"}
  ],
  "successMetrics": ["how we will know this works"],
  "outOfScope": ["what we are deliberately not building"]
}

Rules:
- Every must-have feature should trace back to a high-severity pain.
- Keep the problem statement in the users' language, not solution language.`

const specificationSystemPrompt = `You are a software architect. Turn a product requirements document into a technical specification.

You MUST respond with valid JSON matching this schema:
{
  "overview": "architecture summary in a short paragraph",
  "dataModel": [{"entity": "Name", "fields": ["field: type"]}],
  "apiEndpoints": [{"method": "GET", "path": "/things", "description": "what it does"}],
  "techStack": ["technology choices"],
  "risks": ["technical risks and open questions"]
}

Rules:
- Cover every must-have feature with at least one endpoint.
- Keep the data model minimal; no speculative entities.`

func factsPrompt(theme string, turns []session.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Problem Theme\n%s\n\n## Interview Transcript\n", theme)
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	b.WriteString("\nExtract all facts from this transcript.")
	return b.String()
}

func hypothesesPrompt(theme string, facts []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Problem Theme\n%s\n\n## Extracted Facts\n%s\n", theme, facts)
	b.WriteString("\nDerive hypotheses from these facts.")
	return b.String()
}

func requirementsPrompt(theme string, facts, hypotheses []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Problem Theme\n%s\n\n## Extracted Facts\n%s\n\n## Hypotheses\n%s\n", theme, facts, hypotheses)
	b.WriteString("\nWrite the requirements document for this problem.")
	return b.String()
}

func specificationPrompt(theme string, requirements []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Problem Theme\n%s\n\n## Requirements\n%s\n", theme, requirements)
	b.WriteString("\nWrite the technical specification for these requirements.")
	return b.String()
}
