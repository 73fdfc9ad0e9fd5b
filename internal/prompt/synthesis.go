package prompt

import (
	"fmt"
	"strings"
)

// Synthesis asks one backend to summarize a finished debate.
func Synthesis(topic string, rounds []Round) string {
	var transcript strings.Builder
	for i, r := range rounds {
		transcript.WriteString(renderRound(i+1, r))
	}

	var b strings.Builder
	b.WriteString("You are the neutral moderator of a structured multi-party debate. ")
	b.WriteString("Read the full transcript and write a synthesis.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n\n", topic)
	b.WriteString(Block("DEBATE TRANSCRIPT", strings.TrimRight(transcript.String(), "\n")))
	b.WriteString("\n\nRespond with exactly these sections:\n")
	b.WriteString("## Consensus\nPoints most participants agree on.\n\n")
	b.WriteString("## Disagreements\nWhere positions diverge, naming who holds which view.\n\n")
	b.WriteString("## Key Insights\nThe strongest arguments raised.\n\n")
	b.WriteString("## Recommendation\nA concrete recommendation with its main risk.")
	return b.String()
}

// AgentGeneration asks a backend for participant descriptors, one per role.
func AgentGeneration(topic string, roles []string) string {
	return fmt.Sprintf(`Generate detailed agent definitions for a debate on the following topic:

Topic: %q

Create exactly %d agent definition(s), one for each of these roles: %s

For each agent, provide a JSON object with these fields:
- "cli": the backend to use ("claude", "codex" or "gemini", distributed evenly)
- "persona": the role name (e.g. "CEO", "Principal Architect")
- "instructions": 2-4 sentences on how this role approaches the debate, what it prioritizes and how it argues
- "expertise": an array of 3-5 expertise areas relevant to this role
- "communication_style": a short description of how this role communicates

Return ONLY a JSON array of agent objects. No markdown fences, no commentary.

Example:
[
  {
    "cli": "claude",
    "persona": "CEO",
    "instructions": "Focus on business impact, ROI and strategic alignment. Be decisive but ask about risks.",
    "expertise": ["business strategy", "finance", "leadership"],
    "communication_style": "Executive, concise and action-oriented"
  }
]`, topic, len(roles), strings.Join(roles, ", "))
}
