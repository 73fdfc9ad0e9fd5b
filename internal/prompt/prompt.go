// Package prompt builds the exact text sent to backends.
//
// Every function here is pure: identical inputs give byte-identical output.
// Nothing reads the clock, the environment or a random source.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	firstRoundAsk = "Please provide your perspective on this topic."
	laterRoundAsk = "Consider the other participants' responses above. Refine your position, " +
		"respond to specific points by name, and note where you agree or disagree."
)

// Block wraps body in [TAG] ... [/TAG] markers.
func Block(tag, body string) string {
	return "[" + tag + "]\n" + body + "\n[/" + tag + "]"
}

// Contribution is one participant's entry in a finished round.
type Contribution struct {
	// Participant is the display label other participants see.
	Participant string
	Response    string
	// Failure is set instead of Response when the participant failed.
	Failure string
}

// Round is a finished round, in participant order.
type Round []Contribution

// Debate is the input for one participant's prompt in one round.
type Debate struct {
	Topic string
	// Round is 1-based.
	Round        int
	Persona      string
	Instructions string
	Prior        []Round
	// MaxPriorChars bounds the folded prior-round text in runes. Zero means unbounded.
	MaxPriorChars int
}

// Build returns the prompt for d.
func (d Debate) Build() string {
	var b strings.Builder

	if role := roleBlock(d.Persona, d.Instructions); role != "" {
		b.WriteString(role)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Topic: %s\n\nRound %d\n\n", d.Topic, d.Round)

	if len(d.Prior) > 0 {
		b.WriteString("Previous rounds:\n\n")
		b.WriteString(foldRounds(d.Prior, d.MaxPriorChars))
		b.WriteString(laterRoundAsk)
	} else {
		b.WriteString(firstRoundAsk)
	}
	return b.String()
}

func roleBlock(persona, instructions string) string {
	persona = strings.TrimSpace(persona)
	instructions = strings.TrimSpace(instructions)
	if persona == "" && instructions == "" {
		return ""
	}

	var lines []string
	if persona != "" {
		lines = append(lines, fmt.Sprintf("You are participating in this debate as a %s. "+
			"Respond from that perspective, drawing on the expertise, priorities, "+
			"and viewpoints typical of this role.", persona))
	}
	if instructions != "" {
		lines = append(lines, "Instructions: "+instructions)
	}
	return Block("ROLE CONTEXT", strings.Join(lines, "\n"))
}

// renderRound formats round number n (1-based).
func renderRound(n int, r Round) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Round %d ---\n", n)
	for _, c := range r {
		if c.Failure != "" {
			fmt.Fprintf(&b, "%s: [no response: %s]\n\n", c.Participant, c.Failure)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n\n", c.Participant, c.Response)
	}
	return b.String()
}

func foldRounds(rounds []Round, limit int) string {
	blocks := make([]string, len(rounds))
	for i, r := range rounds {
		blocks[i] = renderRound(i+1, r)
	}
	kept, omitted := keepNewest(blocks, limit)

	var b strings.Builder
	if omitted > 0 {
		fmt.Fprintf(&b, "[%d earlier round(s) omitted]\n\n", omitted)
	}
	for _, blk := range kept {
		b.WriteString(blk)
	}
	return b.String()
}

// keepNewest keeps the longest suffix of blocks whose rune count fits limit.
// The last block is always kept. It returns the kept blocks and the number
// of blocks dropped from the front.
func keepNewest(blocks []string, limit int) ([]string, int) {
	if limit <= 0 || len(blocks) == 0 {
		return blocks, 0
	}

	start := len(blocks) - 1
	total := utf8.RuneCountInString(blocks[start])
	for start > 0 {
		n := utf8.RuneCountInString(blocks[start-1])
		if total+n > limit {
			break
		}
		total += n
		start--
	}
	return blocks[start:], start
}
