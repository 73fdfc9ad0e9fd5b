package debate

import (
	"time"

	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/prompt"
)

// Entry is one participant's result within a round.
type Entry struct {
	Participant string `json:"participant"`
	Backend     string `json:"cli"`
	Persona     string `json:"persona,omitempty"`
	Response    string `json:"response,omitempty"`
	// ErrorKind is empty on success.
	ErrorKind perrors.Kind  `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// OK reports whether the entry holds a response.
func (e Entry) OK() bool { return e.ErrorKind == perrors.KindNone }

// RoundResult holds exactly one entry per scheduled participant, in
// participant order.
type RoundResult struct {
	Round   int     `json:"round"`
	Entries []Entry `json:"entries"`
}

// Succeeded counts entries with a response.
func (r RoundResult) Succeeded() int {
	n := 0
	for _, e := range r.Entries {
		if e.OK() {
			n++
		}
	}
	return n
}

// Failed counts entries with an error.
func (r RoundResult) Failed() int { return len(r.Entries) - r.Succeeded() }

// Prompt converts the round into the form the context builder folds.
func (r RoundResult) Prompt() prompt.Round {
	out := make(prompt.Round, len(r.Entries))
	for i, e := range r.Entries {
		c := prompt.Contribution{Participant: e.Participant, Response: e.Response}
		if !e.OK() {
			c.Failure = string(e.ErrorKind)
		}
		out[i] = c
	}
	return out
}

// SynthesisResult is the moderator summary of a finished debate.
type SynthesisResult struct {
	Backend  string        `json:"cli"`
	Text     string        `json:"text,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Transcript is the append-only record of a debate.
type Transcript struct {
	ID           string           `json:"id"`
	Topic        string           `json:"topic"`
	Participants []Participant    `json:"participants"`
	Requested    int              `json:"rounds_requested"`
	Rounds       []RoundResult    `json:"rounds"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Synthesis    *SynthesisResult `json:"synthesis,omitempty"`
}

// Outcome classifies the recorded rounds.
func (t *Transcript) Outcome() Outcome {
	ok, failed := 0, 0
	for _, r := range t.Rounds {
		ok += r.Succeeded()
		failed += r.Failed()
	}
	switch {
	case ok == 0:
		return OutcomeNoResponses
	case failed > 0:
		return OutcomeDegraded
	default:
		return OutcomeComplete
	}
}

// Complete reports whether every requested round was recorded.
func (t *Transcript) Complete() bool { return len(t.Rounds) == t.Requested }

// PromptRounds returns the recorded rounds in context builder form.
func (t *Transcript) PromptRounds() []prompt.Round {
	out := make([]prompt.Round, len(t.Rounds))
	for i, r := range t.Rounds {
		out[i] = r.Prompt()
	}
	return out
}

func (t *Transcript) append(r RoundResult) {
	t.Rounds = append(t.Rounds, r)
}
