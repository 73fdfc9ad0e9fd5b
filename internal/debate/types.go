// Package debate runs multi-round debates between backend participants.
//
// A Coordinator runs one round: every participant is invoked concurrently
// with its own deadline and the results are assembled by participant index.
// An Engine drives the rounds in sequence and owns the growing Transcript.
package debate

// Status is the engine's lifecycle state.
type Status string

const (
	// StatusIdle indicates no round has been scheduled yet.
	StatusIdle Status = "idle"

	// StatusRunning indicates a round is in flight.
	StatusRunning Status = "running"

	// StatusComplete indicates every requested round has been recorded.
	StatusComplete Status = "complete"

	// StatusCanceled indicates the debate stopped before its last round.
	StatusCanceled Status = "canceled"
)

// Outcome summarizes a finished transcript.
type Outcome string

const (
	// OutcomeComplete means every participant answered in every round.
	OutcomeComplete Outcome = "complete"

	// OutcomeDegraded means at least one entry failed and at least one succeeded.
	OutcomeDegraded Outcome = "degraded"

	// OutcomeNoResponses means no participant answered in any round.
	OutcomeNoResponses Outcome = "no_responses"
)
