// Package event carries progress notifications from the debate engine and
// the session store to whoever renders them, without either side importing
// the other.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns "category.action", e.g. "round.completed".
	EventType() string
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// Event type identifiers
const (
	TypeDebateStarted       = "debate.started"
	TypeDebateCompleted     = "debate.completed"
	TypeRoundStarted        = "round.started"
	TypeRoundCompleted      = "round.completed"
	TypeParticipantFinished = "participant.finished"
	TypeSessionAppended     = "session.appended"
)

// -----------------------------------------------------------------------------
// Debate Events
// -----------------------------------------------------------------------------

// DebateStartedEvent is emitted before the first round is scheduled.
type DebateStartedEvent struct {
	baseEvent
	DebateID     string
	Topic        string
	Rounds       int
	Participants []string
}

// NewDebateStartedEvent creates a DebateStartedEvent.
func NewDebateStartedEvent(debateID, topic string, rounds int, participants []string) DebateStartedEvent {
	return DebateStartedEvent{
		baseEvent:    newBaseEvent(TypeDebateStarted),
		DebateID:     debateID,
		Topic:        topic,
		Rounds:       rounds,
		Participants: participants,
	}
}

// DebateCompletedEvent is emitted once the transcript is final.
type DebateCompletedEvent struct {
	baseEvent
	DebateID string
	// Outcome is "complete", "degraded" or "no_responses".
	Outcome  string
	Rounds   int
	Duration time.Duration
}

// NewDebateCompletedEvent creates a DebateCompletedEvent.
func NewDebateCompletedEvent(debateID, outcome string, rounds int, d time.Duration) DebateCompletedEvent {
	return DebateCompletedEvent{
		baseEvent: newBaseEvent(TypeDebateCompleted),
		DebateID:  debateID,
		Outcome:   outcome,
		Rounds:    rounds,
		Duration:  d,
	}
}

// -----------------------------------------------------------------------------
// Round Events
// -----------------------------------------------------------------------------

// RoundStartedEvent is emitted when a round's participants are scheduled.
type RoundStartedEvent struct {
	baseEvent
	DebateID string
	Round    int
	Of       int
}

// NewRoundStartedEvent creates a RoundStartedEvent.
func NewRoundStartedEvent(debateID string, round, of int) RoundStartedEvent {
	return RoundStartedEvent{
		baseEvent: newBaseEvent(TypeRoundStarted),
		DebateID:  debateID,
		Round:     round,
		Of:        of,
	}
}

// RoundCompletedEvent is emitted after a round is recorded in the transcript.
type RoundCompletedEvent struct {
	baseEvent
	DebateID  string
	Round     int
	Succeeded int
	Failed    int
}

// NewRoundCompletedEvent creates a RoundCompletedEvent.
func NewRoundCompletedEvent(debateID string, round, succeeded, failed int) RoundCompletedEvent {
	return RoundCompletedEvent{
		baseEvent: newBaseEvent(TypeRoundCompleted),
		DebateID:  debateID,
		Round:     round,
		Succeeded: succeeded,
		Failed:    failed,
	}
}

// ParticipantFinishedEvent is emitted as each participant returns, in
// completion order. It may be published from several goroutines at once.
type ParticipantFinishedEvent struct {
	baseEvent
	DebateID    string
	Round       int
	Participant string
	// ErrorKind is empty on success.
	ErrorKind string
	Duration  time.Duration
}

// NewParticipantFinishedEvent creates a ParticipantFinishedEvent.
func NewParticipantFinishedEvent(debateID string, round int, participant, errorKind string, d time.Duration) ParticipantFinishedEvent {
	return ParticipantFinishedEvent{
		baseEvent:   newBaseEvent(TypeParticipantFinished),
		DebateID:    debateID,
		Round:       round,
		Participant: participant,
		ErrorKind:   errorKind,
		Duration:    d,
	}
}

// -----------------------------------------------------------------------------
// Session Events
// -----------------------------------------------------------------------------

// SessionAppendedEvent is emitted after turns are durably committed.
type SessionAppendedEvent struct {
	baseEvent
	Session string
	Turns   int
}

// NewSessionAppendedEvent creates a SessionAppendedEvent.
func NewSessionAppendedEvent(session string, turns int) SessionAppendedEvent {
	return SessionAppendedEvent{
		baseEvent: newBaseEvent(TypeSessionAppended),
		Session:   session,
		Turns:     turns,
	}
}
