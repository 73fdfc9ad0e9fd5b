package debate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/logging"
)

// Options are the per-debate settings supplied by the caller.
type Options struct {
	Rounds int
	// Timeout is the per-participant deadline in every round.
	Timeout time.Duration
	// MaxPriorChars bounds the folded prior rounds in each prompt. Zero means unbounded.
	MaxPriorChars int
}

// RoundHook is called after each round is recorded.
type RoundHook func(RoundResult)

// Engine drives one debate from Idle to Complete. An Engine runs a single
// debate and owns its transcript; create one per debate.
type Engine struct {
	resolver Resolver
	coord    *Coordinator
	logger   *logging.Logger
	bus      *event.Bus
	onRound  RoundHook
	newID    func() string

	mu     sync.Mutex
	status Status
	round  int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger.
func WithEngineLogger(l *logging.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithEngineBus publishes debate and round events to b.
func WithEngineBus(b *event.Bus) EngineOption {
	return func(e *Engine) { e.bus = b }
}

// OnRound registers a hook called after each recorded round.
func OnRound(h RoundHook) EngineOption {
	return func(e *Engine) { e.onRound = h }
}

// WithIDFunc overrides debate ID generation.
func WithIDFunc(f func() string) EngineOption {
	return func(e *Engine) { e.newID = f }
}

// NewEngine creates an Engine.
func NewEngine(resolver Resolver, coord *Coordinator, opts ...EngineOption) *Engine {
	e := &Engine{
		resolver: resolver,
		coord:    coord,
		logger:   logging.NopLogger(),
		newID:    uuid.NewString,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status returns the lifecycle state and the current or last round.
func (e *Engine) Status() (Status, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.round
}

func (e *Engine) setStatus(s Status, round int) {
	e.mu.Lock()
	e.status = s
	e.round = round
	e.mu.Unlock()
}

// Run validates its inputs, then runs opts.Rounds rounds in sequence. Each
// round is appended to the transcript only after every participant has
// returned, and round k+1 starts only after round k is recorded.
//
// A debate in which participants fail still completes with a nil error;
// see Transcript.Outcome. If ctx is canceled, the in-flight round is
// discarded and the transcript holds only the rounds recorded so far.
func (e *Engine) Run(ctx context.Context, topic string, participants []Participant, opts Options) (*Transcript, error) {
	e.mu.Lock()
	if e.status != StatusIdle {
		e.mu.Unlock()
		return nil, perrors.NewValidationError("engine has already run a debate")
	}
	e.status = StatusRunning
	e.mu.Unlock()

	seats, err := e.prepare(topic, participants, opts)
	if err != nil {
		e.setStatus(StatusIdle, 0)
		return nil, err
	}

	t := &Transcript{
		ID:           e.newID(),
		Topic:        topic,
		Participants: make([]Participant, len(seats)),
		Requested:    opts.Rounds,
		Rounds:       make([]RoundResult, 0, opts.Rounds),
		StartedAt:    time.Now(),
	}
	labels := make([]string, len(seats))
	for i, s := range seats {
		t.Participants[i] = s.Participant
		labels[i] = s.Label
	}

	log := e.logger.WithDebate(t.ID)
	log.Info("debate started", "rounds", opts.Rounds, "participants", len(seats))
	e.bus.Publish(event.NewDebateStartedEvent(t.ID, topic, opts.Rounds, labels))

	for k := 1; k <= opts.Rounds; k++ {
		if err := ctx.Err(); err != nil {
			return e.cancel(t, log, k)
		}

		e.setStatus(StatusRunning, k)
		rlog := log.WithRound(k)
		rlog.Info("round started")
		e.bus.Publish(event.NewRoundStartedEvent(t.ID, k, opts.Rounds))

		result := e.coord.RunRound(ctx, seats, RoundContext{
			DebateID:      t.ID,
			Topic:         topic,
			Round:         k,
			Prior:         t.PromptRounds(),
			MaxPriorChars: opts.MaxPriorChars,
		}, opts.Timeout)

		if err := ctx.Err(); err != nil {
			return e.cancel(t, log, k)
		}

		t.append(result)
		rlog.Info("round completed", "succeeded", result.Succeeded(), "failed", result.Failed())
		e.bus.Publish(event.NewRoundCompletedEvent(t.ID, k, result.Succeeded(), result.Failed()))
		if e.onRound != nil {
			e.onRound(result)
		}
	}

	t.FinishedAt = time.Now()
	e.setStatus(StatusComplete, opts.Rounds)

	outcome := t.Outcome()
	log.Info("debate completed", "outcome", string(outcome), "duration", t.FinishedAt.Sub(t.StartedAt).String())
	e.bus.Publish(event.NewDebateCompletedEvent(t.ID, string(outcome), len(t.Rounds), t.FinishedAt.Sub(t.StartedAt)))
	return t, nil
}

func (e *Engine) prepare(topic string, participants []Participant, opts Options) ([]Seat, error) {
	var errs perrors.ValidationErrors
	if strings.TrimSpace(topic) == "" {
		errs = append(errs, perrors.NewValidationError("topic must not be empty").WithField("topic"))
	}
	if opts.Rounds < 1 {
		errs = append(errs, perrors.NewValidationError("rounds must be at least 1").
			WithField("rounds").WithValue(opts.Rounds))
	}
	if opts.Timeout < 0 {
		errs = append(errs, perrors.NewValidationError("timeout must not be negative").
			WithField("timeout").WithValue(opts.Timeout))
	}
	if len(participants) == 0 {
		errs = append(errs, perrors.NewValidationError("at least one participant is required").
			WithField("participants"))
	}

	seats, err := Seats(e.resolver, AssignLabels(participants))
	if err != nil {
		if list, ok := err.(perrors.ValidationErrors); ok {
			errs = append(errs, list...)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return seats, nil
}

func (e *Engine) cancel(t *Transcript, log *logging.Logger, round int) (*Transcript, error) {
	t.FinishedAt = time.Now()
	e.setStatus(StatusCanceled, round)
	log.Warn("debate canceled", "round", round, "recorded", len(t.Rounds))
	return t, perrors.Wrapf(perrors.ErrCanceled, "debate canceled during round %d", round)
}
