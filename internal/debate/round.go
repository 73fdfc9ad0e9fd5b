package debate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/parley/internal/backend"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/invoker"
	"github.com/Iron-Ham/parley/internal/logging"
	"github.com/Iron-Ham/parley/internal/prompt"
)

// Resolver maps a backend identifier to its invocation template.
type Resolver interface {
	Resolve(id string) (backend.Spec, error)
}

// Seat is a participant whose backend has been resolved.
type Seat struct {
	Participant
	Spec backend.Spec
}

// Seats resolves every participant and reports all unknown backends at once.
func Seats(r Resolver, ps []Participant) ([]Seat, error) {
	var errs perrors.ValidationErrors
	seats := make([]Seat, 0, len(ps))
	for i, p := range ps {
		spec, err := r.Resolve(p.Backend)
		if err != nil {
			errs = append(errs, perrors.NewValidationError("unknown backend").
				WithField(fmt.Sprintf("participants[%d].cli", i)).
				WithValue(p.Backend).
				WithCause(err))
			continue
		}
		seats = append(seats, Seat{Participant: p, Spec: spec})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return seats, nil
}

// RoundContext is the read-only state shared by every task in a round.
type RoundContext struct {
	DebateID string
	Topic    string
	// Round is 1-based.
	Round         int
	Prior         []prompt.Round
	MaxPriorChars int
}

// Coordinator runs one round of participants concurrently.
type Coordinator struct {
	invoker invoker.Invoker
	access  backend.Access
	logger  *logging.Logger
	bus     *event.Bus
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithAccess sets the access mode for every invocation.
func WithAccess(a backend.Access) CoordinatorOption {
	return func(c *Coordinator) { c.access = a }
}

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(l *logging.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithBus publishes participant events to b.
func WithBus(b *event.Bus) CoordinatorOption {
	return func(c *Coordinator) { c.bus = b }
}

// NewCoordinator creates a Coordinator that invokes backends through inv.
func NewCoordinator(inv invoker.Invoker, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{invoker: inv, access: backend.AccessReadOnly, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunRound invokes every seat once and returns one entry per seat in seat
// order. A failing seat never cancels its siblings; ctx cancellation is
// passed to every invocation, which kills and reaps its process.
func (c *Coordinator) RunRound(ctx context.Context, seats []Seat, rc RoundContext, deadline time.Duration) RoundResult {
	entries := make([]Entry, len(seats))

	var g errgroup.Group
	for i, s := range seats {
		g.Go(func() error {
			entries[i] = c.runSeat(ctx, s, rc, deadline)
			return nil
		})
	}
	_ = g.Wait()

	return RoundResult{Round: rc.Round, Entries: entries}
}

func (c *Coordinator) runSeat(ctx context.Context, s Seat, rc RoundContext, deadline time.Duration) Entry {
	log := c.logger.WithParticipant(s.Label)

	text := prompt.Debate{
		Topic:         rc.Topic,
		Round:         rc.Round,
		Persona:       s.Persona,
		Instructions:  s.Instructions,
		Prior:         rc.Prior,
		MaxPriorChars: rc.MaxPriorChars,
	}.Build()

	entry := Entry{Participant: s.Label, Backend: s.Backend, Persona: s.Persona}

	start := time.Now()
	out, err := c.invoker.Invoke(ctx, s.Spec, invoker.Input{
		Prompt:  text,
		Timeout: deadline,
		Access:  c.access,
		Model:   s.Model,
	})
	entry.Duration = time.Since(start)

	if err != nil {
		entry.ErrorKind = perrors.KindOf(err)
		entry.Error = err.Error()
		log.Warn("participant failed", "kind", string(entry.ErrorKind), "severity", perrors.GetSeverity(err).String(), "error", err.Error())
	} else {
		entry.Response = out.Text
		log.Debug("participant responded", "chars", len(out.Text), "duration", entry.Duration.String())
	}

	c.bus.Publish(event.NewParticipantFinishedEvent(rc.DebateID, rc.Round, s.Label, string(entry.ErrorKind), entry.Duration))
	return entry
}
