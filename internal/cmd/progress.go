package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/render"
)

// progress prints debate events as one-line status updates.
type progress struct {
	mu sync.Mutex
	w  io.Writer
	st render.Styles
}

// watchProgress subscribes a progress printer to bus and returns a func
// that removes it.
func watchProgress(bus *event.Bus, w io.Writer) func() {
	p := &progress{w: w, st: render.NewStyles(w)}
	id := bus.SubscribeAll(p.handle)
	return func() { bus.Unsubscribe(id) }
}

func (p *progress) handle(e event.Event) {
	var line string
	switch ev := e.(type) {
	case event.RoundStartedEvent:
		line = p.st.Heading.Render(fmt.Sprintf("Round %d/%d", ev.Round, ev.Of))
	case event.ParticipantFinishedEvent:
		if ev.ErrorKind == "" {
			line = p.st.Success.Render("  ✓ ") + fmt.Sprintf("%s (%s)", ev.Participant, ev.Duration.Round(100*time.Millisecond))
		} else {
			line = p.st.Error.Render("  ✗ ") + fmt.Sprintf("%s: %s", ev.Participant, ev.ErrorKind)
		}
	case event.RoundCompletedEvent:
		line = p.st.Muted.Render(fmt.Sprintf("  %d responded, %d failed", ev.Succeeded, ev.Failed))
	default:
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}
