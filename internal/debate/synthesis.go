package debate

import (
	"context"
	"time"

	"github.com/Iron-Ham/parley/internal/backend"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/invoker"
	"github.com/Iron-Ham/parley/internal/logging"
	"github.com/Iron-Ham/parley/internal/prompt"
)

// Synthesize asks spec's backend to summarize t and stores the result on
// t.Synthesis. A failed synthesis is recorded with its error and returned;
// the transcript itself is left intact.
func Synthesize(ctx context.Context, inv invoker.Invoker, spec backend.Spec, t *Transcript, timeout time.Duration, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if len(t.Rounds) == 0 {
		return perrors.NewValidationError("no rounds to synthesize").WithField("rounds")
	}

	log := logger.WithDebate(t.ID).WithParticipant(spec.ID)
	res := &SynthesisResult{Backend: spec.ID}
	t.Synthesis = res

	start := time.Now()
	out, err := inv.Invoke(ctx, spec, invoker.Input{
		Prompt:  prompt.Synthesis(t.Topic, t.PromptRounds()),
		Timeout: timeout,
		Access:  backend.AccessReadOnly,
	})
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		log.Warn("synthesis failed", "error", err.Error())
		return perrors.Wrap(err, "synthesis")
	}

	res.Text = out.Text
	log.Info("synthesis completed", "duration", res.Duration.String())
	return nil
}
