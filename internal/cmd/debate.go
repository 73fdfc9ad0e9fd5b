package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/parley/internal/agentdef"
	"github.com/Iron-Ham/parley/internal/backend"
	"github.com/Iron-Ham/parley/internal/debate"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/render"
	"github.com/Iron-Ham/parley/internal/stdin"
	"github.com/Iron-Ham/parley/internal/template"
	"github.com/spf13/cobra"
)

var debateCmd = &cobra.Command{
	Use:   "debate [topic]",
	Short: "Run a multi-round debate between backends",
	Long: `Run a multi-round debate on a topic.

Every participant answers the topic in round 1. In later rounds each one
sees every response from the previous rounds and refines its position.

Participants come from exactly one of:
  (default)          claude, codex and gemini
  --participants     "cli:persona[:model],..." e.g. "claude:CEO,gemini:CTO"
  --agent/--instances N copies of one backend
  --agent-file       a validated agent definition file
  --template         a built-in or user template

Piped stdin becomes the topic when none is given, otherwise it is added
as context ahead of the topic (see --stdin-as).`,
	Example: `  parley debate "Should we adopt a monorepo?"
  parley debate -r 2 -p "claude:Skeptic,codex:Advocate" "Rewrite in Rust?"
  parley debate --template code-review --synthesize < diff.patch`,
	RunE: runDebate,
}

var (
	debateRounds       int
	debateTimeout      string
	debateParticipants string
	debateAgent        string
	debateInstances    int
	debateAgentFile    string
	debateTemplate     string
	debateSynthesize   bool
	debateSynthesizer  string
	debateOutput       string
	debateWrite        bool
	debateStdinAs      string
	debateQuiet        bool
)

func init() {
	rootCmd.AddCommand(debateCmd)

	debateCmd.Flags().IntVarP(&debateRounds, "rounds", "r", 0, "number of rounds (default from config or template)")
	debateCmd.Flags().StringVarP(&debateTimeout, "timeout", "t", "", "per-participant timeout, e.g. 90s or 120 (default from config)")
	debateCmd.Flags().StringVarP(&debateParticipants, "participants", "p", "", `participants as "cli:persona[:model],..."`)
	debateCmd.Flags().StringVar(&debateAgent, "agent", "", "run several instances of one backend")
	debateCmd.Flags().IntVar(&debateInstances, "instances", debate.DefaultInstances, "number of instances for --agent")
	debateCmd.Flags().StringVar(&debateAgentFile, "agent-file", "", "load participants from an agent definition file")
	debateCmd.Flags().StringVar(&debateTemplate, "template", "", "use a debate template")
	debateCmd.Flags().BoolVar(&debateSynthesize, "synthesize", false, "summarize the debate when it completes")
	debateCmd.Flags().StringVar(&debateSynthesizer, "synthesizer", "", "backend used for --synthesize (default from config)")
	debateCmd.Flags().StringVarP(&debateOutput, "output", "o", "text", "output format: text, json or markdown")
	debateCmd.Flags().BoolVar(&debateWrite, "write", false, "allow participants to modify files")
	debateCmd.Flags().StringVar(&debateStdinAs, "stdin-as", "auto", "use of piped stdin: auto, context or ignore")
	debateCmd.Flags().BoolVarP(&debateQuiet, "quiet", "q", false, "hide progress output")

	debateCmd.MarkFlagsMutuallyExclusive("participants", "agent", "agent-file", "template")
}

func runDebate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	format, err := render.ParseFormat(debateOutput)
	if err != nil {
		return err
	}
	mode, err := stdin.ParseMode(debateStdinAs)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("instances") && debateAgent == "" {
		return perrors.NewValidationError("--instances requires --agent").WithField("instances")
	}

	piped, err := stdin.ReadIfPiped(os.Stdin, mode)
	if err != nil {
		return err
	}
	topic, err := stdin.Merge(mode, strings.Join(args, " "), piped)
	if err != nil {
		return err
	}
	if topic == "" {
		return perrors.NewValidationError("a topic is required").WithField("topic")
	}

	participants, tmpl, err := debateSeats(a)
	if err != nil {
		return err
	}

	opts := debate.Options{
		Rounds:        a.cfg.Defaults.Rounds,
		Timeout:       a.cfg.Defaults.Timeout,
		MaxPriorChars: a.cfg.Context.MaxTranscriptChars,
	}
	if tmpl != nil {
		topic = tmpl.Apply(topic)
		if tmpl.DefaultRounds > 0 {
			opts.Rounds = tmpl.DefaultRounds
		}
	}
	if cmd.Flags().Changed("rounds") {
		opts.Rounds = debateRounds
	}
	if debateTimeout != "" {
		if opts.Timeout, err = parseTimeout(debateTimeout); err != nil {
			return err
		}
	}

	var synth backend.Spec
	if debateSynthesize {
		id := debateSynthesizer
		if id == "" {
			id = a.cfg.Defaults.Synthesizer
		}
		if synth, err = a.registry.Resolve(id); err != nil {
			return perrors.NewValidationError("unknown synthesizer").WithField("synthesizer").WithValue(id).WithCause(err)
		}
	}

	access := backend.AccessReadOnly
	if debateWrite {
		access = backend.AccessWrite
	}
	coord := debate.NewCoordinator(a.invoker,
		debate.WithAccess(access),
		debate.WithCoordinatorLogger(a.logger),
		debate.WithBus(a.bus))
	engine := debate.NewEngine(a.registry, coord,
		debate.WithEngineLogger(a.logger),
		debate.WithEngineBus(a.bus))

	if !debateQuiet && format == render.FormatText {
		stop := watchProgress(a.bus, cmd.ErrOrStderr())
		defer stop()
	}

	ctx := cmd.Context()
	t, runErr := engine.Run(ctx, topic, participants, opts)
	if t == nil {
		return runErr
	}

	if runErr == nil && debateSynthesize && t.Outcome() != debate.OutcomeNoResponses {
		if err := debate.Synthesize(ctx, a.invoker, synth, t, opts.Timeout, a.logger); err != nil {
			cmd.PrintErrf("warning: %v\n", err)
		}
	}

	if err := render.Transcript(cmd.OutOrStdout(), t, format); err != nil {
		return perrors.NewIOError("write", "stdout", err)
	}
	if runErr != nil {
		return runErr
	}
	if t.Outcome() == debate.OutcomeNoResponses {
		return perrors.Wrapf(perrors.ErrNoResponses, "all %d participant(s) failed in every round", len(t.Participants))
	}
	return nil
}

// debateSeats picks the participant source selected by the flags. The
// template, when one is used, is returned so its framing can be applied.
func debateSeats(a *app) ([]debate.Participant, *template.Template, error) {
	switch {
	case debateParticipants != "":
		ps, err := debate.ParseList(debateParticipants)
		return ps, nil, err
	case debateAgent != "":
		ps, err := debate.Instances(debateAgent, debateInstances)
		return ps, nil, err
	case debateAgentFile != "":
		f, err := agentdef.Load(debateAgentFile, a.registry.IsKnown)
		if err != nil {
			return nil, nil, err
		}
		return f.ToParticipants(), nil, nil
	case debateTemplate != "":
		catalog, err := a.templates()
		if err != nil {
			return nil, nil, err
		}
		tmpl, err := catalog.Get(debateTemplate)
		if err != nil {
			return nil, nil, err
		}
		if err := tmpl.Validate(a.registry.IsKnown); err != nil {
			return nil, nil, fmt.Errorf("template %s: %w", tmpl.Name, err)
		}
		return tmpl.ToParticipants(), tmpl, nil
	}
	return debate.DefaultParticipants(), nil, nil
}
