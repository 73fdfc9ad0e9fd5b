package cmd

import (
	"fmt"

	"github.com/Iron-Ham/parley/internal/agentdef"
	"github.com/Iron-Ham/parley/internal/backend"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/invoker"
	"github.com/Iron-Ham/parley/internal/prompt"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate-agents",
	Short: "Ask a backend to write an agent definition file",
	Long: `Ask a backend to write one participant definition per role.

The response is checked against the same rules as --agent-file before the
file is written, so the result can be used directly:

  parley generate-agents --topic "Pricing change" --roles "CFO,Head of Sales" -o agents.json
  parley debate --agent-file agents.json "Pricing change"`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var (
	generateTopic   string
	generateRoles   string
	generateOutput  string
	generateCLI     string
	generateTimeout string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateTopic, "topic", "", "debate topic the agents are written for")
	generateCmd.Flags().StringVar(&generateRoles, "roles", "", `comma-separated roles, e.g. "CEO,CTO,CFO"`)
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "agent file to write")
	generateCmd.Flags().StringVar(&generateCLI, "cli", "", "backend that writes the definitions (default from config)")
	generateCmd.Flags().StringVarP(&generateTimeout, "timeout", "t", "", "timeout, e.g. 90s or 120 (default from config)")
	_ = generateCmd.MarkFlagRequired("topic")
	_ = generateCmd.MarkFlagRequired("roles")
	_ = generateCmd.MarkFlagRequired("output")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	roles, err := agentdef.ParseRoles(generateRoles)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cli := generateCLI
	if cli == "" {
		cli = a.cfg.Defaults.Synthesizer
	}
	spec, err := a.registry.Resolve(cli)
	if err != nil {
		return err
	}
	timeout := a.cfg.Defaults.Timeout
	if generateTimeout != "" {
		if timeout, err = parseTimeout(generateTimeout); err != nil {
			return err
		}
	}

	cmd.PrintErrf("Generating %d agent definition(s) with %s...\n", len(roles), spec.ID)
	out, err := a.invoker.Invoke(cmd.Context(), spec, invoker.Input{
		Prompt:  prompt.AgentGeneration(generateTopic, roles),
		Timeout: timeout,
		Access:  backend.AccessReadOnly,
	})
	if err != nil {
		return err
	}

	descriptors, err := agentdef.ParseGenerated(out.Text, len(roles))
	if err != nil {
		a.logger.Debug("unusable generation response", "response", out.Text)
		return err
	}
	file := agentdef.NewGenerated(spec.ID, descriptors)
	if err := agentdef.Validate(file, a.registry.IsKnown); err != nil {
		return perrors.Wrap(err, "generated definitions failed validation")
	}
	if err := agentdef.Save(generateOutput, file); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d agent definition(s) to %s\n", len(descriptors), generateOutput)
	return nil
}
