package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/parley/internal/backend"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/invoker"
	"github.com/Iron-Ham/parley/internal/session"
	"github.com/Iron-Ham/parley/internal/stdin"
	"github.com/spf13/cobra"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <cli> [prompt]",
	Short: "Send one prompt to a backend",
	Long: `Send one prompt to a backend and print its response.

With --session the stored conversation is replayed ahead of the prompt and
the new exchange is appended once the backend answers. The session is
created on first use; its topic defaults to the first line of the prompt.`,
	Example: `  parley invoke claude "Explain this stack trace" < trace.txt
  parley invoke gemini --session api-review "What about pagination?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInvoke,
}

var (
	invokeSession     string
	invokeTopic       string
	invokeContextFile string
	invokeTimeout     string
	invokeWrite       bool
	invokeModel       string
	invokeStdinAs     string
)

func init() {
	rootCmd.AddCommand(invokeCmd)

	invokeCmd.Flags().StringVarP(&invokeSession, "session", "s", "", "continue or start a named session")
	invokeCmd.Flags().StringVar(&invokeTopic, "topic", "", "topic recorded for a new session")
	invokeCmd.Flags().StringVar(&invokeContextFile, "context-file", "", "include a file's content with the prompt")
	invokeCmd.Flags().StringVarP(&invokeTimeout, "timeout", "t", "", "timeout, e.g. 90s or 120 (default from config)")
	invokeCmd.Flags().BoolVar(&invokeWrite, "write", false, "allow the backend to modify files")
	invokeCmd.Flags().StringVarP(&invokeModel, "model", "m", "", "model passed to the backend")
	invokeCmd.Flags().StringVar(&invokeStdinAs, "stdin-as", "auto", "use of piped stdin: auto, context or ignore")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	spec, err := a.registry.Resolve(args[0])
	if err != nil {
		return err
	}
	if invokeSession != "" {
		if err := session.ValidateName(invokeSession); err != nil {
			return err
		}
	}
	mode, err := stdin.ParseMode(invokeStdinAs)
	if err != nil {
		return err
	}
	timeout := a.cfg.Defaults.Timeout
	if invokeTimeout != "" {
		if timeout, err = parseTimeout(invokeTimeout); err != nil {
			return err
		}
	}

	piped, err := stdin.ReadIfPiped(os.Stdin, mode)
	if err != nil {
		return err
	}
	request, err := stdin.Merge(mode, strings.Join(args[1:], " "), piped)
	if err != nil {
		return err
	}
	if invokeContextFile != "" {
		if request, err = withContextFile(invokeContextFile, request); err != nil {
			return err
		}
	}
	if request == "" {
		return perrors.NewValidationError("a prompt is required").WithField("prompt")
	}

	var (
		store *session.Store
		prior *session.Session
	)
	if invokeSession != "" {
		if store, err = a.store(); err != nil {
			return err
		}
		prior, err = store.Load(invokeSession)
		if err != nil && !errors.Is(err, perrors.ErrSessionNotFound) {
			return err
		}
		if prior != nil && prior.Backend != spec.ID {
			return perrors.NewValidationError(fmt.Sprintf("session %q belongs to %s", invokeSession, prior.Backend)).
				WithField("cli").WithValue(spec.ID)
		}
	}

	access := backend.AccessReadOnly
	if invokeWrite {
		access = backend.AccessWrite
	}
	out, err := a.invoker.Invoke(cmd.Context(), spec, invoker.Input{
		Prompt:  prior.BuildPrompt(request, a.cfg.Context.MaxHistoryChars),
		Timeout: timeout,
		Access:  access,
		Model:   invokeModel,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.Text)

	if store == nil {
		return nil
	}
	topic := invokeTopic
	if topic == "" {
		topic = firstLine(request)
	}
	seed := session.Seed{Backend: spec.ID, Topic: topic}
	if _, err := store.AppendExchange(cmd.Context(), invokeSession, seed, request, out.Text); err != nil {
		return perrors.Wrapf(err, "response received but session %s was not updated", invokeSession)
	}
	return nil
}

// withContextFile prefixes request with the named file's content.
func withContextFile(path, request string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", perrors.NewIOError("read", path, err)
	}
	return fmt.Sprintf("File: %s\n\n%s\n\n%s", path, strings.TrimSpace(string(data)), request), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
