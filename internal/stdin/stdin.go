// Package stdin reads piped input and merges it into a topic or prompt.
package stdin

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/prompt"
)

// MaxBytes is the largest piped input accepted.
const MaxBytes = 10 << 20

// Mode controls how piped input is used.
type Mode string

const (
	// ModeAuto uses piped input as the primary text when none was given,
	// otherwise as a context block.
	ModeAuto Mode = "auto"
	// ModeContext always uses piped input as a context block.
	ModeContext Mode = "context"
	// ModeIgnore never reads stdin.
	ModeIgnore Mode = "ignore"
)

// ParseMode parses a --stdin-as value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeContext, ModeIgnore:
		return m, nil
	}
	return "", perrors.NewValidationError("stdin-as must be auto, context or ignore").
		WithField("stdin-as").WithValue(s)
}

// IsPiped reports whether f is not an interactive terminal.
func IsPiped(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// Read returns r's trimmed content, or "" when it is blank. Input longer
// than MaxBytes is rejected rather than cut short.
func Read(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return "", perrors.NewIOError("read", "stdin", err)
	}
	if len(data) > MaxBytes {
		return "", perrors.NewValidationError(fmt.Sprintf("piped input exceeds %d bytes", MaxBytes)).
			WithField("stdin")
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadIfPiped reads f only when it is piped and mode is not ignore.
func ReadIfPiped(f *os.File, mode Mode) (string, error) {
	if mode == ModeIgnore || !IsPiped(f) {
		return "", nil
	}
	return Read(f)
}

// Format wraps piped content in [PIPED CONTEXT] markers.
func Format(content string) string {
	return prompt.Block("PIPED CONTEXT", content)
}

// Merge combines the primary text (topic or prompt) with piped content,
// which goes first as a context block.
func Merge(mode Mode, primary, piped string) (string, error) {
	primary = strings.TrimSpace(primary)
	if piped == "" || mode == ModeIgnore {
		return primary, nil
	}
	if primary == "" {
		if mode == ModeContext {
			return "", perrors.NewValidationError("a topic or prompt is required when stdin is used as context")
		}
		return piped, nil
	}
	return Format(piped) + "\n\n" + primary, nil
}
