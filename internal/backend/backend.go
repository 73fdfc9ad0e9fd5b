// Package backend resolves backend identifiers into invocation specs.
//
// A backend is either a builtin (claude, codex, gemini) or a plugin loaded
// from a descriptor file. Both resolve once, at startup, into a [Spec]; the
// invoker only ever sees Specs.
package backend

import (
	"fmt"
	"strings"
)

// Kind identifies a builtin backend.
type Kind string

const (
	KindClaude Kind = "claude"
	KindCodex  Kind = "codex"
	KindGemini Kind = "gemini"
)

// BuiltinKinds returns the builtin kinds in display order.
func BuiltinKinds() []Kind {
	return []Kind{KindClaude, KindCodex, KindGemini}
}

// IsBuiltin reports whether id names a builtin backend.
func IsBuiltin(id string) bool {
	switch Kind(strings.ToLower(id)) {
	case KindClaude, KindCodex, KindGemini:
		return true
	}
	return false
}

// InputMode selects how the prompt reaches the process.
type InputMode string

const (
	// InputStdin writes the prompt to standard input.
	InputStdin InputMode = "stdin"
	// InputArgLast appends the prompt as the final argument.
	InputArgLast InputMode = "arg_last"
	// InputFlag appends PromptFlag followed by the prompt.
	InputFlag InputMode = "flag"
)

// ParseInputMode converts a configured mode string.
func ParseInputMode(s string) (InputMode, error) {
	switch InputMode(s) {
	case InputStdin, InputArgLast, InputFlag:
		return InputMode(s), nil
	case "":
		return InputStdin, nil
	}
	return "", fmt.Errorf("unknown input mode %q", s)
}

// Access is the permission level requested for an invocation.
type Access int

const (
	AccessReadOnly Access = iota
	AccessWrite
)

func (a Access) String() string {
	if a == AccessWrite {
		return "write"
	}
	return "read-only"
}

// Source is the closed set of backend origins: Builtin or Plugin.
type Source interface {
	sourceName() string
}

// Builtin is a backend compiled into parley.
type Builtin struct {
	Kind Kind
}

func (b Builtin) sourceName() string { return string(b.Kind) }

// Plugin is a backend described by a plugin file.
type Plugin struct {
	Descriptor Descriptor
}

func (p Plugin) sourceName() string { return p.Descriptor.Name }

// Descriptor is a parsed plugin definition.
type Descriptor struct {
	Name        string
	Description string
	Command     string
	BaseArgs    []string
	// PromptMode is "stdin", "arg" (PromptArg then prompt) or "arg_last".
	PromptMode   string
	PromptArg    string
	ReadOnlyArgs []string
	WriteArgs    []string
	CheckCommand string
	CheckArgs    []string
	// Path is the file the descriptor was loaded from.
	Path string
}

// Spec is a fully resolved invocation template. It is immutable after
// resolution; Argv never mutates the receiver.
type Spec struct {
	ID           string
	Command      string
	Args         []string
	InputMode    InputMode
	PromptFlag   string
	ModelFlag    string
	ReadOnlyArgs []string
	WriteArgs    []string
	// Noise lists substrings of banner lines stripped from output.
	Noise []string
	// CheckCommand and CheckArgs, when set, probe availability instead of a PATH lookup.
	CheckCommand string
	CheckArgs    []string
	Source       Source
}

// Request carries the per-call options that shape the command line.
type Request struct {
	Prompt string
	Access Access
	Model  string
}

// Argv builds the argument list (excluding the command) and the data to
// write on stdin for req.
func (s Spec) Argv(req Request) (args []string, stdin string) {
	args = make([]string, 0, len(s.Args)+len(s.WriteArgs)+4)
	args = append(args, s.Args...)

	if req.Access == AccessWrite {
		args = append(args, s.WriteArgs...)
	} else {
		args = append(args, s.ReadOnlyArgs...)
	}

	if req.Model != "" && s.ModelFlag != "" {
		args = append(args, s.ModelFlag, req.Model)
	}

	switch s.InputMode {
	case InputArgLast:
		args = append(args, req.Prompt)
	case InputFlag:
		args = append(args, s.PromptFlag, req.Prompt)
	default:
		stdin = req.Prompt
	}
	return args, stdin
}

// Clean strips banner lines and surrounding whitespace from raw output.
func (s Spec) Clean(output string) string {
	if len(s.Noise) == 0 {
		return strings.TrimSpace(output)
	}

	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isNoise(line, s.Noise) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isNoise(line string, noise []string) bool {
	for _, n := range noise {
		if strings.Contains(line, n) {
			return true
		}
	}
	return false
}

// builtinNoise holds startup banners each builtin CLI prints.
var builtinNoise = map[Kind][]string{
	KindClaude: {"[STARTUP]", "Claude Code initialized"},
	KindCodex:  {"Codex executed", "Full auto mode enabled"},
	KindGemini: {"[STARTUP]", "YOLO mode is enabled"},
}
